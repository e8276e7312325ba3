package transport

// ConnectionState is the lifecycle state of a Client. A client moves
// CONNECTING -> CONNECTED -> (CLOSING) -> DISCONNECTED and never goes back;
// reconnecting means dialing a new Client.
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	// StateClosing is only entered by a local Close. A connection dropped by
	// the daemon goes straight to StateDisconnected.
	StateClosing
)

var connectionStateNames = [...]string{
	StateDisconnected: "DISCONNECTED",
	StateConnecting:   "CONNECTING",
	StateConnected:    "CONNECTED",
	StateClosing:      "CLOSING",
}

func (s ConnectionState) String() string {
	if s < 0 || int(s) >= len(connectionStateNames) {
		return "UNKNOWN"
	}
	return connectionStateNames[s]
}

// Open reports whether requests can still be written in this state.
func (s ConnectionState) Open() bool {
	return s == StateConnected
}
