// Package transport provides the websocket client used to talk to a Jet daemon.
//
// The client carries JSON-RPC 2.0 text frames over a single websocket:
//
//	┌────────────────────────────────┐
//	│   fetch / unfetch (pkg/fetch)  │
//	├────────────────────────────────┤
//	│   JSON-RPC 2.0 (pkg/wire)      │
//	├────────────────────────────────┤
//	│   WebSocket text frames        │
//	├────────────────────────────────┤
//	│   TCP (ws) / TLS (wss)         │
//	└────────────────────────────────┘
//
// # Requests
//
// Client implements fetch.Invoker. Each call gets a fresh message id and
// blocks until the matching response arrives, the call times out, or the
// client is closed.
//
// # Notifications
//
// Inbound notifications are queued by the read loop and delivered in order
// on a separate goroutine. A notification handler may therefore issue new
// requests without stalling the reader.
//
// # Keep-Alive
//
// The client sends websocket pings every PingInterval. Every pong and every
// inbound message extends the read deadline by PongTimeout, so a silent
// daemon is detected after at most PingInterval + PongTimeout.
package transport
