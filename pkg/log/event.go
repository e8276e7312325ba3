package log

import (
	"fmt"
	"strings"
	"time"

	"github.com/jet-ipc/jet-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the daemon connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// RemoteAddr is the daemon URL.
	RemoteAddr string `cbor:"6,keyasint,omitempty"`

	// Strategy is the fetch strategy in use ("shared" or "filtered").
	Strategy string `cbor:"7,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"` // Transport layer
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"` // Wire layer (decoded)
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"` // Connection/registration state
	ControlMsg  *ControlMsgEvent  `cbor:"13,keyasint,omitempty"` // Ping/pong/close
	Error       *ErrorEventData   `cbor:"14,keyasint,omitempty"` // Errors at any layer
	Dispatch    *DispatchEvent    `cbor:"15,keyasint,omitempty"` // Fetch layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates a message received from the daemon.
	DirectionIn Direction = 0

	// DirectionOut indicates a message sent to the daemon.
	DirectionOut Direction = 1
)

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the websocket layer (raw text frames).
	LayerTransport Layer = 0
	// LayerWire is the decoded JSON-RPC layer.
	LayerWire Layer = 1
	// LayerFetch is the subscription dispatch layer.
	LayerFetch Layer = 2
)

// Category classifies the event type.
type Category uint8

const (
	// CategoryMessage is a frame or a JSON-RPC message.
	CategoryMessage Category = 0

	// CategoryControl is a websocket ping, pong or close frame.
	CategoryControl Category = 1

	// CategoryState is a connection or registration state change.
	CategoryState Category = 2

	// CategoryError is a failure at any layer.
	CategoryError Category = 3

	// CategoryDispatch is the outcome of dispatching one fetch notification.
	CategoryDispatch Category = 4
)

var (
	directionNames = []string{"IN", "OUT"}
	layerNames     = []string{"TRANSPORT", "WIRE", "FETCH"}
	categoryNames  = []string{"MESSAGE", "CONTROL", "STATE", "ERROR", "DISPATCH"}
)

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "UNKNOWN"
}

func parseEnum(kind string, names []string, s string) (uint8, error) {
	for i, name := range names {
		if strings.EqualFold(name, s) {
			return uint8(i), nil
		}
	}
	lower := make([]string, len(names))
	for i, name := range names {
		lower[i] = strings.ToLower(name)
	}
	return 0, fmt.Errorf("invalid %s %q (one of: %s)", kind, s, strings.Join(lower, ", "))
}

// String returns the direction name.
func (d Direction) String() string { return enumName(directionNames, uint8(d)) }

// String returns the layer name.
func (l Layer) String() string { return enumName(layerNames, uint8(l)) }

// String returns the category name.
func (c Category) String() string { return enumName(categoryNames, uint8(c)) }

// ParseDirection parses "in" or "out", ignoring case.
func ParseDirection(s string) (Direction, error) {
	v, err := parseEnum("direction", directionNames, s)
	return Direction(v), err
}

// ParseLayer parses a layer name such as "wire", ignoring case.
func ParseLayer(s string) (Layer, error) {
	v, err := parseEnum("layer", layerNames, s)
	return Layer(v), err
}

// ParseCategory parses a category name such as "dispatch", ignoring case.
func ParseCategory(s string) (Category, error) {
	v, err := parseEnum("category", categoryNames, s)
	return Category(v), err
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes.
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded JSON-RPC message at the wire layer.
type MessageEvent struct {
	// Type distinguishes request/response/notification.
	Type MessageType `cbor:"1,keyasint"`

	// MessageID correlates request/response pairs (0 for notifications).
	MessageID int `cbor:"2,keyasint"`

	// Method is the request method name, or the method of a notification
	// ("fetch_all" or the fetch id rendered as a string).
	Method string `cbor:"3,keyasint,omitempty"`

	// FetchID is the routing key of a fetch notification.
	FetchID *int `cbor:"4,keyasint,omitempty"`

	// Event is the lifecycle event of a fetch notification.
	Event string `cbor:"5,keyasint,omitempty"`

	// Path is the path of a fetch notification.
	Path string `cbor:"6,keyasint,omitempty"`

	// ErrorCode is the JSON-RPC error code of an error response.
	ErrorCode *int `cbor:"7,keyasint,omitempty"`

	// Decoded payload (params or result).
	Payload any `cbor:"8,keyasint,omitempty"`

	// ResponseTime is the duration from request send to response receipt (response only).
	// Stored as nanoseconds.
	ResponseTime *time.Duration `cbor:"9,keyasint,omitempty"`
}

// MessageType distinguishes request/response/notification.
type MessageType uint8

const (
	MessageTypeRequest      MessageType = 0
	MessageTypeResponse     MessageType = 1
	MessageTypeNotification MessageType = 2
)

var messageTypeNames = []string{"REQUEST", "RESPONSE", "NOTIFICATION"}

func (m MessageType) String() string { return enumName(messageTypeNames, uint8(m)) }

// StateChangeEvent captures connection and registration lifecycle events.
type StateChangeEvent struct {
	// Entity being changed.
	Entity StateEntity `cbor:"1,keyasint"`

	// OldState is the previous state (may be empty).
	OldState string `cbor:"2,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"3,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"4,keyasint,omitempty"`
}

// StateEntity indicates what entity changed state.
type StateEntity uint8

const (
	// StateEntityConnection is the websocket connection.
	StateEntityConnection StateEntity = 0
	// StateEntityRegistration is the physical fetch-all registration of the
	// shared strategy.
	StateEntityRegistration StateEntity = 1
)

var stateEntityNames = []string{"CONNECTION", "REGISTRATION"}

func (s StateEntity) String() string { return enumName(stateEntityNames, uint8(s)) }

// ControlMsgEvent captures websocket control messages.
type ControlMsgEvent struct {
	// Type of control message.
	Type ControlMsgType `cbor:"1,keyasint"`

	// CloseCode is the websocket close code for close messages.
	CloseCode *int `cbor:"2,keyasint,omitempty"`
}

// ControlMsgType indicates the type of control message.
type ControlMsgType uint8

const (
	ControlMsgPing  ControlMsgType = 0
	ControlMsgPong  ControlMsgType = 1
	ControlMsgClose ControlMsgType = 2
)

var controlMsgNames = []string{"PING", "PONG", "CLOSE"}

func (c ControlMsgType) String() string { return enumName(controlMsgNames, uint8(c)) }

// DispatchEvent captures the outcome of dispatching one fetch notification.
type DispatchEvent struct {
	// FetchID is the routing key the notification was dispatched with.
	FetchID int `cbor:"1,keyasint"`

	// Event is the lifecycle event (may be empty when missing).
	Event string `cbor:"2,keyasint,omitempty"`

	// Path is the notified path (may be empty when missing).
	Path string `cbor:"3,keyasint,omitempty"`

	// Status is the dispatch result.
	Status wire.Status `cbor:"4,keyasint"`

	// Subscribers is the number of callbacks invoked.
	Subscribers int `cbor:"5,keyasint"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	// Layer where the error occurred.
	Layer Layer `cbor:"1,keyasint"`

	// Message is the error message.
	Message string `cbor:"2,keyasint"`

	// Code is the error code (if applicable).
	Code *int `cbor:"3,keyasint,omitempty"`

	// Context describes what operation was being performed.
	Context string `cbor:"4,keyasint,omitempty"`
}
