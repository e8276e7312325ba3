package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/jet-ipc/jet-go/pkg/matcher"
)

// JSONRPCVersion is sent in the "jsonrpc" member of outgoing requests.
const JSONRPCVersion = "2.0"

// Request is a JSON-RPC request sent to the daemon.
//
//	{"jsonrpc": "2.0", "id": 3, "method": "fetch", "params": {...}}
type Request struct {
	JSONRPC string `json:"jsonrpc,omitempty"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// Validate checks if the request is valid.
func (r *Request) Validate() error {
	if r.Method == "" {
		return fmt.Errorf("method is required")
	}
	return nil
}

// Response is a JSON-RPC response.
//
//	{"id": 3, "result": true}
//	{"id": 3, "error": {"code": -32602, "message": "Invalid params"}}
type Response struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// IsSuccess returns true if the response carries no error.
func (r *Response) IsSuccess() bool {
	return r != nil && r.Error == nil
}

// SuccessResponse returns {"id": id, "result": true}. It is used for
// responses synthesized locally without a round trip to the daemon.
func SuccessResponse(id int) *Response {
	return &Response{ID: id, Result: json.RawMessage("true")}
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("jet error %d: %s", e.Code, e.Message)
}

// Standard JSON-RPC error codes.
const (
	ErrCodeParseError     = -32700
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Notification is an inbound message without an id.
// Method and Params are kept raw; see RoutingKey and ParseFetchEvent.
type Notification struct {
	Method json.RawMessage `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
}

// NewNotification builds a notification from Go values.
// A nil params leaves the params member out.
func NewNotification(method any, params any) (*Notification, error) {
	m, err := json.Marshal(method)
	if err != nil {
		return nil, fmt.Errorf("failed to encode method: %w", err)
	}
	n := &Notification{Method: m}
	if params != nil {
		p, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("failed to encode params: %w", err)
		}
		n.Params = p
	}
	return n, nil
}

// MethodName returns the method as a string and whether it was one.
func (n *Notification) MethodName() (string, bool) {
	var s string
	if err := json.Unmarshal(n.Method, &s); err != nil {
		return "", false
	}
	return s, true
}

// MessageKind classifies a decoded inbound message.
type MessageKind uint8

const (
	// KindInvalid is a message that is neither request, response nor notification.
	KindInvalid MessageKind = iota
	// KindRequest has a method and an id.
	KindRequest
	// KindResponse has an id and a result or error.
	KindResponse
	// KindNotification has a method and no id.
	KindNotification
)

// String returns the kind name.
func (k MessageKind) String() string {
	switch k {
	case KindRequest:
		return "REQUEST"
	case KindResponse:
		return "RESPONSE"
	case KindNotification:
		return "NOTIFICATION"
	default:
		return "INVALID"
	}
}

// Message is the union of all inbound message shapes.
type Message struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  json.RawMessage `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Kind classifies the message.
func (m *Message) Kind() MessageKind {
	hasID := !isNull(m.ID)
	hasMethod := !isNull(m.Method)

	switch {
	case hasMethod && hasID:
		return KindRequest
	case hasMethod:
		return KindNotification
	case hasID && (m.Result != nil || m.Error != nil):
		return KindResponse
	default:
		return KindInvalid
	}
}

// Response converts a response message. The id must be an integer.
func (m *Message) Response() (*Response, error) {
	if m.Kind() != KindResponse {
		return nil, fmt.Errorf("not a response: %s", m.Kind())
	}
	id, err := parseInt(m.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid response id %s: %w", m.ID, err)
	}
	return &Response{
		JSONRPC: m.JSONRPC,
		ID:      id,
		Result:  m.Result,
		Error:   m.Error,
	}, nil
}

// Notification converts a notification message.
func (m *Message) Notification() (*Notification, error) {
	if m.Kind() != KindNotification {
		return nil, fmt.Errorf("not a notification: %s", m.Kind())
	}
	return &Notification{Method: m.Method, Params: m.Params}, nil
}

// FetchAllParams are the params of the single fetch-all registration.
type FetchAllParams struct {
	ID int `json:"id"`
}

// FetchParams are the params of a filtered fetch registration.
type FetchParams struct {
	Path            *matcher.PathFilter `json:"path,omitempty"`
	CaseInsensitive bool                `json:"caseInsensitive"`
	ID              int                 `json:"id"`
}

// UnfetchParams are the params of an unfetch request.
type UnfetchParams struct {
	ID int `json:"id"`
}

func isNull(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

func parseInt(raw json.RawMessage) (int, error) {
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	i, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, err
	}
	return i, nil
}
