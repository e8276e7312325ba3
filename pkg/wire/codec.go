package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrEmptyMessage is returned when a frame contains no message.
var ErrEmptyMessage = errors.New("empty message")

// EncodeRequest encodes a request message to JSON.
// The jsonrpc member defaults to JSONRPCVersion.
func EncodeRequest(req *Request) ([]byte, error) {
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	if req.JSONRPC == "" {
		r := *req
		r.JSONRPC = JSONRPCVersion
		req = &r
	}
	return json.Marshal(req)
}

// EncodeResponse encodes a response message to JSON.
func EncodeResponse(resp *Response) ([]byte, error) {
	return json.Marshal(resp)
}

// EncodeNotification encodes a notification message to JSON.
func EncodeNotification(notif *Notification) ([]byte, error) {
	return json.Marshal(notif)
}

// DecodeRequest decodes a single request message.
func DecodeRequest(data []byte) (*Request, error) {
	var raw struct {
		JSONRPC string          `json:"jsonrpc"`
		ID      int             `json:"id"`
		Method  string          `json:"method"`
		Params  json.RawMessage `json:"params"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}
	req := &Request{JSONRPC: raw.JSONRPC, ID: raw.ID, Method: raw.Method}
	if raw.Params != nil {
		req.Params = raw.Params
	}
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("invalid request: %w", err)
	}
	return req, nil
}

// DecodeMessages decodes a frame holding one message or a batch array.
func DecodeMessages(data []byte) ([]*Message, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrEmptyMessage
	}

	if trimmed[0] == '[' {
		var batch []*Message
		if err := json.Unmarshal(trimmed, &batch); err != nil {
			return nil, fmt.Errorf("failed to decode batch: %w", err)
		}
		msgs := batch[:0]
		for _, m := range batch {
			if m != nil {
				msgs = append(msgs, m)
			}
		}
		if len(msgs) == 0 {
			return nil, ErrEmptyMessage
		}
		return msgs, nil
	}

	var msg Message
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	return []*Message{&msg}, nil
}
