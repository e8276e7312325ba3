package transport

import (
	"encoding/json"
	"time"

	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// MaxLogFrameDataSize is the maximum frame data size to include in logs (4 KB).
// Larger frames are truncated in log events.
const MaxLogFrameDataSize = 4096

// event returns a protocol log event prefilled with connection details.
func (c *Client) event(direction log.Direction, layer log.Layer, category log.Category) log.Event {
	return log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.connID,
		Direction:    direction,
		Layer:        layer,
		Category:     category,
		RemoteAddr:   c.config.URL,
	}
}

// logFrame logs a raw text frame.
func (c *Client) logFrame(data []byte, direction log.Direction) {
	if c.config.ProtocolLogger == nil {
		return
	}
	c.config.ProtocolLogger.Log(makeFrameEvent(c.event(direction, log.LayerTransport, log.CategoryMessage), data))
}

func makeFrameEvent(ev log.Event, data []byte) log.Event {
	frameData := data
	truncated := false
	if len(data) > MaxLogFrameDataSize {
		frameData = data[:MaxLogFrameDataSize]
		truncated = true
	}
	ev.Frame = &log.FrameEvent{
		Size:      len(data),
		Data:      frameData,
		Truncated: truncated,
	}
	return ev
}

// logRequest logs an outgoing request.
func (c *Client) logRequest(id int, method string, params any) {
	if c.config.ProtocolLogger == nil {
		return
	}
	ev := c.event(log.DirectionOut, log.LayerWire, log.CategoryMessage)
	ev.Message = &log.MessageEvent{
		Type:      log.MessageTypeRequest,
		MessageID: id,
		Method:    method,
		Payload:   toPayload(params),
	}
	c.config.ProtocolLogger.Log(ev)
}

// logResponse logs an incoming response. elapsed is nil for unmatched responses.
func (c *Client) logResponse(resp *wire.Response, elapsed *time.Duration) {
	if c.config.ProtocolLogger == nil {
		return
	}
	ev := c.event(log.DirectionIn, log.LayerWire, log.CategoryMessage)
	ev.Message = &log.MessageEvent{
		Type:         log.MessageTypeResponse,
		MessageID:    resp.ID,
		ResponseTime: elapsed,
	}
	if resp.Error != nil {
		code := resp.Error.Code
		ev.Message.ErrorCode = &code
		ev.Message.Payload = resp.Error.Message
	} else {
		ev.Message.Payload = decodePayload(resp.Result)
	}
	c.config.ProtocolLogger.Log(ev)
}

// logNotification logs an incoming notification.
func (c *Client) logNotification(n *wire.Notification) {
	if c.config.ProtocolLogger == nil {
		return
	}
	ev := c.event(log.DirectionIn, log.LayerWire, log.CategoryMessage)
	msg := &log.MessageEvent{
		Type:    log.MessageTypeNotification,
		Payload: decodePayload(n.Params),
	}
	if name, ok := n.MethodName(); ok {
		msg.Method = name
	} else {
		msg.Method = string(n.Method)
	}
	if key, ok := wire.RoutingKey(n); ok {
		msg.FetchID = &key
		if fe, status := wire.ParseFetchEvent(n.Params); status == wire.StatusSuccess {
			msg.Event = string(fe.Event)
			msg.Path = fe.Path
		}
	}
	ev.Message = msg
	c.config.ProtocolLogger.Log(ev)
}

// logControl logs a websocket ping, pong or close frame.
func (c *Client) logControl(msgType log.ControlMsgType, direction log.Direction, closeCode *int) {
	if c.config.ProtocolLogger == nil {
		return
	}
	ev := c.event(direction, log.LayerTransport, log.CategoryControl)
	ev.ControlMsg = &log.ControlMsgEvent{
		Type:      msgType,
		CloseCode: closeCode,
	}
	c.config.ProtocolLogger.Log(ev)
}

// logState logs a connection state change.
func (c *Client) logState(oldState, newState ConnectionState, reason string) {
	if c.config.ProtocolLogger == nil {
		return
	}
	ev := c.event(log.DirectionOut, log.LayerTransport, log.CategoryState)
	ev.StateChange = &log.StateChangeEvent{
		Entity:   log.StateEntityConnection,
		OldState: oldState.String(),
		NewState: newState.String(),
		Reason:   reason,
	}
	c.config.ProtocolLogger.Log(ev)
}

// logError logs an error at the given layer.
func (c *Client) logError(layer log.Layer, err error, context string) {
	if c.config.ProtocolLogger == nil {
		return
	}
	ev := c.event(log.DirectionIn, layer, log.CategoryError)
	ev.Error = &log.ErrorEventData{
		Layer:   layer,
		Message: err.Error(),
		Context: context,
	}
	c.config.ProtocolLogger.Log(ev)
}

// decodePayload turns raw JSON into plain Go values so the CBOR log holds
// structured data instead of a byte string.
func decodePayload(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	return v
}

func toPayload(params any) any {
	if params == nil {
		return nil
	}
	data, err := json.Marshal(params)
	if err != nil {
		return nil
	}
	return decodePayload(data)
}
