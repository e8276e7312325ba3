package log

import (
	"context"
	"log/slog"
)

// SlogAdapter renders protocol events as slog records, for watching a
// session on the console. Payload fields are grouped under the payload kind
// ("frame", "message", "dispatch", "state", "control", "error").
type SlogAdapter struct {
	logger *slog.Logger
	level  slog.Level
}

// NewSlogAdapter returns an adapter logging at debug level.
func NewSlogAdapter(logger *slog.Logger) *SlogAdapter {
	return NewSlogAdapterLevel(logger, slog.LevelDebug)
}

// NewSlogAdapterLevel returns an adapter logging at level.
func NewSlogAdapterLevel(logger *slog.Logger, level slog.Level) *SlogAdapter {
	return &SlogAdapter{logger: logger, level: level}
}

// Log writes one record per event. Nothing is built when the level is
// disabled.
func (a *SlogAdapter) Log(event Event) {
	ctx := context.Background()
	if !a.logger.Enabled(ctx, a.level) {
		return
	}

	attrs := make([]slog.Attr, 0, 8)
	attrs = append(attrs,
		slog.String("conn_id", event.ConnectionID),
		slog.String("direction", event.Direction.String()),
		slog.String("layer", event.Layer.String()),
	)
	if event.RemoteAddr != "" {
		attrs = append(attrs, slog.String("remote", event.RemoteAddr))
	}
	if event.Strategy != "" {
		attrs = append(attrs, slog.String("strategy", event.Strategy))
	}
	if payload, ok := payloadAttr(event); ok {
		attrs = append(attrs, payload)
	}

	a.logger.LogAttrs(ctx, a.level, "jet "+event.Category.String(), attrs...)
}

func payloadAttr(event Event) (slog.Attr, bool) {
	switch {
	case event.Frame != nil:
		return slog.Group("frame",
			slog.Int("size", event.Frame.Size),
			slog.Bool("truncated", event.Frame.Truncated),
		), true

	case event.Message != nil:
		m := event.Message
		fields := []any{slog.String("type", m.Type.String())}
		if m.Type != MessageTypeNotification {
			fields = append(fields, slog.Int("id", m.MessageID))
		}
		if m.Method != "" {
			fields = append(fields, slog.String("method", m.Method))
		}
		if m.FetchID != nil {
			fields = append(fields, slog.Int("fetch_id", *m.FetchID))
		}
		if m.Event != "" {
			fields = append(fields, slog.String("event", m.Event), slog.String("path", m.Path))
		}
		if m.ErrorCode != nil {
			fields = append(fields, slog.Int("error_code", *m.ErrorCode))
		}
		if m.ResponseTime != nil {
			fields = append(fields, slog.Duration("rtt", *m.ResponseTime))
		}
		return slog.Group("message", fields...), true

	case event.Dispatch != nil:
		d := event.Dispatch
		return slog.Group("dispatch",
			slog.Int("fetch_id", d.FetchID),
			slog.String("event", d.Event),
			slog.String("path", d.Path),
			slog.String("status", d.Status.String()),
			slog.Int("subscribers", d.Subscribers),
		), true

	case event.StateChange != nil:
		s := event.StateChange
		fields := []any{
			slog.String("entity", s.Entity.String()),
			slog.String("from", s.OldState),
			slog.String("to", s.NewState),
		}
		if s.Reason != "" {
			fields = append(fields, slog.String("reason", s.Reason))
		}
		return slog.Group("state", fields...), true

	case event.ControlMsg != nil:
		fields := []any{slog.String("type", event.ControlMsg.Type.String())}
		if event.ControlMsg.CloseCode != nil {
			fields = append(fields, slog.Int("close_code", *event.ControlMsg.CloseCode))
		}
		return slog.Group("control", fields...), true

	case event.Error != nil:
		e := event.Error
		fields := []any{
			slog.String("layer", e.Layer.String()),
			slog.String("msg", e.Message),
		}
		if e.Context != "" {
			fields = append(fields, slog.String("context", e.Context))
		}
		if e.Code != nil {
			fields = append(fields, slog.Int("code", *e.Code))
		}
		return slog.Group("error", fields...), true
	}
	return slog.Attr{}, false
}

var _ Logger = (*SlogAdapter)(nil)
