// Package commands implements the jet-log CLI commands.
package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jet-ipc/jet-go/pkg/log"
)

const timestampLayout = "2006-01-02T15:04:05.000000Z"

// detail is one indented "Key: value" line below an event header.
type detail struct {
	key, value string
}

// formatEvent writes a header line followed by the payload details:
//
//	2026-01-28T10:15:32.123456Z [conn:abc12345] OUT WIRE REQUEST
//	  MessageID: 1
//	  Method: fetch
func formatEvent(w io.Writer, event log.Event) {
	layer := event.Layer.String()
	if event.Category == log.CategoryControl {
		layer = "CTRL"
	}

	fmt.Fprintf(w, "%s [conn:%s] %-3s %s %s\n",
		event.Timestamp.UTC().Format(timestampLayout),
		shortenConnID(event.ConnectionID),
		event.Direction, layer, typeLabel(event))

	for _, d := range eventDetails(event) {
		fmt.Fprintf(w, "  %s: %s\n", d.key, d.value)
	}
	fmt.Fprintln(w)
}

// typeLabel names the payload carried by event.
func typeLabel(event log.Event) string {
	switch {
	case event.Frame != nil:
		return "Frame"
	case event.Message != nil:
		return event.Message.Type.String()
	case event.StateChange != nil:
		return "State"
	case event.ControlMsg != nil:
		return event.ControlMsg.Type.String()
	case event.Dispatch != nil:
		return "Dispatch"
	case event.Error != nil:
		return "Error"
	default:
		return "Unknown"
	}
}

func shortenConnID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func eventDetails(event log.Event) []detail {
	var out []detail
	add := func(key, value string) { out = append(out, detail{key, value}) }
	addInt := func(key string, v int) { add(key, strconv.Itoa(v)) }

	switch {
	case event.Frame != nil:
		f := event.Frame
		add("Size", fmt.Sprintf("%d bytes", f.Size))
		if len(f.Data) > 0 {
			data := string(f.Data)
			if f.Truncated {
				data += " (truncated)"
			}
			add("Data", data)
		}

	case event.Message != nil:
		m := event.Message
		if m.Type != log.MessageTypeNotification {
			addInt("MessageID", m.MessageID)
		}
		if m.Method != "" {
			add("Method", m.Method)
		}
		if m.FetchID != nil {
			addInt("FetchID", *m.FetchID)
		}
		if m.Event != "" {
			add("Event", m.Event+" "+m.Path)
		}
		if m.ErrorCode != nil {
			addInt("Error", *m.ErrorCode)
		}
		if m.ResponseTime != nil {
			add("Duration", formatDuration(*m.ResponseTime))
		}
		if m.Payload != nil {
			if b, err := json.Marshal(m.Payload); err == nil {
				add("Payload", string(b))
			}
		}

	case event.StateChange != nil:
		s := event.StateChange
		add("Entity", s.Entity.String())
		add("Transition", s.OldState+" -> "+s.NewState)
		if s.Reason != "" {
			add("Reason", s.Reason)
		}

	case event.ControlMsg != nil:
		if event.ControlMsg.CloseCode != nil {
			addInt("Code", *event.ControlMsg.CloseCode)
		}

	case event.Dispatch != nil:
		d := event.Dispatch
		addInt("FetchID", d.FetchID)
		if d.Event != "" || d.Path != "" {
			add("Event", d.Event+" "+d.Path)
		}
		add("Status", fmt.Sprintf("%s (%d)", d.Status, int(d.Status)))
		addInt("Subscribers", d.Subscribers)

	case event.Error != nil:
		e := event.Error
		add("Layer", e.Layer.String())
		add("Message", e.Message)
		if e.Code != nil {
			addInt("Code", *e.Code)
		}
		if e.Context != "" {
			add("Context", e.Context)
		}
	}
	return out
}

func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return fmt.Sprintf("%.3fus", float64(d.Nanoseconds())/1e3)
	case d < time.Second:
		return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1e3)
	default:
		return fmt.Sprintf("%.3fs", d.Seconds())
	}
}
