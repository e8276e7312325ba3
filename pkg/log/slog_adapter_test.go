package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jet-ipc/jet-go/pkg/wire"
)

func logJSON(t *testing.T, event Event) map[string]any {
	t.Helper()
	var buf bytes.Buffer
	adapter := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	adapter.Log(event)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "output: %s", buf.String())
	return entry
}

func TestSlogAdapterCommonFields(t *testing.T) {
	entry := logJSON(t, Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Direction:    DirectionIn,
		Layer:        LayerTransport,
		Category:     CategoryMessage,
		RemoteAddr:   "ws://plant/api/jet/",
		Strategy:     "shared",
		Frame:        &FrameEvent{Size: 256, Data: []byte{0x01}},
	})

	assert.Equal(t, "jet MESSAGE", entry["msg"])
	assert.Equal(t, "DEBUG", entry["level"])
	assert.Equal(t, "conn-123", entry["conn_id"])
	assert.Equal(t, "IN", entry["direction"])
	assert.Equal(t, "TRANSPORT", entry["layer"])
	assert.Equal(t, "ws://plant/api/jet/", entry["remote"])
	assert.Equal(t, "shared", entry["strategy"])
	assert.Equal(t, map[string]any{"size": float64(256), "truncated": false}, entry["frame"])
}

func TestSlogAdapterMessage(t *testing.T) {
	fetchID := wire.FetchAllID
	entry := logJSON(t, Event{
		Layer:    LayerWire,
		Category: CategoryMessage,
		Message: &MessageEvent{
			Type:    MessageTypeNotification,
			Method:  "fetch_all",
			FetchID: &fetchID,
			Event:   "change",
			Path:    "plant/temp",
		},
	})

	msg, ok := entry["message"].(map[string]any)
	require.True(t, ok, "message group missing: %v", entry)
	assert.Equal(t, "NOTIFICATION", msg["type"])
	assert.NotContains(t, msg, "id", "notifications carry no id")
	assert.Equal(t, "fetch_all", msg["method"])
	assert.Equal(t, float64(-1), msg["fetch_id"])
	assert.Equal(t, "change", msg["event"])
	assert.Equal(t, "plant/temp", msg["path"])
}

func TestSlogAdapterDispatch(t *testing.T) {
	entry := logJSON(t, Event{
		Layer:    LayerFetch,
		Category: CategoryDispatch,
		Dispatch: &DispatchEvent{FetchID: 4, Event: "change", Path: "ghost", Status: wire.StatusChangeWithoutAdd},
	})

	d, ok := entry["dispatch"].(map[string]any)
	require.True(t, ok, "dispatch group missing: %v", entry)
	assert.Equal(t, float64(4), d["fetch_id"])
	assert.Equal(t, wire.StatusChangeWithoutAdd.String(), d["status"])
	assert.Equal(t, float64(0), d["subscribers"])
}

func TestSlogAdapterStateAndError(t *testing.T) {
	entry := logJSON(t, Event{
		Category:    CategoryState,
		StateChange: &StateChangeEvent{Entity: StateEntityRegistration, OldState: "idle", NewState: "fetching"},
	})
	assert.Equal(t, map[string]any{"entity": "REGISTRATION", "from": "idle", "to": "fetching"}, entry["state"])

	code := 1006
	entry = logJSON(t, Event{
		Category: CategoryError,
		Error:    &ErrorEventData{Layer: LayerTransport, Message: "unexpected EOF", Code: &code},
	})
	assert.Equal(t, map[string]any{"layer": "TRANSPORT", "msg": "unexpected EOF", "code": float64(1006)}, entry["error"])
}

func TestSlogAdapterRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	NewSlogAdapter(logger).Log(Event{ConnectionID: "hidden"})
	assert.Empty(t, buf.String())

	NewSlogAdapterLevel(logger, slog.LevelInfo).Log(Event{ConnectionID: "shown"})
	assert.Contains(t, buf.String(), "conn_id=shown")
}
