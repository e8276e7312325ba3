package commands

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

func runStats(t *testing.T, events []log.Event) string {
	t.Helper()
	path := createTestLogFile(t, events)

	var buf bytes.Buffer
	if err := RunStats(path, &buf); err != nil {
		t.Fatalf("RunStats failed: %v", err)
	}
	return buf.String()
}

func TestStatsCountsByLayerAndCategory(t *testing.T) {
	output := runStats(t, sampleEvents())

	for _, want := range []string{
		"Total Events: 3",
		"WIRE:",
		"FETCH:",
		"MESSAGE:",
		"DISPATCH:",
		"IN:",
		"OUT:",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
	if strings.Contains(output, "TRANSPORT:") {
		t.Errorf("unexpected TRANSPORT count in output:\n%s", output)
	}
}

func TestStatsRequestsAndDispatch(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, Message: &log.MessageEvent{Type: log.MessageTypeRequest, Method: wire.MethodFetch}},
		{Timestamp: ts, Message: &log.MessageEvent{Type: log.MessageTypeRequest, Method: wire.MethodFetch}},
		{Timestamp: ts, Message: &log.MessageEvent{Type: log.MessageTypeRequest, Method: wire.MethodUnfetch}},
		{Timestamp: ts, Category: log.CategoryDispatch, Dispatch: &log.DispatchEvent{Status: wire.StatusSuccess}},
		{Timestamp: ts, Category: log.CategoryDispatch, Dispatch: &log.DispatchEvent{Status: wire.StatusMultipleAdd}},
		{Timestamp: ts, Category: log.CategoryDispatch, Dispatch: &log.DispatchEvent{Status: wire.StatusMultipleAdd}},
	}

	output := runStats(t, events)

	for _, want := range []string{"fetch:       2", "unfetch:     1", "SUCCESS:", "MULTIPLE_ADD:"} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
	if strings.Index(output, "SUCCESS:") > strings.Index(output, "MULTIPLE_ADD:") {
		t.Errorf("expected SUCCESS before MULTIPLE_ADD, got:\n%s", output)
	}
}

func TestStatsCountsConnections(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	code := wire.ErrCodeInvalidParams
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-aaaa-bbbb", RemoteAddr: "ws://plant/api/jet/", Category: log.CategoryMessage},
		{Timestamp: ts.Add(time.Second), ConnectionID: "conn-aaaa-bbbb", Strategy: "shared",
			Message: &log.MessageEvent{Type: log.MessageTypeNotification}},
		{Timestamp: ts.Add(time.Second), ConnectionID: "conn-aaaa-bbbb",
			Message: &log.MessageEvent{Type: log.MessageTypeResponse, ErrorCode: &code}},
		{Timestamp: ts, ConnectionID: "conn-cccc-dddd", Category: log.CategoryMessage},
	}

	output := runStats(t, events)

	for _, want := range []string{
		"Connections: 2",
		"[conn-aaa] 3 events, duration 1s",
		"Daemon: ws://plant/api/jet/",
		"Strategy: shared",
		"Notifications: 1",
		"Error responses: 1",
	} {
		if !strings.Contains(output, want) {
			t.Errorf("expected %q in output, got:\n%s", want, output)
		}
	}
}

func TestStatsTimeRange(t *testing.T) {
	start := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	end := time.Date(2026, 1, 28, 11, 0, 0, 0, time.UTC)
	output := runStats(t, []log.Event{
		{Timestamp: start, Category: log.CategoryMessage},
		{Timestamp: end, Category: log.CategoryMessage},
	})

	if !strings.Contains(output, "1h0m0s") {
		t.Errorf("expected 1h0m0s duration in output, got:\n%s", output)
	}
}

func TestStatsErrorCount(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	output := runStats(t, []log.Event{
		{Timestamp: ts, Category: log.CategoryMessage},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "error 1"}},
		{Timestamp: ts, Category: log.CategoryError, Error: &log.ErrorEventData{Message: "error 2"}},
	})

	if !strings.Contains(output, "Errors: 2") {
		t.Errorf("expected 2 errors in output, got:\n%s", output)
	}
}

func TestStatsEmptyFile(t *testing.T) {
	output := runStats(t, nil)

	if !strings.Contains(output, "Total Events: 0") {
		t.Errorf("expected zero events, got:\n%s", output)
	}
	if strings.Contains(output, "Time Range") {
		t.Errorf("empty log should have no time range, got:\n%s", output)
	}
}
