package commands

import (
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

func readAll(t *testing.T, path string) []log.Event {
	t.Helper()
	reader, err := log.NewReader(path)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer reader.Close()

	var events []log.Event
	for {
		event, err := reader.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("failed to read event: %v", err)
		}
		events = append(events, event)
	}
	return events
}

func TestFilterByConnectionID(t *testing.T) {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 0, time.UTC)
	events := []log.Event{
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryMessage},
		{Timestamp: ts, ConnectionID: "conn-2", Category: log.CategoryMessage},
		{Timestamp: ts, ConnectionID: "conn-1", Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.jlog")

	count, err := RunFilter(path, FilterOptions{Output: outPath, ConnID: "conn-1"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 2 {
		t.Errorf("RunFilter count = %d, want 2", count)
	}

	for _, e := range readAll(t, outPath) {
		if e.ConnectionID != "conn-1" {
			t.Errorf("expected conn-1, got %s", e.ConnectionID)
		}
	}
}

func TestFilterByTimeRange(t *testing.T) {
	base := time.Date(2026, 1, 28, 10, 0, 0, 0, time.UTC)
	events := []log.Event{
		{Timestamp: base, Category: log.CategoryMessage},
		{Timestamp: base.Add(time.Hour), Category: log.CategoryMessage},
		{Timestamp: base.Add(2 * time.Hour), Category: log.CategoryMessage},
	}

	path := createTestLogFile(t, events)
	outPath := filepath.Join(t.TempDir(), "filtered.jlog")

	count, err := RunFilter(path, FilterOptions{
		Output:    outPath,
		TimeStart: "2026-01-28T10:30:00Z",
		TimeEnd:   "2026-01-28T11:30:00Z",
	})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 1 {
		t.Errorf("RunFilter count = %d, want 1", count)
	}
}

func TestFilterByMethodAndPath(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	outPath := filepath.Join(t.TempDir(), "method.jlog")
	count, err := RunFilter(path, FilterOptions{Output: outPath, Method: wire.MethodFetch})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 1 {
		t.Errorf("method filter count = %d, want 1", count)
	}

	outPath = filepath.Join(t.TempDir(), "path.jlog")
	count, err = RunFilter(path, FilterOptions{Output: outPath, PathPrefix: "plant/"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 2 {
		t.Errorf("path filter count = %d, want 2", count)
	}

	outPath = filepath.Join(t.TempDir(), "dispatch.jlog")
	count, err = RunFilter(path, FilterOptions{Output: outPath, Layer: "fetch", Category: "dispatch", Direction: "in"})
	if err != nil {
		t.Fatalf("RunFilter failed: %v", err)
	}
	if count != 1 {
		t.Errorf("dispatch filter count = %d, want 1", count)
	}
	if got := readAll(t, outPath); got[0].Dispatch == nil || got[0].Dispatch.Status != wire.StatusSuccess {
		t.Errorf("unexpected filtered event: %+v", got[0])
	}
}

func TestFilterInvalidOptions(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "out.jlog")

	tests := []FilterOptions{
		{Output: outPath, TimeStart: "yesterday"},
		{Output: outPath, TimeEnd: "tomorrow"},
		{Output: outPath, Layer: "service"},
		{Output: outPath, Direction: "up"},
		{Output: outPath, Category: "snapshot"},
	}
	for _, opts := range tests {
		if _, err := RunFilter(path, opts); err == nil {
			t.Errorf("RunFilter(%+v) should fail", opts)
		}
	}
}
