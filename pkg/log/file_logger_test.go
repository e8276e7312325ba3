package log

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func readEvents(t *testing.T, path string) []Event {
	t.Helper()
	var events []Event
	for e, err := range Events(path, Filter{}) {
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		events = append(events, e)
	}
	return events
}

func TestFileLoggerWritesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	if logger.Path() != path {
		t.Errorf("Path() = %q, want %q", logger.Path(), path)
	}

	logger.Log(Event{
		Timestamp:    time.Now(),
		ConnectionID: "conn-123",
		Layer:        LayerTransport,
		Frame:        &FrameEvent{Size: 3, Data: []byte("abc")},
	})

	// Flushed per event, readable before Close.
	events := readEvents(t, path)
	if len(events) != 1 {
		t.Fatalf("got %d events before Close, want 1", len(events))
	}
	if events[0].Frame == nil || string(events[0].Frame.Data) != "abc" {
		t.Errorf("unexpected frame: %+v", events[0].Frame)
	}

	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if logger.Failed() != 0 {
		t.Errorf("Failed() = %d, want 0", logger.Failed())
	}
}

func TestFileLoggerAppendAndTruncate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jlog")

	for _, id := range []string{"conn-1", "conn-2"} {
		logger, err := NewFileLogger(path)
		if err != nil {
			t.Fatalf("NewFileLogger failed: %v", err)
		}
		logger.Log(Event{ConnectionID: id})
		logger.Close()
	}

	events := readEvents(t, path)
	if len(events) != 2 || events[0].ConnectionID != "conn-1" || events[1].ConnectionID != "conn-2" {
		t.Fatalf("appended events = %+v", events)
	}

	logger, err := CreateFileLogger(path)
	if err != nil {
		t.Fatalf("CreateFileLogger failed: %v", err)
	}
	logger.Log(Event{ConnectionID: "conn-3"})
	logger.Close()

	events = readEvents(t, path)
	if len(events) != 1 || events[0].ConnectionID != "conn-3" {
		t.Errorf("truncated file holds %+v", events)
	}
}

func TestFileLoggerConcurrentWriters(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}

	const writers, perWriter = 10, 100
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perWriter; j++ {
				logger.Log(Event{
					Timestamp: time.Now(),
					Category:  CategoryDispatch,
					Dispatch:  &DispatchEvent{FetchID: id, Path: "plant/temp"},
				})
			}
		}(i)
	}
	wg.Wait()
	logger.Close()

	if got := len(readEvents(t, path)); got != writers*perWriter {
		t.Errorf("event count = %d, want %d", got, writers*perWriter)
	}
}

func TestFileLoggerAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.jlog")

	logger, err := NewFileLogger(path)
	if err != nil {
		t.Fatalf("NewFileLogger failed: %v", err)
	}
	logger.Log(Event{ConnectionID: "kept"})

	if err := logger.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}

	logger.Log(Event{ConnectionID: "dropped"})

	events := readEvents(t, path)
	if len(events) != 1 || events[0].ConnectionID != "kept" {
		t.Errorf("events = %+v, want only the one logged before Close", events)
	}
}

func TestFileLoggerOpenError(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewFileLogger(filepath.Join(dir, "missing", "session.jlog")); err == nil {
		t.Error("NewFileLogger in a missing directory should fail")
	}
	if _, err := os.Stat(filepath.Join(dir, "missing")); !os.IsNotExist(err) {
		t.Errorf("unexpected directory state: %v", err)
	}
}
