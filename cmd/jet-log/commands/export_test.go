package commands

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

func createTestLogFile(t *testing.T, events []log.Event) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.jlog")

	logger, err := log.NewFileLogger(path)
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}

	for _, e := range events {
		logger.Log(e)
	}
	logger.Close()

	return path
}

func sampleEvents() []log.Event {
	ts := time.Date(2026, 1, 28, 10, 15, 32, 123456000, time.UTC)
	fetchID := 3
	return []log.Event{
		{
			Timestamp:    ts,
			ConnectionID: "conn-1",
			Direction:    log.DirectionOut,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message: &log.MessageEvent{
				Type:      log.MessageTypeRequest,
				MessageID: 1,
				Method:    wire.MethodFetch,
				Payload:   map[string]any{"id": 3, "path": map[string]any{"contains": "temp"}},
			},
		},
		{
			Timestamp:    ts.Add(time.Millisecond),
			ConnectionID: "conn-1",
			Direction:    log.DirectionIn,
			Layer:        log.LayerWire,
			Category:     log.CategoryMessage,
			Message: &log.MessageEvent{
				Type:    log.MessageTypeNotification,
				Method:  "3",
				FetchID: &fetchID,
				Event:   "add",
				Path:    "plant/temp",
				Payload: map[string]any{"event": "add", "path": "plant/temp", "value": 21.5},
			},
		},
		{
			Timestamp:    ts.Add(2 * time.Millisecond),
			ConnectionID: "conn-1",
			Direction:    log.DirectionIn,
			Layer:        log.LayerFetch,
			Category:     log.CategoryDispatch,
			Strategy:     "filtered",
			Dispatch: &log.DispatchEvent{
				FetchID:     3,
				Event:       "add",
				Path:        "plant/temp",
				Status:      wire.StatusSuccess,
				Subscribers: 1,
			},
		},
	}
}

func TestExportToJSONL(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "out.jsonl")

	if err := RunExport(path, "jsonl", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		if err := json.Unmarshal(scanner.Bytes(), &m); err != nil {
			t.Fatalf("invalid JSON line %q: %v", scanner.Text(), err)
		}
		lines = append(lines, m)
	}

	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
	if lines[0]["ConnectionID"] != "conn-1" {
		t.Errorf("ConnectionID = %v, want conn-1", lines[0]["ConnectionID"])
	}
	msg, ok := lines[1]["Message"].(map[string]any)
	if !ok {
		t.Fatalf("Message missing in %v", lines[1])
	}
	if msg["Path"] != "plant/temp" {
		t.Errorf("Message.Path = %v, want plant/temp", msg["Path"])
	}
}

func TestExportToCSV(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())
	outPath := filepath.Join(t.TempDir(), "out.csv")

	if err := RunExport(path, "csv", outPath); err != nil {
		t.Fatalf("RunExport failed: %v", err)
	}

	f, err := os.Open(outPath)
	if err != nil {
		t.Fatalf("failed to open output: %v", err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("invalid CSV: %v", err)
	}
	if len(records) != 4 {
		t.Fatalf("expected header and 3 rows, got %d records", len(records))
	}
	if strings.Join(records[0], ",") != strings.Join(csvHeader, ",") {
		t.Errorf("header = %v, want %v", records[0], csvHeader)
	}

	want := [][]string{
		{"2026-01-28T10:15:32.123456Z", "conn-1", "OUT", "WIRE", "MESSAGE", "REQUEST", "1", "fetch", "", ""},
		{"2026-01-28T10:15:32.124456Z", "conn-1", "IN", "WIRE", "MESSAGE", "NOTIFICATION", "", "3", "plant/temp", ""},
		{"2026-01-28T10:15:32.125456Z", "conn-1", "IN", "FETCH", "DISPATCH", "Dispatch", "", "", "plant/temp", "SUCCESS"},
	}
	for i, row := range want {
		if got := strings.Join(records[i+1], ","); got != strings.Join(row, ",") {
			t.Errorf("row %d = %s, want %s", i, got, strings.Join(row, ","))
		}
	}
}

func TestExportUnknownFormat(t *testing.T) {
	path := createTestLogFile(t, sampleEvents())

	err := RunExport(path, "xml", "")
	if err == nil || !strings.Contains(err.Error(), "unknown format") {
		t.Errorf("expected unknown format error, got %v", err)
	}
}

func TestExportMissingFile(t *testing.T) {
	err := RunExport(filepath.Join(t.TempDir(), "missing.jlog"), "jsonl", "")
	if err == nil {
		t.Error("expected error for missing file")
	}
}
