package commands

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/jet-ipc/jet-go/pkg/log"
)

// exporter writes a stream of events in one output format.
type exporter interface {
	write(event log.Event) error
	close() error
}

// RunExport converts the log at path to format ("jsonl" or "csv") and writes
// it to output, or to stdout when output is empty.
func RunExport(path, format, output string) (err error) {
	var newExporter func(io.Writer) (exporter, error)
	switch format {
	case "jsonl":
		newExporter = newJSONLExporter
	case "csv":
		newExporter = newCSVExporter
	default:
		return fmt.Errorf("unknown format: %s (supported: jsonl, csv)", format)
	}

	var w io.Writer = os.Stdout
	if output != "" {
		f, cerr := os.Create(output)
		if cerr != nil {
			return fmt.Errorf("create %s: %w", output, cerr)
		}
		defer func() {
			if cerr := f.Close(); err == nil {
				err = cerr
			}
		}()
		w = f
	}

	exp, err := newExporter(w)
	if err != nil {
		return err
	}
	for event, err := range log.Events(path, log.Filter{}) {
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		if err := exp.write(event); err != nil {
			return err
		}
	}
	return exp.close()
}

type jsonlExporter struct {
	enc *json.Encoder
}

func newJSONLExporter(w io.Writer) (exporter, error) {
	return &jsonlExporter{enc: json.NewEncoder(w)}, nil
}

func (e *jsonlExporter) write(event log.Event) error {
	if err := e.enc.Encode(event); err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return nil
}

func (e *jsonlExporter) close() error { return nil }

var csvHeader = []string{"timestamp", "connection_id", "direction", "layer", "category", "type", "message_id", "method", "path", "status"}

type csvExporter struct {
	w *csv.Writer
}

func newCSVExporter(w io.Writer) (exporter, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	return &csvExporter{w: cw}, nil
}

func (e *csvExporter) write(event log.Event) error {
	return e.w.Write(csvRow(event))
}

func (e *csvExporter) close() error {
	e.w.Flush()
	return e.w.Error()
}

// csvRow flattens event into the columns of csvHeader. Columns that do not
// apply to the payload stay empty.
func csvRow(event log.Event) []string {
	row := []string{
		event.Timestamp.UTC().Format(timestampLayout),
		event.ConnectionID,
		event.Direction.String(),
		event.Layer.String(),
		event.Category.String(),
		typeLabel(event),
		"", "", event.Path(), "",
	}
	if m := event.Message; m != nil {
		if m.Type != log.MessageTypeNotification {
			row[6] = strconv.Itoa(m.MessageID)
		}
		row[7] = m.Method
	}
	if d := event.Dispatch; d != nil {
		row[9] = d.Status.String()
	}
	return row
}
