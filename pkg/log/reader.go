package log

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"iter"
	"os"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects log events. Zero fields match every event.
type Filter struct {
	ConnectionID string
	Direction    *Direction
	Layer        *Layer
	Category     *Category

	// TimeStart is inclusive, TimeEnd exclusive.
	TimeStart *time.Time
	TimeEnd   *time.Time

	// Method keeps wire messages with this method ("fetch", "unfetch",
	// "fetch_all" or a fetch id).
	Method string

	// PathPrefix keeps notifications and dispatch outcomes whose path
	// starts with the prefix.
	PathPrefix string
}

// Match reports whether event passes every criterion of f.
func (f Filter) Match(event Event) bool {
	switch {
	case f.ConnectionID != "" && event.ConnectionID != f.ConnectionID:
		return false
	case f.Direction != nil && event.Direction != *f.Direction:
		return false
	case f.Layer != nil && event.Layer != *f.Layer:
		return false
	case f.Category != nil && event.Category != *f.Category:
		return false
	case f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart):
		return false
	case f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd):
		return false
	case f.Method != "" && (event.Message == nil || event.Message.Method != f.Method):
		return false
	case f.PathPrefix != "" && !strings.HasPrefix(event.Path(), f.PathPrefix):
		return false
	}
	return true
}

// Path returns the path a message or dispatch event refers to, if any.
func (e Event) Path() string {
	if e.Message != nil && e.Message.Path != "" {
		return e.Message.Path
	}
	if e.Dispatch != nil {
		return e.Dispatch.Path
	}
	return ""
}

// Reader streams events from a .jlog file.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens path for reading every event.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens path for reading the events matching filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(bufio.NewReader(f)),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at the end of the file.
// A partially written trailing event is reported as io.ErrUnexpectedEOF.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			if errors.Is(err, io.EOF) {
				return Event{}, io.EOF
			}
			return Event{}, fmt.Errorf("decode event: %w", err)
		}
		if r.filter.Match(event) {
			return event, nil
		}
	}
}

// Close closes the file.
func (r *Reader) Close() error {
	return r.file.Close()
}

// Events iterates over the events of path matching filter. A failure to
// open or decode is yielded once as the error and ends the iteration.
func Events(path string, filter Filter) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		r, err := NewFilteredReader(path, filter)
		if err != nil {
			yield(Event{}, err)
			return
		}
		defer r.Close()

		for {
			event, err := r.Next()
			if err == io.EOF {
				return
			}
			if !yield(event, err) || err != nil {
				return
			}
		}
	}
}
