package log

import (
	"bufio"
	"fmt"
	"os"
	"sync"

	"github.com/fxamacker/cbor/v2"
)

// FileLogger writes protocol events to a .jlog file as a stream of CBOR
// items. Every event is flushed on write so that a log can be inspected
// while the session is still running.
type FileLogger struct {
	path string

	mu      sync.Mutex
	file    *os.File
	buf     *bufio.Writer
	encoder *cbor.Encoder
	failed  uint64
	closed  bool
}

// NewFileLogger opens path for appending, creating it if necessary.
func NewFileLogger(path string) (*FileLogger, error) {
	return openFileLogger(path, os.O_APPEND)
}

// CreateFileLogger creates path, truncating an existing file.
func CreateFileLogger(path string) (*FileLogger, error) {
	return openFileLogger(path, os.O_TRUNC)
}

func openFileLogger(path string, mode int) (*FileLogger, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|mode, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open protocol log: %w", err)
	}
	buf := bufio.NewWriter(f)
	return &FileLogger{
		path:    path,
		file:    f,
		buf:     buf,
		encoder: NewEncoder(buf),
	}, nil
}

// Path returns the file the logger writes to.
func (l *FileLogger) Path() string {
	return l.path
}

// Log encodes and flushes one event. Events logged after Close are dropped.
// Write failures never reach the caller; see Failed.
func (l *FileLogger) Log(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	if err := l.encoder.Encode(event); err != nil {
		l.failed++
		return
	}
	if err := l.buf.Flush(); err != nil {
		l.failed++
	}
}

// Failed returns the number of events that could not be written.
func (l *FileLogger) Failed() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.failed
}

// Close flushes and closes the file. Calling Close again is a no-op.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.buf.Flush()
	if err := l.file.Close(); err != nil {
		return err
	}
	return flushErr
}

var _ Logger = (*FileLogger)(nil)
