package commands

import (
	"fmt"
	"time"

	"github.com/jet-ipc/jet-go/pkg/log"
)

// FilterOptions holds the flags of the filter command. Empty fields do not
// restrict the output.
type FilterOptions struct {
	Output     string
	ConnID     string
	TimeStart  string
	TimeEnd    string
	Layer      string
	Direction  string
	Category   string
	Method     string
	PathPrefix string
}

func parseTime(flag, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", flag, err)
	}
	return &t, nil
}

// ParseOptional applies parse to a flag value unless it was left empty.
func ParseOptional[T any](value string, parse func(string) (T, error)) (*T, error) {
	if value == "" {
		return nil, nil
	}
	v, err := parse(value)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func buildFilter(opts FilterOptions) (log.Filter, error) {
	filter := log.Filter{
		ConnectionID: opts.ConnID,
		Method:       opts.Method,
		PathPrefix:   opts.PathPrefix,
	}

	var err error
	if filter.TimeStart, err = parseTime("time-start", opts.TimeStart); err != nil {
		return filter, err
	}
	if filter.TimeEnd, err = parseTime("time-end", opts.TimeEnd); err != nil {
		return filter, err
	}
	if filter.Layer, err = ParseOptional(opts.Layer, log.ParseLayer); err != nil {
		return filter, err
	}
	if filter.Direction, err = ParseOptional(opts.Direction, log.ParseDirection); err != nil {
		return filter, err
	}
	if filter.Category, err = ParseOptional(opts.Category, log.ParseCategory); err != nil {
		return filter, err
	}
	return filter, nil
}

// RunFilter copies the events of path matching opts into a new log at
// opts.Output, replacing any existing file. It returns the number of events
// written.
func RunFilter(path string, opts FilterOptions) (int, error) {
	filter, err := buildFilter(opts)
	if err != nil {
		return 0, err
	}

	out, err := log.CreateFileLogger(opts.Output)
	if err != nil {
		return 0, err
	}

	count := 0
	for event, err := range log.Events(path, filter) {
		if err != nil {
			out.Close()
			return count, fmt.Errorf("read %s: %w", path, err)
		}
		out.Log(event)
		count++
	}

	if err := out.Close(); err != nil {
		return count, err
	}
	if n := out.Failed(); n > 0 {
		return count, fmt.Errorf("%d events could not be written to %s", n, opts.Output)
	}
	return count, nil
}
