package commands

import (
	"fmt"
	"io"

	"github.com/jet-ipc/jet-go/pkg/log"
)

// ViewFilter restricts the events shown by the view command.
type ViewFilter struct {
	Layer     *log.Layer
	Direction *log.Direction
	Category  *log.Category
}

// RunView writes every matching event of the log at path to output.
func RunView(path string, filter ViewFilter, output io.Writer) error {
	f := log.Filter{
		Layer:     filter.Layer,
		Direction: filter.Direction,
		Category:  filter.Category,
	}
	for event, err := range log.Events(path, f) {
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		formatEvent(output, event)
	}
	return nil
}
