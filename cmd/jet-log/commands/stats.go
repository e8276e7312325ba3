package commands

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// Stats holds aggregate statistics about a log file.
type Stats struct {
	TotalEvents       int
	EventsByLayer     map[log.Layer]int
	EventsByCategory  map[log.Category]int
	EventsByDirection map[log.Direction]int
	RequestsByMethod  map[string]int
	DispatchByStatus  map[wire.Status]int
	Connections       map[string]*ConnectionStats
	Errors            int
	TimeRange         struct {
		Start time.Time
		End   time.Time
	}
}

// ConnectionStats holds statistics for a single connection.
type ConnectionStats struct {
	FirstSeen     time.Time
	LastSeen      time.Time
	Events        int
	RemoteAddr    string
	Strategy      string
	Notifications int
	ErrorReplies  int
}

func newStats() *Stats {
	return &Stats{
		EventsByLayer:     make(map[log.Layer]int),
		EventsByCategory:  make(map[log.Category]int),
		EventsByDirection: make(map[log.Direction]int),
		RequestsByMethod:  make(map[string]int),
		DispatchByStatus:  make(map[wire.Status]int),
		Connections:       make(map[string]*ConnectionStats),
	}
}

// add folds one event into the statistics.
func (s *Stats) add(event log.Event) {
	s.TotalEvents++
	s.EventsByLayer[event.Layer]++
	s.EventsByCategory[event.Category]++
	s.EventsByDirection[event.Direction]++

	if s.TimeRange.Start.IsZero() || event.Timestamp.Before(s.TimeRange.Start) {
		s.TimeRange.Start = event.Timestamp
	}
	if event.Timestamp.After(s.TimeRange.End) {
		s.TimeRange.End = event.Timestamp
	}

	conn, ok := s.Connections[event.ConnectionID]
	if !ok {
		conn = &ConnectionStats{
			FirstSeen: event.Timestamp,
			LastSeen:  event.Timestamp,
		}
		s.Connections[event.ConnectionID] = conn
	}
	conn.Events++
	if event.Timestamp.After(conn.LastSeen) {
		conn.LastSeen = event.Timestamp
	}
	if event.RemoteAddr != "" && conn.RemoteAddr == "" {
		conn.RemoteAddr = event.RemoteAddr
	}
	if event.Strategy != "" && conn.Strategy == "" {
		conn.Strategy = event.Strategy
	}

	if msg := event.Message; msg != nil {
		switch msg.Type {
		case log.MessageTypeRequest:
			s.RequestsByMethod[msg.Method]++
		case log.MessageTypeResponse:
			if msg.ErrorCode != nil {
				conn.ErrorReplies++
			}
		case log.MessageTypeNotification:
			conn.Notifications++
		}
	}

	if event.Dispatch != nil {
		s.DispatchByStatus[event.Dispatch.Status]++
	}

	if event.Error != nil {
		s.Errors++
	}
}

// RunStats analyzes the log file and prints statistics.
func RunStats(path string, w io.Writer) error {
	stats := newStats()
	for event, err := range log.Events(path, log.Filter{}) {
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		stats.add(event)
	}

	printStats(w, stats)
	return nil
}

func printStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w, "=== Jet Protocol Log Statistics ===")
	fmt.Fprintln(w)

	if stats.TotalEvents > 0 {
		fmt.Fprintf(w, "Time Range: %s to %s\n",
			stats.TimeRange.Start.Format(time.RFC3339),
			stats.TimeRange.End.Format(time.RFC3339))
		fmt.Fprintf(w, "Duration:   %s\n", stats.TimeRange.End.Sub(stats.TimeRange.Start).Round(time.Second))
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Total Events: %d\n", stats.TotalEvents)
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Layer:")
	for _, layer := range []log.Layer{log.LayerTransport, log.LayerWire, log.LayerFetch} {
		if count := stats.EventsByLayer[layer]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", layer.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Category:")
	for _, cat := range []log.Category{log.CategoryMessage, log.CategoryControl, log.CategoryState, log.CategoryError, log.CategoryDispatch} {
		if count := stats.EventsByCategory[cat]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", cat.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Events by Direction:")
	for _, dir := range []log.Direction{log.DirectionIn, log.DirectionOut} {
		if count := stats.EventsByDirection[dir]; count > 0 {
			fmt.Fprintf(w, "  %-12s %d\n", dir.String()+":", count)
		}
	}
	fmt.Fprintln(w)

	if len(stats.RequestsByMethod) > 0 {
		methods := make([]string, 0, len(stats.RequestsByMethod))
		for m := range stats.RequestsByMethod {
			methods = append(methods, m)
		}
		sort.Strings(methods)

		fmt.Fprintln(w, "Requests by Method:")
		for _, m := range methods {
			fmt.Fprintf(w, "  %-12s %d\n", m+":", stats.RequestsByMethod[m])
		}
		fmt.Fprintln(w)
	}

	if len(stats.DispatchByStatus) > 0 {
		statuses := make([]wire.Status, 0, len(stats.DispatchByStatus))
		for s := range stats.DispatchByStatus {
			statuses = append(statuses, s)
		}
		// Success first, then by descending code.
		sort.Slice(statuses, func(i, j int) bool { return statuses[i] > statuses[j] })

		fmt.Fprintln(w, "Dispatch Results:")
		for _, s := range statuses {
			fmt.Fprintf(w, "  %-26s %d\n", s.String()+":", stats.DispatchByStatus[s])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Connections: %d\n", len(stats.Connections))
	if len(stats.Connections) > 0 {
		type connInfo struct {
			id    string
			stats *ConnectionStats
		}
		conns := make([]connInfo, 0, len(stats.Connections))
		for id, cs := range stats.Connections {
			conns = append(conns, connInfo{id, cs})
		}
		sort.Slice(conns, func(i, j int) bool {
			return conns[i].stats.FirstSeen.Before(conns[j].stats.FirstSeen)
		})

		fmt.Fprintln(w, "")
		for _, c := range conns {
			duration := c.stats.LastSeen.Sub(c.stats.FirstSeen).Round(time.Millisecond)
			fmt.Fprintf(w, "  [%s] %d events, duration %s\n", shortenConnID(c.id), c.stats.Events, duration)
			if c.stats.RemoteAddr != "" {
				fmt.Fprintf(w, "           Daemon: %s\n", c.stats.RemoteAddr)
			}
			if c.stats.Strategy != "" {
				fmt.Fprintf(w, "           Strategy: %s\n", c.stats.Strategy)
			}
			if c.stats.Notifications > 0 {
				fmt.Fprintf(w, "           Notifications: %d\n", c.stats.Notifications)
			}
			if c.stats.ErrorReplies > 0 {
				fmt.Fprintf(w, "           Error responses: %d\n", c.stats.ErrorReplies)
			}
		}
	}

	if stats.Errors > 0 {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Errors: %d\n", stats.Errors)
	}
}
