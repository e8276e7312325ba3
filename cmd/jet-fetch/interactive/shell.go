// Package interactive provides the interactive command-line interface
// for jet-fetch.
package interactive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/chzyer/readline"

	"github.com/jet-ipc/jet-go/pkg/fetch"
	"github.com/jet-ipc/jet-go/pkg/matcher"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// Fetcher is the subset of peer.Peer the shell drives.
type Fetcher interface {
	Fetch(m *matcher.Matcher, onEvent fetch.EventFunc, onResponse fetch.ResponseFunc) (fetch.ID, error)
	Unfetch(id fetch.ID, onResponse fetch.ResponseFunc) error
	Subscriptions() []fetch.ID
	CachedPaths() []string
	Strategy() string
}

// Shell handles interactive mode for jet-fetch.
type Shell struct {
	fetcher Fetcher
	rl      *readline.Instance
	out     io.Writer

	mu    sync.Mutex
	names map[fetch.ID]string
}

// New creates a new interactive shell on top of fetcher.
func New(fetcher Fetcher) (*Shell, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "jet> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}

	s := newShell(fetcher, rl.Stdout())
	s.rl = rl
	return s, nil
}

func newShell(fetcher Fetcher, out io.Writer) *Shell {
	return &Shell{
		fetcher: fetcher,
		out:     out,
		names:   make(map[fetch.ID]string),
	}
}

// Stdout returns a writer that properly coordinates with the readline input.
// Use this for log output to avoid interfering with the command prompt.
func (s *Shell) Stdout() io.Writer {
	return s.out
}

// Track records a subscription created outside the shell so that list shows it.
func (s *Shell) Track(id fetch.ID, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.names[id] = name
}

// Reset forgets all tracked names. Called when a new session starts,
// since fetch ids are only meaningful within one connection.
func (s *Shell) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.names)
}

// Run starts the interactive command loop.
func (s *Shell) Run(ctx context.Context, cancel context.CancelFunc) {
	defer s.rl.Close()

	s.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := s.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(s.out, "Exiting...")
			cancel()
			return
		}

		if quit := s.Execute(line); quit {
			cancel()
			return
		}
	}
}

// Execute runs one command line and reports whether the shell should exit.
func (s *Shell) Execute(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	parts := strings.Fields(input)
	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "help", "?":
		s.printHelp()

	case "fetch", "f":
		s.cmdFetch(args)

	case "unfetch", "u":
		s.cmdUnfetch(args)

	case "list", "ls":
		s.cmdList()

	case "paths", "p":
		s.cmdPaths()

	case "quit", "exit", "q":
		fmt.Fprintln(s.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(s.out, "Unknown command: %s (type 'help' for commands)\n", cmd)
	}
	return false
}

func (s *Shell) cmdFetch(args []string) {
	m, err := ParseMatcher(args)
	if err != nil {
		fmt.Fprintf(s.out, "Invalid matcher: %v\n", err)
		return
	}

	name := m.String()
	id, err := s.fetcher.Fetch(m, func(ev wire.FetchEvent) {
		fmt.Fprintln(s.out, FormatEvent(name, ev))
	}, func(ok bool, result json.RawMessage) {
		if !ok {
			fmt.Fprintf(s.out, "Fetch %s rejected: %s\n", name, string(result))
		}
	})
	if err != nil {
		fmt.Fprintf(s.out, "Fetch failed: %v\n", err)
		return
	}

	s.Track(id, name)
	fmt.Fprintf(s.out, "Subscribed %d: %s\n", id, name)
}

func (s *Shell) cmdUnfetch(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(s.out, "Usage: unfetch <id>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || !fetch.ID(n).Valid() {
		fmt.Fprintf(s.out, "Invalid id: %s\n", args[0])
		return
	}
	id := fetch.ID(n)

	if err := s.fetcher.Unfetch(id, nil); err != nil {
		fmt.Fprintf(s.out, "Unfetch failed: %v\n", err)
		return
	}

	s.mu.Lock()
	delete(s.names, id)
	s.mu.Unlock()
	fmt.Fprintf(s.out, "Unsubscribed %d\n", id)
}

func (s *Shell) cmdList() {
	ids := s.fetcher.Subscriptions()
	if len(ids) == 0 {
		fmt.Fprintln(s.out, "No active subscriptions.")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.out, "Active subscriptions (%s):\n", s.fetcher.Strategy())
	for _, id := range ids {
		name := s.names[id]
		if name == "" {
			name = "?"
		}
		fmt.Fprintf(s.out, "  %4d  %s\n", id, name)
	}
}

func (s *Shell) cmdPaths() {
	if s.fetcher.Strategy() != fetch.StrategyShared {
		fmt.Fprintln(s.out, "Path cache is only kept by the shared strategy.")
		return
	}
	paths := s.fetcher.CachedPaths()
	if len(paths) == 0 {
		fmt.Fprintln(s.out, "No known paths.")
		return
	}
	for _, p := range paths {
		fmt.Fprintf(s.out, "  %s\n", p)
	}
}

func (s *Shell) printHelp() {
	fmt.Fprintln(s.out, `
Commands:
  fetch [key=value...]  Subscribe (keys: contains, startsWith, endsWith,
                        equals, equalsNot, containsAllOf, caseInsensitive)
  unfetch <id>          Remove a subscription
  list                  List active subscriptions
  paths                 List paths known to the shared strategy
  help                  Show this help
  quit                  Exit`)
}

// ParseMatcher builds a matcher from key=value arguments.
// containsAllOf takes a comma-separated list. No arguments yields the
// universal matcher.
func ParseMatcher(args []string) (*matcher.Matcher, error) {
	all := matcher.All()
	m := &all
	seen := make(map[string]bool, len(args))

	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		key = strings.ToLower(key)
		if seen[key] {
			return nil, fmt.Errorf("duplicate key %q", key)
		}
		seen[key] = true

		switch key {
		case "contains":
			m.Contains = value
		case "startswith":
			m.StartsWith = value
		case "endswith":
			m.EndsWith = value
		case "equals":
			m.Equals = value
		case "equalsnot":
			m.EqualsNot = value
		case "containsallof":
			for _, part := range strings.Split(value, ",") {
				if part != "" {
					m.ContainsAllOf = append(m.ContainsAllOf, part)
				}
			}
			if len(m.ContainsAllOf) == 0 {
				return nil, errors.New("containsAllOf needs at least one value")
			}
		case "caseinsensitive":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("caseInsensitive: %w", err)
			}
			m.CaseInsensitive = b
		default:
			return nil, fmt.Errorf("unknown key %q", key)
		}
	}
	return m, nil
}

// FormatEvent renders one event as "[label] EVENT path value".
func FormatEvent(label string, ev wire.FetchEvent) string {
	value := "-"
	if len(ev.Value) > 0 {
		value = string(ev.Value)
	}
	return fmt.Sprintf("[%s] %s %s %s", label, strings.ToUpper(string(ev.Event)), ev.Path, value)
}
