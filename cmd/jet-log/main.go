// Command jet-log is a tool for viewing and analyzing Jet protocol log files.
//
// Log files are created by running jet-fetch with the -protocol-log flag.
//
// Usage:
//
//	jet-log <command> [flags] <file.jlog>
//
// Commands:
//
//	view     View log file in human-readable format
//	export   Export log file to JSON or CSV format
//	filter   Filter log file and write to new file
//	stats    Show statistics about the log file
//
// Examples:
//
//	# View all events
//	jet-log view session.jlog
//
//	# View only dispatch outcomes of the fetch layer
//	jet-log view -layer fetch -category dispatch session.jlog
//
//	# View only outgoing messages
//	jet-log view -direction out session.jlog
//
//	# Export to JSONL
//	jet-log export -format jsonl session.jlog
//
//	# Keep everything about one subtree
//	jet-log filter -path-prefix plant/pump -o pumps.jlog session.jlog
//
//	# Show statistics
//	jet-log stats session.jlog
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/jet-ipc/jet-go/cmd/jet-log/commands"
	"github.com/jet-ipc/jet-go/pkg/log"
)

const usage = `jet-log - Jet Protocol Log Analyzer

Usage:
  jet-log <command> [flags] <file.jlog>

Commands:
  view     View log file in human-readable format
  export   Export log file to JSON or CSV format
  filter   Filter log file and write to new file
  stats    Show statistics about the log file

Use "jet-log <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "view":
		runView(args)
	case "export":
		runExport(args)
	case "filter":
		runFilter(args)
	case "stats":
		runStats(args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

// newFlagSet creates a flag set whose usage text names the command.
func newFlagSet(name, summary, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "jet-log %s - %s\n\nUsage:\n  %s\n\nFlags:\n", name, summary, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

// logPath returns the single positional argument or exits.
func logPath(fs *flag.FlagSet) string {
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Error: log file path required")
		fs.Usage()
		os.Exit(1)
	}
	return fs.Arg(0)
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func runView(args []string) {
	fs := newFlagSet("view", "View log file in human-readable format", "jet-log view [flags] <file.jlog>")
	layer := fs.String("layer", "", "Filter by layer (transport, wire, fetch)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	category := fs.String("category", "", "Filter by category (message, control, state, error, dispatch)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	var (
		filter commands.ViewFilter
		err    error
	)
	if filter.Layer, err = commands.ParseOptional(*layer, log.ParseLayer); err != nil {
		fail(err)
	}
	if filter.Direction, err = commands.ParseOptional(*direction, log.ParseDirection); err != nil {
		fail(err)
	}
	if filter.Category, err = commands.ParseOptional(*category, log.ParseCategory); err != nil {
		fail(err)
	}

	if err := commands.RunView(path, filter, os.Stdout); err != nil {
		fail(err)
	}
}

func runExport(args []string) {
	fs := newFlagSet("export", "Export log file to JSON or CSV format", "jet-log export [flags] <file.jlog>")
	format := fs.String("format", "jsonl", "Output format (jsonl, csv)")
	output := fs.String("o", "", "Output file (default: stdout)")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if err := commands.RunExport(path, *format, *output); err != nil {
		fail(err)
	}
}

func runFilter(args []string) {
	fs := newFlagSet("filter", "Filter log file and write to new file", "jet-log filter [flags] <file.jlog>")
	var opts commands.FilterOptions
	fs.StringVar(&opts.Output, "o", "", "Output file (required)")
	fs.StringVar(&opts.ConnID, "conn-id", "", "Filter by connection ID")
	fs.StringVar(&opts.TimeStart, "time-start", "", "Filter by start time (RFC3339)")
	fs.StringVar(&opts.TimeEnd, "time-end", "", "Filter by end time (RFC3339)")
	fs.StringVar(&opts.Layer, "layer", "", "Filter by layer (transport, wire, fetch)")
	fs.StringVar(&opts.Direction, "direction", "", "Filter by direction (in, out)")
	fs.StringVar(&opts.Category, "category", "", "Filter by category (message, control, state, error, dispatch)")
	fs.StringVar(&opts.Method, "method", "", "Filter messages by method (fetch, unfetch, fetch_all or a fetch id)")
	fs.StringVar(&opts.PathPrefix, "path-prefix", "", "Filter notifications and dispatches by path prefix")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if opts.Output == "" {
		fmt.Fprintln(os.Stderr, "Error: output file (-o) required")
		fs.Usage()
		os.Exit(1)
	}

	count, err := commands.RunFilter(path, opts)
	if err != nil {
		fail(err)
	}
	fmt.Printf("Filtered %d events to %s\n", count, opts.Output)
}

func runStats(args []string) {
	fs := newFlagSet("stats", "Show statistics about the log file", "jet-log stats <file.jlog>")

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}
	path := logPath(fs)

	if err := commands.RunStats(path, os.Stdout); err != nil {
		fail(err)
	}
}
