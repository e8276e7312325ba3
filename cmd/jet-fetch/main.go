// Command jet-fetch subscribes to paths of a Jet daemon and prints every
// fetch event it receives.
//
// Subscriptions come from the configuration file. With -interactive,
// further subscriptions can be added and removed at a prompt.
//
// Usage:
//
//	jet-fetch [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-url string           Daemon websocket URL (overrides the config file)
//	-strategy string      Fetch strategy: shared, filtered (overrides the config file)
//	-log-level string     Log level: debug, info, warn, error (overrides the config file)
//	-protocol-log string  Write a CBOR protocol log to this file
//	-interactive          Enable interactive command mode
//	-reconnect            Reconnect and re-subscribe after the connection is lost
//
// Examples:
//
//	# Print everything the configured subscriptions match
//	jet-fetch -config plant.yaml
//
//	# Explore a remote daemon with one fetch per subscription
//	jet-fetch -url wss://plant.example.com/api/jet/ -strategy filtered -interactive
//
//	# Keep following the daemon across restarts
//	jet-fetch -config plant.yaml -reconnect
//
//	# Record the session for jet-log
//	jet-fetch -config plant.yaml -protocol-log session.jlog
//
// Output lines have the form:
//
//	[subscription] EVENT path value
//
// Interactive Commands:
//
//	fetch [key=value...]  - Subscribe (contains, startsWith, endsWith, equals,
//	                        equalsNot, containsAllOf, caseInsensitive)
//	unfetch <id>          - Remove a subscription
//	list                  - List active subscriptions
//	paths                 - List paths seen by the shared strategy
//	quit                  - Exit
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/jet-ipc/jet-go/cmd/jet-fetch/interactive"
	"github.com/jet-ipc/jet-go/pkg/config"
	"github.com/jet-ipc/jet-go/pkg/connection"
	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/peer"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// Flags holds the command line options.
type Flags struct {
	ConfigFile  string
	URL         string
	Strategy    string
	LogLevel    string
	ProtocolLog string
	Interactive bool
	Reconnect   bool
}

var flags Flags

func init() {
	flag.StringVar(&flags.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&flags.URL, "url", "", "Daemon websocket URL (overrides the config file)")
	flag.StringVar(&flags.Strategy, "strategy", "", "Fetch strategy: shared, filtered")
	flag.StringVar(&flags.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	flag.StringVar(&flags.ProtocolLog, "protocol-log", "", "Write a CBOR protocol log to this file")
	flag.BoolVar(&flags.Interactive, "interactive", false, "Enable interactive command mode")
	flag.BoolVar(&flags.Reconnect, "reconnect", false, "Reconnect and re-subscribe after the connection is lost")
}

func main() {
	flag.Parse()

	exitCode := 0
	defer func() {
		if exitCode != 0 {
			os.Exit(exitCode)
		}
	}()

	cfg, err := loadConfig(flags)
	if err != nil {
		stdlog.Fatalf("Configuration error: %v", err)
	}

	out := &switchWriter{w: os.Stdout}
	logger, err := setupLogging(cfg.Logging.Level, out)
	if err != nil {
		stdlog.Fatalf("Configuration error: %v", err)
	}

	var protoLogger log.Logger
	if cfg.Logging.ProtocolLog != "" {
		fl, err := log.NewFileLogger(cfg.Logging.ProtocolLog)
		if err != nil {
			stdlog.Fatalf("Failed to open protocol log: %v", err)
		}
		defer fl.Close()
		protoLogger = fl
		if cfg.Logging.Level == "debug" {
			protoLogger = log.NewMultiLogger(fl, log.NewSlogAdapter(logger))
		}
		logger.Info("protocol logging enabled", "file", cfg.Logging.ProtocolLog)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sess := &session{
		cfg:         cfg,
		out:         out,
		logger:      logger,
		protoLogger: protoLogger,
		live:        &livePeer{strategy: cfg.Fetch.Strategy},
	}

	if flags.Interactive {
		sess.shell, err = interactive.New(sess.live)
		if err != nil {
			stdlog.Fatalf("Failed to create interactive shell: %v", err)
		}
		// Redirect output through readline to avoid interfering with input
		out.Set(sess.shell.Stdout())
		go sess.shell.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			logger.Info("received signal", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	supervisor := connection.NewSupervisor(cfg.SupervisorConfig(logger))
	runErr := supervisor.Run(ctx, sess.run)

	logger.Info("shutting down")
	cancel()
	if runErr != nil {
		logger.Error("session failed", "error", runErr)
		exitCode = 1
	}
}

// loadConfig reads the configuration file, if any, and applies the flag
// overrides on top.
func loadConfig(f Flags) (*config.Config, error) {
	cfg := config.Default()
	if f.ConfigFile != "" {
		loaded, err := config.Load(f.ConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if f.URL != "" {
		cfg.Daemon.URL = f.URL
	}
	if f.Strategy != "" {
		cfg.Fetch.Strategy = f.Strategy
	}
	if f.LogLevel != "" {
		cfg.Logging.Level = f.LogLevel
	}
	if f.ProtocolLog != "" {
		cfg.Logging.ProtocolLog = f.ProtocolLog
	}
	if f.Reconnect {
		cfg.Daemon.Reconnect = true
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogging(level string, w io.Writer) (*slog.Logger, error) {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if lvl == slog.LevelDebug {
		opts.AddSource = true
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

// subscribe registers every configured subscription and prints its events
// to out. It returns the number of subscriptions that could not be set up.
func subscribe(p *peer.Peer, subs []config.Subscription, out io.Writer, logger *slog.Logger, shell *interactive.Shell) int {
	p.OnDispatchError(func(status wire.Status, n *wire.Notification) {
		fmt.Fprintf(out, "[!] %s %s\n", status, string(n.Params))
	})

	failed := 0
	for _, sub := range subs {
		name := sub.Name
		id, err := p.Fetch(sub.Matcher(), func(ev wire.FetchEvent) {
			fmt.Fprintln(out, interactive.FormatEvent(name, ev))
		}, func(ok bool, result json.RawMessage) {
			if !ok {
				logger.Warn("fetch rejected", "subscription", name, "result", string(result))
			}
		})
		if err != nil {
			logger.Error("fetch failed", "subscription", name, "error", err)
			failed++
			continue
		}
		logger.Debug("subscribed", "subscription", name, "id", id)
		if shell != nil {
			shell.Track(id, name)
		}
	}
	return failed
}

// switchWriter is an io.Writer whose target can be replaced once output
// has to go through readline.
type switchWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *switchWriter) Write(b []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(b)
}

func (s *switchWriter) Set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.w = w
}
