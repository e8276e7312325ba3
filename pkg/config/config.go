// Package config loads the YAML configuration of the jet-fetch tool.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jet-ipc/jet-go/pkg/connection"
	"github.com/jet-ipc/jet-go/pkg/fetch"
	"github.com/jet-ipc/jet-go/pkg/matcher"
	"github.com/jet-ipc/jet-go/pkg/transport"
)

// Config is the root of a configuration file.
type Config struct {
	Daemon        Daemon         `yaml:"daemon"`
	Fetch         Fetch          `yaml:"fetch"`
	Subscriptions []Subscription `yaml:"subscriptions"`
	Logging       Logging        `yaml:"logging"`
}

// Daemon describes the daemon connection.
type Daemon struct {
	URL            string        `yaml:"url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	PingInterval   time.Duration `yaml:"ping_interval"`
	PongTimeout    time.Duration `yaml:"pong_timeout"`
	TLS            *TLS          `yaml:"tls,omitempty"`

	// Reconnect re-dials and re-subscribes after the connection is lost.
	Reconnect  bool          `yaml:"reconnect"`
	MaxBackoff time.Duration `yaml:"max_backoff"`
}

// TLS holds wss settings.
type TLS struct {
	CAFile             string `yaml:"ca_file"`
	CertFile           string `yaml:"cert_file"`
	KeyFile            string `yaml:"key_file"`
	ServerName         string `yaml:"server_name"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// Fetch selects the fetch strategy.
type Fetch struct {
	Strategy string `yaml:"strategy"`
}

// Subscription is one named matcher.
type Subscription struct {
	Name  string          `yaml:"name"`
	Match matcher.Matcher `yaml:",inline"`
}

// Logging configures operational and protocol logging.
type Logging struct {
	Level       string `yaml:"level"`
	ProtocolLog string `yaml:"protocol_log"`
}

// Defaults.
const (
	DefaultURL      = "ws://localhost:11123/api/jet/"
	DefaultLevel    = "info"
	DefaultStrategy = fetch.StrategyShared
)

// LoadError describes a configuration file that could not be loaded.
type LoadError struct {
	File    string
	Message string
	Cause   error
}

func (e *LoadError) Error() string {
	msg := e.Message
	if e.File != "" {
		msg = e.File + ": " + msg
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Daemon: Daemon{
			URL:            DefaultURL,
			RequestTimeout: transport.DefaultRequestTimeout,
			PingInterval:   transport.DefaultPingInterval,
			PongTimeout:    transport.DefaultPongTimeout,
		},
		Fetch:   Fetch{Strategy: DefaultStrategy},
		Logging: Logging{Level: DefaultLevel},
	}
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, &LoadError{Message: "failed to parse YAML", Cause: err}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &LoadError{Message: "invalid configuration", Cause: err}
	}
	return cfg, nil
}

// Load reads and parses the file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{File: path, Message: "failed to read file", Cause: err}
	}

	cfg, err := Parse(data)
	if err != nil {
		var le *LoadError
		if errors.As(err, &le) {
			le.File = path
		}
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if err := transport.ValidateURL(c.Daemon.URL); err != nil {
		errs = append(errs, err)
	}
	if c.Daemon.RequestTimeout < 0 {
		errs = append(errs, errors.New("daemon.request_timeout must not be negative"))
	}
	if c.Daemon.PongTimeout < 0 {
		errs = append(errs, errors.New("daemon.pong_timeout must not be negative"))
	}
	if c.Daemon.MaxBackoff < 0 {
		errs = append(errs, errors.New("daemon.max_backoff must not be negative"))
	}

	switch c.Fetch.Strategy {
	case fetch.StrategyShared, fetch.StrategyFiltered:
	default:
		errs = append(errs, fmt.Errorf("fetch.strategy: unknown strategy %q", c.Fetch.Strategy))
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, err)
	}

	seen := make(map[string]bool, len(c.Subscriptions))
	for i, s := range c.Subscriptions {
		switch {
		case s.Name == "":
			errs = append(errs, fmt.Errorf("subscriptions[%d]: name is required", i))
		case seen[s.Name]:
			errs = append(errs, fmt.Errorf("subscriptions[%d]: duplicate name %q", i, s.Name))
		}
		seen[s.Name] = true

		// The shared strategy keys subscriptions by matcher, so an equal
		// matcher would silently replace the earlier subscription.
		if c.Fetch.Strategy == fetch.StrategyShared {
			for j, prev := range c.Subscriptions[:i] {
				if prev.Match.Equal(s.Match) {
					errs = append(errs, fmt.Errorf("subscriptions[%d]: matcher equals subscriptions[%d] (%q)", i, j, prev.Name))
					break
				}
			}
		}
	}

	return errors.Join(errs...)
}

// TransportConfig converts the daemon section for transport.Dial.
// PingInterval 0 in the file disables pings.
func (c *Config) TransportConfig() transport.Config {
	tc := transport.Config{
		URL:            c.Daemon.URL,
		RequestTimeout: c.Daemon.RequestTimeout,
		KeepAlive: transport.KeepAliveConfig{
			PingInterval: c.Daemon.PingInterval,
			PongTimeout:  c.Daemon.PongTimeout,
		},
	}
	if tc.KeepAlive.PingInterval == 0 {
		tc.KeepAlive.PingInterval = -1
	}
	if t := c.Daemon.TLS; t != nil {
		tc.TLS = &transport.TLSConfig{
			CAFile:             t.CAFile,
			CertFile:           t.CertFile,
			KeyFile:            t.KeyFile,
			ServerName:         t.ServerName,
			InsecureSkipVerify: t.InsecureSkipVerify,
		}
	}
	return tc
}

// SupervisorConfig converts the reconnect settings of the daemon section.
func (c *Config) SupervisorConfig(logger *slog.Logger) connection.Config {
	return connection.Config{
		Reconnect: c.Daemon.Reconnect,
		Backoff:   connection.BackoffConfig{Max: c.Daemon.MaxBackoff},
		Logger:    logger,
	}
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging.level: unknown level %q", name)
	}
}

// Matcher returns a copy of the subscription's matcher.
func (s Subscription) Matcher() *matcher.Matcher {
	m := s.Match.Clone()
	return &m
}
