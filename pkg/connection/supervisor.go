package connection

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrSessionEnded is reported when a session returns without an error
// while its context is still active.
var ErrSessionEnded = errors.New("session ended")

// State is the supervisor state.
type State uint8

const (
	// StateIdle indicates Run has not been called yet.
	StateIdle State = iota

	// StateConnecting indicates a session is starting.
	StateConnecting

	// StateConnected indicates the running session reported it is connected.
	StateConnected

	// StateWaiting indicates the supervisor is waiting out a backoff delay.
	StateWaiting

	// StateStopped indicates Run has returned.
	StateStopped
)

// String returns a human-readable state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateWaiting:
		return "WAITING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// SessionFunc runs one session. It calls connected once the session is
// established and blocks until the session ends or ctx is cancelled.
type SessionFunc func(ctx context.Context, connected func()) error

// Config configures a Supervisor.
type Config struct {
	// Reconnect restarts failed sessions. When false, Run returns the error
	// of the first session.
	Reconnect bool

	// Backoff tunes the delay between attempts.
	Backoff BackoffConfig

	// Logger is the optional logger for reconnection output.
	Logger *slog.Logger
}

// Supervisor runs sessions and restarts them with backoff.
type Supervisor struct {
	config  Config
	backoff *Backoff

	mu             sync.RWMutex
	state          State
	onStateChange  func(oldState, newState State)
	onReconnecting func(attempt int, delay time.Duration, cause error)
}

// NewSupervisor creates a supervisor.
func NewSupervisor(config Config) *Supervisor {
	return &Supervisor{
		config:  config,
		backoff: NewBackoff(config.Backoff),
	}
}

// State returns the current state.
func (s *Supervisor) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// OnStateChange sets a callback for state changes.
func (s *Supervisor) OnStateChange(fn func(oldState, newState State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onStateChange = fn
}

// OnReconnecting sets a callback invoked before each backoff delay.
func (s *Supervisor) OnReconnecting(fn func(attempt int, delay time.Duration, cause error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onReconnecting = fn
}

// Run runs session until ctx is cancelled. It returns nil after
// cancellation, or the session error when reconnection is disabled.
func (s *Supervisor) Run(ctx context.Context, session SessionFunc) error {
	defer s.setState(StateStopped)

	for {
		s.setState(StateConnecting)
		err := session(ctx, s.connected)

		if ctx.Err() != nil {
			return nil
		}
		if err == nil {
			err = ErrSessionEnded
		}
		if !s.config.Reconnect {
			return err
		}

		delay := s.backoff.Next()
		attempt := s.backoff.Attempts()
		s.setState(StateWaiting)
		s.reconnecting(attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (s *Supervisor) connected() {
	s.backoff.Reset()
	s.setState(StateConnected)
}

func (s *Supervisor) reconnecting(attempt int, delay time.Duration, cause error) {
	if s.config.Logger != nil {
		s.config.Logger.Warn("session ended, reconnecting",
			"attempt", attempt,
			"delay", delay,
			"error", cause)
	}

	s.mu.RLock()
	fn := s.onReconnecting
	s.mu.RUnlock()
	if fn != nil {
		fn(attempt, delay, cause)
	}
}

func (s *Supervisor) setState(state State) {
	s.mu.Lock()
	old := s.state
	s.state = state
	fn := s.onStateChange
	s.mu.Unlock()

	if fn != nil && old != state {
		fn(old, state)
	}
}
