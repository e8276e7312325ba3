// Package peer ties a daemon connection to a fetch strategy.
//
// A Peer forwards Fetch and Unfetch to the configured fetch.Multiplexer and
// routes inbound fetch notifications to it. Notifications the multiplexer
// rejects are reported to OnDispatchError handlers.
package peer

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jet-ipc/jet-go/pkg/fetch"
	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/matcher"
	"github.com/jet-ipc/jet-go/pkg/transport"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// Peer errors.
var (
	ErrUnknownStrategy = errors.New("unknown fetch strategy")
	ErrNilInvoker      = errors.New("invoker must not be nil")
)

// DefaultRequestTimeout is used when Config.RequestTimeout is zero.
const DefaultRequestTimeout = 5 * time.Second

// Config configures a Peer.
type Config struct {
	// Strategy selects the multiplexer: fetch.StrategyShared (default) or
	// fetch.StrategyFiltered.
	Strategy string

	// RequestTimeout bounds every fetch and unfetch round trip (default: 5s).
	RequestTimeout time.Duration

	// Logger is the optional logger for operational output.
	Logger *slog.Logger

	// ProtocolLogger receives dispatch and registration events.
	ProtocolLogger log.Logger

	// ConnectionID is attached to protocol log events.
	ConnectionID string
}

// DispatchErrorFunc receives notifications the multiplexer rejected.
type DispatchErrorFunc func(status wire.Status, n *wire.Notification)

// Peer is the client-side fetch endpoint of one daemon connection.
type Peer struct {
	config Config
	mux    fetch.Multiplexer

	mu            sync.RWMutex
	errorHandlers []DispatchErrorFunc
}

// New creates a Peer issuing calls through invoker.
func New(invoker fetch.Invoker, config Config) (*Peer, error) {
	if invoker == nil {
		return nil, ErrNilInvoker
	}
	if config.Strategy == "" {
		config.Strategy = fetch.StrategyShared
	}
	if config.RequestTimeout == 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}

	fc := fetch.Config{
		RequestTimeout: config.RequestTimeout,
		Logger:         config.Logger,
		ProtocolLogger: config.ProtocolLogger,
		ConnectionID:   config.ConnectionID,
	}

	p := &Peer{config: config}
	switch config.Strategy {
	case fetch.StrategyShared:
		p.mux = fetch.NewSharedFetcher(invoker, fc)
	case fetch.StrategyFiltered:
		p.mux = fetch.NewFilteredFetcher(invoker, fc)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, config.Strategy)
	}
	return p, nil
}

// Attach creates a Peer on client and routes the client's notifications to it.
// The connection id of client is used for protocol logging.
func Attach(client *transport.Client, config Config) (*Peer, error) {
	config.ConnectionID = client.ConnectionID()
	p, err := New(client, config)
	if err != nil {
		return nil, err
	}
	client.OnNotification(func(n *wire.Notification) { p.HandleNotification(n) })
	return p, nil
}

// Strategy returns the name of the multiplexer strategy in use.
func (p *Peer) Strategy() string {
	return p.config.Strategy
}

// Fetch subscribes m. onEvent receives every event for paths matching m.
// onResponse, if set, receives the registration outcome.
func (p *Peer) Fetch(m *matcher.Matcher, onEvent fetch.EventFunc, onResponse fetch.ResponseFunc) (fetch.ID, error) {
	id, _, err := p.mux.Subscribe(m, onEvent, onResponse, p.config.RequestTimeout)
	if err != nil {
		return 0, err
	}
	p.debugLog("fetch", "id", id, "matcher", m.String())
	return id, nil
}

// Unfetch removes the subscription id.
func (p *Peer) Unfetch(id fetch.ID, onResponse fetch.ResponseFunc) error {
	if _, err := p.mux.Unsubscribe(id, onResponse, p.config.RequestTimeout); err != nil {
		return err
	}
	p.debugLog("unfetch", "id", id)
	return nil
}

// HandleNotification dispatches one inbound notification. Notifications
// that are not fetch notifications are ignored and reported as success.
func (p *Peer) HandleNotification(n *wire.Notification) wire.Status {
	key, ok := wire.RoutingKey(n)
	if !ok {
		p.debugLog("ignoring notification", "method", string(n.Method))
		return wire.StatusSuccess
	}

	status := p.mux.Dispatch(key, n.Params)
	if status.IsError() {
		p.reportDispatchError(status, n)
	}
	return status
}

// OnDispatchError registers a handler for rejected notifications.
func (p *Peer) OnDispatchError(handler DispatchErrorFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errorHandlers = append(p.errorHandlers, handler)
}

func (p *Peer) reportDispatchError(status wire.Status, n *wire.Notification) {
	if p.config.Logger != nil {
		p.config.Logger.Warn("fetch notification rejected",
			"status", status.String(),
			"method", string(n.Method),
			"params", string(n.Params))
	}

	p.mu.RLock()
	handlers := append([]DispatchErrorFunc(nil), p.errorHandlers...)
	p.mu.RUnlock()

	for _, h := range handlers {
		h(status, n)
	}
}

// Subscriptions returns the active subscription ids in ascending order.
func (p *Peer) Subscriptions() []fetch.ID {
	return p.mux.IDs()
}

// CachedPaths returns the paths known to the shared strategy's path cache.
// It is nil for the filtered strategy.
func (p *Peer) CachedPaths() []string {
	if s, ok := p.mux.(*fetch.SharedFetcher); ok {
		return s.CachedPaths()
	}
	return nil
}

// Close removes every subscription. The underlying connection stays open.
func (p *Peer) Close() {
	p.mux.UnsubscribeAll()
}

// debugLog logs a debug message if a logger is configured.
func (p *Peer) debugLog(msg string, args ...any) {
	if p.config.Logger != nil {
		p.config.Logger.Debug(msg, args...)
	}
}
