package fetch

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jet-ipc/jet-go/pkg/log"
	"github.com/jet-ipc/jet-go/pkg/matcher"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// Fetch errors.
var (
	ErrNilMatcher = errors.New("matcher must not be nil")
	ErrInvalidID  = errors.New("invalid subscription id")
)

// Strategy names.
const (
	StrategyShared   = "shared"
	StrategyFiltered = "filtered"
)

// ID identifies one logical subscription.
type ID int

// idGenerator is shared by all fetchers so handles are unique per process.
var idGenerator atomic.Int64

func nextID() ID {
	return ID(idGenerator.Add(1))
}

// Valid reports whether id could have been returned by Subscribe.
func (id ID) Valid() bool {
	return id > 0
}

// EventFunc receives the fetch events of one subscription.
type EventFunc func(ev wire.FetchEvent)

// ResponseFunc receives the daemon's answer to a fetch or unfetch request.
// ok is false for error responses, timeouts and closed connections.
type ResponseFunc func(ok bool, result json.RawMessage)

// Call is one remote call issued by a fetcher.
type Call struct {
	// Method is the Jet method name (wire.MethodFetch or wire.MethodUnfetch).
	Method string

	// Params are encoded as the JSON-RPC params member.
	Params any

	// OnResponse, if set, is invoked once with the outcome of the call.
	OnResponse ResponseFunc

	// Timeout bounds the round trip. Zero leaves the choice to the invoker.
	Timeout time.Duration
}

//go:generate mockery --config ../../.mockery.yml

// Invoker performs remote calls against the Jet daemon.
// Invoke blocks until the response arrives or the call fails.
type Invoker interface {
	Invoke(call Call) (*wire.Response, error)
}

// InvokerFunc adapts a function to the Invoker interface.
type InvokerFunc func(call Call) (*wire.Response, error)

// Invoke calls f(call).
func (f InvokerFunc) Invoke(call Call) (*wire.Response, error) {
	return f(call)
}

// Multiplexer maps logical subscriptions onto fetch registrations.
type Multiplexer interface {
	// Subscribe registers m and returns the new handle together with the
	// registration response, which is either the daemon's answer or a
	// locally synthesized success.
	Subscribe(m *matcher.Matcher, onEvent EventFunc, onResponse ResponseFunc, timeout time.Duration) (ID, *wire.Response, error)

	// Unsubscribe removes the subscription. Removing an unknown handle is a
	// no-op on local state.
	Unsubscribe(id ID, onResponse ResponseFunc, timeout time.Duration) (*wire.Response, error)

	// Dispatch applies one inbound fetch notification. key is the routing
	// key of the notification and params its raw params member.
	Dispatch(key int, params json.RawMessage) wire.Status

	// UnsubscribeAll removes every active subscription.
	UnsubscribeAll()

	// Count returns the number of active subscriptions.
	Count() int

	// IDs returns the active subscription handles in ascending order.
	IDs() []ID
}

// Config holds fetcher configuration.
type Config struct {
	// RequestTimeout is used for the unfetch calls issued by UnsubscribeAll.
	RequestTimeout time.Duration

	// Logger is the optional logger for debug output.
	Logger *slog.Logger

	// ProtocolLogger receives dispatch events. Nil disables protocol logging.
	ProtocolLogger log.Logger

	// ConnectionID is attached to protocol log events.
	ConnectionID string
}

// subscriber is the callback wrapper stored per matcher or id.
type subscriber struct {
	id      ID
	matcher matcher.Matcher
	onEvent EventFunc
}

// deliver invokes every callback with ev. Must be called without the lock.
func deliver(subs []subscriber, ev wire.FetchEvent) {
	for _, s := range subs {
		if s.onEvent != nil {
			s.onEvent(ev)
		}
	}
}

// respond reports a locally synthesized success to onResponse.
func respond(onResponse ResponseFunc, resp *wire.Response) {
	if onResponse != nil {
		onResponse(true, resp.Result)
	}
}

// debugLog logs a debug message if a logger is configured.
func (c *Config) debugLog(msg string, args ...any) {
	if c.Logger != nil {
		c.Logger.Debug(msg, args...)
	}
}

// logDispatch records a dispatch outcome on the protocol logger.
func (c *Config) logDispatch(strategy string, key int, ev wire.FetchEvent, status wire.Status, n int) {
	if c.ProtocolLogger == nil {
		return
	}
	c.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnectionID,
		Direction:    log.DirectionIn,
		Layer:        log.LayerFetch,
		Category:     log.CategoryDispatch,
		Strategy:     strategy,
		Dispatch: &log.DispatchEvent{
			FetchID:     key,
			Event:       string(ev.Event),
			Path:        ev.Path,
			Status:      status,
			Subscribers: n,
		},
	})
}

// logRegistration records a change of a physical fetch registration.
func (c *Config) logRegistration(strategy string, oldState, newState, reason string) {
	if c.ProtocolLogger == nil {
		return
	}
	c.ProtocolLogger.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: c.ConnectionID,
		Direction:    log.DirectionOut,
		Layer:        log.LayerFetch,
		Category:     log.CategoryState,
		Strategy:     strategy,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityRegistration,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}
