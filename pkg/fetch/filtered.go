package fetch

import (
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/jet-ipc/jet-go/pkg/matcher"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

// FilteredFetcher registers one daemon-side filtered fetch per subscription.
type FilteredFetcher struct {
	invoker Invoker
	config  Config

	mu          sync.Mutex
	subscribers map[ID]*subscriber
}

// NewFilteredFetcher creates a FilteredFetcher issuing calls through invoker.
func NewFilteredFetcher(invoker Invoker, config Config) *FilteredFetcher {
	return &FilteredFetcher{
		invoker:     invoker,
		config:      config,
		subscribers: make(map[ID]*subscriber),
	}
}

// Subscribe sends a fetch request carrying the filter built from m and the
// new handle as registration id.
//
// The subscription is recorded before the request is sent so that
// notifications racing the response are not lost. It is removed again if
// the invoker fails.
func (f *FilteredFetcher) Subscribe(m *matcher.Matcher, onEvent EventFunc, onResponse ResponseFunc, timeout time.Duration) (ID, *wire.Response, error) {
	if m == nil {
		return 0, nil, ErrNilMatcher
	}

	id := nextID()
	sub := &subscriber{id: id, matcher: m.Clone(), onEvent: onEvent}

	f.mu.Lock()
	f.subscribers[id] = sub
	f.mu.Unlock()

	resp, err := f.invoker.Invoke(Call{
		Method: wire.MethodFetch,
		Params: wire.FetchParams{
			Path:            sub.matcher.Filter(),
			CaseInsensitive: sub.matcher.CaseInsensitive,
			ID:              int(id),
		},
		OnResponse: onResponse,
		Timeout:    timeout,
	})
	if err != nil {
		f.mu.Lock()
		delete(f.subscribers, id)
		f.mu.Unlock()
		return 0, nil, fmt.Errorf("fetch %d: %w", id, err)
	}

	f.config.logRegistration(StrategyFiltered, "", "registered", fmt.Sprintf("fetch id %d: %s", id, sub.matcher.String()))
	return id, resp, nil
}

// Unsubscribe removes the subscription and sends an unfetch request. The
// request is sent even if id is no longer known locally.
func (f *FilteredFetcher) Unsubscribe(id ID, onResponse ResponseFunc, timeout time.Duration) (*wire.Response, error) {
	if !id.Valid() {
		return nil, ErrInvalidID
	}

	f.mu.Lock()
	delete(f.subscribers, id)
	f.mu.Unlock()

	resp, err := f.invoker.Invoke(Call{
		Method:     wire.MethodUnfetch,
		Params:     wire.UnfetchParams{ID: int(id)},
		OnResponse: onResponse,
		Timeout:    timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("unfetch %d: %w", id, err)
	}

	f.config.logRegistration(StrategyFiltered, "registered", "unregistered", fmt.Sprintf("fetch id %d", id))
	return resp, nil
}

// Dispatch passes the params of a notification to the subscription whose
// id equals key. Notifications for unknown ids are dropped and reported as
// success, since the daemon may deliver stragglers after an unfetch.
//
// Filtering already happened in the daemon, so no lifecycle state is
// tracked. Only absent params are rejected.
func (f *FilteredFetcher) Dispatch(key int, params json.RawMessage) wire.Status {
	f.mu.Lock()
	sub, ok := f.subscribers[ID(key)]
	f.mu.Unlock()

	if !ok {
		f.config.debugLog("FilteredFetcher: dropping notification for unknown id", "id", key)
		f.config.logDispatch(StrategyFiltered, key, wire.FetchEvent{}, wire.StatusSuccess, 0)
		return wire.StatusSuccess
	}

	ev, status := wire.ParseFetchEvent(params)
	if status == wire.StatusParamsNotSpecified && ev.Params == nil {
		f.config.debugLog("FilteredFetcher: notification without params", "id", key)
		f.config.logDispatch(StrategyFiltered, key, ev, status, 0)
		return status
	}

	deliver([]subscriber{*sub}, ev)
	f.config.logDispatch(StrategyFiltered, key, ev, wire.StatusSuccess, 1)
	return wire.StatusSuccess
}

// UnsubscribeAll unfetches every subscription known at the time of the call.
func (f *FilteredFetcher) UnsubscribeAll() {
	for _, id := range f.IDs() {
		if _, err := f.Unsubscribe(id, nil, f.config.RequestTimeout); err != nil {
			f.config.debugLog("FilteredFetcher: unsubscribe failed", "id", id, "error", err)
		}
	}
}

// Count returns the number of active subscriptions.
func (f *FilteredFetcher) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// IDs returns the active subscription handles in ascending order.
func (f *FilteredFetcher) IDs() []ID {
	f.mu.Lock()
	ids := make([]ID, 0, len(f.subscribers))
	for id := range f.subscribers {
		ids = append(ids, id)
	}
	f.mu.Unlock()

	slices.Sort(ids)
	return ids
}

// Compile-time interface satisfaction check.
var _ Multiplexer = (*FilteredFetcher)(nil)
