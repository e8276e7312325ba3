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

// SharedFetcher serves all subscriptions from one unfiltered fetch
// registration and matches paths locally.
type SharedFetcher struct {
	invoker Invoker
	config  Config

	mu sync.Mutex

	// fetching is set once the fetch-all registration succeeded.
	fetching bool
	fetchID  ID

	// registering is non-nil while the fetch-all request is in flight and
	// is closed when it completes.
	registering chan struct{}

	subscribers map[matcher.Key]*subscriber
	matchers    map[ID]matcher.Key

	// paths holds, per added path, the matchers that matched at add time.
	paths map[string][]matcher.Key
}

// NewSharedFetcher creates a SharedFetcher issuing calls through invoker.
func NewSharedFetcher(invoker Invoker, config Config) *SharedFetcher {
	return &SharedFetcher{
		invoker:     invoker,
		config:      config,
		subscribers: make(map[matcher.Key]*subscriber),
		matchers:    make(map[ID]matcher.Key),
		paths:       make(map[string][]matcher.Key),
	}
}

// Subscribe registers m. Only the first call reaches the daemon; later
// calls return a synthesized success response.
//
// Calls made while the fetch-all request is in flight wait for its outcome.
// If it failed, the next caller issues the request again, so a success is
// never reported without a registration behind it.
//
// Registering a matcher equal to an already registered one replaces the
// earlier subscription.
func (f *SharedFetcher) Subscribe(m *matcher.Matcher, onEvent EventFunc, onResponse ResponseFunc, timeout time.Duration) (ID, *wire.Response, error) {
	if m == nil {
		return 0, nil, ErrNilMatcher
	}

	id := nextID()
	sub := &subscriber{id: id, matcher: m.Clone(), onEvent: onEvent}
	key := sub.matcher.Key()

	f.mu.Lock()
	f.awaitRegistration()
	if prev, ok := f.subscribers[key]; ok {
		delete(f.matchers, prev.id)
		f.config.debugLog("SharedFetcher: matcher replaced", "old", prev.id, "new", id, "matcher", sub.matcher.String())
	}
	f.subscribers[key] = sub
	f.matchers[id] = key

	first := !f.fetching
	if first {
		f.registering = make(chan struct{})
	}
	f.mu.Unlock()

	if !first {
		resp := wire.SuccessResponse(int(id))
		respond(onResponse, resp)
		return id, resp, nil
	}

	held := &heldResponse{fn: onResponse}
	resp, err := f.invoker.Invoke(Call{
		Method:     wire.MethodFetch,
		Params:     wire.FetchAllParams{ID: int(id)},
		OnResponse: held.call,
		Timeout:    timeout,
	})

	f.mu.Lock()
	if err != nil {
		f.remove(id)
	} else {
		f.fetching = true
		f.fetchID = id
	}
	close(f.registering)
	f.registering = nil
	f.mu.Unlock()

	held.release()
	if err != nil {
		return 0, nil, fmt.Errorf("fetch all: %w", err)
	}

	f.config.logRegistration(StrategyShared, "", "registered", fmt.Sprintf("fetch id %d", id))
	return id, resp, nil
}

// awaitRegistration blocks until no fetch-all request is in flight.
// Caller must hold the lock; it is released while waiting.
func (f *SharedFetcher) awaitRegistration() {
	for f.registering != nil {
		done := f.registering
		f.mu.Unlock()
		<-done
		f.mu.Lock()
	}
}

// heldResponse defers a response callback until release, so that a
// callback re-entering Subscribe does not wait on its own registration.
type heldResponse struct {
	fn ResponseFunc

	mu       sync.Mutex
	released bool
	pending  func()
}

func (h *heldResponse) call(ok bool, result json.RawMessage) {
	if h.fn == nil {
		return
	}
	h.mu.Lock()
	if !h.released {
		h.pending = func() { h.fn(ok, result) }
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()
	h.fn(ok, result)
}

func (h *heldResponse) release() {
	h.mu.Lock()
	h.released = true
	pending := h.pending
	h.pending = nil
	h.mu.Unlock()

	if pending != nil {
		pending()
	}
}

// Unsubscribe removes the subscription locally. The fetch-all registration
// stays active, so no request is sent and a success response is synthesized.
func (f *SharedFetcher) Unsubscribe(id ID, onResponse ResponseFunc, timeout time.Duration) (*wire.Response, error) {
	if !id.Valid() {
		return nil, ErrInvalidID
	}

	f.mu.Lock()
	f.remove(id)
	f.mu.Unlock()

	resp := wire.SuccessResponse(int(id))
	respond(onResponse, resp)
	return resp, nil
}

// remove drops every association of id. Caller must hold the lock.
func (f *SharedFetcher) remove(id ID) {
	key, ok := f.matchers[id]
	if !ok {
		return
	}
	delete(f.matchers, id)

	if sub, ok := f.subscribers[key]; !ok || sub.id != id {
		return
	}
	delete(f.subscribers, key)

	for path, keys := range f.paths {
		if i := slices.Index(keys, key); i >= 0 {
			f.paths[path] = slices.Delete(keys, i, i+1)
		}
	}
}

// Dispatch applies one fetch-all notification. The routing key is only
// used for logging; every fetch notification on the connection belongs to
// the single registration.
func (f *SharedFetcher) Dispatch(key int, params json.RawMessage) wire.Status {
	ev, status := wire.ParseFetchEvent(params)
	if status != wire.StatusSuccess {
		f.config.debugLog("SharedFetcher: malformed notification", "status", status)
		f.config.logDispatch(StrategyShared, key, ev, status, 0)
		return status
	}

	f.mu.Lock()
	var targets []subscriber
	switch ev.Event {
	case wire.EventAdd:
		if _, ok := f.paths[ev.Path]; ok {
			status = wire.StatusMultipleAdd
			break
		}
		var keys []matcher.Key
		for k, sub := range f.subscribers {
			if sub.matcher.Match(ev.Path) {
				keys = append(keys, k)
				targets = append(targets, *sub)
			}
		}
		f.paths[ev.Path] = keys

	case wire.EventChange:
		keys, ok := f.paths[ev.Path]
		if !ok {
			status = wire.StatusChangeWithoutAdd
			break
		}
		targets = f.lookup(keys)

	case wire.EventRemove:
		keys, ok := f.paths[ev.Path]
		if !ok {
			status = wire.StatusRemoveWithoutAdd
			break
		}
		targets = f.lookup(keys)
		delete(f.paths, ev.Path)

	default:
		f.config.debugLog("SharedFetcher: ignoring unknown event", "event", ev.Event, "path", ev.Path)
	}
	f.mu.Unlock()

	if status != wire.StatusSuccess {
		f.config.debugLog("SharedFetcher: protocol violation", "status", status, "path", ev.Path)
		f.config.logDispatch(StrategyShared, key, ev, status, 0)
		return status
	}

	slices.SortFunc(targets, func(a, b subscriber) int { return int(a.id - b.id) })
	deliver(targets, ev)
	f.config.logDispatch(StrategyShared, key, ev, status, len(targets))
	return wire.StatusSuccess
}

// lookup resolves cached matcher keys to subscribers. Caller must hold the lock.
func (f *SharedFetcher) lookup(keys []matcher.Key) []subscriber {
	subs := make([]subscriber, 0, len(keys))
	for _, k := range keys {
		if sub, ok := f.subscribers[k]; ok {
			subs = append(subs, *sub)
		}
	}
	return subs
}

// UnsubscribeAll removes every subscription, clears the path cache and
// unfetches the fetch-all registration. A later Subscribe registers again.
//
// The local state is cleared in one critical section, so a concurrent
// Subscribe either is removed here or starts a new registration.
func (f *SharedFetcher) UnsubscribeAll() {
	f.mu.Lock()
	f.awaitRegistration()
	removed := len(f.matchers)
	wasFetching, fetchID := f.fetching, f.fetchID
	f.fetching = false
	f.fetchID = 0
	clear(f.subscribers)
	clear(f.matchers)
	clear(f.paths)
	f.mu.Unlock()

	f.config.debugLog("SharedFetcher: removed all subscriptions", "count", removed)
	if !wasFetching {
		return
	}

	_, err := f.invoker.Invoke(Call{
		Method:  wire.MethodUnfetch,
		Params:  wire.UnfetchParams{ID: int(fetchID)},
		Timeout: f.config.RequestTimeout,
	})
	if err != nil {
		f.config.debugLog("SharedFetcher: unfetch all failed", "id", fetchID, "error", err)
	}
	f.config.logRegistration(StrategyShared, "registered", "unregistered", fmt.Sprintf("fetch id %d", fetchID))
}

// Count returns the number of active subscriptions.
func (f *SharedFetcher) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.matchers)
}

// IDs returns the active subscription handles in ascending order.
func (f *SharedFetcher) IDs() []ID {
	f.mu.Lock()
	ids := make([]ID, 0, len(f.matchers))
	for id := range f.matchers {
		ids = append(ids, id)
	}
	f.mu.Unlock()

	slices.Sort(ids)
	return ids
}

// CachedPaths returns the paths currently known as added, sorted.
//
// A remove evicts the path together with resolving its subscribers, before
// their callbacks run, so a remove callback no longer sees the path here.
func (f *SharedFetcher) CachedPaths() []string {
	f.mu.Lock()
	paths := make([]string, 0, len(f.paths))
	for p := range f.paths {
		paths = append(paths, p)
	}
	f.mu.Unlock()

	slices.Sort(paths)
	return paths
}

// Registered reports whether the fetch-all registration is active. It is
// false while the first request is still in flight.
func (f *SharedFetcher) Registered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetching
}

// Compile-time interface satisfaction check.
var _ Multiplexer = (*SharedFetcher)(nil)
