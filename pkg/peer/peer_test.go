package peer_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	jetmock "github.com/jet-ipc/jet-go/internal/testharness/mock"
	"github.com/jet-ipc/jet-go/pkg/fetch"
	"github.com/jet-ipc/jet-go/pkg/fetch/mocks"
	"github.com/jet-ipc/jet-go/pkg/matcher"
	"github.com/jet-ipc/jet-go/pkg/peer"
	"github.com/jet-ipc/jet-go/pkg/transport"
	"github.com/jet-ipc/jet-go/pkg/wire"
)

func okInvoker() fetch.Invoker {
	return fetch.InvokerFunc(func(call fetch.Call) (*wire.Response, error) {
		if call.OnResponse != nil {
			call.OnResponse(true, json.RawMessage("true"))
		}
		return wire.SuccessResponse(1), nil
	})
}

func notification(t *testing.T, method any, params any) *wire.Notification {
	t.Helper()
	n, err := wire.NewNotification(method, params)
	require.NoError(t, err)
	return n
}

func fetchParams(event wire.EventKind, path string) map[string]any {
	return map[string]any{"event": event, "path": path, "value": 1}
}

// collector gathers delivered paths per subscription.
type collector struct {
	mu     sync.Mutex
	events []wire.FetchEvent
}

func (c *collector) record(ev wire.FetchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collector) paths() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, string(ev.Event)+" "+ev.Path)
	}
	return out
}

func TestNewValidation(t *testing.T) {
	_, err := peer.New(nil, peer.Config{})
	assert.ErrorIs(t, err, peer.ErrNilInvoker)

	_, err = peer.New(okInvoker(), peer.Config{Strategy: "broadcast"})
	assert.ErrorIs(t, err, peer.ErrUnknownStrategy)

	p, err := peer.New(okInvoker(), peer.Config{})
	require.NoError(t, err)
	assert.Equal(t, fetch.StrategyShared, p.Strategy())

	p, err = peer.New(okInvoker(), peer.Config{Strategy: fetch.StrategyFiltered})
	require.NoError(t, err)
	assert.Equal(t, fetch.StrategyFiltered, p.Strategy())
	assert.Nil(t, p.CachedPaths())
}

func TestFetchUsesRequestTimeout(t *testing.T) {
	invoker := mocks.NewMockInvoker(t)
	invoker.EXPECT().Invoke(mock.MatchedBy(func(c fetch.Call) bool {
		return c.Method == wire.MethodFetch && c.Timeout == 3*time.Second
	})).Return(wire.SuccessResponse(1), nil).Once()
	invoker.EXPECT().Invoke(mock.MatchedBy(func(c fetch.Call) bool {
		return c.Method == wire.MethodUnfetch && c.Timeout == 3*time.Second
	})).Return(wire.SuccessResponse(2), nil).Once()

	p, err := peer.New(invoker, peer.Config{Strategy: fetch.StrategyFiltered, RequestTimeout: 3 * time.Second})
	require.NoError(t, err)

	id, err := p.Fetch(&matcher.Matcher{Equals: "a"}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []fetch.ID{id}, p.Subscriptions())

	require.NoError(t, p.Unfetch(id, nil))
	assert.Empty(t, p.Subscriptions())
}

func TestFetchErrors(t *testing.T) {
	p, err := peer.New(okInvoker(), peer.Config{})
	require.NoError(t, err)

	_, err = p.Fetch(nil, nil, nil)
	assert.ErrorIs(t, err, fetch.ErrNilMatcher)
	assert.ErrorIs(t, p.Unfetch(0, nil), fetch.ErrInvalidID)
}

func TestHandleNotificationIgnoresNonFetch(t *testing.T) {
	p, err := peer.New(okInvoker(), peer.Config{})
	require.NoError(t, err)

	reported := false
	p.OnDispatchError(func(wire.Status, *wire.Notification) { reported = true })

	assert.Equal(t, wire.StatusSuccess, p.HandleNotification(notification(t, "set", nil)))
	assert.Equal(t, wire.StatusSuccess, p.HandleNotification(notification(t, true, nil)))
	assert.False(t, reported)
}

func TestHandleNotificationSharedRoutesEveryFetch(t *testing.T) {
	p, err := peer.New(okInvoker(), peer.Config{})
	require.NoError(t, err)

	temps, all := &collector{}, &collector{}
	_, err = p.Fetch(&matcher.Matcher{Contains: "temp"}, temps.record, nil)
	require.NoError(t, err)
	_, err = p.Fetch(&matcher.Matcher{}, all.record, nil)
	require.NoError(t, err)

	assert.Equal(t, wire.StatusSuccess, p.HandleNotification(notification(t, wire.MethodFetchAll, fetchParams(wire.EventAdd, "plant/temp"))))
	assert.Equal(t, wire.StatusSuccess, p.HandleNotification(notification(t, 99, fetchParams(wire.EventAdd, "plant/power"))))

	assert.Equal(t, []string{"add plant/temp"}, temps.paths())
	assert.Equal(t, []string{"add plant/temp", "add plant/power"}, all.paths())
	assert.Equal(t, []string{"plant/power", "plant/temp"}, p.CachedPaths())
}

func TestHandleNotificationReportsViolations(t *testing.T) {
	p, err := peer.New(okInvoker(), peer.Config{})
	require.NoError(t, err)
	_, err = p.Fetch(&matcher.Matcher{}, nil, nil)
	require.NoError(t, err)

	var statuses []wire.Status
	var seen []*wire.Notification
	p.OnDispatchError(func(s wire.Status, n *wire.Notification) {
		statuses = append(statuses, s)
		seen = append(seen, n)
	})

	change := notification(t, wire.MethodFetchAll, fetchParams(wire.EventChange, "ghost"))
	assert.Equal(t, wire.StatusChangeWithoutAdd, p.HandleNotification(change))
	assert.Equal(t, wire.StatusParamsNotSpecified, p.HandleNotification(notification(t, wire.MethodFetchAll, nil)))
	assert.Equal(t, wire.StatusFetchEventNotSpecified,
		p.HandleNotification(notification(t, wire.MethodFetchAll, map[string]any{"path": "x"})))

	assert.Equal(t, []wire.Status{
		wire.StatusChangeWithoutAdd,
		wire.StatusParamsNotSpecified,
		wire.StatusFetchEventNotSpecified,
	}, statuses)
	assert.Same(t, change, seen[0])
}

func TestHandleNotificationFilteredRoutesByID(t *testing.T) {
	p, err := peer.New(okInvoker(), peer.Config{Strategy: fetch.StrategyFiltered})
	require.NoError(t, err)

	a, b := &collector{}, &collector{}
	idA, err := p.Fetch(&matcher.Matcher{Contains: "a"}, a.record, nil)
	require.NoError(t, err)
	_, err = p.Fetch(&matcher.Matcher{Contains: "b"}, b.record, nil)
	require.NoError(t, err)

	assert.Equal(t, wire.StatusSuccess, p.HandleNotification(notification(t, int(idA), fetchParams(wire.EventChange, "a"))))
	assert.Equal(t, []string{"change a"}, a.paths())
	assert.Empty(t, b.paths())
}

func TestClose(t *testing.T) {
	invoker := mocks.NewMockInvoker(t)
	invoker.EXPECT().Invoke(mock.Anything).Return(wire.SuccessResponse(1), nil).Times(4)

	p, err := peer.New(invoker, peer.Config{Strategy: fetch.StrategyFiltered})
	require.NoError(t, err)
	for _, s := range []string{"x", "y"} {
		_, err := p.Fetch(&matcher.Matcher{EndsWith: s}, nil, nil)
		require.NoError(t, err)
	}

	p.Close()
	assert.Empty(t, p.Subscriptions())
}

// attach dials d and attaches a peer with the given strategy.
func attach(t *testing.T, d *jetmock.Daemon, strategy string) *peer.Peer {
	t.Helper()
	client, err := transport.Dial(context.Background(), transport.Config{URL: d.URL()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	p, err := peer.Attach(client, peer.Config{Strategy: strategy, RequestTimeout: 2 * time.Second})
	require.NoError(t, err)
	return p
}

func TestEndToEndShared(t *testing.T) {
	for _, fetchAllMethod := range []bool{false, true} {
		d := jetmock.NewDaemon()
		d.FetchAllMethod = fetchAllMethod
		t.Cleanup(d.Close)

		require.NoError(t, d.Add("plant/temp", 21.5))
		p := attach(t, d, fetch.StrategyShared)

		temps, power := &collector{}, &collector{}
		_, err := p.Fetch(&matcher.Matcher{Contains: "temp"}, temps.record, nil)
		require.NoError(t, err)
		_, err = p.Fetch(&matcher.Matcher{StartsWith: "plant/power"}, power.record, nil)
		require.NoError(t, err)

		require.Eventually(t, func() bool { return len(temps.paths()) == 1 }, 2*time.Second, 5*time.Millisecond)

		require.NoError(t, d.Add("plant/power", 3))
		require.NoError(t, d.Change("plant/power", 4))
		require.NoError(t, d.Remove("plant/temp"))

		require.Eventually(t, func() bool { return len(power.paths()) == 2 && len(temps.paths()) == 2 },
			2*time.Second, 5*time.Millisecond)
		assert.Equal(t, []string{"add plant/temp", "remove plant/temp"}, temps.paths())
		assert.Equal(t, []string{"add plant/power", "change plant/power"}, power.paths())
		assert.Equal(t, 1, d.RequestCount(wire.MethodFetch))

		p.Close()
		assert.Equal(t, 1, d.RequestCount(wire.MethodUnfetch))
		assert.Zero(t, d.FetchCount())
	}
}

func TestEndToEndFiltered(t *testing.T) {
	d := jetmock.NewDaemon()
	t.Cleanup(d.Close)
	p := attach(t, d, fetch.StrategyFiltered)

	temps, all := &collector{}, &collector{}
	_, err := p.Fetch(&matcher.Matcher{EndsWith: "/TEMP", CaseInsensitive: true}, temps.record, nil)
	require.NoError(t, err)
	_, err = p.Fetch(&matcher.Matcher{}, all.record, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, d.FetchCount())

	require.NoError(t, d.Add("room/temp", 20))
	require.NoError(t, d.Add("room/light", true))

	require.Eventually(t, func() bool { return len(all.paths()) == 2 && len(temps.paths()) == 1 },
		2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"add room/temp"}, temps.paths())

	p.Close()
	assert.Equal(t, 2, d.RequestCount(wire.MethodUnfetch))
	assert.Zero(t, d.FetchCount())
}
