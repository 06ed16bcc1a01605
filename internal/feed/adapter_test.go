package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/five82/pase/internal/backend"
	"github.com/five82/pase/internal/comanda"
	"github.com/five82/pase/internal/store"
)

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
	testDay = "2024-05-01"
)

type fakeChannel struct {
	mu      sync.Mutex
	rooms   []string
	handler EventHandler
	beatErr error
	closed  bool
}

func (c *fakeChannel) Join(room string, handler EventHandler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rooms = append(c.rooms, room)
	c.handler = handler
	return nil
}

func (c *fakeChannel) Heartbeat(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.beatErr
}

func (c *fakeChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *fakeChannel) emit(t *testing.T, ev backend.Event) {
	t.Helper()
	data, err := backend.EncodeEvent(ev)
	require.NoError(t, err)
	c.mu.Lock()
	h := c.handler
	c.mu.Unlock()
	require.NotNil(t, h, "channel not joined")
	h(ev.Kind, data)
}

func (c *fakeChannel) joined() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.rooms...)
}

func (c *fakeChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	beatErr  error
	channels []*fakeChannel
	hooks    []Hooks
}

func (d *fakeDialer) Dial(_ context.Context, hooks Hooks) (Channel, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	ch := &fakeChannel{beatErr: d.beatErr}
	d.channels = append(d.channels, ch)
	d.hooks = append(d.hooks, hooks)
	return ch, nil
}

func (d *fakeDialer) last() (*fakeChannel, Hooks) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.channels) == 0 {
		return nil, Hooks{}
	}
	return d.channels[len(d.channels)-1], d.hooks[len(d.hooks)-1]
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type fakeFetcher struct {
	mu     sync.Mutex
	calls  int
	days   []string
	orders []comanda.Order
}

func (f *fakeFetcher) FetchBoard(_ context.Context, day string) ([]comanda.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.days = append(f.days, day)
	return append([]comanda.Order(nil), f.orders...), nil
}

func (f *fakeFetcher) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func testOrder(id string) comanda.Order {
	return comanda.Order{
		ID:        id,
		CreatedAt: time.Now(),
		Dishes: []comanda.Dish{{
			MenuItem: comanda.MenuItem{ID: "p1", Name: "Ají de gallina"},
			State:    comanda.DishWaiting,
		}},
	}
}

func startAdapter(t *testing.T, d *fakeDialer, f *fakeFetcher, tune func(*Options)) (*Adapter, *store.Store) {
	t.Helper()
	st := store.New()
	opts := Options{
		Dialer:          d,
		Fetcher:         f,
		Store:           st,
		Day:             func() string { return testDay },
		HeartbeatEvery:  time.Hour,
		Grace:           time.Hour,
		PollEvery:       time.Hour,
		SnapshotTimeout: time.Second,
		BackoffBase:     time.Millisecond,
	}
	if tune != nil {
		tune(&opts)
	}
	a := New(opts)
	st.OnRefreshNeeded(a.RefreshOrder)
	a.Start(context.Background())
	t.Cleanup(a.Close)
	return a, st
}

func connection(st *store.Store) func() bool {
	return func() bool { return st.Snapshot().Connection == store.Connected }
}

func TestAdapter_ConnectJoinsRoomAndSnapshots(t *testing.T) {
	d := &fakeDialer{}
	f := &fakeFetcher{orders: []comanda.Order{testOrder("c1")}}
	_, st := startAdapter(t, d, f, nil)

	require.Eventually(t, connection(st), waitFor, tick)
	ch, _ := d.last()
	assert.Equal(t, []string{testDay}, ch.joined())
	require.Eventually(t, func() bool { return len(st.Snapshot().Orders) == 1 }, waitFor, tick)
	assert.GreaterOrEqual(t, f.count(), 1)
}

func TestAdapter_AppliesPushEvents(t *testing.T) {
	d := &fakeDialer{}
	f := &fakeFetcher{}
	_, st := startAdapter(t, d, f, nil)
	require.Eventually(t, connection(st), waitFor, tick)
	ch, _ := d.last()

	o := testOrder("c7")
	ch.emit(t, backend.Event{Kind: backend.EventOrderCreated, Order: &o})
	require.Eventually(t, func() bool {
		_, ok := st.Order("c7")
		return ok
	}, waitFor, tick)

	ch.emit(t, backend.Event{Kind: backend.EventDishUpdated, OrderID: "c7", DishRef: "p1", DishState: comanda.DishReady})
	require.Eventually(t, func() bool {
		got, _ := st.Order("c7")
		return got.Dishes[0].State == comanda.DishReady
	}, waitFor, tick)

	ch.emit(t, backend.Event{Kind: backend.EventOrderDeleted, OrderID: "c7"})
	require.Eventually(t, func() bool {
		_, ok := st.Order("c7")
		return !ok
	}, waitFor, tick)
}

func TestAdapter_UpdateWithoutOrderRefetches(t *testing.T) {
	d := &fakeDialer{}
	f := &fakeFetcher{}
	_, st := startAdapter(t, d, f, nil)
	require.Eventually(t, connection(st), waitFor, tick)
	require.Eventually(t, func() bool { return f.count() >= 1 }, waitFor, tick)
	ch, _ := d.last()

	before := f.count()
	f.mu.Lock()
	f.orders = []comanda.Order{testOrder("c2")}
	f.mu.Unlock()
	ch.emit(t, backend.Event{Kind: backend.EventOrderUpdated, OrderID: "c2"})

	require.Eventually(t, func() bool { return f.count() > before }, waitFor, tick)
	require.Eventually(t, func() bool {
		_, ok := st.Order("c2")
		return ok
	}, waitFor, tick)
}

func TestAdapter_UnknownDishRequestsRefresh(t *testing.T) {
	d := &fakeDialer{}
	f := &fakeFetcher{}
	_, st := startAdapter(t, d, f, nil)
	require.Eventually(t, connection(st), waitFor, tick)
	require.Eventually(t, func() bool { return f.count() >= 1 }, waitFor, tick)
	ch, _ := d.last()

	before := f.count()
	ch.emit(t, backend.Event{Kind: backend.EventDishUpdated, OrderID: "ghost", DishRef: "p1", DishState: comanda.DishReady})
	require.Eventually(t, func() bool { return f.count() > before }, waitFor, tick)
}

func TestAdapter_RetriesDialWithBackoff(t *testing.T) {
	d := &fakeDialer{failures: 2}
	f := &fakeFetcher{}
	_, st := startAdapter(t, d, f, nil)

	require.Eventually(t, connection(st), waitFor, tick)
	assert.Equal(t, 3, d.dialCount())
}

func TestAdapter_RedialsStopAtCapAndPoll(t *testing.T) {
	d := &fakeDialer{failures: 100}
	f := &fakeFetcher{}
	_, st := startAdapter(t, d, f, func(o *Options) {
		o.MaxRedials = 2
	})

	require.Eventually(t, func() bool { return st.Snapshot().Connection == store.Polling }, waitFor, tick)
	require.Eventually(t, func() bool { return f.count() >= 1 }, waitFor, tick)
	assert.Never(t, func() bool { return d.dialCount() > 2 }, 100*time.Millisecond, tick)
}

func TestAdapter_PollTickRedialsAfterCap(t *testing.T) {
	d := &fakeDialer{failures: 4}
	f := &fakeFetcher{}
	_, st := startAdapter(t, d, f, func(o *Options) {
		o.MaxRedials = 2
		o.PollEvery = 20 * time.Millisecond
	})

	require.Eventually(t, connection(st), waitFor, tick)
	assert.Equal(t, 5, d.dialCount())
	assert.False(t, st.Snapshot().Degraded(), "polling stops once push is back")
}

func TestAdapter_ReconnectRejoinsAndSnapshots(t *testing.T) {
	d := &fakeDialer{}
	f := &fakeFetcher{}
	_, st := startAdapter(t, d, f, nil)
	require.Eventually(t, connection(st), waitFor, tick)
	require.Eventually(t, func() bool { return f.count() >= 1 }, waitFor, tick)
	ch, hooks := d.last()

	hooks.Disconnected(errors.New("io timeout"))
	require.Eventually(t, func() bool { return st.Snapshot().Connection == store.Connecting }, waitFor, tick)

	before := f.count()
	hooks.Reconnected()
	require.Eventually(t, connection(st), waitFor, tick)
	require.Eventually(t, func() bool { return len(ch.joined()) == 2 }, waitFor, tick)
	require.Eventually(t, func() bool { return f.count() > before }, waitFor, tick)
}

func TestAdapter_ClosedChannelRedials(t *testing.T) {
	d := &fakeDialer{}
	_, st := startAdapter(t, d, &fakeFetcher{}, nil)
	require.Eventually(t, connection(st), waitFor, tick)
	first, hooks := d.last()

	hooks.Closed()
	require.Eventually(t, func() bool { return d.dialCount() == 2 }, waitFor, tick)
	require.Eventually(t, connection(st), waitFor, tick)
	assert.True(t, first.isClosed())
}

func TestAdapter_DegradesToPollingAndRecovers(t *testing.T) {
	d := &fakeDialer{beatErr: errors.New("no responders")}
	f := &fakeFetcher{}
	_, st := startAdapter(t, d, f, func(o *Options) {
		o.HeartbeatEvery = 10 * time.Millisecond
		o.Grace = 60 * time.Millisecond
		o.PollEvery = 20 * time.Millisecond
	})
	require.Eventually(t, connection(st), waitFor, tick)

	require.Eventually(t, func() bool { return st.Snapshot().Connection == store.Polling }, waitFor, tick)
	polled := f.count()
	require.Eventually(t, func() bool { return f.count() >= polled+2 }, waitFor, tick, "fallback polling should keep fetching")

	ch, _ := d.last()
	o := testOrder("c3")
	ch.emit(t, backend.Event{Kind: backend.EventOrderCreated, Order: &o})
	require.Eventually(t, connection(st), waitFor, tick)
}

func TestAdapter_CloseIsSynchronous(t *testing.T) {
	d := &fakeDialer{}
	f := &fakeFetcher{}
	a, st := startAdapter(t, d, f, func(o *Options) {
		o.HeartbeatEvery = 5 * time.Millisecond
		o.Grace = 10 * time.Millisecond
		o.PollEvery = 5 * time.Millisecond
	})
	require.Eventually(t, connection(st), waitFor, tick)

	a.Close()
	ch, _ := d.last()
	assert.True(t, ch.isClosed())
	assert.Equal(t, store.Disconnected, st.Snapshot().Connection)

	after := f.count()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, after, f.count(), "no fetch may run after Close")
	a.Close()
}
