package store

import (
	"sort"
	"sync"
	"time"

	"github.com/five82/pase/internal/comanda"
)

// Connection describes the push channel as seen by the UI.
type Connection int

const (
	Disconnected Connection = iota
	Connecting
	Connected
	// Polling means push is degraded and the pull fallback is active.
	Polling
)

func (c Connection) String() string {
	switch c {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Polling:
		return "polling"
	default:
		return "disconnected"
	}
}

// Snapshot represents the latest data available to the UI.
type Snapshot struct {
	Orders              []comanda.Order
	Version             uint64
	Connection          Connection
	LastUpdated         time.Time
	LastSync            time.Time
	LastError           error
	ConsecutiveFailures int
}

// IsOffline returns true when the backend has been unreachable for multiple
// attempts.
func (s Snapshot) IsOffline() bool {
	return s.ConsecutiveFailures >= 2
}

// Degraded reports whether the board may be stale.
func (s Snapshot) Degraded() bool {
	return s.Connection == Polling || s.IsOffline()
}

// tombstoneTTL bounds how long a local delete shields against stale data.
const tombstoneTTL = 10 * time.Minute

// Store is the single source of truth for the orders of the business day.
// Every Apply method is total: malformed input is ignored or turned into a
// refresh request, never an error.
type Store struct {
	mu         sync.RWMutex
	orders     map[string]comanda.Order
	tombstones map[string]time.Time
	snapshot   Snapshot
	now        func() time.Time

	subMu     sync.Mutex
	subs      []chan struct{}
	onRefresh func(orderID string)
}

// New returns an empty store.
func New() *Store {
	return &Store{
		orders:     make(map[string]comanda.Order),
		tombstones: make(map[string]time.Time),
		now:        time.Now,
	}
}

// Subscribe returns a channel that receives a signal after every mutation.
// Signals coalesce: a reader that falls behind sees one pending signal, not
// one per mutation. Each subscriber gets its own channel.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs = append(s.subs, ch)
	s.subMu.Unlock()
	return ch
}

// OnRefreshNeeded registers the hook called when an event references an order
// or dish the store does not know. The hook runs without the lock held.
func (s *Store) OnRefreshNeeded(fn func(orderID string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRefresh = fn
}

// ApplySnapshot replaces the working set with the displayable, active orders
// of a full fetch. Orders deleted locally after issuedAt are skipped since
// the fetch predates the delete. A zero issuedAt disables that filter.
func (s *Store) ApplySnapshot(orders []comanda.Order, issuedAt time.Time) {
	s.mu.Lock()
	now := s.now()
	for id, at := range s.tombstones {
		if now.Sub(at) > tombstoneTTL || (!issuedAt.IsZero() && at.Before(issuedAt)) {
			delete(s.tombstones, id)
		}
	}
	next := make(map[string]comanda.Order, len(orders))
	for _, o := range orders {
		if !admissible(o) {
			continue
		}
		if at, dead := s.tombstones[o.ID]; dead && !issuedAt.IsZero() && !at.Before(issuedAt) {
			continue
		}
		if prev, ok := s.orders[o.ID]; ok {
			next[o.ID] = rekey(o, prev, nil)
			continue
		}
		next[o.ID] = prepare(o)
	}
	s.orders = next
	s.snapshot.LastSync = now
	s.snapshot.LastError = nil
	s.snapshot.ConsecutiveFailures = 0
	s.touchLocked(now)
	s.mu.Unlock()
	s.notify()
}

// ApplyCreate inserts a new order. A create for a previously deleted id is a
// genuinely new order and clears the tombstone.
func (s *Store) ApplyCreate(o comanda.Order) {
	if !admissible(o) {
		return
	}
	s.mu.Lock()
	delete(s.tombstones, o.ID)
	if prev, ok := s.orders[o.ID]; ok {
		s.orders[o.ID] = rekey(o, prev, nil)
	} else {
		s.orders[o.ID] = prepare(o)
	}
	s.touchLocked(s.now())
	s.mu.Unlock()
	s.notify()
}

// ApplyUpdate replaces an order in place, inserting it when unknown. Dishes
// already known keep their keys. Updates for deleted orders are ignored; an
// update marking the order inactive deletes it. removalHistory entries are
// merged into the stored history.
func (s *Store) ApplyUpdate(o comanda.Order, removalHistory ...comanda.RemovalEntry) {
	if o.ID == "" {
		return
	}
	if !o.IsActive() {
		s.ApplyDelete(o.ID)
		return
	}
	if !o.Displayable() {
		return
	}
	s.mu.Lock()
	if _, dead := s.tombstones[o.ID]; dead {
		s.mu.Unlock()
		return
	}
	var next comanda.Order
	if prev, ok := s.orders[o.ID]; ok {
		next = rekey(o, prev, removalHistory)
		next.RemovalHistory = mergeRemovals(prev.RemovalHistory, next.RemovalHistory)
	} else {
		next = prepare(o)
	}
	next.RemovalHistory = mergeRemovals(next.RemovalHistory, removalHistory)
	s.orders[o.ID] = next
	s.touchLocked(s.now())
	s.mu.Unlock()
	s.notify()
}

// ApplyDelete removes an order and remembers the delete so stale updates and
// snapshots cannot resurrect it.
func (s *Store) ApplyDelete(orderID string) {
	if orderID == "" {
		return
	}
	s.mu.Lock()
	now := s.now()
	delete(s.orders, orderID)
	s.tombstones[orderID] = now
	s.touchLocked(now)
	s.mu.Unlock()
	s.notify()
}

// ApplyDishStateChange mutates exactly one dish. dishRef matches a dish key
// first and a menu item id second; with repeated menu items the change lands
// on a dish not yet in state. Unknown orders or dishes trigger the refresh
// hook instead.
func (s *Store) ApplyDishStateChange(orderID, dishRef string, state comanda.DishState, at time.Time) {
	if !state.Valid() {
		return
	}
	s.mu.Lock()
	o, ok := s.orders[orderID]
	idx := -1
	if ok {
		idx = o.MatchDish(dishRef, state)
	}
	if idx < 0 {
		hook := s.onRefresh
		_, dead := s.tombstones[orderID]
		s.mu.Unlock()
		if hook != nil && !dead && orderID != "" {
			hook(orderID)
		}
		return
	}
	o = o.Clone()
	d := &o.Dishes[idx]
	if d.State == state {
		s.mu.Unlock()
		return
	}
	d.State = state
	if at.IsZero() {
		at = s.now()
	}
	if d.StateChangedAt == nil {
		d.StateChangedAt = make(map[comanda.DishState]time.Time)
	}
	d.StateChangedAt[state] = at
	if at.After(o.UpdatedAt) {
		o.UpdatedAt = at
	}
	s.orders[orderID] = o
	s.touchLocked(s.now())
	s.mu.Unlock()
	s.notify()
}

// Order returns a copy of a single order.
func (s *Store) Order(orderID string) (comanda.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.orders[orderID]
	if !ok {
		return comanda.Order{}, false
	}
	return o.Clone(), true
}

// RecordError keeps the current orders but records a failed sync attempt.
func (s *Store) RecordError(err error) {
	if err == nil {
		return
	}
	s.mu.Lock()
	s.snapshot.LastError = err
	s.snapshot.LastUpdated = s.now()
	s.snapshot.ConsecutiveFailures++
	s.mu.Unlock()
	s.notify()
}

// SetConnection records the push channel state.
func (s *Store) SetConnection(c Connection) {
	s.mu.Lock()
	if s.snapshot.Connection == c {
		s.mu.Unlock()
		return
	}
	s.snapshot.Connection = c
	s.mu.Unlock()
	s.notify()
}

// Snapshot returns a copy of the current state. Orders are sorted by id.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := s.snapshot
	snap.Orders = make([]comanda.Order, 0, len(s.orders))
	for _, o := range s.orders {
		snap.Orders = append(snap.Orders, o.Clone())
	}
	sort.Slice(snap.Orders, func(i, j int) bool { return snap.Orders[i].ID < snap.Orders[j].ID })
	return snap
}

func (s *Store) touchLocked(now time.Time) {
	s.snapshot.Version++
	s.snapshot.LastUpdated = now
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func admissible(o comanda.Order) bool {
	return o.IsActive() && o.Displayable()
}

func prepare(o comanda.Order) comanda.Order {
	o = o.Clone()
	o.AssignKeys()
	o.Align()
	return o
}

// rekey prepares o as a newer copy of prev, keeping the keys prev's dishes
// already carry.
func rekey(o, prev comanda.Order, extra []comanda.RemovalEntry) comanda.Order {
	o = o.Clone()
	gone := make([]comanda.RemovalEntry, 0, len(prev.RemovalHistory)+len(o.RemovalHistory)+len(extra))
	gone = append(gone, prev.RemovalHistory...)
	gone = append(gone, o.RemovalHistory...)
	gone = append(gone, extra...)
	o.InheritKeys(prev, gone)
	o.Align()
	return o
}

func mergeRemovals(base, extra []comanda.RemovalEntry) []comanda.RemovalEntry {
	if len(extra) == 0 {
		return base
	}
	type key struct {
		dish string
		at   time.Time
	}
	seen := make(map[key]struct{}, len(base)+len(extra))
	out := make([]comanda.RemovalEntry, 0, len(base)+len(extra))
	for _, list := range [][]comanda.RemovalEntry{base, extra} {
		for _, r := range list {
			k := key{dish: firstNonEmpty(r.DishKey, r.MenuItemID), at: r.At.UTC()}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			out = append(out, r)
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}
