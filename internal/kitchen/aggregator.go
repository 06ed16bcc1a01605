package kitchen

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/five82/pase/internal/backend"
	"github.com/five82/pase/internal/comanda"
	"github.com/five82/pase/internal/store"
)

// StatusSetter is the backend call the aggregator needs.
type StatusSetter interface {
	SetOrderStatus(ctx context.Context, orderID string, status comanda.OrderStatus) error
}

// Aggregator requests the order-level ready status when the last dish of an
// order becomes ready. It fires at most once per transition into that
// condition and re-arms when the condition turns false again.
type Aggregator struct {
	api StatusSetter
	log logrus.FieldLogger

	mu    sync.Mutex
	fired map[string]struct{}
}

// NewAggregator builds an Aggregator.
func NewAggregator(api StatusSetter, log logrus.FieldLogger) *Aggregator {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Aggregator{
		api:   api,
		log:   log.WithField("component", "aggregator"),
		fired: make(map[string]struct{}),
	}
}

// Reconcile inspects the orders and fires for every order that newly became
// ready. It returns the ids it fired for.
func (a *Aggregator) Reconcile(ctx context.Context, orders []comanda.Order) []string {
	var due []comanda.Order

	a.mu.Lock()
	present := make(map[string]struct{}, len(orders))
	for _, o := range orders {
		present[o.ID] = struct{}{}
		if !comanda.ReadyForPickup(o) {
			delete(a.fired, o.ID)
			continue
		}
		if o.Status != comanda.OrderWaiting {
			continue
		}
		if _, done := a.fired[o.ID]; done {
			continue
		}
		a.fired[o.ID] = struct{}{}
		due = append(due, o)
	}
	for id := range a.fired {
		if _, ok := present[id]; !ok {
			delete(a.fired, id)
		}
	}
	a.mu.Unlock()

	ids := make([]string, 0, len(due))
	for _, o := range due {
		err := a.api.SetOrderStatus(ctx, o.ID, comanda.OrderReady)
		log := a.log.WithField("order", o.ID)
		switch {
		case err == nil, comanda.IsBenign(err):
			log.Info("order ready for pickup")
			ids = append(ids, o.ID)
		case backend.IsTransient(err):
			// Let the next change retry.
			log.WithError(err).Warn("order ready request failed")
			a.Rearm(o.ID)
		default:
			log.WithError(err).Error("order ready request rejected")
		}
	}
	return ids
}

// Rearm forgets that the order already fired.
func (a *Aggregator) Rearm(orderID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.fired, orderID)
}

// Watch reconciles on every store change until ctx is done.
func (a *Aggregator) Watch(ctx context.Context, st *store.Store) {
	changes := st.Subscribe()
	a.Reconcile(ctx, st.Snapshot().Orders)
	for {
		select {
		case <-ctx.Done():
			return
		case <-changes:
			a.Reconcile(ctx, st.Snapshot().Orders)
		}
	}
}
