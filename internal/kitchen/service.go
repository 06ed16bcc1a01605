package kitchen

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/five82/pase/internal/backend"
	"github.com/five82/pase/internal/comanda"
	"github.com/five82/pase/internal/store"
)

var (
	// ErrBusy is returned when a batch for the same order is still running.
	ErrBusy = errors.New("batch already in progress")
	// ErrUnknownOrder is returned when the order is not on the board.
	ErrUnknownOrder = errors.New("unknown order")
	// ErrUnknownDish is returned when the dish is not part of the order.
	ErrUnknownDish = errors.New("unknown dish")
	// ErrBatchFailed is returned when no dish of a batch succeeded.
	ErrBatchFailed = errors.New("batch failed")
)

const (
	defaultConcurrency = 4
	revertWindow       = 24 * time.Hour
)

// Options configure a Service.
type Options struct {
	API      backend.API
	Store    *store.Store
	Notifier Notifier
	Log      logrus.FieldLogger
	// Day returns the current business day, formatted YYYY-MM-DD.
	Day func() string
	Now func() time.Time
	// Actor is recorded on removal history entries.
	Actor string
	// Refresh requests a full snapshot; used after reverts.
	Refresh     func()
	Aggregator  *Aggregator
	Concurrency int
}

// Service performs kitchen actions against the backend and mirrors their
// effect in the store.
type Service struct {
	api        backend.API
	store      *store.Store
	notifier   Notifier
	log        logrus.FieldLogger
	day        func() string
	now        func() time.Time
	actor      string
	refresh    func()
	aggregator *Aggregator
	limit      int

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewService builds a Service.
func NewService(opts Options) *Service {
	s := &Service{
		api:        opts.API,
		store:      opts.Store,
		notifier:   opts.Notifier,
		log:        opts.Log,
		day:        opts.Day,
		now:        opts.Now,
		actor:      strings.TrimSpace(opts.Actor),
		refresh:    opts.Refresh,
		aggregator: opts.Aggregator,
		limit:      opts.Concurrency,
		inflight:   make(map[string]struct{}),
	}
	if s.notifier == nil {
		s.notifier = discard{}
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.log = s.log.WithField("component", "kitchen")
	if s.day == nil {
		s.day = func() string { return time.Now().Format(time.DateOnly) }
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.actor == "" {
		s.actor = "cocina"
	}
	if s.refresh == nil {
		s.refresh = func() {}
	}
	if s.limit <= 0 {
		s.limit = defaultConcurrency
	}
	return s
}

func (s *Service) lookup(orderID, dishKey string) (comanda.Order, int, error) {
	o, ok := s.store.Order(orderID)
	if !ok {
		return comanda.Order{}, -1, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	idx := o.FindDish(dishKey)
	if idx < 0 {
		return o, -1, fmt.Errorf("%w: %s", ErrUnknownDish, dishKey)
	}
	return o, idx, nil
}

// MarkReady moves one dish to ready_for_pickup. Marking a dish that is
// already ready succeeds without side effects.
func (s *Service) MarkReady(ctx context.Context, orderID, dishKey string) error {
	o, idx, err := s.lookup(orderID, dishKey)
	if err != nil {
		return err
	}
	return s.markReady(ctx, o, idx)
}

func (s *Service) markReady(ctx context.Context, o comanda.Order, idx int) error {
	d := o.Dishes[idx]
	if err := comanda.CanMarkReady(d); err != nil {
		if comanda.IsBenign(err) {
			return nil
		}
		return err
	}
	err := s.api.SetDishState(ctx, o.ID, d.MenuItem.ID, comanda.DishReady)
	if err != nil && !comanda.IsBenign(err) {
		return s.report("mark ready", o.ID, err)
	}
	s.store.ApplyDishStateChange(o.ID, d.Key, comanda.DishReady, s.now())
	return nil
}

// BatchResult reports the outcome of a bulk action per dish key.
type BatchResult struct {
	Succeeded []string
	Failed    map[string]error
}

// OK reports whether at least one dish succeeded.
func (r BatchResult) OK() bool {
	return len(r.Succeeded) > 0
}

// FinalizeDishes marks the given dishes ready. Each dish is independent: a
// failure does not roll back the others. The batch succeeds when at least one
// dish succeeded or was already ready.
func (s *Service) FinalizeDishes(ctx context.Context, orderID string, keys []string) (BatchResult, error) {
	if !s.acquire(orderID) {
		return BatchResult{}, ErrBusy
	}
	defer s.release(orderID)

	result := BatchResult{Failed: make(map[string]error)}
	o, ok := s.store.Order(orderID)
	if !ok {
		return result, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	if len(keys) == 0 {
		return result, nil
	}

	var (
		mu sync.Mutex
		g  errgroup.Group
	)
	g.SetLimit(s.limit)
	for _, key := range keys {
		key := key
		idx := o.FindDish(key)
		g.Go(func() error {
			var err error
			if idx < 0 {
				err = fmt.Errorf("%w: %s", ErrUnknownDish, key)
			} else {
				err = s.markReady(ctx, o, idx)
			}
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[key] = err
			} else {
				result.Succeeded = append(result.Succeeded, key)
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Strings(result.Succeeded)

	s.log.WithFields(logrus.Fields{
		"order":     orderID,
		"succeeded": len(result.Succeeded),
		"failed":    len(result.Failed),
	}).Info("finalize batch done")

	if !result.OK() {
		errs := make([]error, 0, len(result.Failed))
		for _, err := range result.Failed {
			errs = append(errs, err)
		}
		return result, fmt.Errorf("%w: %w", ErrBatchFailed, errors.Join(errs...))
	}
	if len(result.Failed) > 0 {
		s.notifier.Notify(Notice{
			Level:   LevelWarning,
			OrderID: orderID,
			Message: fmt.Sprintf("#%d: %d of %d dishes could not be finalized", o.Number, len(result.Failed), len(keys)),
		})
	}
	return result, nil
}

// FinalizeOrder marks every remaining dish of the order ready.
func (s *Service) FinalizeOrder(ctx context.Context, orderID string) (BatchResult, error) {
	o, ok := s.store.Order(orderID)
	if !ok {
		return BatchResult{}, fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	var keys []string
	for _, d := range o.Dishes {
		if d.Removed || d.State == comanda.DishReady || d.State == comanda.DishDelivered {
			continue
		}
		keys = append(keys, d.Key)
	}
	if len(keys) == 0 {
		return BatchResult{}, nil
	}
	return s.FinalizeDishes(ctx, orderID, keys)
}

func (s *Service) acquire(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[orderID]; busy {
		return false
	}
	s.inflight[orderID] = struct{}{}
	return true
}

func (s *Service) release(orderID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inflight, orderID)
}

// StockOut takes a dish off its order because the kitchen ran out. The
// removal is recorded in the order's history before the order is sent back.
// When no active dish remains the order is deleted.
func (s *Service) StockOut(ctx context.Context, orderID, dishKey, reason string) error {
	o, idx, err := s.lookup(orderID, dishKey)
	if err != nil {
		return err
	}
	d := o.Dishes[idx]
	if err := comanda.CanRemove(d); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "sin stock"
	}
	entry := comanda.RemovalEntry{
		DishKey:    d.Key,
		MenuItemID: d.MenuItem.ID,
		Name:       d.Name(),
		Quantity:   o.Quantity(idx),
		Reason:     reason,
		Actor:      s.actor,
		At:         s.now(),
	}
	next := o.Clone()
	next.RemovalHistory = append(next.RemovalHistory, entry)
	next.Dishes[idx].Removed = true
	next.Dishes[idx].RemovedReason = reason

	if err := s.api.UpdateOrder(ctx, next); err != nil {
		return s.report("stock out", orderID, err)
	}
	s.log.WithFields(logrus.Fields{"order": orderID, "dish": d.Key, "reason": reason}).Info("dish removed")

	if len(next.ActiveDishes()) == 0 {
		if err := s.api.DeleteOrder(ctx, orderID); err != nil {
			return s.report("delete order", orderID, err)
		}
		s.store.ApplyDelete(orderID)
		return nil
	}
	s.store.ApplyUpdate(next, entry)
	return nil
}

// UpdateNote replaces the order's free-text note.
func (s *Service) UpdateNote(ctx context.Context, orderID, note string) error {
	o, ok := s.store.Order(orderID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownOrder, orderID)
	}
	next := o.Clone()
	next.Note = strings.TrimSpace(note)
	if next.Note == o.Note {
		return nil
	}
	if err := s.api.UpdateOrder(ctx, next); err != nil {
		return s.report("update note", orderID, err)
	}
	s.store.ApplyUpdate(next)
	return nil
}

// RevertCandidates lists the day's orders that were finished within the last
// 24 hours, newest first.
func (s *Service) RevertCandidates(ctx context.Context) ([]comanda.Order, error) {
	orders, err := s.api.FetchDay(ctx, s.day())
	if err != nil {
		return nil, s.report("list revert candidates", "", err)
	}
	now := s.now()
	out := make([]comanda.Order, 0, len(orders))
	for _, o := range orders {
		if !o.IsActive() || len(o.Dishes) == 0 {
			continue
		}
		if comanda.Aggregate(o) == comanda.OrderWaiting {
			continue
		}
		if now.Sub(lastTouched(o)) > revertWindow {
			continue
		}
		out = append(out, o)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return lastTouched(out[i]).After(lastTouched(out[j]))
	})
	return out, nil
}

func lastTouched(o comanda.Order) time.Time {
	if o.UpdatedAt.IsZero() {
		return o.CreatedAt
	}
	return o.UpdatedAt
}

// Revert sends a finished order back to the kitchen: the order status goes to
// waiting first, then every ready or delivered dish. This is the only
// backward transition.
func (s *Service) Revert(ctx context.Context, o comanda.Order) error {
	if err := s.api.SetOrderStatus(ctx, o.ID, comanda.OrderWaiting); err != nil && !comanda.IsBenign(err) {
		return s.report("revert order", o.ID, err)
	}
	reverted := o.Clone()
	reverted.Status = comanda.OrderWaiting
	var errs []error
	for i, d := range o.Dishes {
		if d.Removed || (d.State != comanda.DishReady && d.State != comanda.DishDelivered) {
			continue
		}
		err := s.api.SetDishState(ctx, o.ID, d.MenuItem.ID, comanda.DishWaiting)
		if err != nil && !comanda.IsBenign(err) {
			errs = append(errs, fmt.Errorf("%s: %w", d.Name(), err))
			continue
		}
		reverted.Dishes[i].State = comanda.DishWaiting
	}
	if s.aggregator != nil {
		s.aggregator.Rearm(o.ID)
	}
	s.store.ApplyUpdate(reverted)
	s.refresh()
	s.log.WithFields(logrus.Fields{"order": o.ID, "failed": len(errs)}).Info("order reverted")
	if err := errors.Join(errs...); err != nil {
		return s.report("revert dishes", o.ID, err)
	}
	return nil
}

// report classifies err, notifies the operator when useful, and returns it.
func (s *Service) report(op, orderID string, err error) error {
	log := s.log.WithError(err).WithFields(logrus.Fields{"op": op, "order": orderID})
	switch {
	case comanda.IsBenign(err):
		return nil
	case backend.IsConflict(err):
		log.Warn("backend rejected request")
		s.notifier.Notify(Notice{Level: LevelWarning, OrderID: orderID, Message: op + ": " + conflictMessage(err)})
	default:
		log.Error("backend request failed")
		s.notifier.Notify(Notice{Level: LevelError, OrderID: orderID, Message: op + " failed, will retry on next sync"})
	}
	return err
}

func conflictMessage(err error) string {
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}
