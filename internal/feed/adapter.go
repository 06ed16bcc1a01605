package feed

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/five82/pase/internal/backend"
	"github.com/five82/pase/internal/comanda"
	"github.com/five82/pase/internal/store"
)

// Fetcher pulls the board snapshot for a business day.
type Fetcher interface {
	FetchBoard(ctx context.Context, day string) ([]comanda.Order, error)
}

// Options configure an Adapter. Zero durations use the defaults below.
type Options struct {
	Dialer  Dialer
	Fetcher Fetcher
	Store   *store.Store
	// Day returns the current business day, formatted YYYY-MM-DD.
	Day func() string
	Log logrus.FieldLogger

	HeartbeatEvery  time.Duration
	Grace           time.Duration
	PollEvery       time.Duration
	SnapshotTimeout time.Duration
	BackoffBase     time.Duration

	// MaxRedials caps consecutive backoff redials. Past it the adapter polls
	// and tries one dial per poll tick until push is back.
	MaxRedials int
}

const (
	defaultHeartbeatEvery  = 30 * time.Second
	defaultGrace           = 120 * time.Second
	defaultPollEvery       = 30 * time.Second
	defaultSnapshotTimeout = 5 * time.Second
	defaultBackoffBase     = time.Second
	defaultMaxRedials      = 5
)

type signalKind int

const (
	sigDisconnected signalKind = iota
	sigReconnected
	sigClosed
)

type signal struct {
	gen  int
	kind signalKind
	err  error
}

type rawEvent struct {
	gen  int
	kind backend.EventKind
	data []byte
}

type dialResult struct {
	gen int
	ch  Channel
	err error
}

type snapshotResult struct {
	orders   []comanda.Order
	err      error
	issuedAt time.Time
}

type beatResult struct {
	gen int
	err error
}

// Adapter keeps the store in sync with the backend. All timers and channel
// state live on a single goroutine; Close stops it and waits for it.
type Adapter struct {
	opts Options
	log  logrus.FieldLogger

	events  chan rawEvent
	signals chan signal
	refresh chan struct{}

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// New builds an adapter. Call Start to run it.
func New(opts Options) *Adapter {
	if opts.HeartbeatEvery <= 0 {
		opts.HeartbeatEvery = defaultHeartbeatEvery
	}
	if opts.Grace <= 0 {
		opts.Grace = defaultGrace
	}
	if opts.PollEvery <= 0 {
		opts.PollEvery = defaultPollEvery
	}
	if opts.SnapshotTimeout <= 0 {
		opts.SnapshotTimeout = defaultSnapshotTimeout
	}
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = defaultBackoffBase
	}
	if opts.MaxRedials <= 0 {
		opts.MaxRedials = defaultMaxRedials
	}
	if opts.Day == nil {
		opts.Day = func() string { return time.Now().Format(time.DateOnly) }
	}
	log := opts.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Adapter{
		opts:    opts,
		log:     log.WithField("component", "feed"),
		events:  make(chan rawEvent, 64),
		signals: make(chan signal, 8),
		refresh: make(chan struct{}, 1),
	}
}

// Start launches the event loop. It returns immediately.
func (a *Adapter) Start(ctx context.Context) {
	a.startOnce.Do(func() {
		ctx, a.cancel = context.WithCancel(ctx)
		a.wg.Add(1)
		go a.run(ctx)
	})
}

// Refresh asks for a fresh snapshot. Requests coalesce.
func (a *Adapter) Refresh() {
	select {
	case a.refresh <- struct{}{}:
	default:
	}
}

// RefreshOrder satisfies the store's refresh hook. The backend has no
// single-order endpoint, so it refreshes the whole board.
func (a *Adapter) RefreshOrder(string) {
	a.Refresh()
}

// Close stops the loop and closes the channel. No timer fires after Close
// returns.
func (a *Adapter) Close() {
	a.closeOnce.Do(func() {
		if a.cancel != nil {
			a.cancel()
		}
		a.wg.Wait()
	})
}

func (a *Adapter) run(ctx context.Context) {
	defer a.wg.Done()

	var (
		ch        Channel
		gen       int
		failures  int
		state     = store.Disconnected
		polling   bool
		room      string
		lastAlive = time.Now()
		fetching  bool
		pending   bool
		beating   bool
		dialing   bool

		retryTimer *time.Timer
		retryC     <-chan time.Time
		pollTicker *time.Ticker
		pollC      <-chan time.Time
	)
	dialResults := make(chan dialResult, 1)
	snapResults := make(chan snapshotResult, 1)
	beatResults := make(chan beatResult, 1)

	heartbeat := time.NewTicker(a.opts.HeartbeatEvery)
	watchdog := time.NewTicker(watchInterval(a.opts.Grace))

	publish := func() {
		if polling {
			a.opts.Store.SetConnection(store.Polling)
			return
		}
		a.opts.Store.SetConnection(state)
	}
	setState := func(s store.Connection) {
		state = s
		publish()
	}
	stopPolling := func() {
		if pollTicker != nil {
			pollTicker.Stop()
			pollTicker, pollC = nil, nil
		}
		polling = false
	}
	markAlive := func() {
		lastAlive = time.Now()
		if polling && state == store.Connected {
			a.log.Info("push channel recovered, stopping fallback polling")
			stopPolling()
			publish()
		}
	}
	fetch := func() {
		if fetching {
			pending = true
			return
		}
		fetching = true
		day := a.opts.Day()
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			issuedAt := time.Now()
			fctx, cancel := context.WithTimeout(ctx, a.opts.SnapshotTimeout)
			orders, err := a.opts.Fetcher.FetchBoard(fctx, day)
			cancel()
			select {
			case snapResults <- snapshotResult{orders: orders, err: err, issuedAt: issuedAt}:
			case <-ctx.Done():
			}
		}()
	}
	startPolling := func() {
		if polling {
			return
		}
		polling = true
		pollTicker = time.NewTicker(a.opts.PollEvery)
		pollC = pollTicker.C
		publish()
		fetch()
	}
	scheduleRetry := func() {
		if failures >= a.opts.MaxRedials {
			a.log.WithFields(logrus.Fields{"failures": failures, "every": a.opts.PollEvery}).
				Warn("push reconnect attempts exhausted, polling and redialing on each poll")
			startPolling()
			return
		}
		delay := calculateBackoff(failures-1, a.opts.BackoffBase)
		a.log.WithField("delay", delay).Debug("scheduling push reconnect")
		retryTimer = time.NewTimer(delay)
		retryC = retryTimer.C
	}
	dial := func() {
		gen++
		g := gen
		dialing = true
		setState(store.Connecting)
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			c, err := a.opts.Dialer.Dial(ctx, a.hooks(ctx, g))
			select {
			case dialResults <- dialResult{gen: g, ch: c, err: err}:
			case <-ctx.Done():
				if c != nil {
					c.Close()
				}
			}
		}()
	}
	join := func() error {
		room = a.opts.Day()
		return ch.Join(room, a.handler(ctx, gen))
	}
	dropChannel := func() {
		if ch != nil {
			ch.Close()
			ch = nil
		}
	}

	defer func() {
		heartbeat.Stop()
		watchdog.Stop()
		if retryTimer != nil {
			retryTimer.Stop()
		}
		stopPolling()
		dropChannel()
		a.opts.Store.SetConnection(store.Disconnected)
	}()

	fetch()
	dial()

	for {
		select {
		case <-ctx.Done():
			return

		case res := <-dialResults:
			if res.gen != gen {
				if res.ch != nil {
					res.ch.Close()
				}
				continue
			}
			dialing = false
			if res.err != nil {
				failures++
				a.log.WithError(res.err).WithField("failures", failures).Warn("push connect failed")
				setState(store.Disconnected)
				scheduleRetry()
				continue
			}
			ch = res.ch
			if err := join(); err != nil {
				failures++
				a.log.WithError(err).Warn("join room failed")
				dropChannel()
				setState(store.Disconnected)
				scheduleRetry()
				continue
			}
			failures = 0
			a.log.WithField("room", room).Info("push channel connected")
			setState(store.Connected)
			markAlive()
			fetch()

		case <-retryC:
			retryTimer, retryC = nil, nil
			dial()

		case sig := <-a.signals:
			if sig.gen != gen || ch == nil {
				continue
			}
			switch sig.kind {
			case sigDisconnected:
				a.log.WithError(sig.err).Warn("push channel disconnected, reconnecting")
				setState(store.Connecting)
			case sigReconnected:
				if err := join(); err != nil {
					a.log.WithError(err).Warn("rejoin room failed")
				}
				a.log.Info("push channel reconnected")
				setState(store.Connected)
				markAlive()
				fetch()
			case sigClosed:
				a.log.Warn("push channel closed")
				dropChannel()
				failures++
				setState(store.Disconnected)
				scheduleRetry()
			}

		case ev := <-a.events:
			if ev.gen != gen {
				continue
			}
			markAlive()
			if a.apply(ev) {
				fetch()
			}

		case <-heartbeat.C:
			if ch == nil || state != store.Connected || beating {
				continue
			}
			beating = true
			c, g := ch, gen
			a.wg.Add(1)
			go func() {
				defer a.wg.Done()
				hctx, cancel := context.WithTimeout(ctx, a.opts.SnapshotTimeout)
				err := c.Heartbeat(hctx)
				cancel()
				select {
				case beatResults <- beatResult{gen: g, err: err}:
				case <-ctx.Done():
				}
			}()

		case res := <-beatResults:
			beating = false
			if res.gen != gen {
				continue
			}
			if res.err != nil {
				a.log.WithError(res.err).Debug("heartbeat failed")
				continue
			}
			markAlive()

		case <-watchdog.C:
			if ch != nil && state == store.Connected && room != a.opts.Day() {
				a.log.WithField("room", a.opts.Day()).Info("business day changed, switching room")
				if err := join(); err != nil {
					a.log.WithError(err).Warn("join room failed")
				}
				fetch()
			}
			if !polling && time.Since(lastAlive) > a.opts.Grace {
				a.log.WithField("grace", a.opts.Grace).Warn("push channel silent past grace window, polling")
				startPolling()
			}

		case <-pollC:
			fetch()
			if ch == nil && !dialing && retryC == nil {
				dial()
			}

		case <-a.refresh:
			fetch()

		case res := <-snapResults:
			fetching = false
			if res.err != nil {
				a.log.WithError(res.err).Warn("snapshot fetch failed")
				a.opts.Store.RecordError(res.err)
			} else {
				a.opts.Store.ApplySnapshot(res.orders, res.issuedAt)
			}
			if pending {
				pending = false
				fetch()
			}
		}
	}
}

// apply routes a push event into the store. It reports whether a full
// snapshot is needed.
func (a *Adapter) apply(raw rawEvent) bool {
	ev, err := backend.DecodeEvent(raw.kind, raw.data)
	if err != nil {
		a.log.WithError(err).Warn("dropping push event")
		return false
	}
	a.log.WithFields(logrus.Fields{"event": ev.Kind, "order": ev.OrderID}).Debug("push event")
	st := a.opts.Store
	switch ev.Kind {
	case backend.EventOrderCreated:
		st.ApplyCreate(*ev.Order)
	case backend.EventOrderUpdated:
		if ev.Order == nil {
			return true
		}
		st.ApplyUpdate(*ev.Order, ev.RemovalHistory...)
	case backend.EventDishUpdated:
		st.ApplyDishStateChange(ev.OrderID, ev.DishRef, ev.DishState, ev.At)
	case backend.EventOrderDeleted:
		st.ApplyDelete(ev.OrderID)
	}
	return false
}

func (a *Adapter) handler(ctx context.Context, gen int) EventHandler {
	return func(kind backend.EventKind, data []byte) {
		select {
		case a.events <- rawEvent{gen: gen, kind: kind, data: data}:
		case <-ctx.Done():
		}
	}
}

func (a *Adapter) hooks(ctx context.Context, gen int) Hooks {
	send := func(s signal) {
		select {
		case a.signals <- s:
		case <-ctx.Done():
		}
	}
	return Hooks{
		Disconnected: func(err error) { send(signal{gen: gen, kind: sigDisconnected, err: err}) },
		Reconnected:  func() { send(signal{gen: gen, kind: sigReconnected}) },
		Closed:       func() { send(signal{gen: gen, kind: sigClosed}) },
	}
}

func watchInterval(grace time.Duration) time.Duration {
	every := grace / 4
	if every > 5*time.Second {
		every = 5 * time.Second
	}
	if every < 5*time.Millisecond {
		every = 5 * time.Millisecond
	}
	return every
}
