package ui

import (
	"sync"
	"time"

	"github.com/gammazero/deque"

	"github.com/five82/pase/internal/kitchen"
)

type toast struct {
	notice kitchen.Notice
	at     time.Time
}

// Toasts is a bounded queue of short-lived notices. It implements
// kitchen.Notifier and is safe to call from any goroutine; the board drains
// it on every clock tick.
type Toasts struct {
	mu  sync.Mutex
	buf deque.Deque[toast]
	max int
	ttl time.Duration
	now func() time.Time
}

var _ kitchen.Notifier = (*Toasts)(nil)

// NewToasts returns an empty queue holding at most MaxToasts notices.
func NewToasts() *Toasts {
	return &Toasts{max: MaxToasts, ttl: ToastTTL, now: time.Now}
}

// Notify enqueues n, dropping the oldest notice when full.
func (t *Toasts) Notify(n kitchen.Notice) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf.PushBack(toast{notice: n, at: t.now()})
	for t.buf.Len() > t.max {
		t.buf.PopFront()
	}
}

// Visible drops expired notices and returns the rest, oldest first.
func (t *Toasts) Visible() []kitchen.Notice {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for t.buf.Len() > 0 && now.Sub(t.buf.Front().at) >= t.ttl {
		t.buf.PopFront()
	}
	out := make([]kitchen.Notice, 0, t.buf.Len())
	for i := 0; i < t.buf.Len(); i++ {
		out = append(out, t.buf.At(i).notice)
	}
	return out
}
