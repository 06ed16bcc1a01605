package kitchen

import "sync"

// Level grades a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a short-lived, non-blocking message for the operator.
type Notice struct {
	Level   Level
	OrderID string
	Message string
}

// Notifier receives notices. Implementations must not block.
type Notifier interface {
	Notify(Notice)
}

type discard struct{}

func (discard) Notify(Notice) {}

// Recorder collects notices in memory.
type Recorder struct {
	mu      sync.Mutex
	notices []Notice
}

func (r *Recorder) Notify(n Notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

// Notices returns the notices received so far.
func (r *Recorder) Notices() []Notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notice(nil), r.notices...)
}
