package ui

import "time"

// Terminal width below which the header drops secondary fields.
const LayoutCompactWidth = 100

// Timing constants.
const (
	// ClockInterval drives elapsed-time and alert-tier recomputation.
	ClockInterval = time.Second

	// ActionTimeout bounds a single kitchen action.
	ActionTimeout = 10 * time.Second

	// ToastTTL is how long a notice stays on screen.
	ToastTTL = 5 * time.Second

	// MaxToasts bounds the visible notice queue.
	MaxToasts = 4
)
