package ui

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/five82/pase/internal/kitchen"
)

func TestToasts_BoundedAndExpiring(t *testing.T) {
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	q := NewToasts()
	q.now = func() time.Time { return now }

	for i := 0; i < MaxToasts+2; i++ {
		q.Notify(kitchen.Notice{Message: fmt.Sprintf("n%d", i)})
	}
	visible := q.Visible()
	assert.Len(t, visible, MaxToasts)
	assert.Equal(t, "n2", visible[0].Message, "oldest notices are dropped first")

	now = now.Add(ToastTTL)
	assert.Empty(t, q.Visible())
}
