package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pase/internal/comanda"
)

// revertModal lists finished orders that can be sent back to the kitchen.
type revertModal struct {
	ctx     context.Context
	kitchen Kitchen
	now     time.Time

	loading bool
	err     error
	orders  []comanda.Order
	cursor  int
	picked  map[string]bool
}

func newRevertModal(ctx context.Context, k Kitchen, now time.Time) (*revertModal, tea.Cmd) {
	m := &revertModal{ctx: ctx, kitchen: k, now: now, loading: true, picked: make(map[string]bool)}
	return m, candidatesCmd(ctx, k)
}

func (m *revertModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case candidatesMsg:
		m.loading = false
		m.err = msg.err
		m.orders = msg.orders
		m.cursor = 0
		return m, nil, false
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Escape):
			return m, nil, true
		case key.Matches(msg, keys.DishUp):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.DishDown):
			if m.cursor < len(m.orders)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Toggle):
			if o, ok := m.current(); ok {
				m.picked[o.ID] = !m.picked[o.ID]
			}
		case key.Matches(msg, keys.Confirm):
			selected := m.selected()
			if len(selected) == 0 {
				return m, nil, false
			}
			return m, revertCmd(m.ctx, m.kitchen, selected), true
		}
	}
	return m, nil, false
}

func (m *revertModal) current() (comanda.Order, bool) {
	if m.cursor < 0 || m.cursor >= len(m.orders) {
		return comanda.Order{}, false
	}
	return m.orders[m.cursor], true
}

// selected returns the picked orders, or the one under the cursor when none
// were picked.
func (m *revertModal) selected() []comanda.Order {
	var out []comanda.Order
	for _, o := range m.orders {
		if m.picked[o.ID] {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		if o, ok := m.current(); ok {
			out = append(out, o)
		}
	}
	return out
}

func (m *revertModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(theme, "Revert orders"))
	b.WriteString("\n")
	b.WriteString(styles.MutedText.Render("Send finished orders back to the kitchen"))
	b.WriteString("\n\n")
	b.WriteString(modalError(theme, m.err))

	switch {
	case m.loading:
		b.WriteString(styles.WarningText.Render("Loading…"))
		b.WriteString("\n")
	case len(m.orders) == 0 && m.err == nil:
		b.WriteString(styles.FaintText.Render("No finished orders in the last 24 hours"))
		b.WriteString("\n")
	}

	for i, o := range m.orders {
		mark := "[ ]"
		if m.picked[o.ID] {
			mark = "[x]"
		}
		ago := formatElapsed(m.now.Sub(o.UpdatedAt))
		line := fmt.Sprintf("%s #%-4d %-8s %-12s %s ago", mark, o.Number, truncate(o.Table, 8),
			comanda.Aggregate(o).Label(), ago)
		if i == m.cursor {
			line = styles.Selected.Render(line)
		} else {
			line = styles.Text.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("space select · enter revert · esc close"))
	return placeBox(theme, width, height, b.String(), 56)
}
