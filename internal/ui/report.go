package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pase/internal/report"
)

// reportModal shows the daily summary with waiter and table filters.
type reportModal struct {
	ctx     context.Context
	reports Reports

	inputs  [2]textinput.Model // waiter, table
	focus   int
	loading bool
	rep     *report.Report
	err     error
	saved   string
}

func newReportModal(ctx context.Context, r Reports) (*reportModal, tea.Cmd) {
	m := &reportModal{ctx: ctx, reports: r, loading: true}
	for i, placeholder := range []string{"waiter", "table"} {
		ti := textinput.New()
		ti.Prompt = ""
		ti.Placeholder = placeholder
		ti.CharLimit = 40
		ti.Width = 16
		m.inputs[i] = ti
	}
	cmd := m.inputs[0].Focus()
	return m, tea.Batch(cmd, reportCmd(ctx, r, report.Filter{}))
}

func (m *reportModal) filter() report.Filter {
	return report.Filter{Waiter: m.inputs[0].Value(), Table: m.inputs[1].Value()}
}

func (m *reportModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case reportMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			rep := msg.report
			m.rep = &rep
		}
		return m, nil, false
	case exportMsg:
		m.err = msg.err
		m.saved = msg.path
		return m, nil, false
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Escape):
			return m, nil, true
		case key.Matches(msg, keys.Tab):
			m.inputs[m.focus].Blur()
			m.focus = (m.focus + 1) % len(m.inputs)
			return m, m.inputs[m.focus].Focus(), false
		case key.Matches(msg, keys.Confirm):
			m.loading = true
			m.saved = ""
			return m, reportCmd(m.ctx, m.reports, m.filter()), false
		case key.Matches(msg, keys.Export):
			if m.rep == nil {
				return m, nil, false
			}
			return m, exportCmd(m.reports, *m.rep), false
		}
	}
	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd, false
}

func (m *reportModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(theme, "Daily report"))
	if m.rep != nil {
		b.WriteString(styles.MutedText.Render("  " + m.rep.Day))
	}
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("Waiter ") + m.inputs[0].View())
	b.WriteString("  ")
	b.WriteString(styles.MutedText.Render("Table ") + m.inputs[1].View())
	b.WriteString("\n\n")
	b.WriteString(modalError(theme, m.err))

	switch {
	case m.loading:
		b.WriteString(styles.WarningText.Render("Loading…"))
		b.WriteString("\n")
	case m.rep != nil:
		r := m.rep
		row := func(label, value string) {
			b.WriteString(styles.MutedText.Render(fmt.Sprintf("%-20s", label)))
			b.WriteString(styles.Text.Render(value))
			b.WriteString("\n")
		}
		row("Orders", fmt.Sprint(r.Orders))
		row("Waiting / ready", fmt.Sprintf("%d / %d", r.Waiting, r.Ready))
		row("Delivered", fmt.Sprint(r.Delivered))
		row("Removed dishes", fmt.Sprint(r.Removed))
		row("Sales", r.Sales.StringFixed(2))
		row("Avg prep", fmt.Sprintf("%d min", r.AvgPrepMinutes()))

		if len(r.ByWaiter) > 0 {
			b.WriteString("\n")
			b.WriteString(styles.AccentText.Bold(true).Render("By waiter"))
			b.WriteString("\n")
			for _, ws := range r.ByWaiter {
				b.WriteString(styles.Text.Render(fmt.Sprintf("%-16s %3d  %10s", truncate(ws.Waiter, 16), ws.Orders, ws.Sales.StringFixed(2))))
				b.WriteString("\n")
			}
		}
		if len(r.TopDishes) > 0 {
			b.WriteString("\n")
			b.WriteString(styles.AccentText.Bold(true).Render("Top dishes"))
			b.WriteString("\n")
			for _, dc := range r.TopDishes {
				b.WriteString(styles.Text.Render(fmt.Sprintf("%-24s %4d", truncate(dc.Name, 24), dc.Quantity)))
				b.WriteString("\n")
			}
		}
	}

	if m.saved != "" {
		b.WriteString("\n")
		b.WriteString(styles.SuccessText.Render("saved " + m.saved))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render("tab field · enter apply · ctrl+e export · esc close"))
	return placeBox(theme, width, height, b.String(), 56)
}
