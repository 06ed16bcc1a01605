package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/pase/internal/prefs"
)

// prefsMsg carries edited preferences back to the board.
type prefsMsg prefs.Prefs

type setting struct {
	label  string
	value  func(p prefs.Prefs) string
	adjust func(p *prefs.Prefs, delta int)
}

var fontSizes = []prefs.FontSize{prefs.FontSmall, prefs.FontNormal, prefs.FontLarge}

var settings = []setting{
	{
		label: "Polling interval",
		value: func(p prefs.Prefs) string { return fmt.Sprintf("%ds", p.PollIntervalSeconds) },
		adjust: func(p *prefs.Prefs, delta int) {
			p.PollIntervalSeconds = stepIn(prefs.PollIntervals, p.PollIntervalSeconds, delta)
		},
	},
	{
		label:  "Yellow alert",
		value:  func(p prefs.Prefs) string { return fmt.Sprintf("%d min", p.AlertYellowMinutes) },
		adjust: func(p *prefs.Prefs, delta int) { p.AlertYellowMinutes = clampInt(p.AlertYellowMinutes+delta, 1, 60) },
	},
	{
		label:  "Red alert",
		value:  func(p prefs.Prefs) string { return fmt.Sprintf("%d min", p.AlertRedMinutes) },
		adjust: func(p *prefs.Prefs, delta int) { p.AlertRedMinutes = clampInt(p.AlertRedMinutes+delta, 1, 120) },
	},
	{
		label:  "Columns",
		value:  func(p prefs.Prefs) string { return fmt.Sprint(p.Columns) },
		adjust: func(p *prefs.Prefs, delta int) { p.Columns = clampInt(p.Columns+delta, 1, 5) },
	},
	{
		label:  "Rows",
		value:  func(p prefs.Prefs) string { return fmt.Sprint(p.Rows) },
		adjust: func(p *prefs.Prefs, delta int) { p.Rows = clampInt(p.Rows+delta, 1, 4) },
	},
	{
		label: "Font size",
		value: func(p prefs.Prefs) string { return string(p.FontSize) },
		adjust: func(p *prefs.Prefs, delta int) {
			p.FontSize = stepIn(fontSizes, p.FontSize, delta)
		},
	},
	{
		label:  "Sound",
		value:  func(p prefs.Prefs) string { return onOff(p.SoundEnabled) },
		adjust: func(p *prefs.Prefs, _ int) { p.SoundEnabled = !p.SoundEnabled },
	},
	{
		label:  "Dark mode",
		value:  func(p prefs.Prefs) string { return onOff(p.DarkMode) },
		adjust: func(p *prefs.Prefs, _ int) { p.DarkMode = !p.DarkMode },
	},
	{
		label:  "Auto print",
		value:  func(p prefs.Prefs) string { return onOff(p.AutoPrint) },
		adjust: func(p *prefs.Prefs, _ int) { p.AutoPrint = !p.AutoPrint },
	},
}

// settingsModal edits a draft of the preferences; nothing applies until the
// draft validates and is confirmed.
type settingsModal struct {
	draft  prefs.Prefs
	cursor int
	err    error
}

func newSettingsModal(p prefs.Prefs) *settingsModal {
	return &settingsModal{draft: p}
}

func (m *settingsModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	k, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil, false
	}
	switch {
	case key.Matches(k, keys.Escape):
		return m, nil, true
	case key.Matches(k, keys.DishUp):
		m.cursor = (m.cursor + len(settings) - 1) % len(settings)
	case key.Matches(k, keys.DishDown), key.Matches(k, keys.Tab):
		m.cursor = (m.cursor + 1) % len(settings)
	case key.Matches(k, keys.Left):
		settings[m.cursor].adjust(&m.draft, -1)
		m.err = nil
	case key.Matches(k, keys.Right), key.Matches(k, keys.Toggle):
		settings[m.cursor].adjust(&m.draft, 1)
		m.err = nil
	case key.Matches(k, keys.Confirm):
		if err := m.draft.Validate(); err != nil {
			m.err = err
			return m, nil, false
		}
		draft := m.draft
		return m, func() tea.Msg { return prefsMsg(draft) }, true
	}
	return m, nil, false
}

func (m *settingsModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(modalTitle(theme, "Settings"))
	b.WriteString("\n\n")
	for i, s := range settings {
		line := fmt.Sprintf("%-18s ‹ %s ›", s.label, s.value(m.draft))
		if i == m.cursor {
			line = styles.Selected.Render(line)
		} else {
			line = styles.Text.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(modalError(theme, m.err))
	b.WriteString(styles.FaintText.Render("←/→ change · enter save · esc cancel"))
	return placeBox(theme, width, height, b.String(), 44)
}

func stepIn[T comparable](values []T, current T, delta int) T {
	i := slices.Index(values, current)
	if i < 0 {
		return values[0]
	}
	i = clampInt(i+delta, 0, len(values)-1)
	return values[i]
}

func clampInt(v, lo, hi int) int {
	return max(lo, min(hi, v))
}

func onOff(v bool) string {
	if v {
		return "on"
	}
	return "off"
}
