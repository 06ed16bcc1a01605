package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/five82/pase/internal/logtail"
)

// logTailLines bounds how much of the station log the viewer reads.
const logTailLines = 400

type logsMsg struct {
	entries []logtail.Entry
	err     error
}

func loadLogsCmd(path string, minLevel logrus.Level) tea.Cmd {
	return func() tea.Msg {
		entries, err := logtail.Tail(path, logTailLines, minLevel)
		return logsMsg{entries: entries, err: err}
	}
}

// logsModal shows the tail of the station log, newest at the bottom.
type logsModal struct {
	path         string
	warningsOnly bool
	entries      []logtail.Entry
	err          error
	loading      bool
	vp           viewport.Model
	sized        bool
}

func newLogsModal(path string) (*logsModal, tea.Cmd) {
	m := &logsModal{path: path, loading: true, vp: viewport.New(0, 0)}
	return m, loadLogsCmd(path, m.minLevel())
}

func (m *logsModal) minLevel() logrus.Level {
	if m.warningsOnly {
		return logrus.WarnLevel
	}
	return logrus.DebugLevel
}

func (m *logsModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	switch msg := msg.(type) {
	case logsMsg:
		m.loading = false
		m.entries, m.err = msg.entries, msg.err
		m.sized = false
		return m, nil, false
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Escape), key.Matches(msg, keys.Logs):
			return m, nil, true
		case key.Matches(msg, keys.Toggle):
			m.warningsOnly = !m.warningsOnly
			m.loading = true
			return m, loadLogsCmd(m.path, m.minLevel()), false
		case key.Matches(msg, keys.Confirm):
			m.loading = true
			return m, loadLogsCmd(m.path, m.minLevel()), false
		}
	}
	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd, false
}

func (m *logsModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	boxWidth := max(40, width-8)
	m.vp.Width = boxWidth - 6
	m.vp.Height = max(3, height-12)
	if !m.sized {
		m.vp.SetContent(m.render(theme, m.vp.Width))
		m.vp.GotoBottom()
		m.sized = true
	}

	var b strings.Builder
	title := "Station log"
	if m.warningsOnly {
		title += " (warnings)"
	}
	b.WriteString(modalTitle(theme, title))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(truncateMiddle(m.path, m.vp.Width)))
	b.WriteString("\n\n")
	b.WriteString(modalError(theme, m.err))
	if m.loading {
		b.WriteString(styles.WarningText.Render("Loading…"))
		b.WriteString("\n")
	}
	b.WriteString(m.vp.View())
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("j/k scroll · space warnings only · enter reload · esc close"))
	return placeBox(theme, width, height, b.String(), boxWidth)
}

func (m *logsModal) render(theme Theme, width int) string {
	if len(m.entries) == 0 {
		return theme.Styles().FaintText.Render("No log entries")
	}
	styles := theme.Styles()
	lines := make([]string, 0, len(m.entries))
	for _, e := range m.entries {
		level := fmt.Sprintf("%-5s", strings.ToUpper(shortLevel(e.Level)))
		head := styles.FaintText.Render(e.Time) + " " + levelStyle(theme, e.Level).Render(level)
		if e.Component != "" {
			head += " " + styles.AccentText.Render("["+e.Component+"]")
		}
		text := e.Message
		for _, kv := range e.Fields {
			text += " " + kv[0] + "=" + kv[1]
		}
		room := width - lipgloss.Width(head) - 1
		lines = append(lines, head+" "+styles.Text.Render(truncate(text, room)))
	}
	return strings.Join(lines, "\n")
}

func shortLevel(l logrus.Level) string {
	if l == logrus.WarnLevel {
		return "warn"
	}
	return l.String()
}

func levelStyle(theme Theme, l logrus.Level) lipgloss.Style {
	styles := theme.Styles()
	switch {
	case l <= logrus.ErrorLevel:
		return styles.DangerText
	case l == logrus.WarnLevel:
		return styles.WarningText
	case l == logrus.DebugLevel || l == logrus.TraceLevel:
		return styles.FaintText
	default:
		return styles.InfoText
	}
}
