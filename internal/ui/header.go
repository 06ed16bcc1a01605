package ui

import (
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pase/internal/backend"
	"github.com/five82/pase/internal/store"
)

// renderHeader renders the status bar: connection, counts, page, and clock.
func (m Model) renderHeader() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)
	sep := bg.Spaces(2)
	compact := m.width < LayoutCompactWidth

	parts := []string{
		bg.Render("pase", styles.Logo),
		m.connectionBadge(styles, bg),
	}

	if !compact {
		parts = append(parts, bg.Render(m.day(), styles.MutedText))
	}

	parts = append(parts,
		bg.Render("Waiting:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprint(m.view.Total), styles.Text),
	)

	urgentStyle := styles.MutedText
	if m.view.Urgent > 0 {
		urgentStyle = styles.DangerText
	}
	parts = append(parts,
		bg.Render("Late:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprint(m.view.Urgent), urgentStyle),
	)

	if m.view.PageCount > 1 {
		parts = append(parts, bg.Render(fmt.Sprintf("Page %d/%d", m.view.Page+1, m.view.PageCount), styles.AccentText))
	}

	if q := strings.TrimSpace(m.search.Value()); q != "" {
		parts = append(parts, bg.Render("/"+truncate(q, 18), styles.AccentText))
	}

	if err := m.snapshot.LastError; err != nil && m.snapshot.Degraded() {
		parts = append(parts, bg.Render(classifyConnectionError(err), styles.DangerText))
		if !compact && !m.snapshot.LastSync.IsZero() {
			parts = append(parts, bg.Render("synced "+m.snapshot.LastSync.Format("15:04:05"), styles.FaintText))
		}
	}

	left := bg.Join(parts, "  ")
	clock := bg.Render(m.now().Format("15:04:05"), styles.Text.Bold(true))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(clock) - 2
	line := left + sep + clock
	if gap > 0 {
		line = left + bg.Spaces(gap) + clock
	}
	return styles.Header.Width(m.width).Render(line)
}

func (m Model) connectionBadge(styles Styles, bg BgStyle) string {
	switch m.snapshot.Connection {
	case store.Connected:
		return bg.Render("● LIVE", styles.SuccessText)
	case store.Connecting:
		return bg.Render("◌ CONNECTING", styles.WarningText.Bold(true))
	case store.Polling:
		return bg.Render("▲ POLLING", styles.WarningText.Bold(true))
	default:
		return bg.Render("✕ OFFLINE", styles.DangerText)
	}
}

// classifyConnectionError gives a short label for the last sync failure.
func classifyConnectionError(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *backend.APIError
	if errors.As(err, &apiErr) {
		return fmt.Sprintf("API %d", apiErr.Status)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "TIMEOUT"
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"):
		return "UNREACHABLE"
	case strings.Contains(msg, "no such host"):
		return "HOST NOT FOUND"
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return "TIMEOUT"
	default:
		return "ERROR"
	}
}

// renderCommandBar renders the key hints bar.
func (m Model) renderCommandBar() string {
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	colon := bg.Render(":", styles.FaintText)
	segments := make([]string, 0, 8)
	if m.searching {
		segments = append(segments,
			bg.Render("enter", styles.AccentText)+colon+bg.Render("Keep", styles.MutedText),
			bg.Render("esc", styles.AccentText)+colon+bg.Render("Clear", styles.MutedText),
		)
	} else {
		for _, b := range m.keys.ShortHelp() {
			h := b.Help()
			segments = append(segments, bg.Render(h.Key, styles.AccentText)+colon+bg.Render(h.Desc, styles.MutedText))
		}
	}
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Footer.Width(m.width).Render(bg.Join(segments, "  "))
}

// renderToasts renders pending notices, newest last.
func (m Model) renderToasts() []string {
	notices := m.notices
	if len(notices) == 0 {
		return nil
	}
	styles := m.theme.Styles()
	lines := make([]string, 0, len(notices))
	for _, n := range notices {
		style := styles.InfoText
		switch n.Level.String() {
		case "warning":
			style = styles.WarningText
		case "error":
			style = styles.DangerText
		}
		lines = append(lines, style.Width(m.width).Render(truncate("• "+n.Message, m.width-1)))
	}
	return lines
}
