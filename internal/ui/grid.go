package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pase/internal/board"
	"github.com/five82/pase/internal/comanda"
	"github.com/five82/pase/internal/prefs"
)

var stateGlyphs = map[comanda.DishState]string{
	comanda.DishWaiting:   "○",
	comanda.DishPreparing: "◐",
	comanda.DishReady:     "●",
	comanda.DishDelivered: "✓",
}

// renderGrid lays the cards of the current page out in prefs.Columns columns.
func (m Model) renderGrid(width, height int) string {
	bg := NewBgStyle(m.theme.Background)
	if len(m.view.Cards) == 0 {
		styles := m.theme.Styles()
		msg := "No pending orders"
		if strings.TrimSpace(m.search.Value()) != "" {
			msg = "No orders match the search"
		}
		return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center,
			styles.MutedText.Render(msg),
			lipgloss.WithWhitespaceBackground(lipgloss.Color(m.theme.Background)))
	}

	cols := max(1, m.prefs.Columns)
	rows := max(1, m.prefs.Rows)
	cardWidth := max(16, width/cols)
	cardHeight := max(5, height/rows)

	var lines []string
	for r := 0; r < rows; r++ {
		start := r * cols
		if start >= len(m.view.Cards) {
			break
		}
		end := min(start+cols, len(m.view.Cards))
		cells := make([]string, 0, cols)
		for _, c := range m.view.Cards[start:end] {
			cells = append(cells, m.renderCard(c, cardWidth, cardHeight))
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	grid := lipgloss.JoinVertical(lipgloss.Left, lines...)
	out := strings.Split(grid, "\n")
	for i := range out {
		out[i] = bg.FillLine(out[i], width)
	}
	for len(out) < height {
		out = append(out, bg.FillLine("", width))
	}
	return strings.Join(out[:height], "\n")
}

// renderCard renders one order. The border carries the alert tier.
func (m Model) renderCard(c board.Card, width, height int) string {
	o := c.Order
	selected := o.ID == m.selected
	bgColor := m.theme.SurfaceAlt
	if selected {
		bgColor = m.theme.FocusBg
	}
	borderColor := m.theme.TierColor(c.Tier)
	if selected && c.Tier == board.TierNormal {
		borderColor = m.theme.BorderFocus
	}

	inner := width - 4
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()
	tierStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.TierColor(c.Tier))).Bold(c.Tier != board.TierNormal)
	if c.Tier == board.TierNormal {
		tierStyle = styles.MutedText
	}

	var lines []string
	if m.prefs.FontSize != prefs.FontSmall {
		meta := truncate(o.Waiter, inner-9)
		elapsed := formatElapsed(c.Elapsed)
		gap := max(1, inner-len([]rune(meta))-len(elapsed))
		lines = append(lines, bg.Render(meta, styles.MutedText)+bg.Spaces(gap)+bg.Render(elapsed, tierStyle))
	}

	for i, d := range o.Dishes {
		lines = append(lines, m.renderDish(o, i, d, c.Matches, selected, inner, bg))
		if m.prefs.FontSize == prefs.FontLarge {
			lines = append(lines, "")
		}
	}

	if note := strings.TrimSpace(o.Note); note != "" {
		noteStyle := styles.WarningText.Italic(true)
		lines = append(lines, bg.Render(truncate("» "+note, inner), noteStyle))
	}

	title := fmt.Sprintf("#%d", o.Number)
	if o.Table != "" {
		title += " · " + o.Table
	}
	if m.prefs.FontSize == prefs.FontSmall {
		title += " · " + formatElapsed(c.Elapsed)
	}
	if m.busy[o.ID] {
		title += " …"
	}
	title = truncate(title, width-6)
	return m.renderTitledBox(title, strings.Join(lines, "\n"), width, height, borderColor, bgColor)
}

func (m Model) renderDish(o comanda.Order, i int, d comanda.Dish, matches []int, selected bool, width int, bg BgStyle) string {
	glyph := stateGlyphs[d.State]
	switch {
	case d.Removed:
		glyph = "✕"
	case m.checked[o.ID][d.Key]:
		glyph = "☑"
	}
	text := truncate(fmt.Sprintf("%s %d× %s", glyph, o.Quantity(i), d.Name()), width)

	style := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.StateColor(d)))
	switch {
	case d.Removed:
		style = style.Strikethrough(true).Faint(true)
	case d.State == comanda.DishReady || d.State == comanda.DishDelivered:
		style = style.Faint(true)
	}
	if slices.Contains(matches, i) {
		style = style.Underline(true).Bold(true)
	}
	if selected && i == m.dish {
		return m.theme.Styles().Selected.Render(padRight(text, width))
	}
	return bg.Render(text, style)
}

// renderTitledBox renders content in a box with the title embedded in the
// top border: ┌─── Title ───┐
func (m Model) renderTitledBox(title, content string, width, height int, borderColorStr, bgColorStr string) string {
	bg := NewBgStyle(bgColorStr)
	bgColor := lipgloss.Color(bgColorStr)
	borderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(borderColorStr))
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(m.theme.Text))

	innerWidth := width - 2
	titleLen := lipgloss.Width(title)
	leftPad := max(0, (innerWidth-titleLen-2)/2)
	rightPad := max(0, innerWidth-titleLen-2-leftPad)

	topBorder := bg.Render("┌", borderStyle) +
		bg.Render(strings.Repeat("─", leftPad), borderStyle) +
		bg.Render(" "+title+" ", titleStyle) +
		bg.Render(strings.Repeat("─", rightPad), borderStyle) +
		bg.Render("┐", borderStyle)

	bottomBorder := bg.Render("└", borderStyle) +
		bg.Render(strings.Repeat("─", innerWidth), borderStyle) +
		bg.Render("┘", borderStyle)

	contentStyle := lipgloss.NewStyle().Width(innerWidth - 2).Background(bgColor)
	side := bg.Render("│", borderStyle)

	contentLines := strings.Split(content, "\n")
	boxHeight := height - 2
	if len(contentLines) > boxHeight && boxHeight > 0 {
		hidden := len(contentLines) - boxHeight + 1
		contentLines = append(contentLines[:boxHeight-1],
			bg.Render(fmt.Sprintf("+%d more", hidden), m.theme.Styles().FaintText))
	}

	rows := make([]string, 0, height)
	rows = append(rows, topBorder)
	for i := 0; i < boxHeight; i++ {
		var line string
		if i < len(contentLines) {
			line = contentLines[i]
		}
		rows = append(rows, side+bg.Space()+contentStyle.Render(line)+bg.Space()+side)
	}
	rows = append(rows, bottomBorder)
	return strings.Join(rows, "\n")
}
