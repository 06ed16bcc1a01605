package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Modal is the interface for modal dialogs.
// The Update method returns the updated modal, a command, and a bool indicating if the modal should close.
type Modal interface {
	Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool)
	View(theme Theme, width, height int) string
}

// inputModal asks for one line of text.
type inputModal struct {
	title  string
	hint   string
	input  textinput.Model
	submit func(value string) tea.Cmd
}

func newInputModal(title, hint, value, placeholder string, submit func(string) tea.Cmd) *inputModal {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = placeholder
	ti.CharLimit = 200
	ti.Width = 44
	ti.SetValue(value)
	ti.Focus()
	return &inputModal{title: title, hint: hint, input: ti, submit: submit}
}

func (m *inputModal) Update(msg tea.Msg, keys keyMap) (Modal, tea.Cmd, bool) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(msg, keys.Escape):
			return m, nil, true
		case key.Matches(msg, keys.Confirm):
			return m, m.submit(m.input.Value()), true
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd, false
}

func (m *inputModal) View(theme Theme, width, height int) string {
	styles := theme.Styles()
	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render(m.title))
	b.WriteString("\n")
	if m.hint != "" {
		b.WriteString(styles.MutedText.Render(m.hint))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(styles.FaintText.Render("enter save · esc cancel"))
	return placeBox(theme, width, height, b.String(), 50)
}

func modalTitle(theme Theme, title string) string {
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(theme.Text)).Render(title)
}

func modalError(theme Theme, err error) string {
	if err == nil {
		return ""
	}
	return theme.Styles().DangerText.Render(fmt.Sprintf("error: %v", err)) + "\n"
}
