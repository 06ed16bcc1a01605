package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the board.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	ToggleDark key.Binding
	Escape     key.Binding

	// Navigation
	NextCard key.Binding
	PrevCard key.Binding
	DishUp   key.Binding
	DishDown key.Binding
	NextPage key.Binding
	PrevPage key.Binding

	// Kitchen actions
	MarkReady       key.Binding
	Check           key.Binding
	Finalize        key.Binding
	FinalizeChecked key.Binding
	StockOut        key.Binding
	Note            key.Binding
	Search          key.Binding

	// Modals
	Revert key.Binding
	Config key.Binding
	Report key.Binding
	Logs   key.Binding

	// Modal input
	Confirm key.Binding
	Toggle  key.Binding
	Left    key.Binding
	Right   key.Binding
	Export  key.Binding
	Tab     key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "e"),
			key.WithHelp("e", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		ToggleDark: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Toggle dark mode"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close / clear search"),
		),

		NextCard: key.NewBinding(
			key.WithKeys("l", "right", "tab"),
			key.WithHelp("l/right", "Next order"),
		),
		PrevCard: key.NewBinding(
			key.WithKeys("h", "left", "shift+tab"),
			key.WithHelp("h/left", "Previous order"),
		),
		DishUp: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Previous dish"),
		),
		DishDown: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Next dish"),
		),
		NextPage: key.NewBinding(
			key.WithKeys("]", "pgdown"),
			key.WithHelp("]", "Next page"),
		),
		PrevPage: key.NewBinding(
			key.WithKeys("[", "pgup"),
			key.WithHelp("[", "Previous page"),
		),

		MarkReady: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Dish ready"),
		),
		Check: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Check dish"),
		),
		Finalize: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "Finalize order"),
		),
		FinalizeChecked: key.NewBinding(
			key.WithKeys("F"),
			key.WithHelp("F", "Finalize checked"),
		),
		StockOut: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Out of stock"),
		),
		Note: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "Edit note"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "Search dishes"),
		),

		Revert: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Revert orders"),
		),
		Config: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Settings"),
		),
		Report: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Daily report"),
		),
		Logs: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Station log"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Confirm"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "Select"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("left", "Decrease"),
		),
		Right: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("right", "Increase"),
		),
		Export: key.NewBinding(
			key.WithKeys("ctrl+e"),
			key.WithHelp("ctrl+e", "Export XLSX"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next field"),
		),
	}
}

// ShortHelp returns key bindings for the command bar.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.MarkReady, k.Finalize, k.StockOut, k.Search, k.Help, k.Quit}
}

// FullHelp returns key bindings for the help overlay, grouped by section.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.NextCard, k.PrevCard, k.DishDown, k.DishUp, k.NextPage, k.PrevPage},
		{k.MarkReady, k.Check, k.Finalize, k.FinalizeChecked, k.StockOut, k.Note, k.Search, k.Escape},
		{k.Revert, k.Report, k.Config, k.Logs},
		{k.CycleTheme, k.ToggleDark, k.Help, k.Quit},
	}
}
