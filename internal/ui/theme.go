package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/pase/internal/board"
	"github.com/five82/pase/internal/comanda"
)

// Theme defines colors and styles for the board.
type Theme struct {
	Name string
	Dark bool

	// Base colors
	Background string
	Surface    string
	SurfaceAlt string
	FocusBg    string

	SelectionBg   string
	SelectionText string

	Border      string
	BorderMuted string
	BorderFocus string

	Text    string
	Muted   string
	Faint   string
	Accent  string
	Success string
	Warning string
	Danger  string
	Info    string

	// StateColors is keyed by dish state, plus "removed".
	StateColors map[string]string
}

// TierColor returns the border color for an alert tier.
func (t Theme) TierColor(tier board.Tier) string {
	switch tier {
	case board.TierUrgent:
		return t.Danger
	case board.TierWarning:
		return t.Warning
	default:
		return t.Border
	}
}

// StateColor returns the color for a dish, falling back to muted.
func (t Theme) StateColor(d comanda.Dish) string {
	key := string(d.State)
	if d.Removed {
		key = "removed"
	}
	if c := t.StateColors[key]; c != "" {
		return c
	}
	return t.Muted
}

// Styles returns Lipgloss styles for this theme.
func (t Theme) Styles() Styles {
	return Styles{
		Surface: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)),

		Text: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Text)),

		MutedText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Muted)),

		FaintText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Faint)),

		AccentText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Accent)),

		SuccessText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Success)).
			Bold(true),

		WarningText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)),

		DangerText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Danger)).
			Bold(true),

		InfoText: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Info)),

		Header: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Text)).
			Padding(0, 1),

		Footer: lipgloss.NewStyle().
			Background(lipgloss.Color(t.Surface)).
			Foreground(lipgloss.Color(t.Muted)).
			Padding(0, 1),

		Logo: lipgloss.NewStyle().
			Foreground(lipgloss.Color(t.Warning)).
			Bold(true),

		Selected: lipgloss.NewStyle().
			Background(lipgloss.Color(t.SelectionBg)).
			Foreground(lipgloss.Color(t.SelectionText)),
	}
}

// Styles contains pre-built Lipgloss styles for the theme.
type Styles struct {
	Surface lipgloss.Style

	Text        lipgloss.Style
	MutedText   lipgloss.Style
	FaintText   lipgloss.Style
	AccentText  lipgloss.Style
	SuccessText lipgloss.Style
	WarningText lipgloss.Style
	DangerText  lipgloss.Style
	InfoText    lipgloss.Style

	Header   lipgloss.Style
	Footer   lipgloss.Style
	Logo     lipgloss.Style
	Selected lipgloss.Style
}

// WithBackground returns a copy of Styles with every style on bgColor, so
// adjacent segments don't leave gaps.
func (s Styles) WithBackground(bgColor string) Styles {
	bg := lipgloss.Color(bgColor)
	return Styles{
		Surface:     s.Surface.Background(bg),
		Text:        s.Text.Background(bg),
		MutedText:   s.MutedText.Background(bg),
		FaintText:   s.FaintText.Background(bg),
		AccentText:  s.AccentText.Background(bg),
		SuccessText: s.SuccessText.Background(bg),
		WarningText: s.WarningText.Background(bg),
		DangerText:  s.DangerText.Background(bg),
		InfoText:    s.InfoText.Background(bg),
		Header:      s.Header.Background(bg),
		Footer:      s.Footer.Background(bg),
		Logo:        s.Logo.Background(bg),
		Selected:    s.Selected.Background(bg),
	}
}

var themes = map[string]Theme{
	"Nightfox": nightfoxTheme(),
	"Kanagawa": kanagawaTheme(),
	"Slate":    slateTheme(),
	"Dawnfox":  dawnfoxTheme(),
}

var (
	darkOrder  = []string{"Nightfox", "Kanagawa", "Slate"}
	lightOrder = []string{"Dawnfox"}
)

const lightFallback = "Dawnfox"

// GetTheme returns a theme by name.
func GetTheme(name string) Theme {
	if t, ok := themes[name]; ok {
		return t
	}
	return nightfoxTheme()
}

// ThemeFor resolves the theme to render: the named theme when it matches the
// requested mode, otherwise the first theme of that mode.
func ThemeFor(name string, dark bool) Theme {
	t, ok := themes[name]
	if ok && t.Dark == dark {
		return t
	}
	if dark {
		return GetTheme(darkOrder[0])
	}
	return GetTheme(lightFallback)
}

// NextTheme returns the next theme name of the same mode.
func NextTheme(current string, dark bool) string {
	order := lightOrder
	if dark {
		order = darkOrder
	}
	for i, name := range order {
		if name == current {
			return order[(i+1)%len(order)]
		}
	}
	return order[0]
}

// ThemeNames returns the theme names of a mode.
func ThemeNames(dark bool) []string {
	if dark {
		return darkOrder
	}
	return lightOrder
}

func stateColors(waiting, preparing, ready, delivered, removed string) map[string]string {
	return map[string]string{
		string(comanda.DishWaiting):   waiting,
		string(comanda.DishPreparing): preparing,
		string(comanda.DishReady):     ready,
		string(comanda.DishDelivered): delivered,
		"removed":                     removed,
	}
}

func nightfoxTheme() Theme {
	// Nightfox palette: https://github.com/EdenEast/nightfox.nvim
	return Theme{
		Name: "Nightfox",
		Dark: true,

		Background: "#131a24", // bg0
		Surface:    "#192330", // bg1
		SurfaceAlt: "#212e3f", // bg2
		FocusBg:    "#29394f", // bg3

		SelectionBg:   "#2b3b51", // sel0
		SelectionText: "#cdcecf", // fg1

		Border:      "#39506d", // bg4
		BorderMuted: "#212e3f", // bg2
		BorderFocus: "#719cd6", // blue

		Text:    "#cdcecf", // fg1
		Muted:   "#738091", // comment
		Faint:   "#71839b", // fg3
		Accent:  "#719cd6", // blue
		Success: "#81b29a", // green
		Warning: "#dbc074", // yellow
		Danger:  "#c94f6d", // red
		Info:    "#63cdcf", // cyan

		StateColors: stateColors("#cdcecf", "#63cdcf", "#81b29a", "#71839b", "#c94f6d"),
	}
}

func kanagawaTheme() Theme {
	// Kanagawa palette: https://github.com/rebelot/kanagawa.nvim
	return Theme{
		Name: "Kanagawa",
		Dark: true,

		Background: "#16161D", // sumiInk0
		Surface:    "#1F1F28", // sumiInk3
		SurfaceAlt: "#2A2A37", // sumiInk4
		FocusBg:    "#363646", // sumiInk5

		SelectionBg:   "#2D4F67", // waveBlue1
		SelectionText: "#DCD7BA", // fujiWhite

		Border:      "#54546D", // sumiInk6
		BorderMuted: "#2A2A37", // sumiInk4
		BorderFocus: "#7E9CD8", // crystalBlue

		Text:    "#DCD7BA", // fujiWhite
		Muted:   "#C8C093", // oldWhite
		Faint:   "#727169", // fujiGray
		Accent:  "#7E9CD8", // crystalBlue
		Success: "#98BB6C", // springGreen
		Warning: "#E6C384", // carpYellow
		Danger:  "#E46876", // waveRed
		Info:    "#7FB4CA", // springBlue

		StateColors: stateColors("#DCD7BA", "#7FB4CA", "#98BB6C", "#727169", "#E46876"),
	}
}

func slateTheme() Theme {
	// Tailwind CSS Slate/Sky palette: https://tailwindcss.com/docs/colors
	return Theme{
		Name: "Slate",
		Dark: true,

		Background: "#020617", // slate-950
		Surface:    "#0f172a", // slate-900
		SurfaceAlt: "#1e293b", // slate-800
		FocusBg:    "#283548",

		SelectionBg:   "#0284c7", // sky-600
		SelectionText: "#f8fafc", // slate-50

		Border:      "#334155", // slate-700
		BorderMuted: "#1e293b", // slate-800
		BorderFocus: "#38bdf8", // sky-400

		Text:    "#f1f5f9", // slate-100
		Muted:   "#94a3b8", // slate-400
		Faint:   "#64748b", // slate-500
		Accent:  "#38bdf8", // sky-400
		Success: "#22c55e", // green-500
		Warning: "#f59e0b", // amber-500
		Danger:  "#ef4444", // red-500
		Info:    "#06b6d4", // cyan-500

		StateColors: stateColors("#f1f5f9", "#06b6d4", "#22c55e", "#64748b", "#dc2626"),
	}
}

func dawnfoxTheme() Theme {
	// Dawnfox, the light Nightfox variant.
	return Theme{
		Name: "Dawnfox",
		Dark: false,

		Background: "#ebe5df", // bg0
		Surface:    "#faf4ed", // bg1
		SurfaceAlt: "#ebe0df", // bg2
		FocusBg:    "#ebdfe4", // bg3

		SelectionBg:   "#d0d8d8", // sel0
		SelectionText: "#575279", // fg1

		Border:      "#bdbfc9", // bg4
		BorderMuted: "#ebe0df",
		BorderFocus: "#286983", // blue

		Text:    "#575279", // fg1
		Muted:   "#9893a5", // comment
		Faint:   "#a8a3b3", // fg3
		Accent:  "#286983", // blue
		Success: "#618774", // green
		Warning: "#ea9d34", // yellow
		Danger:  "#b4637a", // red
		Info:    "#56949f", // cyan

		StateColors: stateColors("#575279", "#56949f", "#618774", "#a8a3b3", "#b4637a"),
	}
}
