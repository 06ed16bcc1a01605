// Package prefs handles pase station preferences persistence.
// Preferences are stored in ~/.config/pase/prefs.toml.
package prefs

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	toml "github.com/pelletier/go-toml/v2"
)

// FontSize selects card density.
type FontSize string

const (
	FontSmall  FontSize = "small"
	FontNormal FontSize = "normal"
	FontLarge  FontSize = "large"
)

// Prefs holds the per-station display preferences.
type Prefs struct {
	PollIntervalSeconds int      `toml:"poll_interval_seconds"`
	AlertYellowMinutes  int      `toml:"alert_yellow_minutes"`
	AlertRedMinutes     int      `toml:"alert_red_minutes"`
	SoundEnabled        bool     `toml:"sound_enabled"`
	AutoPrint           bool     `toml:"auto_print"`
	DarkMode            bool     `toml:"dark_mode"`
	Columns             int      `toml:"columns"`
	Rows                int      `toml:"rows"`
	FontSize            FontSize `toml:"font_size"`
	Theme               string   `toml:"theme"`
}

const (
	defaultPrefsPath = "~/.config/pase/prefs.toml"
	defaultTheme     = "Nightfox"

	defaultPollSeconds = 5
	defaultYellow      = 15
	defaultRed         = 20
	defaultColumns     = 3
	defaultRows        = 2

	maxYellow  = 60
	maxRed     = 120
	maxColumns = 5
	maxRows    = 4
)

// PollIntervals lists the accepted polling intervals in seconds.
var PollIntervals = []int{3, 5, 10, 15, 30}

// Default returns the preferences of a fresh station.
func Default() Prefs {
	return Prefs{
		PollIntervalSeconds: defaultPollSeconds,
		AlertYellowMinutes:  defaultYellow,
		AlertRedMinutes:     defaultRed,
		SoundEnabled:        true,
		DarkMode:            true,
		Columns:             defaultColumns,
		Rows:                defaultRows,
		FontSize:            FontNormal,
		Theme:               defaultTheme,
	}
}

// DefaultPath returns the default preferences file path.
func DefaultPath() string {
	return defaultPrefsPath
}

// Normalize replaces every out-of-range value with its default.
func (p Prefs) Normalize() Prefs {
	d := Default()
	if !slices.Contains(PollIntervals, p.PollIntervalSeconds) {
		p.PollIntervalSeconds = d.PollIntervalSeconds
	}
	if p.AlertYellowMinutes < 1 || p.AlertYellowMinutes > maxYellow {
		p.AlertYellowMinutes = d.AlertYellowMinutes
	}
	if p.AlertRedMinutes < 1 || p.AlertRedMinutes > maxRed {
		p.AlertRedMinutes = d.AlertRedMinutes
	}
	if p.AlertRedMinutes <= p.AlertYellowMinutes {
		p.AlertYellowMinutes, p.AlertRedMinutes = d.AlertYellowMinutes, d.AlertRedMinutes
	}
	if p.Columns < 1 || p.Columns > maxColumns {
		p.Columns = d.Columns
	}
	if p.Rows < 1 || p.Rows > maxRows {
		p.Rows = d.Rows
	}
	switch p.FontSize {
	case FontSmall, FontNormal, FontLarge:
	default:
		p.FontSize = d.FontSize
	}
	p.Theme = strings.TrimSpace(p.Theme)
	if p.Theme == "" {
		p.Theme = d.Theme
	}
	return p
}

// Validate reports the first invalid value, for edits made by the operator.
func (p Prefs) Validate() error {
	switch {
	case !slices.Contains(PollIntervals, p.PollIntervalSeconds):
		return fmt.Errorf("poll interval must be one of %v seconds", PollIntervals)
	case p.AlertYellowMinutes < 1 || p.AlertYellowMinutes > maxYellow:
		return fmt.Errorf("yellow alert must be between 1 and %d minutes", maxYellow)
	case p.AlertRedMinutes < 1 || p.AlertRedMinutes > maxRed:
		return fmt.Errorf("red alert must be between 1 and %d minutes", maxRed)
	case p.AlertRedMinutes <= p.AlertYellowMinutes:
		return errors.New("red alert must be later than yellow alert")
	case p.Columns < 1 || p.Columns > maxColumns:
		return fmt.Errorf("columns must be between 1 and %d", maxColumns)
	case p.Rows < 1 || p.Rows > maxRows:
		return fmt.Errorf("rows must be between 1 and %d", maxRows)
	}
	return nil
}

// PollInterval returns the polling interval as a duration.
func (p Prefs) PollInterval() time.Duration {
	return time.Duration(p.PollIntervalSeconds) * time.Second
}

// YellowAfter returns the warning threshold.
func (p Prefs) YellowAfter() time.Duration {
	return time.Duration(p.AlertYellowMinutes) * time.Minute
}

// RedAfter returns the urgent threshold.
func (p Prefs) RedAfter() time.Duration {
	return time.Duration(p.AlertRedMinutes) * time.Minute
}

// Load reads preferences from the given path, falling back to defaults if missing.
func Load(path string) (Prefs, error) {
	prefs := Default()

	resolved, err := resolvePath(path)
	if err != nil {
		return prefs, nil
	}

	file, err := os.Open(resolved)
	if err != nil {
		return prefs, nil // Graceful degradation
	}
	defer func() { _ = file.Close() }()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return prefs, nil // Graceful degradation
	}

	if err := toml.Unmarshal(bytes, &prefs); err != nil {
		return Default(), nil // Graceful degradation
	}

	return prefs.Normalize(), nil
}

// Save writes preferences to the given path, creating directories as needed.
func Save(path string, p Prefs) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}

	dir := filepath.Dir(resolved)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}

	bytes, err := toml.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal prefs: %w", err)
	}

	if err := os.WriteFile(resolved, bytes, 0o644); err != nil {
		return fmt.Errorf("write prefs: %w", err)
	}

	return nil
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultPrefsPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
