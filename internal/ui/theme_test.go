package ui

import (
	"testing"

	"github.com/five82/pase/internal/board"
	"github.com/five82/pase/internal/comanda"
)

func TestThemeNames(t *testing.T) {
	names := ThemeNames(true)
	if len(names) != 3 || names[0] != "Nightfox" {
		t.Fatalf("ThemeNames(dark) = %v, want Nightfox first of 3", names)
	}
	if light := ThemeNames(false); len(light) != 1 || light[0] != "Dawnfox" {
		t.Fatalf("ThemeNames(light) = %v, want [Dawnfox]", light)
	}
}

func TestNextTheme(t *testing.T) {
	if got := NextTheme("Nightfox", true); got != "Kanagawa" {
		t.Fatalf("NextTheme(Nightfox) = %q, want Kanagawa", got)
	}
	if got := NextTheme("Slate", true); got != "Nightfox" {
		t.Fatalf("NextTheme(Slate) = %q, want Nightfox", got)
	}
	if got := NextTheme("Unknown", true); got != "Nightfox" {
		t.Fatalf("NextTheme(Unknown) = %q, want Nightfox", got)
	}
	if got := NextTheme("Nightfox", false); got != "Dawnfox" {
		t.Fatalf("NextTheme(Nightfox, light) = %q, want Dawnfox", got)
	}
}

func TestThemeFor(t *testing.T) {
	if got := ThemeFor("Slate", true); got.Name != "Slate" {
		t.Fatalf("ThemeFor(Slate, dark).Name = %q, want Slate", got.Name)
	}
	if got := ThemeFor("Slate", false); got.Name != "Dawnfox" {
		t.Fatalf("ThemeFor(Slate, light).Name = %q, want Dawnfox", got.Name)
	}
	if got := ThemeFor("Dawnfox", true); got.Name != "Nightfox" {
		t.Fatalf("ThemeFor(Dawnfox, dark).Name = %q, want Nightfox", got.Name)
	}
	if got := GetTheme("Unknown"); got.Name != "Nightfox" {
		t.Fatalf("GetTheme(Unknown).Name = %q, want Nightfox (fallback)", got.Name)
	}
}

func TestThemeColors(t *testing.T) {
	th := GetTheme("Nightfox")
	if got := th.TierColor(board.TierUrgent); got != th.Danger {
		t.Fatalf("TierColor(urgent) = %q, want %q", got, th.Danger)
	}
	if got := th.TierColor(board.TierWarning); got != th.Warning {
		t.Fatalf("TierColor(warning) = %q, want %q", got, th.Warning)
	}
	if got := th.TierColor(board.TierNormal); got != th.Border {
		t.Fatalf("TierColor(normal) = %q, want %q", got, th.Border)
	}

	ready := comanda.Dish{State: comanda.DishReady}
	if got := th.StateColor(ready); got != th.StateColors["ready_for_pickup"] {
		t.Fatalf("StateColor(ready) = %q", got)
	}
	removed := comanda.Dish{State: comanda.DishWaiting, Removed: true}
	if got := th.StateColor(removed); got != th.StateColors["removed"] {
		t.Fatalf("StateColor(removed) = %q", got)
	}
	if got := th.StateColor(comanda.Dish{State: comanda.DishState("bogus")}); got != th.Muted {
		t.Fatalf("StateColor(unknown) = %q, want muted", got)
	}
}
