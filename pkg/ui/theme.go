package ui

import (
	"os"
	"strings"

	"github.com/charmbracelet/colorprofile"
	"github.com/charmbracelet/lipgloss"
)

// TermProfile holds the detected terminal color profile. Computed once at
// package init so every style helper can branch without re-detecting.
var TermProfile colorprofile.Profile

func init() {
	TermProfile = colorprofile.Detect(os.Stdout, os.Environ())
}

// ThemeBg returns the given hex color for TrueColor terminals and
// lipgloss.NoColor{} otherwise, so 16/256-color terminals use the
// terminal's own background instead of a down-converted approximation
// that may clash with palettes like Solarized.
func ThemeBg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.TrueColor {
		return lipgloss.NoColor{}
	}
	return lipgloss.Color(hex)
}

// ThemeFg returns the given hex color for ANSI256+ terminals and a safe
// ANSI white (color 7) for 16-color or lower terminals.
func ThemeFg(hex string) lipgloss.TerminalColor {
	if TermProfile < colorprofile.ANSI256 {
		return lipgloss.ANSIColor(7)
	}
	return lipgloss.Color(hex)
}

type Theme struct {
	Renderer *lipgloss.Renderer

	// Colors
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Subtext   lipgloss.AdaptiveColor

	// Timeline scrubber
	Track       lipgloss.AdaptiveColor
	ActiveRange lipgloss.AdaptiveColor
	Handle      lipgloss.AdaptiveColor

	// Series colors, cycled per entity
	Series []lipgloss.AdaptiveColor

	// UI Elements
	Border    lipgloss.AdaptiveColor
	Highlight lipgloss.AdaptiveColor
	Muted     lipgloss.AdaptiveColor

	// Styles
	Base     lipgloss.Style
	Selected lipgloss.Style
	Header   lipgloss.Style

	// Pre-computed styles, created once at startup instead of per-frame
	MutedText     lipgloss.Style // footer hints, axis labels
	InfoText      lipgloss.Style // counts, units
	SecondaryText lipgloss.Style // entity names in headers
	PrimaryBold   lipgloss.Style // active tab, selection
	TrackText     lipgloss.Style // scrubber track
	ActiveText    lipgloss.Style // scrubber active window
	HandleText    lipgloss.Style // scrubber handles
	PlayText      lipgloss.Style // play/pause indicator
}

// DefaultTheme returns the standard Dracula-inspired theme (adaptive)
func DefaultTheme(r *lipgloss.Renderer) Theme {
	t := Theme{
		Renderer: r,

		// Light mode colors tuned for WCAG AA contrast
		Primary:   lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"}, // Purple
		Secondary: lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"}, // Gray
		Subtext:   lipgloss.AdaptiveColor{Light: "#666666", Dark: "#BFBFBF"}, // Dim

		Track:       lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		ActiveRange: lipgloss.AdaptiveColor{Light: "#6B47D9", Dark: "#BD93F9"},
		Handle:      lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#F8F8F2"},

		Series: []lipgloss.AdaptiveColor{
			{Light: "#6B47D9", Dark: "#BD93F9"}, // purple
			{Light: "#007700", Dark: "#50FA7B"}, // green
			{Light: "#006080", Dark: "#8BE9FD"}, // cyan
			{Light: "#B06800", Dark: "#FFB86C"}, // orange
			{Light: "#CC0000", Dark: "#FF5555"}, // red
			{Light: "#808000", Dark: "#F1FA8C"}, // yellow
			{Light: "#C7158F", Dark: "#FF79C6"}, // pink
		},

		Border:    lipgloss.AdaptiveColor{Light: "#AAAAAA", Dark: "#44475A"},
		Highlight: lipgloss.AdaptiveColor{Light: "#E0E0E0", Dark: "#44475A"},
		Muted:     lipgloss.AdaptiveColor{Light: "#555555", Dark: "#6272A4"},
	}

	t.Base = r.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#000000", Dark: "#F8F8F2"})

	t.Selected = r.NewStyle().
		Background(t.Highlight).
		Border(lipgloss.ThickBorder(), false, false, false, true).
		BorderForeground(t.Primary).
		PaddingLeft(1).
		Bold(true)

	t.Header = r.NewStyle().
		Background(t.Primary).
		Foreground(lipgloss.AdaptiveColor{Light: "#FFFFFF", Dark: "#282A36"}).
		Bold(true).
		Padding(0, 1)

	t.MutedText = r.NewStyle().Foreground(ColorMuted)
	t.InfoText = r.NewStyle().Foreground(ColorInfo)
	t.SecondaryText = r.NewStyle().Foreground(t.Secondary)
	t.PrimaryBold = r.NewStyle().Foreground(t.Primary).Bold(true)
	t.TrackText = r.NewStyle().Foreground(t.Track)
	t.ActiveText = r.NewStyle().Foreground(t.ActiveRange)
	t.HandleText = r.NewStyle().Foreground(t.Handle).Bold(true)
	t.PlayText = r.NewStyle().Foreground(ColorSuccess).Bold(true)

	return t
}

// SeriesColor returns the color for the i-th entity, cycling the palette.
func (t Theme) SeriesColor(i int) lipgloss.AdaptiveColor {
	if len(t.Series) == 0 {
		return t.Primary
	}
	return t.Series[i%len(t.Series)]
}

// SeriesStyle returns a ready style for the i-th entity.
func (t Theme) SeriesStyle(i int) lipgloss.Style {
	return t.Renderer.NewStyle().Foreground(t.SeriesColor(i))
}

// ThemeForName maps a config theme name onto a theme. "light" and "dark"
// pin the background assumption instead of auto-detecting, which matters
// over SSH where detection often guesses wrong.
func ThemeForName(name string, r *lipgloss.Renderer) Theme {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "light":
		r.SetHasDarkBackground(false)
	case "dark":
		r.SetHasDarkBackground(true)
	}
	return DefaultTheme(r)
}

// TestTheme returns a theme suitable for use in tests (uses a throwaway renderer).
func TestTheme() Theme {
	return DefaultTheme(lipgloss.NewRenderer(os.Stdout))
}
