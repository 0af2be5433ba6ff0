package ui

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// MarkdownRenderer wraps a glamour terminal renderer, rebuilt lazily
// when the width or theme changes. Render falls back to the raw text on
// failure so a bad document never blanks a pane.
type MarkdownRenderer struct {
	renderer *glamour.TermRenderer
	width    int
	dark     bool
}

// NewMarkdownRendererWithTheme builds a renderer wrapped to width using
// the glamour style matching the theme's background.
func NewMarkdownRendererWithTheme(width int, theme Theme) *MarkdownRenderer {
	m := &MarkdownRenderer{}
	m.SetWidthWithTheme(width, theme)
	return m
}

// SetWidthWithTheme rebuilds the underlying renderer if the wrap width
// or background style changed. No-op otherwise.
func (m *MarkdownRenderer) SetWidthWithTheme(width int, theme Theme) {
	if width < 20 {
		width = 20
	}
	dark := theme.Renderer == nil || theme.Renderer.HasDarkBackground()
	if m.renderer != nil && m.width == width && m.dark == dark {
		return
	}

	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		// Keep the previous renderer; Render degrades to plain text
		// when none exists.
		return
	}
	m.renderer = r
	m.width = width
	m.dark = dark
}

// Render converts markdown to styled terminal text. On error the raw
// text is returned alongside the error so callers can show something.
func (m *MarkdownRenderer) Render(text string) (string, error) {
	if m.renderer == nil {
		return text, nil
	}
	out, err := m.renderer.Render(text)
	if err != nil {
		return text, err
	}
	return strings.TrimRight(out, "\n"), nil
}
