package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/grapher/pkg/model"
)

// SourcesView renders the sources tab: per-variable attribution as
// glamour-rendered markdown inside a viewport.
type SourcesView struct {
	theme Theme
	vp    viewport.Model
	ready bool
	md    *MarkdownRenderer

	ds *model.Dataset

	width  int
	height int
}

func NewSourcesView(theme Theme) SourcesView {
	return SourcesView{
		theme: theme,
		md:    NewMarkdownRendererWithTheme(80, theme),
	}
}

// SetSize updates the view dimensions, re-wrapping the markdown.
func (sv *SourcesView) SetSize(width, height int) {
	sv.width = width
	sv.height = height
	if !sv.ready {
		sv.vp = viewport.New(width, max(height, 1))
		sv.ready = true
	} else {
		sv.vp.Width = width
		sv.vp.Height = max(height, 1)
	}
	sv.md.SetWidthWithTheme(min(width, 100), sv.theme)
	sv.rebuild()
}

// SetData points the view at a dataset.
func (sv *SourcesView) SetData(ds *model.Dataset) {
	sv.ds = ds
	if sv.ready {
		sv.rebuild()
		sv.vp.GotoTop()
	}
}

func (sv *SourcesView) rebuild() {
	if sv.ds == nil || len(sv.ds.Variables) == 0 {
		sv.vp.SetContent(sv.theme.MutedText.Render("no source metadata"))
		return
	}
	content := SourcesMarkdown(sv.ds)
	rendered, err := sv.md.Render(content)
	if err != nil {
		rendered = content
	}
	sv.vp.SetContent(rendered)
}

// Update routes scroll keys into the viewport.
func (sv SourcesView) Update(msg tea.Msg) (SourcesView, tea.Cmd) {
	if !sv.ready {
		return sv, nil
	}
	var cmd tea.Cmd
	sv.vp, cmd = sv.vp.Update(msg)
	return sv, cmd
}

// View renders the viewport.
func (sv SourcesView) View() string {
	if !sv.ready {
		return ""
	}
	return sv.vp.View()
}

// SourcesMarkdown builds the attribution document for a dataset. The
// yank key copies this same text, so clipboard and screen agree.
func SourcesMarkdown(ds *model.Dataset) string {
	var b strings.Builder
	b.WriteString("# Sources\n")
	for _, v := range ds.Variables {
		b.WriteString("\n## " + v.Name)
		if v.Unit != "" {
			b.WriteString(" (" + v.Unit + ")")
		}
		b.WriteString("\n\n")
		if v.Description != "" {
			b.WriteString(v.Description + "\n\n")
		}
		if v.Source.Name == "" {
			b.WriteString("*No source recorded.*\n")
			continue
		}
		b.WriteString("- **Source:** " + v.Source.Name + "\n")
		if v.Source.DataPublishedBy != "" {
			b.WriteString("- **Published by:** " + v.Source.DataPublishedBy + "\n")
		}
		if v.Source.RetrievedDate != "" {
			b.WriteString("- **Retrieved:** " + v.Source.RetrievedDate + "\n")
		}
		if v.Source.Link != "" {
			b.WriteString("- **Link:** <" + v.Source.Link + ">\n")
		}
	}
	return b.String()
}
