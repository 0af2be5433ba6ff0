package ui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/grapher/pkg/analysis"
	"github.com/vanderheijden86/grapher/pkg/model"
)

const (
	tableYearColWidth = 6
	tableValColWidth  = 10
	tableFooterRows   = 5
)

// TableView renders the data tab: a year x entity grid over the
// effective window inside a viewport, with a per-entity stats footer.
type TableView struct {
	theme Theme
	vp    viewport.Model
	ready bool

	ds       *model.Dataset
	varID    int
	entities []string

	start, end int

	width  int
	height int
	footer string
}

func NewTableView(theme Theme) TableView {
	return TableView{theme: theme}
}

// SetSize updates the view dimensions and resizes the inner viewport.
func (tv *TableView) SetSize(width, height int) {
	tv.width = width
	tv.height = height
	vpHeight := max(height-tv.footerHeight()-1, 1)
	if !tv.ready {
		tv.vp = viewport.New(width, vpHeight)
		tv.ready = true
	} else {
		tv.vp.Width = width
		tv.vp.Height = vpHeight
	}
	tv.rebuild()
}

// SetData points the view at a dataset and entity selection.
func (tv *TableView) SetData(ds *model.Dataset, entities []string) {
	tv.ds = ds
	tv.entities = entities
	tv.varID = 0
	if ds != nil {
		if v, ok := ds.PrimaryVariable(); ok {
			tv.varID = v.ID
		}
	}
	if tv.ready {
		tv.rebuild()
		tv.vp.GotoTop()
	}
}

// SetWindow updates the effective year range.
func (tv *TableView) SetWindow(start, end int) {
	if start == tv.start && end == tv.end {
		return
	}
	tv.start = start
	tv.end = end
	if tv.ready {
		tv.rebuild()
	}
}

// Update routes scroll keys into the viewport.
func (tv TableView) Update(msg tea.Msg) (TableView, tea.Cmd) {
	if !tv.ready {
		return tv, nil
	}
	var cmd tea.Cmd
	tv.vp, cmd = tv.vp.Update(msg)
	return tv, cmd
}

func (tv TableView) footerHeight() int {
	if tv.ds == nil || len(tv.entities) == 0 {
		return 0
	}
	return min(len(tv.entities), tableFooterRows) + 1
}

func (tv *TableView) rebuild() {
	if tv.ds == nil || tv.ds.IsEmpty() || len(tv.entities) == 0 {
		tv.vp.SetContent(tv.theme.MutedText.Render("no data"))
		tv.footer = ""
		return
	}

	tbl := tv.ds.Table(tv.varID, tv.entities, tv.start, tv.end)

	var b strings.Builder
	b.WriteString(tv.theme.SecondaryText.Render(padRight("Year", tableYearColWidth)))
	for _, e := range tbl.Entities {
		b.WriteString(tv.theme.SecondaryText.Render(tableHeaderCell(e)))
	}
	b.WriteString("\n")
	for j, y := range tbl.Years {
		b.WriteString(padRight(strconv.Itoa(y), tableYearColWidth))
		for i := range tbl.Entities {
			cell := formatCell(tbl.Values[i][j])
			b.WriteString(padLeft(cell, tableValColWidth))
		}
		b.WriteString("\n")
	}
	tv.vp.SetContent(strings.TrimRight(b.String(), "\n"))
	tv.footer = tv.renderFooter()
}

// tableHeaderCell truncates an entity name to the value column, padding
// by display width so wide characters keep columns aligned.
func tableHeaderCell(name string) string {
	s := truncateRunesHelper(name, tableValColWidth-1, "…")
	pad := tableValColWidth - runewidth.StringWidth(s)
	if pad < 0 {
		pad = 0
	}
	return strings.Repeat(" ", pad) + s
}

// renderFooter summarizes each entity's series over the window: mean,
// spread, last value, change and a coverage mini-bar.
func (tv TableView) renderFooter() string {
	var b strings.Builder
	b.WriteString(tv.theme.MutedText.Render(
		padRight("entity", 14) + padLeft("mean", 9) + padLeft("σ", 9) +
			padLeft("last", 9) + padLeft("Δ", 9) + "  coverage"))
	shown := min(len(tv.entities), tableFooterRows)
	for _, e := range tv.entities[:shown] {
		st := analysis.ComputeSeriesStatsRange(tv.ds, e, tv.varID, tv.start, tv.end)
		b.WriteString("\n")
		b.WriteString(padRight(truncateRunesHelper(e, 13, "…"), 14))
		if st.N == 0 {
			b.WriteString(tv.theme.MutedText.Render("no values in window"))
			continue
		}
		b.WriteString(padLeft(formatCell(st.Mean), 9))
		b.WriteString(padLeft(formatCell(st.StdDev), 9))
		b.WriteString(padLeft(formatCell(st.Last), 9))
		b.WriteString(padLeft(formatCell(st.Change), 9))
		b.WriteString("  " + RenderMiniBar(st.Coverage, 8, tv.theme))
	}
	if len(tv.entities) > shown {
		b.WriteString("\n" + tv.theme.MutedText.Render(
			fmt.Sprintf("+%d more entities", len(tv.entities)-shown)))
	}
	return b.String()
}

// View renders the grid viewport above the stats footer.
func (tv TableView) View() string {
	if !tv.ready {
		return ""
	}
	if tv.footer == "" {
		return tv.vp.View()
	}
	return tv.vp.View() + "\n" + RenderDivider(tv.width) + "\n" + tv.footer
}
