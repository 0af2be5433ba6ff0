package ui

import (
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/grapher/pkg/model"
)

// ChartView renders the chart tab: a cell-grid line chart of the
// selected entities over the effective window, or horizontal bars in
// single-year mode. Rendered frames are cached; Refresh decides when the
// cache is rebuilt so scrubbing stays cheap.
type ChartView struct {
	theme Theme

	width  int
	height int

	ds       *model.Dataset
	varID    int
	entities []string
	barMode  bool

	start, end int

	cacheKey string
	cached   string
}

func NewChartView(theme Theme) ChartView {
	return ChartView{theme: theme}
}

// SetSize updates the view dimensions.
func (cv *ChartView) SetSize(width, height int) {
	cv.width = width
	cv.height = height
}

// SetData points the view at a dataset and its config-derived selection.
func (cv *ChartView) SetData(ds *model.Dataset, cfg model.ChartConfig, entities []string) {
	cv.ds = ds
	cv.entities = entities
	cv.barMode = cfg.SingleYear()
	cv.varID = 0
	if ds != nil {
		if v, ok := ds.PrimaryVariable(); ok {
			cv.varID = v.ID
		}
	}
}

// SetWindow updates the effective year range.
func (cv *ChartView) SetWindow(start, end int) {
	cv.start = start
	cv.end = end
}

// Refresh rebuilds the cached frame when the inputs moved. While a drag
// is live the stale frame is kept, deferring the series re-layout until
// the gesture ends; playback re-renders whenever the snapped window
// lands on a new year.
func (cv *ChartView) Refresh(live, dragging bool) {
	key := cv.renderKeyNow()
	if cv.cached != "" {
		if key == cv.cacheKey {
			return
		}
		if live && dragging {
			return
		}
	}
	cv.cached = cv.render()
	cv.cacheKey = key
}

func (cv *ChartView) renderKeyNow() string {
	mode := "line"
	if cv.barMode {
		mode = "bar"
	}
	name := ""
	if cv.ds != nil {
		name = cv.ds.Name
	}
	return renderKey(name, strings.Join(cv.entities, "\x1f"), mode,
		strconv.Itoa(cv.start), strconv.Itoa(cv.end),
		strconv.Itoa(cv.width), strconv.Itoa(cv.height))
}

// View returns the cached frame, rendering fresh if Refresh has not run
// yet so the first frame is never blank.
func (cv ChartView) View() string {
	if cv.cached != "" {
		return cv.cached
	}
	return cv.render()
}

func (cv ChartView) render() string {
	if cv.width < 16 || cv.height < 5 {
		return ""
	}
	if cv.ds == nil || cv.ds.IsEmpty() || len(cv.entities) == 0 {
		return cv.message("no data to plot")
	}
	if cv.barMode || cv.start == cv.end {
		return cv.renderBars()
	}
	return cv.renderLines()
}

func (cv ChartView) message(s string) string {
	return lipgloss.Place(cv.width, cv.height, lipgloss.Center, lipgloss.Center,
		cv.theme.MutedText.Render(s))
}

// chartCell is one plot grid cell: a glyph and the series that drew it.
type chartCell struct {
	r rune
	s int
}

func (cv ChartView) renderLines() string {
	gutterW := 8
	plotW := cv.width - gutterW
	plotH := cv.height - 2
	if plotW < 8 || plotH < 3 {
		return cv.message("terminal too small")
	}

	type seriesPts struct {
		idx int
		pts []model.Point
	}
	var series []seriesPts
	vmin, vmax := math.Inf(1), math.Inf(-1)
	for i, e := range cv.entities {
		s := cv.ds.Series(e, cv.varID)
		var pts []model.Point
		for _, p := range s.Points {
			if p.Year >= cv.start && p.Year <= cv.end {
				pts = append(pts, p)
				vmin = math.Min(vmin, p.Value)
				vmax = math.Max(vmax, p.Value)
			}
		}
		if len(pts) > 0 {
			series = append(series, seriesPts{idx: i, pts: pts})
		}
	}
	if len(series) == 0 {
		return cv.message("no observations in " + formatYearRange(cv.start, cv.end))
	}
	if vmin == vmax {
		vmin--
		vmax++
	}

	grid := make([][]chartCell, plotH)
	for r := range grid {
		grid[r] = make([]chartCell, plotW)
		for c := range grid[r] {
			grid[r][c].s = -1
		}
	}

	span := float64(cv.end - cv.start)
	colFor := func(year int) int {
		c := int(math.Round(float64(year-cv.start) / span * float64(plotW-1)))
		return min(max(c, 0), plotW-1)
	}
	// Half-block rows double the vertical resolution of the cell grid.
	vrows := plotH * 2
	vrFor := func(v float64) int {
		vr := int(math.Round((vmax - v) / (vmax - vmin) * float64(vrows-1)))
		return min(max(vr, 0), vrows-1)
	}

	for _, sp := range series {
		si := sp.idx
		setHalf := func(c, vr int) {
			row := vr / 2
			g := '▄'
			if vr%2 == 0 {
				g = '▀'
			}
			cell := &grid[row][c]
			if cell.s == si && (cell.r == '▀' || cell.r == '▄') && cell.r != g {
				g = '█'
			}
			cell.r = g
			cell.s = si
		}
		// Fill the vertical run toward the previous column's position so
		// steep segments stay connected.
		lastVR := -1
		mark := func(c, vr int) {
			if lastVR >= 0 {
				rlo, rhi := lastVR/2, vr/2
				if rlo > rhi {
					rlo, rhi = rhi, rlo
				}
				for r := rlo + 1; r < rhi; r++ {
					grid[r][c] = chartCell{r: '█', s: si}
				}
			}
			setHalf(c, vr)
			lastVR = vr
		}

		prevCol, prevVal := -1, 0.0
		for _, p := range sp.pts {
			c := colFor(p.Year)
			if prevCol >= 0 && c > prevCol+1 {
				for cc := prevCol + 1; cc < c; cc++ {
					t := float64(cc-prevCol) / float64(c-prevCol)
					mark(cc, vrFor(prevVal+t*(p.Value-prevVal)))
				}
			}
			mark(c, vrFor(p.Value))
			prevCol, prevVal = c, p.Value
		}
	}

	var out []string
	out = append(out, cv.renderLegend())
	for r := 0; r < plotH; r++ {
		var b strings.Builder
		b.WriteString(cv.yLabel(r, plotH, vmin, vmax, gutterW))
		cur := -2
		var run []rune
		flush := func() {
			if len(run) == 0 {
				return
			}
			if cur < 0 {
				b.WriteString(string(run))
			} else {
				b.WriteString(cv.theme.SeriesStyle(cur).Render(string(run)))
			}
			run = run[:0]
		}
		for c := 0; c < plotW; c++ {
			cell := grid[r][c]
			g := cell.r
			if cell.s == -1 {
				g = ' '
			}
			if cell.s != cur {
				flush()
				cur = cell.s
			}
			run = append(run, g)
		}
		flush()
		out = append(out, b.String())
	}
	out = append(out, cv.renderYearTicks(gutterW, plotW))
	return strings.Join(out, "\n")
}

// yLabel renders the gutter for one plot row: value labels at the top,
// middle and bottom rows, spaces elsewhere.
func (cv ChartView) yLabel(r, plotH int, vmin, vmax float64, gutterW int) string {
	mid := (plotH - 1) / 2
	if r != 0 && r != plotH-1 && r != mid {
		return strings.Repeat(" ", gutterW)
	}
	v := vmax - (vmax-vmin)*float64(r)/float64(plotH-1)
	return cv.theme.MutedText.Render(padLeft(formatCell(v), gutterW-1)) + " "
}

func (cv ChartView) renderYearTicks(gutterW, plotW int) string {
	row := []rune(strings.Repeat(" ", gutterW+plotW))
	var years []int
	for _, y := range cv.ds.Years() {
		if y >= cv.start && y <= cv.end {
			years = append(years, y)
		}
	}
	if len(years) == 0 {
		return string(row)
	}
	maxLabels := max(plotW/8, 2)
	step := (len(years) + maxLabels - 1) / maxLabels
	span := float64(cv.end - cv.start)
	lastEnd := -1
	place := func(y int) {
		lbl := strconv.Itoa(y)
		c := int(math.Round(float64(y-cv.start) / span * float64(plotW-1)))
		at := gutterW + min(max(c-len(lbl)/2, 0), plotW-len(lbl))
		if at <= lastEnd {
			return
		}
		copy(row[at:], []rune(lbl))
		lastEnd = at + len(lbl)
	}
	for i := 0; i < len(years); i += step {
		place(years[i])
	}
	place(years[len(years)-1])
	return cv.theme.MutedText.Render(string(row))
}

func (cv ChartView) renderLegend() string {
	var b strings.Builder
	used := 0
	for i, e := range cv.entities {
		entry := "■ " + truncate(e, 20)
		w := lipgloss.Width(entry) + 2
		if used+w > cv.width {
			b.WriteString(cv.theme.MutedText.Render("+" + strconv.Itoa(len(cv.entities)-i)))
			break
		}
		if i > 0 {
			b.WriteString("  ")
		}
		b.WriteString(cv.theme.SeriesStyle(i).Render("■") + " " + e)
		used += w
	}
	return b.String()
}

// renderBars draws one horizontal bar per entity at the window's end
// year, the discrete-chart reading of a single-year range.
func (cv ChartView) renderBars() string {
	year := cv.end
	labelW := 10
	for _, e := range cv.entities {
		labelW = max(labelW, len(e))
	}
	labelW = min(labelW, 24)
	valW := 9
	barW := cv.width - labelW - valW - 3
	if barW < 5 {
		return cv.message("terminal too small")
	}

	maxAbs := 0.0
	vals := make([]float64, len(cv.entities))
	have := make([]bool, len(cv.entities))
	for i, e := range cv.entities {
		if v, ok := cv.ds.Value(e, cv.varID, year); ok {
			vals[i], have[i] = v, true
			maxAbs = math.Max(maxAbs, math.Abs(v))
		}
	}

	var out []string
	out = append(out, cv.theme.MutedText.Render("Year: "+strconv.Itoa(year)))
	rows := cv.height - 2
	for i, e := range cv.entities {
		if i >= rows {
			out = append(out, cv.theme.MutedText.Render(
				"+"+strconv.Itoa(len(cv.entities)-i)+" more"))
			break
		}
		label := padRight(truncate(e, labelW), labelW)
		if !have[i] {
			out = append(out, label+" "+cv.theme.MutedText.Render("–"))
			continue
		}
		n := 0
		if maxAbs > 0 {
			n = int(math.Round(math.Abs(vals[i]) / maxAbs * float64(barW)))
		}
		if n == 0 && vals[i] != 0 {
			n = 1
		}
		bar := cv.theme.SeriesStyle(i).Render(strings.Repeat("█", n))
		out = append(out, label+" "+bar+" "+padLeft(formatCell(vals[i]), valW))
	}
	return strings.Join(out, "\n")
}
