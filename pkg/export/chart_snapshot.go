package export

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"git.sr.ht/~sbinet/gg"
	"github.com/ajstarks/svgo"
	"golang.org/x/image/font/basicfont"

	"github.com/vanderheijden86/grapher/pkg/model"
)

// ChartSnapshotOptions controls chart snapshot export behaviour.
type ChartSnapshotOptions struct {
	Path      string            // Output path; format inferred from extension when Format empty
	Format    string            // "svg" or "png" (case-insensitive). If empty, inferred from Path.
	Title     string            // Optional title; falls back to the config title, then the dataset name
	Dataset   *model.Dataset    // Data to render
	Config    model.ChartConfig // Chart type and entity selection
	StartYear int               // Scrubber window start (inclusive)
	EndYear   int               // Scrubber window end (inclusive)
}

// SaveChartSnapshot renders a static chart snapshot (SVG or PNG) with the
// timeline scrubber drawn under the plot, so the exported image carries the
// selected window with it.
func SaveChartSnapshot(opts ChartSnapshotOptions) error {
	if opts.Dataset == nil || opts.Dataset.IsEmpty() {
		return fmt.Errorf("no data to export")
	}

	format := strings.ToLower(strings.TrimPrefix(opts.Format, "."))
	if format == "" {
		switch strings.ToLower(filepath.Ext(opts.Path)) {
		case ".svg":
			format = "svg"
		case ".png":
			format = "png"
		default:
			format = "svg" // safe default
			if opts.Path != "" && filepath.Ext(opts.Path) == "" {
				opts.Path = opts.Path + ".svg"
			}
		}
	}
	if format != "svg" && format != "png" {
		return fmt.Errorf("unsupported format %q (want svg or png)", format)
	}
	if opts.Path == "" {
		return fmt.Errorf("output path is required")
	}

	if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}

	layout := buildChartLayout(opts)

	switch format {
	case "svg":
		return renderChartSVG(opts, layout)
	case "png":
		return renderChartPNG(opts, layout)
	default:
		return fmt.Errorf("unhandled format %q", format)
	}
}

// --- layout computation ----------------------------------------------------

type plotRect struct {
	X, Y, W, H float64
}

type xy struct {
	X, Y float64
}

type seriesLayout struct {
	Entity string
	Color  color.RGBA
	Points []xy
}

type barLayout struct {
	Entity     string
	Color      color.RGBA
	X, Y, W, H float64
	Value      float64
}

type axisTick struct {
	Px    float64
	Label string
}

type scrubberLayout struct {
	Y          float64   // track centerline
	X0, X1     float64   // track extent
	StartX     float64   // active window
	EndX       float64
	Ticks      []float64 // one per axis year
	StartLabel string
	EndLabel   string
}

type chartSummary struct {
	Title      string
	Subtitle   string
	Provenance string
	Window     string
}

type chartLayout struct {
	Width, Height int
	Header        float64
	Plot          plotRect
	BarMode       bool
	Series        []seriesLayout
	Bars          []barLayout
	XTicks        []axisTick
	YTicks        []axisTick
	Scrubber      scrubberLayout
	Legend        []legendEntry
	Summary       chartSummary
}

type legendEntry struct {
	Label string
	Color color.RGBA
}

func buildChartLayout(opts ChartSnapshotOptions) chartLayout {
	const (
		width          = 920.0
		height         = 560.0
		padding        = 36.0
		headerHeight   = 92.0
		yLabelGutter   = 56.0
		legendWidth    = 168.0
		xLabelHeight   = 26.0
		scrubberHeight = 64.0
	)

	ds := opts.Dataset
	v, _ := ds.PrimaryVariable()
	entities := opts.Config.ResolveEntities(ds, defaultExportEntities)

	startYear, endYear := opts.StartYear, opts.EndYear
	if startYear > endYear {
		startYear, endYear = endYear, startYear
	}
	barMode := opts.Config.SingleYear() || startYear == endYear

	var years []int
	for _, y := range ds.Years() {
		if y >= startYear && y <= endYear {
			years = append(years, y)
		}
	}

	plot := plotRect{
		X: padding + yLabelGutter,
		Y: padding + headerHeight,
		W: width - padding*2 - yLabelGutter - legendWidth,
		H: height - padding*2 - headerHeight - xLabelHeight - scrubberHeight,
	}

	// Value range over the visible window
	yMin, yMax := math.Inf(1), math.Inf(-1)
	for _, e := range entities {
		for _, y := range years {
			if val, ok := ds.Value(e, v.ID, y); ok {
				yMin = math.Min(yMin, val)
				yMax = math.Max(yMax, val)
			}
		}
	}
	if math.IsInf(yMin, 1) {
		yMin, yMax = 0, 1
	}
	if barMode {
		// Bars grow from a zero baseline
		yMin = math.Min(yMin, 0)
	}
	if yMin == yMax {
		yMin, yMax = yMin-1, yMax+1
	}

	yTickVals := niceTicks(yMin, yMax, 5)
	// Ticks can extend the range slightly; scale to them
	if len(yTickVals) > 0 {
		yMin = math.Min(yMin, yTickVals[0])
		yMax = math.Max(yMax, yTickVals[len(yTickVals)-1])
	}

	xScale := func(year float64) float64 {
		if endYear == startYear {
			return plot.X + plot.W/2
		}
		return plot.X + (year-float64(startYear))/float64(endYear-startYear)*plot.W
	}
	yScale := func(val float64) float64 {
		return plot.Y + plot.H - (val-yMin)/(yMax-yMin)*plot.H
	}

	layout := chartLayout{
		Width:   int(width),
		Height:  int(height),
		Header:  headerHeight,
		Plot:    plot,
		BarMode: barMode,
	}

	for _, tv := range yTickVals {
		layout.YTicks = append(layout.YTicks, axisTick{
			Px:    yScale(tv),
			Label: formatTick(tv),
		})
	}

	if barMode {
		year := endYear
		slot := plot.W / float64(len(entities)+1)
		barW := math.Min(slot*0.7, 64)
		for i, e := range entities {
			val, ok := ds.Value(e, v.ID, year)
			if !ok {
				continue
			}
			cx := plot.X + slot*float64(i+1)
			top := yScale(math.Max(val, 0))
			bottom := yScale(math.Min(val, 0))
			layout.Bars = append(layout.Bars, barLayout{
				Entity: e,
				Color:  seriesColor(i),
				X:      cx - barW/2,
				Y:      top,
				W:      barW,
				H:      bottom - top,
				Value:  val,
			})
			layout.XTicks = append(layout.XTicks, axisTick{Px: cx, Label: truncate(e, 12)})
		}
	} else {
		for i, e := range entities {
			sl := seriesLayout{Entity: e, Color: seriesColor(i)}
			for _, y := range years {
				if val, ok := ds.Value(e, v.ID, y); ok {
					sl.Points = append(sl.Points, xy{X: xScale(float64(y)), Y: yScale(val)})
				}
			}
			if len(sl.Points) > 0 {
				layout.Series = append(layout.Series, sl)
			}
		}
		for _, y := range pickYearTicks(years, 8) {
			layout.XTicks = append(layout.XTicks, axisTick{
				Px:    xScale(float64(y)),
				Label: strconv.Itoa(y),
			})
		}
	}

	for i, e := range entities {
		layout.Legend = append(layout.Legend, legendEntry{Label: truncate(e, 18), Color: seriesColor(i)})
	}

	// Scrubber track spans the full dataset axis, not just the window
	allYears := ds.Years()
	axisMin, axisMax := allYears[0], allYears[len(allYears)-1]
	trackScale := func(year int) float64 {
		if axisMax == axisMin {
			return plot.X + plot.W/2
		}
		return plot.X + float64(year-axisMin)/float64(axisMax-axisMin)*plot.W
	}
	sc := scrubberLayout{
		Y:          height - padding - scrubberHeight/2,
		X0:         plot.X,
		X1:         plot.X + plot.W,
		StartX:     trackScale(clampYearInt(startYear, axisMin, axisMax)),
		EndX:       trackScale(clampYearInt(endYear, axisMin, axisMax)),
		StartLabel: strconv.Itoa(startYear),
		EndLabel:   strconv.Itoa(endYear),
	}
	for _, y := range allYears {
		sc.Ticks = append(sc.Ticks, trackScale(y))
	}
	layout.Scrubber = sc

	title := strings.TrimSpace(opts.Title)
	if title == "" {
		title = strings.TrimSpace(opts.Config.Title)
	}
	if title == "" {
		title = ds.Name
	}
	subtitle := v.Name
	if v.Unit != "" {
		subtitle += " (" + v.Unit + ")"
	}
	window := fmt.Sprintf("%d", startYear)
	if endYear != startYear {
		window = fmt.Sprintf("%d to %d", startYear, endYear)
	}
	layout.Summary = chartSummary{
		Title:      title,
		Subtitle:   subtitle,
		Provenance: provenanceLine(v.Source),
		Window:     window,
	}

	return layout
}

func clampYearInt(y, lo, hi int) int {
	if y < lo {
		return lo
	}
	if y > hi {
		return hi
	}
	return y
}

func provenanceLine(s model.Source) string {
	parts := []string{}
	if s.Name != "" {
		parts = append(parts, "Source: "+s.Name)
	}
	if s.RetrievedDate != "" {
		parts = append(parts, "retrieved "+s.RetrievedDate)
	}
	return strings.Join(parts, ", ")
}

// niceTicks returns up to count+1 round tick values covering [lo, hi].
func niceTicks(lo, hi float64, count int) []float64 {
	if count < 2 || hi <= lo {
		return nil
	}
	step := niceStep((hi - lo) / float64(count-1))
	first := math.Floor(lo/step) * step
	var ticks []float64
	for t := first; t <= hi+step/2; t += step {
		ticks = append(ticks, t)
	}
	return ticks
}

// niceStep rounds a raw step up to 1, 2 or 5 times a power of ten.
func niceStep(raw float64) float64 {
	if raw <= 0 {
		return 1
	}
	mag := math.Pow(10, math.Floor(math.Log10(raw)))
	norm := raw / mag
	switch {
	case norm <= 1:
		return mag
	case norm <= 2:
		return 2 * mag
	case norm <= 5:
		return 5 * mag
	default:
		return 10 * mag
	}
}

func formatTick(v float64) string {
	av := math.Abs(v)
	switch {
	case av >= 1e9:
		return strconv.FormatFloat(v/1e9, 'g', 4, 64) + "B"
	case av >= 1e6:
		return strconv.FormatFloat(v/1e6, 'g', 4, 64) + "M"
	case av >= 1e4:
		return strconv.FormatFloat(v/1e3, 'g', 4, 64) + "k"
	default:
		return strconv.FormatFloat(v, 'g', 4, 64)
	}
}

// pickYearTicks thins year labels to at most max, always keeping the ends.
func pickYearTicks(years []int, max int) []int {
	if len(years) <= max {
		return years
	}
	stride := (len(years) + max - 1) / max
	var out []int
	for i := 0; i < len(years); i += stride {
		out = append(out, years[i])
	}
	if out[len(out)-1] != years[len(years)-1] {
		out = append(out, years[len(years)-1])
	}
	return out
}

// --- rendering -------------------------------------------------------------

var (
	chartBackdrop   = color.RGBA{0xf9, 0xfa, 0xfb, 0xff}
	chartHeaderBG   = color.RGBA{0xf3, 0xf4, 0xf6, 0xff}
	chartText       = color.RGBA{0x11, 0x11, 0x11, 0xff}
	chartSubtle     = color.RGBA{0x66, 0x66, 0x66, 0xff}
	chartGrid       = color.RGBA{0xdd, 0xe1, 0xe6, 0xff}
	chartAxis       = color.RGBA{0x99, 0x9e, 0xa6, 0xff}
	chartTrack      = color.RGBA{0xc4, 0xc9, 0xd0, 0xff}
	chartActive     = color.RGBA{0x39, 0x60, 0xa8, 0xff}
	chartHandleFill = color.RGBA{0xff, 0xff, 0xff, 0xff}
)

// seriesPalette cycles across entities.
var seriesPalette = []color.RGBA{
	{0x39, 0x60, 0xa8, 0xff},
	{0xc0, 0x51, 0x3a, 0xff},
	{0x2e, 0x8b, 0x6b, 0xff},
	{0x9a, 0x5e, 0xa9, 0xff},
	{0xcc, 0x8a, 0x2e, 0xff},
	{0x3e, 0x8e, 0xa8, 0xff},
	{0x8a, 0x6f, 0x4e, 0xff},
}

func seriesColor(i int) color.RGBA {
	return seriesPalette[i%len(seriesPalette)]
}

func renderChartPNG(opts ChartSnapshotOptions, layout chartLayout) error {
	dc := gg.NewContext(layout.Width, layout.Height)
	dc.SetColor(chartBackdrop)
	dc.Clear()

	dc.SetColor(chartHeaderBG)
	dc.DrawRoundedRectangle(16, 16, float64(layout.Width)-32, layout.Header-24, 10)
	dc.Fill()

	dc.SetFontFace(basicfont.Face7x13)

	dc.SetColor(chartText)
	dc.DrawStringAnchored(layout.Summary.Title, 32, 40, 0, 0.5)
	dc.SetColor(chartSubtle)
	dc.DrawStringAnchored(layout.Summary.Subtitle, 32, 58, 0, 0.5)
	if layout.Summary.Provenance != "" {
		dc.DrawStringAnchored(layout.Summary.Provenance, 32, 76, 0, 0.5)
	}
	dc.DrawStringAnchored(layout.Summary.Window, float64(layout.Width)-32, 40, 1, 0.5)

	plot := layout.Plot

	// gridlines + y labels
	for _, t := range layout.YTicks {
		dc.SetColor(chartGrid)
		dc.SetLineWidth(1)
		dc.DrawLine(plot.X, t.Px, plot.X+plot.W, t.Px)
		dc.Stroke()
		dc.SetColor(chartSubtle)
		dc.DrawStringAnchored(t.Label, plot.X-8, t.Px, 1, 0.5)
	}

	// x labels
	for _, t := range layout.XTicks {
		dc.SetColor(chartSubtle)
		dc.DrawStringAnchored(t.Label, t.Px, plot.Y+plot.H+14, 0.5, 0.5)
	}

	// baseline
	dc.SetColor(chartAxis)
	dc.SetLineWidth(1)
	dc.DrawLine(plot.X, plot.Y+plot.H, plot.X+plot.W, plot.Y+plot.H)
	dc.Stroke()

	if layout.BarMode {
		for _, b := range layout.Bars {
			dc.SetColor(b.Color)
			dc.DrawRectangle(b.X, b.Y, b.W, b.H)
			dc.Fill()
		}
	} else {
		for _, s := range layout.Series {
			dc.SetColor(s.Color)
			dc.SetLineWidth(2)
			for i := 1; i < len(s.Points); i++ {
				dc.DrawLine(s.Points[i-1].X, s.Points[i-1].Y, s.Points[i].X, s.Points[i].Y)
				dc.Stroke()
			}
			for _, p := range s.Points {
				dc.DrawCircle(p.X, p.Y, 2.5)
				dc.Fill()
			}
		}
	}

	drawChartLegendPNG(dc, layout)
	drawScrubberPNG(dc, layout.Scrubber)

	return dc.SavePNG(opts.Path)
}

func drawChartLegendPNG(dc *gg.Context, layout chartLayout) {
	x := layout.Plot.X + layout.Plot.W + 20
	y := layout.Plot.Y + 4
	for _, le := range layout.Legend {
		dc.SetColor(le.Color)
		dc.DrawRoundedRectangle(x, y-5, 12, 12, 3)
		dc.Fill()
		dc.SetColor(chartSubtle)
		dc.DrawStringAnchored(le.Label, x+18, y, 0, 0.5)
		y += 18
	}
}

func drawScrubberPNG(dc *gg.Context, sc scrubberLayout) {
	dc.SetColor(chartTrack)
	dc.SetLineWidth(3)
	dc.DrawLine(sc.X0, sc.Y, sc.X1, sc.Y)
	dc.Stroke()

	for _, tx := range sc.Ticks {
		dc.SetColor(chartTrack)
		dc.SetLineWidth(1)
		dc.DrawLine(tx, sc.Y-5, tx, sc.Y+5)
		dc.Stroke()
	}

	dc.SetColor(chartActive)
	dc.SetLineWidth(4)
	dc.DrawLine(sc.StartX, sc.Y, sc.EndX, sc.Y)
	dc.Stroke()

	for _, hx := range []float64{sc.StartX, sc.EndX} {
		dc.SetColor(chartHandleFill)
		dc.DrawCircle(hx, sc.Y, 6)
		dc.Fill()
		dc.SetColor(chartActive)
		dc.SetLineWidth(2)
		dc.DrawCircle(hx, sc.Y, 6)
		dc.Stroke()
	}

	dc.SetColor(chartSubtle)
	dc.DrawStringAnchored(sc.StartLabel, sc.StartX, sc.Y+18, 0.5, 0.5)
	if sc.EndLabel != sc.StartLabel {
		dc.DrawStringAnchored(sc.EndLabel, sc.EndX, sc.Y+18, 0.5, 0.5)
	}
}

func renderChartSVG(opts ChartSnapshotOptions, layout chartLayout) error {
	file, err := os.Create(opts.Path)
	if err != nil {
		return err
	}
	defer file.Close()

	return renderChartSVGToWriter(file, layout)
}

func renderChartSVGToWriter(w io.Writer, layout chartLayout) error {
	canvas := svg.New(w)
	canvas.Start(layout.Width, layout.Height)
	canvas.Rect(0, 0, layout.Width, layout.Height, fmt.Sprintf("fill:%s", css(chartBackdrop)))
	canvas.Roundrect(16, 16, layout.Width-32, int(layout.Header-24), 10, 10, fmt.Sprintf("fill:%s", css(chartHeaderBG)))

	canvas.Text(32, 44, layout.Summary.Title,
		fmt.Sprintf("fill:%s;font-size:16px;font-family:monospace;font-weight:bold", css(chartText)))
	canvas.Text(32, 62, layout.Summary.Subtitle,
		fmt.Sprintf("fill:%s;font-size:13px;font-family:monospace", css(chartSubtle)))
	if layout.Summary.Provenance != "" {
		canvas.Text(32, 80, layout.Summary.Provenance,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(chartSubtle)))
	}
	canvas.Text(layout.Width-32, 44, layout.Summary.Window,
		fmt.Sprintf("fill:%s;font-size:14px;font-family:monospace;text-anchor:end", css(chartText)))

	plot := layout.Plot

	for _, t := range layout.YTicks {
		canvas.Line(int(plot.X), int(t.Px), int(plot.X+plot.W), int(t.Px),
			fmt.Sprintf("stroke:%s;stroke-width:1", css(chartGrid)))
		canvas.Text(int(plot.X)-8, int(t.Px)+4, t.Label,
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:end", css(chartSubtle)))
	}
	for _, t := range layout.XTicks {
		canvas.Text(int(t.Px), int(plot.Y+plot.H)+18, t.Label,
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(chartSubtle)))
	}
	canvas.Line(int(plot.X), int(plot.Y+plot.H), int(plot.X+plot.W), int(plot.Y+plot.H),
		fmt.Sprintf("stroke:%s;stroke-width:1", css(chartAxis)))

	if layout.BarMode {
		for _, b := range layout.Bars {
			canvas.Rect(int(b.X), int(b.Y), int(b.W), int(b.H),
				fmt.Sprintf("fill:%s", css(b.Color)))
		}
	} else {
		for _, s := range layout.Series {
			xs := make([]int, len(s.Points))
			ys := make([]int, len(s.Points))
			for i, p := range s.Points {
				xs[i] = int(p.X)
				ys[i] = int(p.Y)
			}
			canvas.Polyline(xs, ys,
				fmt.Sprintf("fill:none;stroke:%s;stroke-width:2", css(s.Color)))
			for _, p := range s.Points {
				canvas.Circle(int(p.X), int(p.Y), 3, fmt.Sprintf("fill:%s", css(s.Color)))
			}
		}
	}

	lx := int(plot.X + plot.W + 20)
	ly := int(plot.Y) + 8
	for _, le := range layout.Legend {
		canvas.Roundrect(lx, ly-9, 12, 12, 3, 3, fmt.Sprintf("fill:%s", css(le.Color)))
		canvas.Text(lx+18, ly, le.Label,
			fmt.Sprintf("fill:%s;font-size:12px;font-family:monospace", css(chartSubtle)))
		ly += 18
	}

	drawScrubberSVG(canvas, layout.Scrubber)

	canvas.End()
	return nil
}

func drawScrubberSVG(canvas *svg.SVG, sc scrubberLayout) {
	y := int(sc.Y)
	canvas.Line(int(sc.X0), y, int(sc.X1), y,
		fmt.Sprintf("stroke:%s;stroke-width:3", css(chartTrack)))
	for _, tx := range sc.Ticks {
		canvas.Line(int(tx), y-5, int(tx), y+5,
			fmt.Sprintf("stroke:%s;stroke-width:1", css(chartTrack)))
	}
	canvas.Line(int(sc.StartX), y, int(sc.EndX), y,
		fmt.Sprintf("stroke:%s;stroke-width:4", css(chartActive)))
	for _, hx := range []float64{sc.StartX, sc.EndX} {
		canvas.Circle(int(hx), y, 6,
			fmt.Sprintf("fill:%s;stroke:%s;stroke-width:2", css(chartHandleFill), css(chartActive)))
	}
	canvas.Text(int(sc.StartX), y+22, sc.StartLabel,
		fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(chartSubtle)))
	if sc.EndLabel != sc.StartLabel {
		canvas.Text(int(sc.EndX), y+22, sc.EndLabel,
			fmt.Sprintf("fill:%s;font-size:11px;font-family:monospace;text-anchor:middle", css(chartSubtle)))
	}
}

// --- helpers ---------------------------------------------------------------

func truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	if max <= 3 {
		return string(runes[:max])
	}
	return string(runes[:max-3]) + "..."
}

func css(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
