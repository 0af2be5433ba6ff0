package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/grapher/pkg/model"
)

func TestSaveChartSnapshot_SVGAndPNG(t *testing.T) {
	ds := exportDataset()
	cfg := model.DefaultChartConfig()
	cfg.Title = "Energy use"
	cfg.SelectedEntities = []string{"Sweden", "Norway"}

	tmp := t.TempDir()
	cases := []struct {
		name string
		file string
	}{
		{"svg", "chart.svg"},
		{"png", "chart.png"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := filepath.Join(tmp, tc.file)
			err := SaveChartSnapshot(ChartSnapshotOptions{
				Path:      out,
				Dataset:   ds,
				Config:    cfg,
				StartYear: 1990,
				EndYear:   2010,
			})
			if err != nil {
				t.Fatalf("SaveChartSnapshot error: %v", err)
			}
			info, err := os.Stat(out)
			if err != nil {
				t.Fatalf("output not created: %v", err)
			}
			if info.Size() == 0 {
				t.Fatalf("output file is empty")
			}
		})
	}
}

func TestSaveChartSnapshot_InvalidFormat(t *testing.T) {
	err := SaveChartSnapshot(ChartSnapshotOptions{
		Path:    "chart.txt",
		Format:  "txt",
		Dataset: exportDataset(),
		Config:  model.DefaultChartConfig(),
	})
	if err == nil {
		t.Fatalf("expected error for invalid format")
	}
}

func TestSaveChartSnapshot_EmptyDataset(t *testing.T) {
	err := SaveChartSnapshot(ChartSnapshotOptions{
		Path:    "chart.svg",
		Dataset: &model.Dataset{Name: "empty"},
		Config:  model.DefaultChartConfig(),
	})
	if err == nil {
		t.Fatalf("expected error for empty dataset")
	}
}

func TestRenderChartSVG_LineMode(t *testing.T) {
	ds := exportDataset()
	cfg := model.DefaultChartConfig()
	cfg.Title = "Energy use"
	cfg.SelectedEntities = []string{"Sweden", "Norway"}

	layout := buildChartLayout(ChartSnapshotOptions{
		Dataset:   ds,
		Config:    cfg,
		StartYear: 1990,
		EndYear:   2010,
	})

	var buf bytes.Buffer
	if err := renderChartSVGToWriter(&buf, layout); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()

	for _, want := range []string{
		"<svg", "Energy use", "Primary energy (TWh)",
		"polyline", "Sweden", "Norway",
		"1990 to 2010", "Statistical Review",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("svg output missing %q", want)
		}
	}
}

func TestRenderChartSVG_BarMode(t *testing.T) {
	ds := exportDataset()
	cfg := model.DefaultChartConfig()
	cfg.Type = model.ChartTypeBar
	cfg.SelectedEntities = []string{"Sweden", "Norway"}

	layout := buildChartLayout(ChartSnapshotOptions{
		Dataset:   ds,
		Config:    cfg,
		StartYear: 2010,
		EndYear:   2010,
	})

	if !layout.BarMode {
		t.Fatal("expected bar mode for bar chart config")
	}
	if len(layout.Bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(layout.Bars))
	}
	if len(layout.Series) != 0 {
		t.Errorf("line series rendered in bar mode")
	}

	var buf bytes.Buffer
	if err := renderChartSVGToWriter(&buf, layout); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "2010") {
		t.Error("single-year label missing")
	}
	if strings.Contains(buf.String(), "polyline") {
		t.Error("polyline present in bar mode")
	}
}

func TestBuildChartLayout_ScrubberSpansFullAxis(t *testing.T) {
	ds := exportDataset()
	cfg := model.DefaultChartConfig()
	cfg.SelectedEntities = []string{"Sweden"}

	// Window narrower than the data
	layout := buildChartLayout(ChartSnapshotOptions{
		Dataset:   ds,
		Config:    cfg,
		StartYear: 2000,
		EndYear:   2010,
	})

	sc := layout.Scrubber
	if len(sc.Ticks) != 3 {
		t.Errorf("scrubber ticks = %d, want one per axis year", len(sc.Ticks))
	}
	// 2000 sits mid-track, so the active start is inside the track
	if !(sc.StartX > sc.X0 && sc.StartX < sc.X1) {
		t.Errorf("active start %v not inside track [%v, %v]", sc.StartX, sc.X0, sc.X1)
	}
	if sc.EndX != sc.Ticks[len(sc.Ticks)-1] {
		t.Errorf("active end %v, want last tick %v", sc.EndX, sc.Ticks[len(sc.Ticks)-1])
	}
	if sc.StartLabel != "2000" || sc.EndLabel != "2010" {
		t.Errorf("labels = %s/%s", sc.StartLabel, sc.EndLabel)
	}
}

func TestNiceTicks(t *testing.T) {
	ticks := niceTicks(0, 30, 5)
	if len(ticks) < 3 {
		t.Fatalf("ticks = %v, want several", ticks)
	}
	if ticks[0] > 0 {
		t.Errorf("first tick %v above range start", ticks[0])
	}
	for i := 1; i < len(ticks); i++ {
		if ticks[i] <= ticks[i-1] {
			t.Errorf("ticks not increasing: %v", ticks)
		}
	}
}

func TestNiceStep(t *testing.T) {
	tests := []struct {
		raw  float64
		want float64
	}{
		{0.7, 1},
		{1.3, 2},
		{3.1, 5},
		{7.2, 10},
		{30, 50},
		{123, 200},
	}
	for _, tt := range tests {
		if got := niceStep(tt.raw); got != tt.want {
			t.Errorf("niceStep(%v) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate(short) = %q", got)
	}
	if got := truncate("a rather long entity name", 10); got != "a rathe..." {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("abc", 0); got != "" {
		t.Errorf("truncate with max 0 = %q", got)
	}
}
