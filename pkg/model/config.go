package model

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/grapher/pkg/debug"
	"github.com/vanderheijden86/grapher/pkg/metrics"
)

// ChartType selects the chart rendering mode. A discrete bar chart shows a
// single year at a time, which is what puts the scrubber into single-year
// mode.
type ChartType string

const (
	ChartTypeLine ChartType = "LineChart"
	ChartTypeBar  ChartType = "DiscreteBar"
)

// ChartConfig is the publishable description of one chart: presentation
// text, entity selection and the time window. Unknown JSON fields are
// ignored so configs written by newer tools still load.
type ChartConfig struct {
	Title    string    `json:"title,omitempty"`
	Subtitle string    `json:"subtitle,omitempty"`
	Note     string    `json:"note,omitempty"`
	Type     ChartType `json:"type,omitempty"`

	// SelectedEntities are entity names shown by default. Names missing
	// from the dataset are dropped at load time, not treated as errors.
	SelectedEntities []string `json:"selectedEntityNames,omitempty"`

	MinTime TimeBound `json:"minTime"`
	MaxTime TimeBound `json:"maxTime"`

	// HideTimeline removes the scrubber and its play control entirely.
	HideTimeline bool `json:"hideTimeline,omitempty"`
	// SingleYearPlay keeps start == end only while playback runs.
	SingleYearPlay bool `json:"singleYearPlay,omitempty"`

	// SourceDesc overrides the generated source line when set.
	SourceDesc string `json:"sourceDesc,omitempty"`
}

// DefaultChartConfig returns the config used when no sidecar exists: a line
// chart over the full time span.
func DefaultChartConfig() ChartConfig {
	return ChartConfig{
		Type:    ChartTypeLine,
		MinTime: EarliestBound(),
		MaxTime: LatestBound(),
	}
}

// SingleYear reports whether the chart type locks the scrubber to one year.
func (c ChartConfig) SingleYear() bool {
	return c.Type == ChartTypeBar
}

// ParseChartConfig decodes a config JSON document over the defaults, so
// absent fields keep their default values (minTime absent means earliest).
func ParseChartConfig(data []byte) (ChartConfig, error) {
	defer metrics.Timer(metrics.JSONParsing)()
	cfg := DefaultChartConfig()
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ChartConfig{}, fmt.Errorf("parse chart config: %w", err)
	}
	return cfg, nil
}

// LoadChartConfig reads and parses a config file.
func LoadChartConfig(path string) (ChartConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ChartConfig{}, fmt.Errorf("read chart config %s: %w", path, err)
	}
	cfg, err := ParseChartConfig(data)
	if err != nil {
		return ChartConfig{}, fmt.Errorf("%s: %w", path, err)
	}
	debug.Log("config: loaded %s (type=%s, %d selected)", path, cfg.Type, len(cfg.SelectedEntities))
	return cfg, nil
}

// Marshal renders the config as indented JSON for writing back to disk.
func (c ChartConfig) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal chart config: %w", err)
	}
	return append(data, '\n'), nil
}

// ResolveEntities intersects the config's selection with the dataset's
// entities, dropping unknown names with a debug note. An empty selection
// falls back to the dataset's leading entities.
func (c ChartConfig) ResolveEntities(ds *Dataset, fallback int) []string {
	known := make(map[string]bool, len(ds.Entities()))
	for _, e := range ds.Entities() {
		known[e] = true
	}
	var out []string
	for _, name := range c.SelectedEntities {
		if known[name] {
			out = append(out, name)
			continue
		}
		debug.Log("config: dropping unknown entity %q", name)
	}
	if len(out) == 0 {
		ents := ds.Entities()
		if fallback > len(ents) {
			fallback = len(ents)
		}
		out = append(out, ents[:fallback]...)
	}
	return out
}
