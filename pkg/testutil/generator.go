// Package testutil provides deterministic dataset fixtures for tests.
// All generators produce reproducible output so assertions can pin exact
// values.
package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"time"

	"github.com/vanderheijden86/grapher/pkg/model"
)

// DatasetFixture is a dense entity x year grid. NaN cells are missing
// observations. Shape generators produce this form; convert it with
// ToDataset or ToCSV.
type DatasetFixture struct {
	Description string      `json:"description"`
	Entities    []string    `json:"entities"`
	Years       []int       `json:"years"`
	Values      [][]float64 `json:"values"` // indexed [entity][year]
}

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed         int64  // Random seed for determinism (0 = use current time)
	DatasetName  string // Dataset display name (default: "Synthetic indicator")
	VariableName string // Primary variable name (default: dataset name)
	Unit         string // Variable unit
	StartYear    int    // First axis year
	EndYear      int    // Last axis year
	YearStep     int    // Gap between axis years (default: 10)
}

// DefaultConfig returns a config suitable for most tests.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:        42, // Deterministic
		DatasetName: "Synthetic indicator",
		Unit:        "units",
		StartYear:   1960,
		EndYear:     2020,
		YearStep:    10,
	}
}

// Generator creates dataset fixtures with various series shapes.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.DatasetName == "" {
		cfg.DatasetName = "Synthetic indicator"
	}
	if cfg.VariableName == "" {
		cfg.VariableName = cfg.DatasetName
	}
	if cfg.YearStep <= 0 {
		cfg.YearStep = 10
	}
	if cfg.EndYear < cfg.StartYear {
		cfg.StartYear, cfg.EndYear = cfg.EndYear, cfg.StartYear
	}
	if cfg.StartYear == 0 && cfg.EndYear == 0 {
		cfg.StartYear, cfg.EndYear = 1960, 2020
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) years() []int {
	var ys []int
	for y := g.cfg.StartYear; y <= g.cfg.EndYear; y += g.cfg.YearStep {
		ys = append(ys, y)
	}
	return ys
}

var sampleEntities = []string{
	"Argentina", "Brazil", "Canada", "Denmark", "Egypt",
	"Finland", "Ghana", "Hungary", "India", "Jordan",
}

// EntityName returns the nth fixture entity name. The first few are
// drawn from a fixed list so fixtures read naturally; the rest are
// numbered.
func EntityName(i int) string {
	if i < len(sampleEntities) {
		return sampleEntities[i]
	}
	return fmt.Sprintf("Entity %02d", i)
}

func entityNames(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = EntityName(i)
	}
	return out
}

func (g *Generator) empty(entities int) DatasetFixture {
	f := DatasetFixture{
		Entities: entityNames(entities),
		Years:    g.years(),
	}
	f.Values = make([][]float64, entities)
	for i := range f.Values {
		f.Values[i] = make([]float64, len(f.Years))
	}
	return f
}

// ============================================================================
// Series Shape Generators
// ============================================================================

// Flat creates entities whose values never change. Entity i sits at
// base + i*10.
func (g *Generator) Flat(entities int, base float64) DatasetFixture {
	f := g.empty(entities)
	f.Description = fmt.Sprintf("%d flat series starting at %g", entities, base)
	for i := range f.Values {
		for j := range f.Values[i] {
			f.Values[i][j] = base + float64(i)*10
		}
	}
	return f
}

// Trending creates entities with distinct linear trends. Entity i starts
// at 20+10i and gains 0.5+0.25i per axis step. Fully deterministic, so
// tests can assert exact cells.
func (g *Generator) Trending(entities int) DatasetFixture {
	f := g.empty(entities)
	f.Description = fmt.Sprintf("%d linear trends with distinct slopes", entities)
	for i := range f.Values {
		base := 20 + float64(i)*10
		slope := 0.5 + float64(i)*0.25
		for j := range f.Values[i] {
			f.Values[i][j] = base + slope*float64(j)
		}
	}
	return f
}

// RandomWalk creates entities following seeded random walks around 100.
func (g *Generator) RandomWalk(entities int, volatility float64) DatasetFixture {
	f := g.empty(entities)
	f.Description = fmt.Sprintf("%d random walks, volatility %g", entities, volatility)
	for i := range f.Values {
		v := 100.0
		for j := range f.Values[i] {
			v += (g.rng.Float64()*2 - 1) * volatility
			f.Values[i][j] = v
		}
	}
	return f
}

// Seasonal creates entities oscillating around 50 with phase offsets, so
// series cross each other repeatedly.
func (g *Generator) Seasonal(entities int, amplitude float64) DatasetFixture {
	f := g.empty(entities)
	f.Description = fmt.Sprintf("%d phase-shifted sine series", entities)
	for i := range f.Values {
		phase := float64(i) * math.Pi / 3
		for j := range f.Values[i] {
			f.Values[i][j] = 50 + amplitude*math.Sin(float64(j)/2+phase)
		}
	}
	return f
}

// Crossing creates two series that swap order halfway through the axis,
// one rising and one falling.
func (g *Generator) Crossing() DatasetFixture {
	f := g.empty(2)
	f.Description = "rising and falling series that cross mid-window"
	n := len(f.Years)
	for j := 0; j < n; j++ {
		t := float64(j) / math.Max(float64(n-1), 1)
		f.Values[0][j] = 10 + 80*t
		f.Values[1][j] = 90 - 80*t
	}
	return f
}

// Correlated creates a driver series plus followers that scale it with
// seeded noise. Follower k tracks the driver with sign +1, so pairwise
// correlations stay strongly positive.
func (g *Generator) Correlated(entities int, noise float64) DatasetFixture {
	f := g.Trending(1)
	if entities < 2 {
		return f
	}
	driver := f.Values[0]
	f = g.empty(entities)
	f.Description = fmt.Sprintf("1 driver and %d noisy followers", entities-1)
	copy(f.Values[0], driver)
	for i := 1; i < entities; i++ {
		scale := 1 + float64(i)*0.5
		for j := range f.Values[i] {
			f.Values[i][j] = driver[j]*scale + (g.rng.Float64()*2-1)*noise
		}
	}
	return f
}

// SingleYear creates a one-column fixture at the given year, the shape a
// discrete bar chart consumes.
func (g *Generator) SingleYear(entities int, year int) DatasetFixture {
	f := DatasetFixture{
		Description: fmt.Sprintf("%d entities at year %d only", entities, year),
		Entities:    entityNames(entities),
		Years:       []int{year},
	}
	f.Values = make([][]float64, entities)
	for i := range f.Values {
		f.Values[i] = []float64{float64(30 + i*15)}
	}
	return f
}

// WithMissing punches NaN holes into a fixture at the given rate using
// the generator's seeded source. The first cell of every entity is kept
// so each series still exists.
func (g *Generator) WithMissing(f DatasetFixture, rate float64) DatasetFixture {
	if rate <= 0 {
		return f
	}
	if rate > 1 {
		rate = 1
	}
	for i := range f.Values {
		for j := range f.Values[i] {
			if j == 0 {
				continue
			}
			if g.rng.Float64() < rate {
				f.Values[i][j] = math.NaN()
			}
		}
	}
	f.Description += fmt.Sprintf(" (~%d%% missing)", int(rate*100))
	return f
}

// ============================================================================
// Conversions
// ============================================================================

// ToDataset converts a fixture to a model.Dataset, skipping NaN cells so
// they become genuinely missing observations.
func (g *Generator) ToDataset(f DatasetFixture) *model.Dataset {
	ds := &model.Dataset{
		Name: g.cfg.DatasetName,
		Variables: []model.Variable{{
			ID:     1,
			Name:   g.cfg.VariableName,
			Unit:   g.cfg.Unit,
			Source: model.Source{Name: "synthetic fixture"},
		}},
	}
	for i, e := range f.Entities {
		for j, y := range f.Years {
			v := f.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			ds.Observations = append(ds.Observations, model.Observation{
				Entity:     e,
				VariableID: 1,
				Year:       y,
				Value:      v,
			})
		}
	}
	return ds
}

// ToCSV renders a fixture in the wide CSV layout the loader reads:
// entity rows, year columns, empty cells for missing values.
func ToCSV(f DatasetFixture) string {
	var sb strings.Builder
	sb.WriteString("entity")
	for _, y := range f.Years {
		sb.WriteByte(',')
		sb.WriteString(strconv.Itoa(y))
	}
	sb.WriteByte('\n')
	for i, e := range f.Entities {
		sb.WriteString(e)
		for j := range f.Years {
			sb.WriteByte(',')
			v := f.Values[i][j]
			if math.IsNaN(v) {
				continue
			}
			sb.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ============================================================================
// Convenience Functions
// ============================================================================

// QuickTrend creates a trending dataset with default settings.
func QuickTrend(entities int) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.Trending(entities))
}

// QuickSparse creates a trending dataset with missing cells.
func QuickSparse(entities int, rate float64) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.WithMissing(gen.Trending(entities), rate))
}

// QuickSingleYear creates a one-year dataset for bar-mode tests.
func QuickSingleYear(entities, year int) *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.SingleYear(entities, year))
}

// Empty returns a dataset with no observations for edge case testing.
func Empty() *model.Dataset {
	return &model.Dataset{Name: "empty"}
}

// Single returns a dataset holding one observation.
func Single() *model.Dataset {
	gen := NewDefault()
	return gen.ToDataset(gen.SingleYear(1, gen.cfg.EndYear))
}
