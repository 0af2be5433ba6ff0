// Package model defines the chart configuration and dataset types shared by
// the loaders, the TUI and the exporters. A dataset is a sparse table of
// observations (entity, variable, year, value); the year axis derived from
// it drives the timeline scrubber.
package model

import (
	"math"
	"sort"

	"github.com/vanderheijden86/grapher/pkg/timeline"
)

// Source describes where a variable's data came from, for the sources panel
// and citation export.
type Source struct {
	Name            string `json:"name"`
	Link            string `json:"link,omitempty"`
	DataPublishedBy string `json:"dataPublishedBy,omitempty"`
	RetrievedDate   string `json:"retrievedDate,omitempty"`
}

// Variable is one measured indicator.
type Variable struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Unit        string `json:"unit,omitempty"`
	ShortUnit   string `json:"shortUnit,omitempty"`
	Description string `json:"description,omitempty"`
	Source      Source `json:"source"`
}

// Observation is a single data point.
type Observation struct {
	Entity     string  `json:"entity"`
	VariableID int     `json:"variable"`
	Year       int     `json:"year"`
	Value      float64 `json:"value"`
}

// Point is one (year, value) pair within a series.
type Point struct {
	Year  int
	Value float64
}

// Series is one entity's observations for one variable, ascending by year.
type Series struct {
	Entity     string
	VariableID int
	Points     []Point
}

// ValuesInRange returns the values for years within [start, end].
func (s Series) ValuesInRange(start, end int) []float64 {
	var out []float64
	for _, p := range s.Points {
		if p.Year >= start && p.Year <= end {
			out = append(out, p.Value)
		}
	}
	return out
}

// ValueAt returns the value for an exact year.
func (s Series) ValueAt(year int) (float64, bool) {
	i := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Year >= year })
	if i < len(s.Points) && s.Points[i].Year == year {
		return s.Points[i].Value, true
	}
	return 0, false
}

// Dataset is the loaded data behind one chart. Index structures are built
// on first use; the dataset is not safe for concurrent first access.
type Dataset struct {
	Name         string        `json:"name"`
	Variables    []Variable    `json:"variables"`
	Observations []Observation `json:"observations"`

	entities []string
	years    []int
	values   map[obsKey]float64
}

type obsKey struct {
	entity     string
	variableID int
	year       int
}

// reindex builds the lookup structures from the observation list.
func (d *Dataset) reindex() {
	d.values = make(map[obsKey]float64, len(d.Observations))
	entSet := make(map[string]bool)
	yearSet := make(map[int]bool)
	for _, o := range d.Observations {
		d.values[obsKey{o.Entity, o.VariableID, o.Year}] = o.Value
		entSet[o.Entity] = true
		yearSet[o.Year] = true
	}
	d.entities = make([]string, 0, len(entSet))
	for e := range entSet {
		d.entities = append(d.entities, e)
	}
	sort.Strings(d.entities)
	d.years = make([]int, 0, len(yearSet))
	for y := range yearSet {
		d.years = append(d.years, y)
	}
	sort.Ints(d.years)
}

func (d *Dataset) ensureIndex() {
	if d.values == nil {
		d.reindex()
	}
}

// Entities returns all entity names, sorted. The slice must not be
// modified.
func (d *Dataset) Entities() []string {
	d.ensureIndex()
	return d.entities
}

// Years returns all observation years, sorted and deduplicated. The slice
// must not be modified.
func (d *Dataset) Years() []int {
	d.ensureIndex()
	return d.years
}

// Axis builds the timeline axis for this dataset. An empty dataset yields
// an empty axis; the scrubber degrades to its default span.
func (d *Dataset) Axis() timeline.Axis {
	return timeline.NewAxis(d.Years())
}

// Variable looks a variable up by ID.
func (d *Dataset) Variable(id int) (Variable, bool) {
	for _, v := range d.Variables {
		if v.ID == id {
			return v, true
		}
	}
	return Variable{}, false
}

// PrimaryVariable returns the first variable, the one charts plot by
// default.
func (d *Dataset) PrimaryVariable() (Variable, bool) {
	if len(d.Variables) == 0 {
		return Variable{}, false
	}
	return d.Variables[0], true
}

// Value returns one cell.
func (d *Dataset) Value(entity string, variableID, year int) (float64, bool) {
	d.ensureIndex()
	v, ok := d.values[obsKey{entity, variableID, year}]
	return v, ok
}

// Series collects one entity's points for a variable, ascending by year.
func (d *Dataset) Series(entity string, variableID int) Series {
	d.ensureIndex()
	s := Series{Entity: entity, VariableID: variableID}
	for _, y := range d.years {
		if v, ok := d.values[obsKey{entity, variableID, y}]; ok {
			s.Points = append(s.Points, Point{Year: y, Value: v})
		}
	}
	return s
}

// Table is a dense entity x year view over a variable. Missing cells hold
// NaN so downstream numeric code can distinguish them without a parallel
// mask.
type Table struct {
	VariableID int
	Years      []int
	Entities   []string
	// Values is indexed [entity][year] following the slices above.
	Values [][]float64
}

// Table materializes the dense view for the given entities over the axis
// years within [startYear, endYear].
func (d *Dataset) Table(variableID int, entities []string, startYear, endYear int) Table {
	d.ensureIndex()
	t := Table{VariableID: variableID, Entities: entities}
	for _, y := range d.years {
		if y >= startYear && y <= endYear {
			t.Years = append(t.Years, y)
		}
	}
	t.Values = make([][]float64, len(entities))
	for i, e := range entities {
		row := make([]float64, len(t.Years))
		for j, y := range t.Years {
			if v, ok := d.values[obsKey{e, variableID, y}]; ok {
				row[j] = v
			} else {
				row[j] = math.NaN()
			}
		}
		t.Values[i] = row
	}
	return t
}

// IsEmpty reports whether the dataset has no observations at all.
func (d *Dataset) IsEmpty() bool {
	return len(d.Observations) == 0
}
