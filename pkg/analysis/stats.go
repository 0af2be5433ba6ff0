// Package analysis computes summary statistics over chart datasets: per
// entity series descriptors for the table view and robot output, and
// pairwise entity correlations for the sources tab.
package analysis

import (
	"math"
	"sort"

	json "github.com/goccy/go-json"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/grapher/pkg/metrics"
	"github.com/vanderheijden86/grapher/pkg/model"
)

// SeriesStats describes one entity's series for a single variable.
// It is designed to be surfaced by robot outputs and the table footer.
type SeriesStats struct {
	Entity    string  `json:"entity"`
	N         int     `json:"n"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	First     float64 `json:"first"`
	Last      float64 `json:"last"`
	FirstYear int     `json:"first_year"`
	LastYear  int     `json:"last_year"`
	Change    float64 `json:"change"`
	// ChangePct is NaN when the first value is zero; it serializes as
	// JSON null in that case.
	ChangePct float64 `json:"change_pct"`
	// Coverage is the fraction of the dataset's years this entity has
	// values for, in [0, 1].
	Coverage float64 `json:"coverage"`
}

// MarshalJSON encodes a NaN ChangePct as null. Encoders reject NaN, and
// robot consumers read the summary as plain JSON.
func (s SeriesStats) MarshalJSON() ([]byte, error) {
	type plain SeriesStats
	out := struct {
		plain
		ChangePct any `json:"change_pct"`
	}{plain: plain(s)}
	if !math.IsNaN(s.ChangePct) {
		out.ChangePct = s.ChangePct
	}
	return json.Marshal(out)
}

// YearSpan is the inclusive year range a dataset covers.
type YearSpan struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DatasetSummary aggregates per-entity stats for a dataset's primary
// variable. PerEntity is sorted by entity name for deterministic output.
type DatasetSummary struct {
	Dataset          string              `json:"dataset"`
	Variable         string              `json:"variable"`
	Unit             string              `json:"unit,omitempty"`
	Years            YearSpan            `json:"years"`
	EntityCount      int                 `json:"entity_count"`
	ObservationCount int                 `json:"observation_count"`
	PerEntity        []SeriesStats       `json:"per_entity"`
	Correlations     []EntityCorrelation `json:"correlations,omitempty"`
}

// maxSummaryCorrelations caps the correlation list in robot output.
const maxSummaryCorrelations = 10

// ComputeSeriesStats computes descriptors for one entity's full series.
// The zero SeriesStats (N=0) is returned when the entity has no values.
func ComputeSeriesStats(ds *model.Dataset, entity string, variableID int) SeriesStats {
	years := ds.Years()
	if len(years) == 0 {
		return SeriesStats{Entity: entity}
	}
	return ComputeSeriesStatsRange(ds, entity, variableID, years[0], years[len(years)-1])
}

// ComputeSeriesStatsRange computes descriptors over the inclusive window
// [startYear, endYear] only. Coverage is measured against the axis years
// inside the window.
func ComputeSeriesStatsRange(ds *model.Dataset, entity string, variableID, startYear, endYear int) SeriesStats {
	s := ds.Series(entity, variableID)
	out := SeriesStats{Entity: entity}

	var pts []model.Point
	for _, p := range s.Points {
		if p.Year >= startYear && p.Year <= endYear {
			pts = append(pts, p)
		}
	}
	out.N = len(pts)
	if len(pts) == 0 {
		return out
	}

	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.Value
	}

	out.Mean = stat.Mean(values, nil)
	if len(values) > 1 {
		out.StdDev = stat.StdDev(values, nil)
	}
	out.Min = floats.Min(values)
	out.Max = floats.Max(values)
	out.First = pts[0].Value
	out.Last = pts[len(pts)-1].Value
	out.FirstYear = pts[0].Year
	out.LastYear = pts[len(pts)-1].Year
	out.Change = out.Last - out.First
	if out.First != 0 {
		out.ChangePct = out.Change / math.Abs(out.First) * 100
	} else {
		out.ChangePct = math.NaN()
	}
	axisN := 0
	for _, y := range ds.Years() {
		if y >= startYear && y <= endYear {
			axisN++
		}
	}
	if axisN > 0 {
		out.Coverage = float64(out.N) / float64(axisN)
	}
	return out
}

// Summarize computes the full dataset summary for the primary variable.
func Summarize(ds *model.Dataset) DatasetSummary {
	defer metrics.Timer(metrics.SeriesStats)()

	v, _ := ds.PrimaryVariable()
	summary := DatasetSummary{
		Dataset:          ds.Name,
		Variable:         v.Name,
		Unit:             v.Unit,
		EntityCount:      len(ds.Entities()),
		ObservationCount: len(ds.Observations),
	}

	years := ds.Years()
	if len(years) > 0 {
		summary.Years = YearSpan{Min: years[0], Max: years[len(years)-1]}
	}

	entities := ds.Entities()
	summary.PerEntity = make([]SeriesStats, 0, len(entities))
	for _, e := range entities {
		summary.PerEntity = append(summary.PerEntity, ComputeSeriesStats(ds, e, v.ID))
	}
	sort.Slice(summary.PerEntity, func(i, j int) bool {
		return summary.PerEntity[i].Entity < summary.PerEntity[j].Entity
	})

	corrs := CorrelateEntities(ds, v.ID, DefaultMinOverlap)
	if len(corrs) > maxSummaryCorrelations {
		corrs = corrs[:maxSummaryCorrelations]
	}
	summary.Correlations = corrs

	return summary
}
