package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/vanderheijden86/grapher/pkg/model"
)

// DefaultMinOverlap is the minimum number of shared years two entities
// need before their correlation is reported. Below this the coefficient
// is mostly noise.
const DefaultMinOverlap = 3

// EntityCorrelation is the Pearson correlation between two entities'
// series over their shared years.
type EntityCorrelation struct {
	EntityA string  `json:"entity_a"`
	EntityB string  `json:"entity_b"`
	R       float64 `json:"r"`
	Overlap int     `json:"overlap"`
}

// CorrelateEntities computes pairwise correlations for all entity pairs
// with at least minOverlap shared years, strongest first. Ties break on
// entity names so output is deterministic.
func CorrelateEntities(ds *model.Dataset, variableID, minOverlap int) []EntityCorrelation {
	if minOverlap < 2 {
		minOverlap = 2
	}

	entities := ds.Entities()
	series := make(map[string]map[int]float64, len(entities))
	for _, e := range entities {
		byYear := make(map[int]float64)
		for _, p := range ds.Series(e, variableID).Points {
			byYear[p.Year] = p.Value
		}
		series[e] = byYear
	}

	var out []EntityCorrelation
	for i := 0; i < len(entities); i++ {
		for j := i + 1; j < len(entities); j++ {
			a, b := entities[i], entities[j]
			var shared []int
			for year := range series[a] {
				if _, ok := series[b][year]; ok {
					shared = append(shared, year)
				}
			}
			if len(shared) < minOverlap {
				continue
			}
			// Summation order affects the low bits; keep it fixed.
			sort.Ints(shared)
			xs := make([]float64, len(shared))
			ys := make([]float64, len(shared))
			for k, year := range shared {
				xs[k] = series[a][year]
				ys[k] = series[b][year]
			}
			r := stat.Correlation(xs, ys, nil)
			if math.IsNaN(r) {
				// Constant series have zero variance
				continue
			}
			out = append(out, EntityCorrelation{
				EntityA: a,
				EntityB: b,
				R:       r,
				Overlap: len(xs),
			})
		}
	}

	sort.Slice(out, func(i, j int) bool {
		ri, rj := math.Abs(out[i].R), math.Abs(out[j].R)
		if ri != rj {
			return ri > rj
		}
		if out[i].EntityA != out[j].EntityA {
			return out[i].EntityA < out[j].EntityA
		}
		return out[i].EntityB < out[j].EntityB
	})
	return out
}
