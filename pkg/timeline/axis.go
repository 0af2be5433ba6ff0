package timeline

import (
	"math"
	"sort"
)

// Fallback bounds used when the axis holds no years at all. An empty axis is
// a configuration problem, not a crash: position math stays finite and the
// scrubber stays usable over this default span.
const (
	DefaultMinYear = 1900
	DefaultMaxYear = 2000
)

// Axis is the sorted, deduplicated set of years for which data exists. It is
// immutable for the lifetime of a controller; hosts build a new controller
// when the underlying data changes.
type Axis struct {
	years []int
}

// NewAxis builds an axis from the given years. The input is copied, sorted
// and deduplicated; order and duplicates in the input do not matter.
func NewAxis(years []int) Axis {
	if len(years) == 0 {
		return Axis{}
	}
	ys := make([]int, len(years))
	copy(ys, years)
	sort.Ints(ys)
	out := ys[:1]
	for _, y := range ys[1:] {
		if y != out[len(out)-1] {
			out = append(out, y)
		}
	}
	return Axis{years: out}
}

// IsEmpty reports whether the axis holds no years.
func (a Axis) IsEmpty() bool {
	return len(a.years) == 0
}

// Len returns the number of distinct years.
func (a Axis) Len() int {
	return len(a.years)
}

// Years returns the backing slice of years in ascending order. The returned
// slice must not be modified.
func (a Axis) Years() []int {
	return a.years
}

// Min returns the smallest axis year, or DefaultMinYear when empty.
func (a Axis) Min() int {
	if len(a.years) == 0 {
		return DefaultMinYear
	}
	return a.years[0]
}

// Max returns the largest axis year, or DefaultMaxYear when empty.
func (a Axis) Max() int {
	if len(a.years) == 0 {
		return DefaultMaxYear
	}
	return a.years[len(a.years)-1]
}

// Contains reports whether the year is an axis member.
func (a Axis) Contains(year int) bool {
	i := sort.SearchInts(a.years, year)
	return i < len(a.years) && a.years[i] == year
}

// ClosestTo returns the axis year nearest to the given position by absolute
// distance. When two members are equidistant the lower year wins. On an
// empty axis the position is rounded and clamped into the default span.
func (a Axis) ClosestTo(pos float64) int {
	if len(a.years) == 0 {
		return clampInt(int(math.Round(pos)), DefaultMinYear, DefaultMaxYear)
	}
	i := sort.Search(len(a.years), func(i int) bool {
		return float64(a.years[i]) >= pos
	})
	if i == 0 {
		return a.years[0]
	}
	if i == len(a.years) {
		return a.years[len(a.years)-1]
	}
	lower, upper := a.years[i-1], a.years[i]
	if pos-float64(lower) <= float64(upper)-pos {
		return lower
	}
	return upper
}

// NextAfter returns the smallest axis year strictly greater than the given
// position, and whether one exists.
func (a Axis) NextAfter(pos float64) (int, bool) {
	i := sort.Search(len(a.years), func(i int) bool {
		return float64(a.years[i]) > pos
	})
	if i == len(a.years) {
		return 0, false
	}
	return a.years[i], true
}

// PrevBefore returns the largest axis year strictly smaller than the given
// position, and whether one exists.
func (a Axis) PrevBefore(pos float64) (int, bool) {
	i := sort.Search(len(a.years), func(i int) bool {
		return float64(a.years[i]) >= pos
	})
	if i == 0 {
		return 0, false
	}
	return a.years[i-1], true
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
