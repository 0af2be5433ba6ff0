package timeline

import (
	"math"
	"strconv"
)

// Bound is a timeline endpoint. It is either a concrete year or one of two
// sentinels: Earliest tracks the axis minimum dynamically, Latest the axis
// maximum. The underlying float lets playback hold fractional positions
// between sparse data years; values are snapped to axis members before they
// leave the controller.
type Bound float64

// Sentinel bounds. Using infinities means ordinary min/max and clamp
// arithmetic resolves them without special cases.
var (
	Earliest = Bound(math.Inf(-1))
	Latest   = Bound(math.Inf(1))
)

// BoundFromYear returns the concrete bound for a year.
func BoundFromYear(year int) Bound {
	return Bound(year)
}

// IsEarliest reports whether the bound is the unbounded-left sentinel.
func (b Bound) IsEarliest() bool {
	return math.IsInf(float64(b), -1)
}

// IsLatest reports whether the bound is the unbounded-right sentinel.
func (b Bound) IsLatest() bool {
	return math.IsInf(float64(b), 1)
}

// IsFinite reports whether the bound is a concrete value rather than a
// sentinel.
func (b Bound) IsFinite() bool {
	return !math.IsInf(float64(b), 0)
}

// Year rounds a concrete bound to the nearest whole year. Sentinels have no
// meaningful year; callers resolve them against an axis first.
func (b Bound) Year() int {
	return int(math.Round(float64(b)))
}

// String renders concrete bounds as the year and sentinels as the tokens
// used in chart configs.
func (b Bound) String() string {
	switch {
	case b.IsEarliest():
		return "earliest"
	case b.IsLatest():
		return "latest"
	default:
		return strconv.Itoa(b.Year())
	}
}
