package model

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/grapher/pkg/timeline"
)

// TimeBound is a chart-config time endpoint. On the wire it is either a
// year number or one of the tokens "earliest"/"latest"; in memory it wraps
// the scrubber's bound so sentinels keep tracking the axis as data grows.
type TimeBound struct {
	timeline.Bound
}

// EarliestBound returns the unbounded-left wire value.
func EarliestBound() TimeBound {
	return TimeBound{timeline.Earliest}
}

// LatestBound returns the unbounded-right wire value.
func LatestBound() TimeBound {
	return TimeBound{timeline.Latest}
}

// YearBound returns a concrete time bound.
func YearBound(year int) TimeBound {
	return TimeBound{timeline.BoundFromYear(year)}
}

// MarshalJSON writes sentinels as their config tokens and concrete bounds
// as plain year numbers.
func (b TimeBound) MarshalJSON() ([]byte, error) {
	switch {
	case b.IsEarliest():
		return []byte(`"earliest"`), nil
	case b.IsLatest():
		return []byte(`"latest"`), nil
	default:
		return []byte(strconv.Itoa(b.Year())), nil
	}
}

// UnmarshalJSON accepts a year number or the tokens "earliest"/"latest".
func (b *TimeBound) UnmarshalJSON(data []byte) error {
	var year float64
	if err := json.Unmarshal(data, &year); err == nil {
		b.Bound = timeline.Bound(year)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("time bound must be a year or earliest/latest: %s", data)
	}
	switch s {
	case "earliest":
		b.Bound = timeline.Earliest
	case "latest":
		b.Bound = timeline.Latest
	default:
		return fmt.Errorf("unknown time bound %q", s)
	}
	return nil
}
