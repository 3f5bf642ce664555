package thresholds

import (
	"sort"
)

// Aggregations supported by Aggregate.
const (
	AggMax    = "max"
	AggMin    = "min"
	AggAvg    = "avg"
	AggMedian = "median"
	AggPct95  = "pct95"
	AggPct99  = "pct99"
)

// Aggregate reduces values with the named aggregation. An empty list and an
// unknown aggregation both yield 0. values is not modified.
func Aggregate(aggregation string, values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	switch aggregation {
	case AggMax:
		m := values[0]
		for _, v := range values[1:] {
			if v > m {
				m = v
			}
		}
		return m
	case AggMin:
		m := values[0]
		for _, v := range values[1:] {
			if v < m {
				m = v
			}
		}
		return m
	case AggAvg:
		var sum float64
		for _, v := range values {
			sum += v
		}
		return sum / float64(len(values))
	case AggMedian:
		return Median(values)
	case AggPct95:
		return Percentile(values, 0.95)
	case AggPct99:
		return Percentile(values, 0.99)
	}
	return 0
}

func sorted(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}

// Median returns the middle value, averaging the two middle values of an
// even-length list.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := sorted(values)
	n := len(s)
	if n%2 == 0 {
		return (s[n/2-1] + s[n/2]) / 2
	}
	return s[n/2]
}

// Percentile returns the nearest-rank value at index int(n*q) of the sorted
// list, clamped to the last element. q is a fraction in [0, 1].
func Percentile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	s := sorted(values)
	idx := int(float64(len(s)) * q)
	if idx >= len(s) {
		idx = len(s) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return s[idx]
}
