package insight

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary describes a distribution of seconds (or counts). Missing counts
// values that were undefined and excluded from every other field; all fields
// are zero when Count is zero.
type Summary struct {
	Count   int     `json:"count"`
	Missing int     `json:"missing"`
	Mean    float64 `json:"mean"`
	Std     float64 `json:"std"`
	Min     float64 `json:"min"`
	P25     float64 `json:"p25"`
	Median  float64 `json:"median"`
	P75     float64 `json:"p75"`
	Max     float64 `json:"max"`
	// CV is Std/Mean, zero when Mean is zero.
	CV float64 `json:"cv"`
}

// Summarize computes a Summary of values. values is sorted in place.
func Summarize(values []float64, missing int) Summary {
	s := Summary{Count: len(values), Missing: missing}
	if len(values) == 0 {
		return s
	}
	sort.Float64s(values)

	if len(values) > 1 {
		s.Mean, s.Std = stat.MeanStdDev(values, nil)
	} else {
		s.Mean = values[0]
	}

	s.Min = values[0]
	s.Max = values[len(values)-1]
	s.P25 = Quantile(values, 0.25)
	s.Median = Quantile(values, 0.5)
	s.P75 = Quantile(values, 0.75)
	if s.Mean != 0 {
		s.CV = s.Std / math.Abs(s.Mean)
	}
	return s
}

// Quantile returns the q-quantile of sorted values, interpolating linearly
// between the closest ranks: position q*(n-1), as pandas describe does.
func Quantile(sorted []float64, q float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	q = math.Max(0, math.Min(1, q))

	// stat.LinInterp places the i-th point at cumulative weight i+1. A zero
	// weight on the first point moves the k-th point to k, so the total
	// weight is n-1 and the ranks match q*(n-1).
	weights := make([]float64, n)
	for i := 1; i < n; i++ {
		weights[i] = 1
	}
	return stat.Quantile(q, stat.LinInterp, sorted, weights)
}

// Bin is one histogram bucket covering [Lo, Hi); the last bin includes Hi.
type Bin struct {
	Lo    float64 `json:"lo"`
	Hi    float64 `json:"hi"`
	Count int     `json:"count"`
}

// Histogram splits values into bins equal-width buckets over [min, max].
// A degenerate range is widened by 0.5 on each side.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins < 1 {
		return nil
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	lo, hi := sorted[0], sorted[len(sorted)-1]
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	edges := floats.Span(make([]float64, bins+1), lo, hi)
	edges[bins] = hi
	// stat.Histogram bins are half-open; an infinite top divider closes the
	// last bin at hi.
	dividers := append([]float64(nil), edges...)
	dividers[bins] = math.Inf(1)
	counts := stat.Histogram(nil, dividers, sorted, nil)

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Lo: edges[i], Hi: edges[i+1], Count: int(counts[i])}
	}
	return out
}
