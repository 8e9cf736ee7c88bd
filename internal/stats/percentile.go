package stats

import (
	"math"
	"slices"
	"sort"
)

// Quantile calculates the q-th quantile (0 <= q <= 1)
// Uses linear interpolation between closest ranks
func Quantile(values []float64, q float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Quantiles(values, []float64{q})[0]
}

// Quantiles calculates multiple quantiles at once
func Quantiles(values []float64, qs []float64) []float64 {
	results := make([]float64, len(qs))
	if len(values) == 0 {
		return results
	}

	// Sort once for efficiency
	sorted := slices.Clone(values)
	sort.Float64s(sorted)

	for i, q := range qs {
		results[i] = quantileSorted(sorted, q)
	}
	return results
}

func quantileSorted(sorted []float64, q float64) float64 {
	q = math.Max(0, math.Min(1, q))

	index := q * float64(len(sorted)-1)
	lower := int(math.Floor(index))
	upper := int(math.Ceil(index))
	if lower == upper {
		return sorted[lower]
	}

	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}
