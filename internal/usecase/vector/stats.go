package vector

import (
	"math"
	"sort"
)

// Top3Stats describes the score distribution of the best first-stage
// matches. A tight distribution (low stddev or low spread) means the scores
// are not discriminative enough to trust the namespace attribution.
type Top3Stats struct {
	Count  int
	StdDev float64
	Spread float64
}

// calcTop3Stats computes stddev and spread over up to the three highest
// scores. Returns false for an empty score set: no statistics rather than a
// zero-filled result. A single score yields stddev and spread of exactly 0.
func calcTop3Stats(scores []float64) (Top3Stats, bool) {
	if len(scores) == 0 {
		return Top3Stats{}, false
	}
	top := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(top)))
	if len(top) > 3 {
		top = top[:3]
	}

	stats := Top3Stats{Count: len(top), Spread: top[0] - top[len(top)-1]}
	var mean float64
	for _, s := range top {
		mean += s
	}
	mean /= float64(len(top))
	var variance float64
	for _, s := range top {
		d := s - mean
		variance += d * d
	}
	stats.StdDev = math.Sqrt(variance / float64(len(top)))
	return stats, true
}
