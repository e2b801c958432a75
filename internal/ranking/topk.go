// Package ranking selects the spatially-spread top-K candidates by the
// request's ranking metric.
package ranking

import (
	"container/heap"
	"sort"

	"github.com/sells-group/solar-scout/internal/geomath"
	"github.com/sells-group/solar-scout/internal/model"
)

const (
	// MinSpacingKM is the minimum pairwise distance between results.
	MinSpacingKM = 0.5

	// minHeapSize keeps the streaming heap large enough that the spacing
	// pass has alternatives to skip into.
	minHeapSize = 20
)

// Metric extracts the ranking value for a candidate: power-per-cost when
// cost ranking is active and prices are available, RPS otherwise.
func Metric(c model.ScoredCandidate, rankByCost bool) float64 {
	if rankByCost && c.PowerPerCost != nil {
		return *c.PowerPerCost
	}
	return c.RPS
}

// entry pairs a candidate with its precomputed metric and original index
// for deterministic tie-breaking.
type entry struct {
	cand   model.ScoredCandidate
	metric float64
	index  int
}

// bounded is a min-heap of the best M entries seen so far: the root is the
// weakest survivor, evicted when something better streams in.
type bounded struct {
	entries []entry
}

func (b *bounded) Len() int           { return len(b.entries) }
func (b *bounded) Less(i, j int) bool { return b.entries[i].metric < b.entries[j].metric }
func (b *bounded) Swap(i, j int)      { b.entries[i], b.entries[j] = b.entries[j], b.entries[i] }
func (b *bounded) Push(x any)         { b.entries = append(b.entries, x.(entry)) }

func (b *bounded) Pop() any {
	old := b.entries
	n := len(old)
	x := old[n-1]
	b.entries = old[:n-1]
	return x
}

// SelectTopK streams candidates through a bounded heap of size max(20, k),
// then greedily picks k results at least 500 m apart, ranked 1..k.
func SelectTopK(candidates []model.ScoredCandidate, k int, rankByCost bool, center model.Coordinate) []model.Result {
	if k <= 0 || len(candidates) == 0 {
		return nil
	}

	m := k
	if m < minHeapSize {
		m = minHeapSize
	}

	b := &bounded{}
	heap.Init(b)
	for i, c := range candidates {
		e := entry{cand: c, metric: Metric(c, rankByCost), index: i}
		if b.Len() < m {
			heap.Push(b, e)
			continue
		}
		if e.metric > b.entries[0].metric {
			b.entries[0] = e
			heap.Fix(b, 0)
		}
	}

	survivors := b.entries
	sort.SliceStable(survivors, func(i, j int) bool {
		return lessForOutput(survivors[i], survivors[j], center)
	})

	// Greedy spacing pass over the sorted survivors.
	selected := make([]entry, 0, k)
	for _, e := range survivors {
		if len(selected) == k {
			break
		}
		tooClose := false
		for _, s := range selected {
			if geomath.Haversine(e.cand.Loc, s.cand.Loc) < MinSpacingKM {
				tooClose = true
				break
			}
		}
		if !tooClose {
			selected = append(selected, e)
		}
	}

	results := make([]model.Result, 0, len(selected))
	for rank, e := range selected {
		results = append(results, model.Result{
			Rank:           rank + 1,
			Lat:            e.cand.Loc.Lat,
			Lng:            e.cand.Loc.Lng,
			Score:          e.cand.RPS,
			KWHPerDay:      e.cand.KWHPerDay,
			LandPriceUSDM2: e.cand.LandPrice,
			PowerPerCost:   e.cand.PowerPerCost,
		})
	}
	return results
}

// lessForOutput orders survivors descending by metric with the documented
// deterministic tie-break chain: higher RPS, shorter distance to the
// request center, lower latitude, lower longitude.
func lessForOutput(a, b entry, center model.Coordinate) bool {
	if a.metric != b.metric {
		return a.metric > b.metric
	}
	if a.cand.RPS != b.cand.RPS {
		return a.cand.RPS > b.cand.RPS
	}
	da := geomath.Haversine(a.cand.Loc, center)
	db := geomath.Haversine(b.cand.Loc, center)
	if da != db {
		return da < db
	}
	if a.cand.Loc.Lat != b.cand.Loc.Lat {
		return a.cand.Loc.Lat < b.cand.Loc.Lat
	}
	return a.cand.Loc.Lng < b.cand.Loc.Lng
}
