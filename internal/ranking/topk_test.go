package ranking

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-scout/internal/geomath"
	"github.com/sells-group/solar-scout/internal/model"
)

func cand(loc model.Coordinate, rps, kwh float64) model.ScoredCandidate {
	return model.ScoredCandidate{
		Candidate: model.Candidate{Loc: loc},
		RPS:       rps,
		KWHPerDay: kwh,
	}
}

func TestSelectTopK_RanksByRPS(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}
	cands := []model.ScoredCandidate{
		cand(geomath.Offset(center, 0, 0), 0.5, 5),
		cand(geomath.Offset(center, 3, 0), 0.9, 6),
		cand(geomath.Offset(center, 0, 3), 0.7, 5.5),
	}

	results := SelectTopK(cands, 3, false, center)
	require.Len(t, results, 3)

	assert.Equal(t, 1, results[0].Rank)
	assert.Equal(t, 0.9, results[0].Score)
	assert.Equal(t, 0.7, results[1].Score)
	assert.Equal(t, 0.5, results[2].Score)
}

func TestSelectTopK_PowerPerCostMetric(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}

	cheap := cand(geomath.Offset(center, 0, 0), 0.5, 6)
	cheapPPC := 6.0 / 50.0
	cheap.PowerPerCost = &cheapPPC

	pricey := cand(geomath.Offset(center, 3, 0), 0.9, 6.5)
	priceyPPC := 6.5 / 900.0
	pricey.PowerPerCost = &priceyPPC

	results := SelectTopK([]model.ScoredCandidate{pricey, cheap}, 2, true, center)
	require.Len(t, results, 2)

	// Cost ranking puts the cheap site first despite lower RPS.
	assert.Equal(t, cheap.Loc.Lat, results[0].Lat)
	assert.NotNil(t, results[0].PowerPerCost)
}

func TestSelectTopK_MissingPriceFallsBackToRPS(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}
	a := cand(geomath.Offset(center, 0, 0), 0.8, 6)
	b := cand(geomath.Offset(center, 3, 0), 0.6, 6)

	// rankByCost requested but no PowerPerCost present: metric degrades to
	// RPS per candidate.
	results := SelectTopK([]model.ScoredCandidate{b, a}, 2, true, center)
	assert.Equal(t, a.Loc.Lat, results[0].Lat)
}

func TestSelectTopK_SpacingEnforced(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}

	// A cluster of near-identical winners 100 m apart plus spread sites.
	var cands []model.ScoredCandidate
	for i := 0; i < 5; i++ {
		cands = append(cands, cand(geomath.Offset(center, float64(i)*0.1, 0), 0.95-float64(i)*0.001, 6))
	}
	cands = append(cands,
		cand(geomath.Offset(center, 2, 2), 0.80, 5.8),
		cand(geomath.Offset(center, -2, -2), 0.75, 5.7),
	)

	results := SelectTopK(cands, 3, false, center)
	require.Len(t, results, 3)

	for i := 0; i < len(results); i++ {
		for j := i + 1; j < len(results); j++ {
			a := model.Coordinate{Lat: results[i].Lat, Lng: results[i].Lng}
			b := model.Coordinate{Lat: results[j].Lat, Lng: results[j].Lng}
			assert.GreaterOrEqual(t, geomath.Haversine(a, b), MinSpacingKM,
				"results %d and %d too close", i, j)
		}
	}
}

func TestSelectTopK_FewerResultsThanKAfterSpacing(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}

	// Everything inside one 300 m blob: spacing admits exactly one.
	var cands []model.ScoredCandidate
	for i := 0; i < 10; i++ {
		cands = append(cands, cand(geomath.Offset(center, float64(i)*0.03, 0), 0.9-float64(i)*0.01, 6))
	}

	results := SelectTopK(cands, 5, false, center)
	assert.Len(t, results, 1)
	assert.Equal(t, 1, results[0].Rank)
}

func TestSelectTopK_RanksArePermutation(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}
	var cands []model.ScoredCandidate
	for i := 0; i < 30; i++ {
		cands = append(cands, cand(geomath.Offset(center, float64(i%6), float64(i/6)), float64(i)/30, 5))
	}

	results := SelectTopK(cands, 5, false, center)
	seen := map[int]bool{}
	for _, r := range results {
		seen[r.Rank] = true
	}
	for rank := 1; rank <= len(results); rank++ {
		assert.True(t, seen[rank], "missing rank %d", rank)
	}
}

func TestSelectTopK_DeterministicTieBreak(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}

	// Two candidates with identical metric and RPS: the one closer to the
	// center wins.
	near := cand(geomath.Offset(center, 1, 0), 0.8, 6)
	far := cand(geomath.Offset(center, 4, 0), 0.8, 6)

	a := SelectTopK([]model.ScoredCandidate{far, near}, 2, false, center)
	b := SelectTopK([]model.ScoredCandidate{near, far}, 2, false, center)

	require.Equal(t, a, b)
	assert.Equal(t, near.Loc.Lat, a[0].Lat)
	assert.Equal(t, near.Loc.Lng, a[0].Lng)
}

func TestSelectTopK_EmptyAndZeroK(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}
	assert.Nil(t, SelectTopK(nil, 5, false, center))
	assert.Nil(t, SelectTopK([]model.ScoredCandidate{cand(center, 1, 1)}, 0, false, center))
}

func TestSelectTopK_StreamsBeyondHeapSize(t *testing.T) {
	center := model.Coordinate{Lat: 30, Lng: -97}

	// 500 candidates; the best ones arrive last to exercise eviction.
	var cands []model.ScoredCandidate
	for i := 0; i < 500; i++ {
		x := float64(i%25) * 0.7
		y := float64(i/25) * 0.7
		cands = append(cands, cand(geomath.Offset(center, x, y), float64(i)/500, 5))
	}

	results := SelectTopK(cands, 5, false, center)
	require.Len(t, results, 5)
	// The global best survives streaming.
	assert.InDelta(t, 499.0/500, results[0].Score, 1e-9)
}
