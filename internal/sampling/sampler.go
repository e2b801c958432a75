// Package sampling generates the candidate grid: points distributed
// uniformly over the request disk, drawn from the request-seeded stream.
package sampling

import (
	"math"

	"github.com/sells-group/solar-scout/internal/geomath"
	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/rng"
)

const (
	// MinCandidates and MaxCandidates bound the target count regardless of
	// disk size.
	MinCandidates = 200
	MaxCandidates = 2000

	// densityPerKM2 scales the target count with disk area (radius²·30).
	densityPerKM2 = 30
)

// TargetCount returns the number of candidates for a disk of the given
// radius: clamp(round(radius²·30), 200, 2000).
func TargetCount(radiusKM float64) int {
	n := int(math.Round(radiusKM * radiusKM * densityPerKM2))
	if n < MinCandidates {
		return MinCandidates
	}
	if n > MaxCandidates {
		return MaxCandidates
	}
	return n
}

// Sample draws candidates uniformly over the disk. The √u radial transform
// keeps density uniform in area rather than crowding the center.
func Sample(center model.Coordinate, radiusKM float64, src *rng.Source) []model.Candidate {
	n := TargetCount(radiusKM)
	out := make([]model.Candidate, 0, n)

	for i := 0; i < n; i++ {
		u := src.Float64()
		v := src.Float64()

		r := radiusKM * math.Sqrt(u)
		theta := 2 * math.Pi * v

		loc := geomath.Offset(center, r*math.Cos(theta), r*math.Sin(theta))
		out = append(out, model.Candidate{Loc: loc})
	}

	return out
}
