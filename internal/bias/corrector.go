package bias

import (
	"math"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/solar-scout/internal/geomath"
	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/rng"
	"github.com/sells-group/solar-scout/internal/solar"
)

const (
	// ReferencePoints is the size of the baseline reference ring.
	ReferencePoints = 12

	// ReferenceRingKM is the ring radius around the request center. For
	// small request disks the ring extends past the disk; adopted as-is
	// from the climatology design.
	ReferenceRingKM = 2.0

	// ringJitterKM bounds the random radial jitter applied to ring points.
	ringJitterKM = 0.2

	// minFitPoints is the smallest sample the affine fit will run on.
	minFitPoints = 8

	// weakCorrelation is the |r| floor below which the fit degrades to
	// identity.
	weakCorrelation = 0.3
)

// Weights combines CSI and local percentile into the Relative Potential
// Score.
type Weights struct {
	CSI        float64 `yaml:"csi" mapstructure:"csi"`
	Percentile float64 `yaml:"percentile" mapstructure:"percentile"`
}

// DefaultWeights returns the standard (0.6, 0.4) RPS split.
func DefaultWeights() Weights {
	return Weights{CSI: 0.6, Percentile: 0.4}
}

// Fit is an affine baseline-correction model fitted on the reference ring.
type Fit struct {
	Slope       float64
	Intercept   float64
	Correlation float64
	Identity    bool
}

// Corrector derives bias-corrected scores for a candidate set.
type Corrector struct {
	clim       Climatology
	weights    Weights
	integrator *solar.Integrator
}

// NewCorrector creates a Corrector sharing the pipeline's integrator so the
// reference ring sees exactly the model the candidates saw.
func NewCorrector(clim Climatology, weights Weights, integrator *solar.Integrator) *Corrector {
	return &Corrector{clim: clim, weights: weights, integrator: integrator}
}

// ReferenceRing returns the reference sample locations: evenly spaced
// angles on the 2 km ring with deterministic radial jitter from src.
func ReferenceRing(center model.Coordinate, src *rng.Source) []model.Coordinate {
	pts := make([]model.Coordinate, 0, ReferencePoints)
	for i := 0; i < ReferencePoints; i++ {
		angle := 2 * math.Pi * float64(i) / ReferencePoints
		radius := ReferenceRingKM + (src.Float64()-0.5)*2*ringJitterKM
		pts = append(pts, geomath.Offset(center, radius*math.Cos(angle), radius*math.Sin(angle)))
	}
	return pts
}

// FitReference evaluates model and baseline POA on the reference ring and
// least-squares fits baseline ≈ slope·model + intercept. A weak or
// under-sampled fit degrades to identity rather than distorting scores.
func (c *Corrector) FitReference(center model.Coordinate, src *rng.Source) Fit {
	day := time.Date(c.integrator.Year, time.June, 21, 0, 0, 0, 0, time.UTC).YearDay()

	ring := ReferenceRing(center, src)
	modelPOA := make([]float64, 0, len(ring))
	basePOA := make([]float64, 0, len(ring))
	for _, p := range ring {
		raw, _ := c.integrator.Integrate(p)
		tilt, surfAz := solar.PanelFor(p.Lat)
		modelPOA = append(modelPOA, raw)
		basePOA = append(basePOA, c.clim.Baseline(p, c.integrator.Year, day, tilt, surfAz))
	}

	fit := leastSquares(modelPOA, basePOA)
	if fit.Identity {
		zap.L().Debug("bias: fit degraded to identity",
			zap.Float64("correlation", fit.Correlation),
			zap.Int("points", len(ring)),
		)
	}
	return fit
}

// leastSquares fits y ≈ slope·x + intercept and computes the Pearson
// correlation. Degenerate inputs yield the identity fit.
func leastSquares(x, y []float64) Fit {
	identity := Fit{Slope: 1, Intercept: 0, Identity: true}
	n := len(x)
	if n < minFitPoints || n != len(y) {
		return identity
	}

	var sumX, sumY, sumXX, sumYY, sumXY float64
	for i := 0; i < n; i++ {
		sumX += x[i]
		sumY += y[i]
		sumXX += x[i] * x[i]
		sumYY += y[i] * y[i]
		sumXY += x[i] * y[i]
	}

	fn := float64(n)
	denomX := fn*sumXX - sumX*sumX
	denomY := fn*sumYY - sumY*sumY
	if denomX <= 0 || denomY <= 0 {
		return identity
	}

	corr := (fn*sumXY - sumX*sumY) / math.Sqrt(denomX*denomY)
	if math.Abs(corr) < weakCorrelation {
		identity.Correlation = corr
		return identity
	}

	slope := (fn*sumXY - sumX*sumY) / denomX
	return Fit{
		Slope:       slope,
		Intercept:   (sumY - slope*sumX) / fn,
		Correlation: corr,
	}
}

// Score applies the fit to every candidate and attaches CSI, local
// percentile, and RPS. Percentile ranking is serial and ordered by
// corrected value with candidate index as the tiebreak, so results are
// bit-stable run to run.
func (c *Corrector) Score(center model.Coordinate, candidates []model.Candidate, fit Fit) []model.ScoredCandidate {
	n := len(candidates)
	scored := make([]model.ScoredCandidate, n)

	day := time.Date(c.integrator.Year, time.June, 21, 0, 0, 0, 0, time.UTC).YearDay()

	for i, cand := range candidates {
		corrected := math.Max(0, fit.Slope*cand.RawPOA+fit.Intercept)

		tilt, surfAz := solar.PanelFor(cand.Loc.Lat)
		baseline := c.clim.Baseline(cand.Loc, c.integrator.Year, day, tilt, surfAz)

		csi := 0.0
		if baseline > 0 {
			csi = clamp(corrected/baseline, 0, 2)
		}

		scored[i] = model.ScoredCandidate{
			Candidate:    cand,
			KWHPerDay:    solar.KWHPerDay(cand.RawPOA),
			Baseline:     baseline,
			CorrectedPOA: corrected,
			CSI:          csi,
		}
	}

	assignPercentiles(scored)

	for i := range scored {
		scored[i].RPS = c.weights.CSI*scored[i].CSI + c.weights.Percentile*(scored[i].LocalPct/100)
	}

	return scored
}

// assignPercentiles ranks candidates by corrected POA: percentile =
// 100·rank/(n-1). A lone candidate is its own maximum.
func assignPercentiles(scored []model.ScoredCandidate) {
	n := len(scored)
	if n == 0 {
		return
	}
	if n == 1 {
		scored[0].LocalPct = 100
		return
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	// Stable sort: ties keep candidate-index order, so ranking is
	// deterministic.
	sort.SliceStable(order, func(a, b int) bool {
		return scored[order[a]].CorrectedPOA < scored[order[b]].CorrectedPOA
	})

	for rank, idx := range order {
		pct := 100 * float64(rank) / float64(n-1)
		scored[idx].LocalPct = clamp(pct, 0, 100)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
