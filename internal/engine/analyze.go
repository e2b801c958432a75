package engine

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/solar-scout/internal/bias"
	"github.com/sells-group/solar-scout/internal/exclusion"
	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/ranking"
	"github.com/sells-group/solar-scout/internal/rng"
	"github.com/sells-group/solar-scout/internal/sampling"
	"github.com/sells-group/solar-scout/internal/solar"
)

// Stage boundaries on the global progress scale.
const (
	pctGrid       = 10.0
	pctExclusion  = 20.0
	pctIrradiance = 60.0
	pctBias       = 75.0
	pctLandPrices = 90.0
)

// Analyze runs the full pipeline for one request. It returns a populated
// Analysis (possibly with zero results), ErrInvalidRequest, or ErrCancelled.
// Provider failures degrade: they are logged, counted, and recorded in
// Analysis.Warnings, never surfaced as errors.
func (e *Engine) Analyze(ctx context.Context, req model.SearchRequest, onProgress model.ProgressFunc) (*model.Analysis, error) {
	if err := validate(req); err != nil {
		e.metrics.AnalysisFinished("invalid")
		return nil, err
	}

	started := time.Now().UTC()
	prog := &progressEmitter{fn: onProgress}
	log := zap.L().With(
		zap.Float64("lat", req.Center.Lat),
		zap.Float64("lng", req.Center.Lng),
		zap.Float64("radius_km", req.RadiusKM),
	)

	analysis := &model.Analysis{
		ID:        uuid.New().String(),
		Request:   req,
		StartedAt: started,
	}

	topK := req.TopK
	if topK <= 0 {
		topK = e.cfg.DefaultTopK
	}

	src := rng.New(rng.Seed(req.Center.Lat, req.Center.Lng, req.RadiusKM, req.SeedSalt))
	integ := &solar.Integrator{Year: e.cfg.Year, UrbanPenalty: req.UrbanPenalty}

	// Stage: grid generation.
	stageStart := time.Now()
	prog.emit(0, model.StageGrid, "sampling candidate grid")
	candidates := sampling.Sample(req.Center, req.RadiusKM, src)
	prog.emit(pctGrid, model.StageGrid, fmt.Sprintf("%d candidates sampled", len(candidates)))
	e.metrics.ObserveStage(string(model.StageGrid), time.Since(stageStart))

	if err := cancelled(ctx); err != nil {
		e.metrics.AnalysisFinished("cancelled")
		return nil, err
	}

	// Stage: exclusion (optional).
	if req.Exclusion != nil && req.Exclusion.Enabled && e.polygons != nil {
		stageStart = time.Now()
		candidates = e.applyExclusion(ctx, req, candidates, analysis, log)
		prog.emit(pctExclusion, model.StageGrid, fmt.Sprintf("%d candidates after exclusion", len(candidates)))
		e.metrics.ObserveStage("exclusion", time.Since(stageStart))

		if err := cancelled(ctx); err != nil {
			e.metrics.AnalysisFinished("cancelled")
			return nil, err
		}
	}

	// Stage: irradiance integration, parallel over points with results
	// written by index so the downstream reductions see a stable order.
	stageStart = time.Now()
	prog.emit(pctExclusion, model.StageIrradiance, "integrating daily irradiance")
	if err := e.integrate(ctx, integ, candidates, analysis, prog); err != nil {
		e.metrics.AnalysisFinished("cancelled")
		return nil, err
	}
	prog.emit(pctIrradiance, model.StageIrradiance, "irradiance integration complete")
	e.metrics.ObserveStage(string(model.StageIrradiance), time.Since(stageStart))

	if err := cancelled(ctx); err != nil {
		e.metrics.AnalysisFinished("cancelled")
		return nil, err
	}

	// Stage: bias correction.
	stageStart = time.Now()
	prog.emit(pctIrradiance, model.StageBias, "fitting climatology baseline")
	corrector := bias.NewCorrector(e.cfg.Climatology, e.cfg.Weights, integ)
	fit := corrector.FitReference(req.Center, src)
	scored := corrector.Score(req.Center, candidates, fit)
	prog.emit(pctBias, model.StageBias, "bias correction complete")
	e.metrics.ObserveStage(string(model.StageBias), time.Since(stageStart))

	if err := cancelled(ctx); err != nil {
		e.metrics.AnalysisFinished("cancelled")
		return nil, err
	}

	// Stage: land prices (optional).
	pricesAttached := false
	if req.IncludeLandPrices && e.prices != nil {
		stageStart = time.Now()
		prog.emit(pctBias, model.StageLandPrices, "fetching land prices")
		e.attachPrices(ctx, scored)
		pricesAttached = true
		prog.emit(pctLandPrices, model.StageLandPrices, "land prices attached")
		e.metrics.ObserveStage(string(model.StageLandPrices), time.Since(stageStart))

		if err := cancelled(ctx); err != nil {
			e.metrics.AnalysisFinished("cancelled")
			return nil, err
		}
	}

	// Stage: ranking.
	stageStart = time.Now()
	prog.emit(pctLandPrices, model.StageRanking, "selecting top sites")
	rankByCost := req.RankByCost && pricesAttached
	analysis.Results = ranking.SelectTopK(scored, topK, rankByCost, req.Center)
	e.metrics.ObserveStage(string(model.StageRanking), time.Since(stageStart))

	analysis.CompletedAt = time.Now().UTC()
	prog.emit(100, model.StageComplete, fmt.Sprintf("%d sites ranked", len(analysis.Results)))
	e.metrics.AnalysisFinished("complete")

	log.Info("engine: analysis complete",
		zap.String("analysis_id", analysis.ID),
		zap.Int("candidates", len(candidates)),
		zap.Int("results", len(analysis.Results)),
		zap.Duration("elapsed", analysis.CompletedAt.Sub(started)),
	)
	return analysis, nil
}

// validate rejects out-of-range requests before any work happens.
func validate(req model.SearchRequest) error {
	if req.RadiusKM <= 0 || req.RadiusKM > 100 {
		return eris.Wrapf(ErrInvalidRequest, "radius_km %.3f outside (0, 100]", req.RadiusKM)
	}
	if req.Center.Lat < -90 || req.Center.Lat > 90 {
		return eris.Wrapf(ErrInvalidRequest, "lat %.4f outside [-90, 90]", req.Center.Lat)
	}
	if req.Center.Lng <= -180 || req.Center.Lng > 180 {
		return eris.Wrapf(ErrInvalidRequest, "lng %.4f outside (-180, 180]", req.Center.Lng)
	}
	return nil
}

func cancelled(ctx context.Context) error {
	if ctx.Err() != nil {
		return eris.Wrap(ErrCancelled, ctx.Err().Error())
	}
	return nil
}

// applyExclusion fetches zones (through the cache) and masks candidates.
// Provider failure fails open: no exclusion, a warning, and the pipeline
// continues.
func (e *Engine) applyExclusion(ctx context.Context, req model.SearchRequest, candidates []model.Candidate, analysis *model.Analysis, log *zap.Logger) []model.Candidate {
	opts := exclusion.Options{
		IncludeWater:     req.Exclusion.IncludeWater,
		IncludeSensitive: req.Exclusion.IncludeSensitive,
		BufferM:          req.Exclusion.BufferM,
	}

	zones, ok := e.zones.Get(req.Center, req.RadiusKM, opts)
	e.metrics.CacheEvent("zones", ok)
	if !ok {
		fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.PolygonTimeout)
		defer cancel()

		var err error
		zones, err = e.polygons.Fetch(fetchCtx, req.Center, req.RadiusKM, opts)
		if err != nil {
			log.Warn("engine: polygon provider failed, continuing without exclusion",
				zap.String("provider", e.polygons.Name()),
				zap.Error(err),
			)
			e.metrics.ProviderError(e.polygons.Name())
			analysis.Warnings = append(analysis.Warnings,
				fmt.Sprintf("polygon provider %s unavailable; exclusion skipped", e.polygons.Name()))
			return candidates
		}
		e.zones.Put(req.Center, req.RadiusKM, opts, zones)
	}

	return exclusion.NewFilter(zones).Apply(candidates)
}

// integrate runs the per-point daily integration across the worker pool.
func (e *Engine) integrate(ctx context.Context, integ *solar.Integrator, candidates []model.Candidate, analysis *model.Analysis, prog *progressEmitter) error {
	total := len(candidates)
	if total == 0 {
		return nil
	}

	var done, violations atomic.Int64

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Workers)
	for i := range candidates {
		eg.Go(func() error {
			// Cancellation is honoured between per-point integrations.
			if gCtx.Err() != nil {
				return gCtx.Err()
			}

			raw, v := integ.Integrate(candidates[i].Loc)
			candidates[i].RawPOA = raw
			violations.Add(int64(v))

			if n := done.Add(1); n%64 == 0 {
				pct := pctExclusion + (pctIrradiance-pctExclusion)*float64(n)/float64(total)
				prog.emit(pct, model.StageIrradiance, fmt.Sprintf("%d/%d points integrated", n, total))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return eris.Wrap(ErrCancelled, err.Error())
	}

	if v := violations.Load(); v > 0 {
		// Self-check diagnostics are non-fatal but should never happen.
		zap.L().Warn("engine: irradiance self-check violations", zap.Int64("count", v))
		e.metrics.InvariantViolations(int(v))
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("%d irradiance self-check violations", v))
	}
	return nil
}

// attachPrices resolves land prices in order-independent batches and
// derives power-per-cost.
func (e *Engine) attachPrices(ctx context.Context, scored []model.ScoredCandidate) {
	locs := make([]model.Coordinate, len(scored))
	for i, s := range scored {
		locs[i] = s.Loc
	}

	estimates := e.prices.BatchPrice(ctx, locs)
	for i := range scored {
		price := estimates[i].PriceUSDPerM2
		ppc := scored[i].KWHPerDay / math.Max(price, 1.0)
		scored[i].LandPrice = &price
		scored[i].PowerPerCost = &ppc
	}
}
