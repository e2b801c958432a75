// Package landprice estimates land cost per square meter. A cascade tries
// the optional external API first and falls back to the deterministic
// synthetic surface; results are cached by rounded coordinate.
package landprice

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/resilience"
)

// Estimate sources.
const (
	SourceAPI       = "api"
	SourceSynthetic = "synthetic"
	SourceCached    = "cached"
)

// DegradedConfidence caps the confidence of a synthetic fallback taken
// after an external-provider failure.
const DegradedConfidence = 0.3

// BatchSize is the recommended max locations per batched provider call.
const BatchSize = 10

// Estimate is one land price answer.
type Estimate struct {
	PriceUSDPerM2 float64           `json:"price_usd_per_m2"`
	Source        string            `json:"source"`
	Confidence    float64           `json:"confidence"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Provider is a single pricing backend.
type Provider interface {
	Name() string
	Price(ctx context.Context, loc model.Coordinate) (*Estimate, error)
}

// Cascade tries providers in order, guards each with a circuit breaker and
// timeout, and always lands on the synthetic surface. It is the pipeline's
// land-price entry point.
type Cascade struct {
	providers []Provider
	fallback  *Synthetic
	cache     *Cache
	breakers  map[string]*resilience.Breaker
	timeout   time.Duration
	batchPar  int
}

// CascadeOption configures a Cascade.
type CascadeOption func(*Cascade)

// WithCache sets the estimate cache.
func WithCache(c *Cache) CascadeOption {
	return func(cc *Cascade) { cc.cache = c }
}

// WithTimeout sets the per-call provider timeout.
func WithTimeout(d time.Duration) CascadeOption {
	return func(cc *Cascade) { cc.timeout = d }
}

// WithBatchConcurrency bounds parallel lookups inside BatchPrice.
func WithBatchConcurrency(n int) CascadeOption {
	return func(cc *Cascade) {
		if n > 0 {
			cc.batchPar = n
		}
	}
}

// NewCascade builds a cascade over the given external providers with the
// synthetic surface as terminal fallback.
func NewCascade(fallback *Synthetic, providers []Provider, opts ...CascadeOption) *Cascade {
	c := &Cascade{
		providers: providers,
		fallback:  fallback,
		breakers:  make(map[string]*resilience.Breaker, len(providers)),
		timeout:   5 * time.Second,
		batchPar:  BatchSize,
	}
	for _, p := range providers {
		c.breakers[p.Name()] = resilience.NewBreaker(resilience.DefaultBreakerConfig())
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Price resolves a single coordinate through cache, external providers, and
// the synthetic fallback. It never returns an error: pricing degrades, it
// does not fail.
func (c *Cascade) Price(ctx context.Context, loc model.Coordinate) *Estimate {
	if c.cache != nil {
		if cached := c.cache.Get(loc); cached != nil {
			out := *cached
			out.Source = SourceCached
			return &out
		}
	}

	degraded := false
	for _, p := range c.providers {
		est, err := c.tryProvider(ctx, p, loc)
		if err != nil {
			degraded = true
			zap.L().Warn("landprice: provider failed, falling through",
				zap.String("provider", p.Name()),
				zap.Error(err),
			)
			continue
		}
		if c.cache != nil {
			c.cache.Put(loc, est)
		}
		return est
	}

	est := c.fallback.Estimate(loc)
	if degraded && est.Confidence > DegradedConfidence {
		est.Confidence = DegradedConfidence
		est.Metadata["degraded"] = "true"
	}
	if c.cache != nil {
		c.cache.Put(loc, est)
	}
	return est
}

func (c *Cascade) tryProvider(ctx context.Context, p Provider, loc model.Coordinate) (*Estimate, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return resilience.BreakerVal(ctx, c.breakers[p.Name()], func(ctx context.Context) (*Estimate, error) {
		return p.Price(ctx, loc)
	})
}

// BatchPrice resolves locations in parallel, writing results by index so
// batch ordering never changes the outcome. Individual failures degrade to
// synthetic; the batch itself never aborts.
func (c *Cascade) BatchPrice(ctx context.Context, locs []model.Coordinate) []Estimate {
	results := make([]Estimate, len(locs))

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(c.batchPar)
	for i, loc := range locs {
		eg.Go(func() error {
			results[i] = *c.Price(gCtx, loc)
			return nil
		})
	}
	_ = eg.Wait()

	return results
}

// CacheKey renders the canonical 4-decimal cache key for a coordinate.
func CacheKey(loc model.Coordinate) string {
	return fmt.Sprintf("%.4f,%.4f", loc.Lat, loc.Lng)
}
