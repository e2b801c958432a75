// Package engine orchestrates the analysis pipeline: sampling, exclusion,
// irradiance integration, bias correction, land pricing, and ranking. The
// Engine owns the two long-lived caches so tests stay isolated and the
// design stays reentrant — no package-level mutable state.
package engine

import (
	"runtime"
	"sync"
	"time"

	"github.com/sells-group/solar-scout/internal/bias"
	"github.com/sells-group/solar-scout/internal/exclusion"
	"github.com/sells-group/solar-scout/internal/landprice"
	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/monitoring"
)

// Config tunes the engine. Zero values take documented defaults.
type Config struct {
	// DefaultTopK is the result count when the request does not specify one.
	DefaultTopK int

	// PolygonTimeout bounds one exclusion provider fetch.
	PolygonTimeout time.Duration

	// Workers bounds the parallel per-point integration. Zero means
	// GOMAXPROCS.
	Workers int

	// Year pins the representative date's year; zero means the current
	// year.
	Year int

	Climatology bias.Climatology
	Weights     bias.Weights
}

func (c Config) withDefaults() Config {
	if c.DefaultTopK <= 0 {
		c.DefaultTopK = 5
	}
	if c.PolygonTimeout <= 0 {
		c.PolygonTimeout = 10 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = runtime.GOMAXPROCS(0)
	}
	if c.Year == 0 {
		c.Year = time.Now().UTC().Year()
	}
	if c.Weights == (bias.Weights{}) {
		c.Weights = bias.DefaultWeights()
	}
	var zeroClim bias.Climatology
	if c.Climatology == zeroClim {
		c.Climatology = bias.DefaultClimatology()
	}
	return c
}

// Engine runs analyses. Construct once, share freely: all methods are safe
// for concurrent use.
type Engine struct {
	cfg      Config
	prices   *landprice.Cascade
	polygons exclusion.Provider
	zones    *exclusion.ZoneCache
	metrics  *monitoring.Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithPolygonProvider enables the exclusion stage.
func WithPolygonProvider(p exclusion.Provider) Option {
	return func(e *Engine) { e.polygons = p }
}

// WithZoneCache overrides the exclusion zone cache.
func WithZoneCache(c *exclusion.ZoneCache) Option {
	return func(e *Engine) { e.zones = c }
}

// WithMetrics attaches Prometheus collectors.
func WithMetrics(m *monitoring.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// New creates an Engine over a land-price cascade.
func New(cfg Config, prices *landprice.Cascade, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg.withDefaults(),
		prices: prices,
		zones:  exclusion.NewZoneCache(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// progressEmitter serialises progress callbacks and enforces the monotonic
// percent guarantee.
type progressEmitter struct {
	fn   model.ProgressFunc
	mu   sync.Mutex
	last float64
}

func (p *progressEmitter) emit(percent float64, stage model.Stage, message string) {
	if p == nil || p.fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if percent < p.last {
		percent = p.last
	}
	if percent > 100 {
		percent = 100
	}
	p.last = percent
	p.fn(model.Progress{Percent: percent, Stage: stage, Message: message})
}
