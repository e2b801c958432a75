package main

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"

	"github.com/sells-group/solar-scout/internal/bias"
	"github.com/sells-group/solar-scout/internal/config"
	"github.com/sells-group/solar-scout/internal/engine"
	"github.com/sells-group/solar-scout/internal/exclusion"
	"github.com/sells-group/solar-scout/internal/landprice"
	"github.com/sells-group/solar-scout/internal/monitoring"
	"github.com/sells-group/solar-scout/internal/store"
	"github.com/sells-group/solar-scout/pkg/landapi"
	"github.com/sells-group/solar-scout/pkg/overpass"
)

// buildEngine wires the engine from configuration: climatology, pricing
// cascade, polygon provider, and metrics.
func buildEngine(cfg *config.Config, reg prometheus.Registerer) (*engine.Engine, error) {
	clim := bias.DefaultClimatology()
	if cfg.Bias.ClimatologyFile != "" {
		var err error
		clim, err = bias.LoadClimatologyFile(cfg.Bias.ClimatologyFile)
		if err != nil {
			return nil, err
		}
	}

	var priceProviders []landprice.Provider
	if cfg.LandPrice.APIBaseURL != "" {
		priceProviders = append(priceProviders, landapi.NewClient(cfg.LandPrice.APIBaseURL, cfg.LandPrice.APIKey))
	}
	cascade := landprice.NewCascade(
		landprice.NewSynthetic(cfg.LandPrice.Synthetic),
		priceProviders,
		landprice.WithCache(landprice.NewCache(
			cfg.LandPrice.CacheMaxEntries,
			time.Duration(cfg.LandPrice.CacheTTLHours)*time.Hour,
		)),
		landprice.WithTimeout(time.Duration(cfg.LandPrice.TimeoutSecs)*time.Second),
	)

	opts := []engine.Option{
		engine.WithZoneCache(exclusion.NewZoneCache(time.Duration(cfg.Overpass.ZoneTTLHours) * time.Hour)),
	}
	switch {
	case cfg.Overpass.Shapefile != "":
		opts = append(opts, engine.WithPolygonProvider(exclusion.NewShapefileProvider(cfg.Overpass.Shapefile)))
	case cfg.Overpass.Enabled:
		opts = append(opts, engine.WithPolygonProvider(overpass.NewClient(
			overpass.WithBaseURL(cfg.Overpass.BaseURL),
			overpass.WithRateLimit(cfg.Overpass.RateLimitRPS),
			overpass.WithTimeout(time.Duration(cfg.Engine.PolygonTimeoutSecs)*time.Second),
		)))
	}
	if reg != nil {
		opts = append(opts, engine.WithMetrics(monitoring.NewMetrics(reg)))
	}

	return engine.New(engine.Config{
		DefaultTopK:    cfg.Engine.DefaultTopK,
		PolygonTimeout: time.Duration(cfg.Engine.PolygonTimeoutSecs) * time.Second,
		Workers:        cfg.Engine.Workers,
		Year:           cfg.Engine.Year,
		Climatology:    clim,
		Weights:        bias.Weights{CSI: cfg.Bias.CSIWeight, Percentile: cfg.Bias.PercentileWeight},
	}, cascade, opts...), nil
}

// openStore opens the configured analysis store and runs migrations.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	var st store.Store
	var err error

	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}
