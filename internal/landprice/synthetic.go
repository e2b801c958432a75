package landprice

import (
	"context"
	"math"
	"strconv"

	"github.com/sells-group/solar-scout/internal/geomath"
	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/rng"
)

// SyntheticConfig parameterises the synthetic price surface.
type SyntheticConfig struct {
	BaseUSDPerM2  float64 `yaml:"base_usd_per_m2" mapstructure:"base_usd_per_m2"`
	UrbanGrad     float64 `yaml:"urban_grad" mapstructure:"urban_grad"`
	LatFactor     float64 `yaml:"lat_factor" mapstructure:"lat_factor"`
	LngFactor     float64 `yaml:"lng_factor" mapstructure:"lng_factor"`
	FloorUSDPerM2 float64 `yaml:"floor_usd_per_m2" mapstructure:"floor_usd_per_m2"`
}

// DefaultSyntheticConfig returns the standard surface parameters.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		BaseUSDPerM2:  800,
		UrbanGrad:     0.002, // per km from the nearest urban center
		LatFactor:     0.005,
		LngFactor:     0.001,
		FloorUSDPerM2: 50,
	}
}

// urbanCenters is the built-in reference list for the distance-to-urban
// term of the surface.
var urbanCenters = []model.Coordinate{
	{Lat: 40.7128, Lng: -74.0060},  // New York
	{Lat: 34.0522, Lng: -118.2437}, // Los Angeles
	{Lat: 41.8781, Lng: -87.6298},  // Chicago
	{Lat: 29.7604, Lng: -95.3698},  // Houston
	{Lat: 33.4484, Lng: -112.0740}, // Phoenix
	{Lat: 32.7767, Lng: -96.7970},  // Dallas
	{Lat: 30.2672, Lng: -97.7431},  // Austin
	{Lat: 37.7749, Lng: -122.4194}, // San Francisco
	{Lat: 47.6062, Lng: -122.3321}, // Seattle
	{Lat: 25.7617, Lng: -80.1918},  // Miami
	{Lat: 39.7392, Lng: -104.9903}, // Denver
	{Lat: 42.3601, Lng: -71.0589},  // Boston
	{Lat: 33.7490, Lng: -84.3880},  // Atlanta
	{Lat: 51.5074, Lng: -0.1278},   // London
	{Lat: 48.8566, Lng: 2.3522},    // Paris
	{Lat: 52.5200, Lng: 13.4050},   // Berlin
	{Lat: 40.4168, Lng: -3.7038},   // Madrid
	{Lat: 35.6762, Lng: 139.6503},  // Tokyo
	{Lat: 31.2304, Lng: 121.4737},  // Shanghai
	{Lat: 28.6139, Lng: 77.2090},   // Delhi
	{Lat: -23.5505, Lng: -46.6333}, // São Paulo
	{Lat: 19.4326, Lng: -99.1332},  // Mexico City
	{Lat: 30.0444, Lng: 31.2357},   // Cairo
	{Lat: -33.8688, Lng: 151.2093}, // Sydney
}

// Synthetic is the deterministic fallback price surface. It needs no
// network and always answers.
type Synthetic struct {
	cfg SyntheticConfig
}

// NewSynthetic creates the surface with the given parameters.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	def := DefaultSyntheticConfig()
	if cfg.BaseUSDPerM2 <= 0 {
		cfg.BaseUSDPerM2 = def.BaseUSDPerM2
	}
	if cfg.UrbanGrad <= 0 {
		cfg.UrbanGrad = def.UrbanGrad
	}
	if cfg.FloorUSDPerM2 <= 0 {
		cfg.FloorUSDPerM2 = def.FloorUSDPerM2
	}
	return &Synthetic{cfg: cfg}
}

// Name implements Provider.
func (s *Synthetic) Name() string { return SourceSynthetic }

// Price implements Provider. It cannot fail.
func (s *Synthetic) Price(_ context.Context, loc model.Coordinate) (*Estimate, error) {
	return s.Estimate(loc), nil
}

// Estimate evaluates the surface at the coordinate rounded to 4 decimals
// (the cache key), so coordinates that share a key share a price.
func (s *Synthetic) Estimate(loc model.Coordinate) *Estimate {
	loc = model.Coordinate{Lat: math.Round(loc.Lat*1e4) / 1e4, Lng: math.Round(loc.Lng*1e4) / 1e4}
	dUrban := s.nearestUrbanKM(loc)

	price := s.cfg.BaseUSDPerM2
	price *= 1 - math.Min(0.8, dUrban*s.cfg.UrbanGrad)
	price *= 1 + math.Abs(loc.Lat-40)*s.cfg.LatFactor
	price *= 1 + math.Abs(loc.Lng)*s.cfg.LngFactor

	// The noise factor keys off the rounded coordinate, never a shared RNG:
	// batch order must not change an address's price.
	price *= coordinateFactor(loc)

	if price < s.cfg.FloorUSDPerM2 {
		price = s.cfg.FloorUSDPerM2
	}

	return &Estimate{
		PriceUSDPerM2: price,
		Source:        SourceSynthetic,
		Confidence:    0.6,
		Metadata: map[string]string{
			"d_urban_km": strconv.FormatFloat(dUrban, 'f', 1, 64),
		},
	}
}

func (s *Synthetic) nearestUrbanKM(loc model.Coordinate) float64 {
	best := math.Inf(1)
	for _, c := range urbanCenters {
		if d := geomath.Haversine(loc, c); d < best {
			best = d
		}
	}
	return best
}

// coordinateFactor maps the 4-decimal-rounded coordinate to a pseudo-random
// factor in [0.8, 1.2].
func coordinateFactor(loc model.Coordinate) float64 {
	latQ := uint32(int32(math.Round(loc.Lat * 1e4)))
	lngQ := uint32(int32(math.Round(loc.Lng * 1e4)))
	h := rng.Mix32(rng.Mix32(latQ) ^ lngQ)
	return 0.8 + 0.4*float64(h)/float64(math.MaxUint32)
}
