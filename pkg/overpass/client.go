// Package overpass fetches exclusion polygons from the OpenStreetMap
// Overpass API. It is the default polygon provider for the exclusion stage.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/solar-scout/internal/exclusion"
	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/resilience"
)

// DefaultBaseURL is the public Overpass API interpreter endpoint.
const DefaultBaseURL = "https://overpass-api.de/api/interpreter"

// Option configures the client.
type Option func(*client)

// WithBaseURL sets a custom interpreter endpoint (for testing or mirrors).
func WithBaseURL(url string) Option {
	return func(c *client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *client) { c.timeout = d }
}

// WithRateLimit overrides the requests-per-second budget against the public
// API.
func WithRateLimit(rps float64) Option {
	return func(c *client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

type client struct {
	baseURL string
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates an Overpass-backed exclusion.Provider. The public API
// is shared infrastructure: requests are rate-limited and time-boxed.
func NewClient(opts ...Option) exclusion.Provider {
	c := &client{
		baseURL: DefaultBaseURL,
		timeout: 10 * time.Second,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		retry:   resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 15 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.OnRetry = resilience.ProviderRetryLogger("overpass")
	return c
}

// Name implements exclusion.Provider.
func (c *client) Name() string { return "overpass" }

// Fetch implements exclusion.Provider. On any failure it returns an error
// and no zones; the caller fails open.
func (c *client) Fetch(ctx context.Context, center model.Coordinate, radiusKM float64, opts exclusion.Options) ([]exclusion.Zone, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "overpass: rate limit wait")
	}

	query := buildQuery(center, radiusKM, opts)

	resp, err := resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*overpassResponse, error) {
		return c.post(ctx, query)
	})
	if err != nil {
		return nil, err
	}

	zones := decodeZones(resp)
	for i := range zones {
		zones[i] = exclusion.BufferZone(zones[i], opts.BufferM)
	}

	zap.L().Debug("overpass: fetched zones",
		zap.Float64("radius_km", radiusKM),
		zap.Int("zones", len(zones)),
	)
	return zones, nil
}

// buildQuery assembles the Overpass QL union for the requested zone types
// within `around:` meters of the center.
func buildQuery(center model.Coordinate, radiusKM float64, opts exclusion.Options) string {
	radiusM := int(radiusKM * 1000)
	around := fmt.Sprintf("(around:%d,%.6f,%.6f)", radiusM, center.Lat, center.Lng)

	var b strings.Builder
	b.WriteString("[out:json][timeout:10];(")
	fmt.Fprintf(&b, `way["landuse"="residential"]%s;`, around)
	fmt.Fprintf(&b, `way["landuse"="commercial"]%s;`, around)
	if opts.IncludeWater {
		fmt.Fprintf(&b, `way["natural"="water"]%s;`, around)
	}
	if opts.IncludeSensitive {
		fmt.Fprintf(&b, `way["leisure"="nature_reserve"]%s;`, around)
		fmt.Fprintf(&b, `way["boundary"="protected_area"]%s;`, around)
	}
	b.WriteString(");out geom;")
	return b.String()
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type     string            `json:"type"`
	ID       int64             `json:"id"`
	Tags     map[string]string `json:"tags"`
	Geometry []overpassPoint   `json:"geometry"`
}

type overpassPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

func (c *client) post(ctx context.Context, query string) (*overpassResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader("data="+query))
	if err != nil {
		return nil, eris.Wrap(err, "overpass: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "overpass: execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := eris.Errorf("overpass: status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var out overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, eris.Wrap(err, "overpass: decode response")
	}
	return &out, nil
}

// decodeZones converts closed ways into polygon zones. Open ways and
// relations are skipped; the mask is best-effort by contract.
func decodeZones(resp *overpassResponse) []exclusion.Zone {
	var zones []exclusion.Zone
	var skipped int

	for _, el := range resp.Elements {
		if el.Type != "way" || len(el.Geometry) < 4 {
			skipped++
			continue
		}
		first, last := el.Geometry[0], el.Geometry[len(el.Geometry)-1]
		if first.Lat != last.Lat || first.Lon != last.Lon {
			skipped++
			continue
		}

		coords := make([]geom.Coord, 0, len(el.Geometry))
		for _, p := range el.Geometry {
			coords = append(coords, geom.Coord{p.Lon, p.Lat})
		}

		poly := geom.NewPolygon(geom.XY)
		if err := poly.Push(geom.NewLinearRing(geom.XY).MustSetCoords(coords)); err != nil {
			skipped++
			continue
		}

		zones = append(zones, exclusion.Zone{
			Type:     zoneTypeFromTags(el.Tags),
			Geometry: poly,
		})
	}

	if skipped > 0 {
		zap.L().Debug("overpass: skipped unusable elements", zap.Int("skipped", skipped))
	}
	return zones
}

func zoneTypeFromTags(tags map[string]string) exclusion.ZoneType {
	switch {
	case tags["natural"] == "water":
		return exclusion.ZoneWater
	case tags["leisure"] == "nature_reserve", tags["boundary"] == "protected_area":
		return exclusion.ZoneSensitive
	case tags["landuse"] == "commercial":
		return exclusion.ZoneCommercial
	default:
		return exclusion.ZoneResidential
	}
}
