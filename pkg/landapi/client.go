// Package landapi provides a client for an external land-valuation HTTP
// API. It is an optional enrichment: the pipeline runs fine without it.
package landapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/solar-scout/internal/landprice"
	"github.com/sells-group/solar-scout/internal/model"
	"github.com/sells-group/solar-scout/internal/resilience"
)

// Option configures the client.
type Option func(*client)

// WithBaseURL sets the API endpoint.
func WithBaseURL(url string) Option {
	return func(c *client) { c.baseURL = url }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *client) { c.http = hc }
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	retry   resilience.RetryConfig
}

// NewClient creates a landprice.Provider backed by the external API.
func NewClient(baseURL, apiKey string, opts ...Option) landprice.Provider {
	c := &client{
		baseURL: baseURL,
		apiKey:  apiKey,
		retry:   resilience.DefaultRetryConfig(),
		http: &http.Client{
			Timeout: 5 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.retry.OnRetry = resilience.ProviderRetryLogger("landapi")
	return c
}

// Name implements landprice.Provider.
func (c *client) Name() string { return "landapi" }

type priceResponse struct {
	PriceUSDPerM2 float64           `json:"price_usd_per_m2"`
	Confidence    float64           `json:"confidence"`
	Metadata      map[string]string `json:"metadata"`
}

// Price implements landprice.Provider.
func (c *client) Price(ctx context.Context, loc model.Coordinate) (*landprice.Estimate, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*landprice.Estimate, error) {
		return c.fetch(ctx, loc)
	})
}

func (c *client) fetch(ctx context.Context, loc model.Coordinate) (*landprice.Estimate, error) {
	url := fmt.Sprintf("%s/v1/price?lat=%.6f&lng=%.6f", c.baseURL, loc.Lat, loc.Lng)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "landapi: build request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "landapi: execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		err := eris.Errorf("landapi: status %d: %s", resp.StatusCode, string(body))
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(err, resp.StatusCode)
		}
		return nil, err
	}

	var pr priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, eris.Wrap(err, "landapi: decode response")
	}
	if pr.PriceUSDPerM2 <= 0 {
		return nil, eris.New("landapi: non-positive price in response")
	}

	return &landprice.Estimate{
		PriceUSDPerM2: pr.PriceUSDPerM2,
		Source:        landprice.SourceAPI,
		Confidence:    pr.Confidence,
		Metadata:      pr.Metadata,
	}, nil
}
