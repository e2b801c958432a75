package overpass

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-scout/internal/exclusion"
	"github.com/sells-group/solar-scout/internal/model"
)

const sampleResponse = `{
	"elements": [
		{
			"type": "way", "id": 1,
			"tags": {"landuse": "residential"},
			"geometry": [
				{"lat": 40.70, "lon": -74.10},
				{"lat": 40.70, "lon": -74.00},
				{"lat": 40.80, "lon": -74.00},
				{"lat": 40.80, "lon": -74.10},
				{"lat": 40.70, "lon": -74.10}
			]
		},
		{
			"type": "way", "id": 2,
			"tags": {"natural": "water"},
			"geometry": [
				{"lat": 41.00, "lon": -74.10},
				{"lat": 41.00, "lon": -74.00},
				{"lat": 41.10, "lon": -74.00},
				{"lat": 41.00, "lon": -74.10}
			]
		},
		{
			"type": "way", "id": 3,
			"tags": {"landuse": "residential"},
			"geometry": [
				{"lat": 40.70, "lon": -74.10},
				{"lat": 40.70, "lon": -74.00}
			]
		},
		{"type": "relation", "id": 4, "tags": {}}
	]
}`

func TestFetch_DecodesClosedWays(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `way["landuse"="residential"]`)
		assert.NotContains(t, string(body), `natural`)
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))

	zones, err := c.Fetch(context.Background(), model.Coordinate{Lat: 40.75, Lng: -74.05}, 5, exclusion.Options{})
	require.NoError(t, err)

	// Closed ways 1 and 2 decode into zones; the open way and the relation
	// are skipped. The decoder keeps whatever closed ways the server
	// returned — class filtering happens in the query.
	require.Len(t, zones, 2)
	assert.Equal(t, exclusion.ZoneResidential, zones[0].Type)
	assert.Equal(t, exclusion.ZoneWater, zones[1].Type)
}

func TestFetch_QueryIncludesOptionalClasses(t *testing.T) {
	var gotBody atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		gotBody.Store(string(body))
		_, _ = w.Write([]byte(`{"elements": []}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.Fetch(context.Background(), model.Coordinate{Lat: 40, Lng: -74}, 2, exclusion.Options{
		IncludeWater:     true,
		IncludeSensitive: true,
	})
	require.NoError(t, err)

	body := gotBody.Load().(string)
	assert.Contains(t, body, `way["natural"="water"]`)
	assert.Contains(t, body, `way["leisure"="nature_reserve"]`)
	assert.Contains(t, body, "around:2000")
}

func TestFetch_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"elements": []}`))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	zones, err := c.Fetch(context.Background(), model.Coordinate{Lat: 40, Lng: -74}, 1, exclusion.Options{})
	require.NoError(t, err)
	assert.Empty(t, zones)
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetch_PermanentStatusFails(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("parse error"))
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL), WithRateLimit(1000))
	_, err := c.Fetch(context.Background(), model.Coordinate{Lat: 40, Lng: -74}, 1, exclusion.Options{})
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "status 400"))
	assert.Equal(t, int32(1), calls.Load())
}

func TestBuildQuery_Around(t *testing.T) {
	q := buildQuery(model.Coordinate{Lat: 30.2672, Lng: -97.7431}, 2, exclusion.Options{})
	assert.Contains(t, q, "around:2000,30.267200,-97.743100")
	assert.Contains(t, q, "[out:json]")
	assert.Contains(t, q, "out geom;")
}

func TestZoneTypeFromTags(t *testing.T) {
	assert.Equal(t, exclusion.ZoneWater, zoneTypeFromTags(map[string]string{"natural": "water"}))
	assert.Equal(t, exclusion.ZoneSensitive, zoneTypeFromTags(map[string]string{"boundary": "protected_area"}))
	assert.Equal(t, exclusion.ZoneCommercial, zoneTypeFromTags(map[string]string{"landuse": "commercial"}))
	assert.Equal(t, exclusion.ZoneResidential, zoneTypeFromTags(map[string]string{"landuse": "residential"}))
}
