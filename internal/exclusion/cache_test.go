package exclusion

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/solar-scout/internal/model"
)

func TestZoneCache_PutGet(t *testing.T) {
	c := NewZoneCache(time.Hour)
	center := model.Coordinate{Lat: 40.75, Lng: -74.05}
	opts := Options{IncludeWater: true}

	_, ok := c.Get(center, 2, opts)
	require.False(t, ok)

	c.Put(center, 2, opts, []Zone{rectZone(false)})
	zones, ok := c.Get(center, 2, opts)
	require.True(t, ok)
	assert.Len(t, zones, 1)
}

func TestZoneCache_KeyIncludesOptions(t *testing.T) {
	c := NewZoneCache(time.Hour)
	center := model.Coordinate{Lat: 40.75, Lng: -74.05}

	c.Put(center, 2, Options{IncludeWater: true}, []Zone{rectZone(false)})

	// A different option set misses.
	_, ok := c.Get(center, 2, Options{IncludeWater: false})
	assert.False(t, ok)

	// A different radius misses.
	_, ok = c.Get(center, 3, Options{IncludeWater: true})
	assert.False(t, ok)
}

func TestZoneCache_TTLExpiry(t *testing.T) {
	c := NewZoneCache(time.Minute)
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	center := model.Coordinate{Lat: 40, Lng: -74}
	c.Put(center, 1, Options{}, []Zone{rectZone(false)})

	now = now.Add(2 * time.Minute)
	_, ok := c.Get(center, 1, Options{})
	assert.False(t, ok)
}

func TestZoneCache_EmptySetIsCacheable(t *testing.T) {
	c := NewZoneCache(time.Hour)
	center := model.Coordinate{Lat: 40, Lng: -74}

	// A successful fetch with zero zones is a valid, cacheable answer.
	c.Put(center, 1, Options{}, nil)
	zones, ok := c.Get(center, 1, Options{})
	assert.True(t, ok)
	assert.Empty(t, zones)
}
