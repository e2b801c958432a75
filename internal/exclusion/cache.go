package exclusion

import (
	"fmt"
	"sync"
	"time"

	"github.com/sells-group/solar-scout/internal/model"
)

// ZoneCache memoises provider fetches per (center, radius, options). Zone
// sets are immutable once fetched, so a plain TTL map is enough.
type ZoneCache struct {
	mu      sync.RWMutex
	entries map[string]zoneCacheEntry
	ttl     time.Duration

	now func() time.Time // injectable for tests
}

type zoneCacheEntry struct {
	zones     []Zone
	createdAt time.Time
}

// NewZoneCache creates a cache with the given TTL (default 1 h when zero).
func NewZoneCache(ttl time.Duration) *ZoneCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ZoneCache{
		entries: make(map[string]zoneCacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func zoneCacheKey(center model.Coordinate, radiusKM float64, opts Options) string {
	return fmt.Sprintf("%.4f,%.4f,%.3f,%t,%t,%d",
		center.Lat, center.Lng, radiusKM, opts.IncludeWater, opts.IncludeSensitive, opts.BufferM)
}

// Get returns the cached zone set and whether it was present and fresh.
func (c *ZoneCache) Get(center model.Coordinate, radiusKM float64, opts Options) ([]Zone, bool) {
	key := zoneCacheKey(center, radiusKM, opts)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || c.now().Sub(entry.createdAt) > c.ttl {
		return nil, false
	}
	return entry.zones, true
}

// Put stores a fetched zone set.
func (c *ZoneCache) Put(center model.Coordinate, radiusKM float64, opts Options, zones []Zone) {
	key := zoneCacheKey(center, radiusKM, opts)

	c.mu.Lock()
	c.entries[key] = zoneCacheEntry{zones: zones, createdAt: c.now()}
	c.mu.Unlock()
}
