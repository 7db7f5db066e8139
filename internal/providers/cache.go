package providers

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/petroflow/petroflow/internal/metrics"
)

const (
	defaultCacheTTL        = 5 * time.Minute
	defaultCacheMaxEntries = 256
)

// CacheStats exposes series-cache counters for introspection.
type CacheStats struct {
	Enabled bool          `json:"enabled"`
	TTL     time.Duration `json:"ttl"`
	Size    int           `json:"size"`
	Hits    int64         `json:"hits"`
	Misses  int64         `json:"misses"`
	HitRate float64       `json:"hit_rate"`
}

// seriesCache is a bounded TTL cache private to one adapter instance. Values
// are immutable after insertion; adapters copy on both sides. Expired entries
// are evicted lazily on access, no background goroutine.
type seriesCache struct {
	mu         sync.Mutex
	provider   string
	enabled    bool
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
	hits       int64
	misses     int64
}

type cacheEntry struct {
	value    interface{}
	storedAt time.Time
}

func newSeriesCache(provider string, enabled bool, ttl time.Duration, maxEntries int) *seriesCache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultCacheMaxEntries
	}
	return &seriesCache{
		provider:   provider,
		enabled:    enabled,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
	}
}

// cacheKey builds a stable key from the request triple.
func cacheKey(seriesID string, start, end time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s",
		seriesID, start.Format(dateLayout), end.Format(dateLayout))))
	return hex.EncodeToString(sum[:])
}

// get returns the cached value when present and younger than the TTL.
// A stale entry is evicted and counted as a miss.
func (c *seriesCache) get(key string) (interface{}, bool) {
	if c == nil || !c.enabled {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, exists := c.entries[key]
	if !exists {
		c.misses++
		metrics.CacheMisses.WithLabelValues(c.provider).Inc()
		return nil, false
	}
	if time.Since(entry.storedAt) >= c.ttl {
		delete(c.entries, key)
		c.misses++
		metrics.CacheMisses.WithLabelValues(c.provider).Inc()
		return nil, false
	}

	c.hits++
	metrics.CacheHits.WithLabelValues(c.provider).Inc()
	return entry.value, true
}

// put stores a value, evicting the oldest entry when at capacity.
func (c *seriesCache) put(key string, value interface{}) {
	if c == nil || !c.enabled {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.entries) >= c.maxEntries {
		c.evictOldest()
	}
	c.entries[key] = &cacheEntry{value: value, storedAt: time.Now()}
}

// evictOldest removes the entry with the earliest storedAt. Caller holds the
// lock.
func (c *seriesCache) evictOldest() {
	var oldestKey string
	var oldestAt time.Time
	for key, entry := range c.entries {
		if oldestKey == "" || entry.storedAt.Before(oldestAt) {
			oldestKey = key
			oldestAt = entry.storedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
}

// stats returns a snapshot of the cache counters.
func (c *seriesCache) stats() CacheStats {
	if c == nil {
		return CacheStats{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return CacheStats{
		Enabled: c.enabled,
		TTL:     c.ttl,
		Size:    len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// copyObservations returns a defensive copy so cached batches stay immutable.
func copyObservations(in []Observation) []Observation {
	out := make([]Observation, len(in))
	copy(out, in)
	return out
}

// copyBars returns a defensive copy of OHLCV bars.
func copyBars(in []Bar) []Bar {
	out := make([]Bar, len(in))
	copy(out, in)
	return out
}
