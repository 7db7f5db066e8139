package providers

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesCacheHitMissCounters(t *testing.T) {
	c := newSeriesCache("test", true, time.Minute, 8)

	_, ok := c.get("k")
	assert.False(t, ok)

	c.put("k", []Observation{{Value: 1}})
	got, ok := c.get("k")
	require.True(t, ok)
	assert.Equal(t, 1.0, got.([]Observation)[0].Value)

	stats := c.stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, 0.5, stats.HitRate)
	assert.Equal(t, 1, stats.Size)
}

func TestSeriesCacheTTLExpiry(t *testing.T) {
	c := newSeriesCache("test", true, 10*time.Millisecond, 8)

	c.put("k", []Observation{{Value: 1}})
	time.Sleep(20 * time.Millisecond)

	_, ok := c.get("k")
	assert.False(t, ok, "stale entry must read as a miss")
	assert.Equal(t, 0, c.stats().Size, "stale entry is evicted on access")
}

func TestSeriesCacheCapacity(t *testing.T) {
	c := newSeriesCache("test", true, time.Minute, 3)

	for i := 0; i < 5; i++ {
		c.put(fmt.Sprintf("k%d", i), i)
		time.Sleep(time.Millisecond) // distinct storedAt for eviction order
	}

	assert.Equal(t, 3, c.stats().Size)
	_, ok := c.get("k4")
	assert.True(t, ok, "newest entry survives")
}

func TestSeriesCacheDisabled(t *testing.T) {
	c := newSeriesCache("test", false, time.Minute, 8)

	c.put("k", 1)
	_, ok := c.get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), c.stats().Misses, "disabled cache counts nothing")
}

func TestCacheKeyStability(t *testing.T) {
	a := cacheKey("PET.RWTC.D", day(2026, 1, 1), day(2026, 1, 31))
	b := cacheKey("PET.RWTC.D", day(2026, 1, 1), day(2026, 1, 31))
	c := cacheKey("PET.RWTC.D", day(2026, 1, 2), day(2026, 1, 31))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
