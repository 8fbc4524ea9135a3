package console

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestURLCache(now time.Time) (*URLCache, *time.Time) {
	cache := NewURLCache()
	current := now
	cache.now = func() time.Time { return current }
	return cache, &current
}

func TestURLCacheHit(t *testing.T) {
	t.Parallel()

	cache, _ := newTestURLCache(time.Now())
	expiry := time.Now().Add(time.Hour)
	cache.Set("dev", "https://console/url", &expiry)

	url, ok := cache.Get("dev", &expiry)
	require.True(t, ok)
	assert.Equal(t, "https://console/url", url)
}

func TestURLCacheMiss(t *testing.T) {
	t.Parallel()

	cache, _ := newTestURLCache(time.Now())
	_, ok := cache.Get("absent", nil)
	assert.False(t, ok)
}

func TestURLCacheExpiryMismatchEvicts(t *testing.T) {
	t.Parallel()

	cache, _ := newTestURLCache(time.Now())
	oldExpiry := time.Now().Add(time.Hour)
	cache.Set("dev", "https://console/url", &oldExpiry)

	// Credentials rotated underneath: the observed expiry moved.
	newExpiry := oldExpiry.Add(30 * time.Minute)
	_, ok := cache.Get("dev", &newExpiry)
	assert.False(t, ok)

	// Eviction is permanent, not just a filtered read.
	_, ok = cache.Get("dev", &oldExpiry)
	assert.False(t, ok)
}

func TestURLCacheWallClockExpiry(t *testing.T) {
	t.Parallel()

	start := time.Now()
	cache, current := newTestURLCache(start)
	cache.Set("dev", "https://console/url", nil)

	*current = start.Add(DefaultURLTTL - time.Minute)
	_, ok := cache.Get("dev", nil)
	assert.True(t, ok)

	*current = start.Add(DefaultURLTTL + time.Minute)
	_, ok = cache.Get("dev", nil)
	assert.False(t, ok)
}

func TestURLCacheCredentialExpiryShortensTTL(t *testing.T) {
	t.Parallel()

	start := time.Now()
	cache, current := newTestURLCache(start)

	credExpiry := start.Add(time.Hour)
	cache.Set("dev", "https://console/url", &credExpiry)

	*current = start.Add(time.Hour + time.Second)
	_, ok := cache.Get("dev", &credExpiry)
	assert.False(t, ok)
}

func TestURLCacheInvalidateAndClear(t *testing.T) {
	t.Parallel()

	cache, _ := newTestURLCache(time.Now())
	cache.Set("one", "https://console/one", nil)
	cache.Set("two", "https://console/two", nil)

	cache.Invalidate("one")
	_, ok := cache.Get("one", nil)
	assert.False(t, ok)
	_, ok = cache.Get("two", nil)
	assert.True(t, ok)

	cache.Clear()
	_, ok = cache.Get("two", nil)
	assert.False(t, ok)
}

func TestURLCacheStats(t *testing.T) {
	t.Parallel()

	start := time.Now()
	cache, current := newTestURLCache(start)

	shortExpiry := start.Add(time.Minute)
	cache.Set("short", "https://console/short", &shortExpiry)
	cache.Set("long", "https://console/long", nil)

	*current = start.Add(10 * time.Minute)
	stats := cache.CacheStats()
	assert.Equal(t, Stats{Total: 2, Valid: 1, Expired: 1}, stats)
}
