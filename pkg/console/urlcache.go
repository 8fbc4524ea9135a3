package console

import (
	"sync"
	"time"
)

// DefaultURLTTL caps how long a generated console URL is reused.
const DefaultURLTTL = 12 * time.Hour

// URLCache memoizes console URLs per profile. An entry dies on wall-clock
// expiry or when the credential expiry observed at lookup no longer matches
// the one recorded at set time, which catches silent credential rotation.
// Process-local only; URLs embed signin tokens and must not outlive the
// process.
type URLCache struct {
	mu         sync.Mutex
	entries    map[string]urlEntry
	defaultTTL time.Duration
	now        func() time.Time
}

type urlEntry struct {
	url              string
	expiresAt        time.Time
	credentialExpiry *time.Time
}

// Stats summarizes cache occupancy.
type Stats struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Expired int `json:"expired"`
}

// NewURLCache creates an empty cache with the default TTL.
func NewURLCache() *URLCache {
	return &URLCache{
		entries:    map[string]urlEntry{},
		defaultTTL: DefaultURLTTL,
		now:        time.Now,
	}
}

// Get returns the cached URL for profileName if it is unexpired and the
// recorded credential expiry matches currentExpiry. A mismatch evicts.
func (c *URLCache) Get(profileName string, currentExpiry *time.Time) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[profileName]
	if !ok {
		return "", false
	}

	if currentExpiry != nil && entry.credentialExpiry != nil && !entry.credentialExpiry.Equal(*currentExpiry) {
		delete(c.entries, profileName)
		return "", false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, profileName)
		return "", false
	}

	return entry.url, true
}

// Set stores url for profileName. The entry lives for the default TTL or
// until the credential expires, whichever comes first.
func (c *URLCache) Set(profileName, url string, credentialExpiry *time.Time) {
	expiresAt := c.now().Add(c.defaultTTL)
	if credentialExpiry != nil && credentialExpiry.Before(expiresAt) {
		expiresAt = *credentialExpiry
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[profileName] = urlEntry{
		url:              url,
		expiresAt:        expiresAt,
		credentialExpiry: credentialExpiry,
	}
}

// Invalidate drops the entry for profileName.
func (c *URLCache) Invalidate(profileName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, profileName)
}

// Clear drops every entry.
func (c *URLCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]urlEntry{}
}

// CacheStats counts live and expired entries.
func (c *URLCache) CacheStats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	stats := Stats{Total: len(c.entries)}
	for _, entry := range c.entries {
		if entry.expiresAt.After(now) {
			stats.Valid++
		} else {
			stats.Expired++
		}
	}
	return stats
}
