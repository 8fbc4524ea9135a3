// Package sso consumes the bearer tokens an external identity-provider login
// writes to its on-disk cache, and exchanges them for temporary role
// credentials. Tokens are never created, renewed or deleted here.
package sso

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	log "github.com/charmbracelet/log"
)

// DefaultMemoryTTL bounds how long a disk token is trusted in memory before
// the cache re-reads the provider's directory.
const DefaultMemoryTTL = 30 * time.Second

// Token is a provider-issued bearer token as persisted in the cache
// directory.
type Token struct {
	StartURL    string    `json:"startUrl"`
	Region      string    `json:"region,omitempty"`
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Valid reports whether the token's own expiry is still in the future.
func (t Token) Valid(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && t.ExpiresAt.After(now)
}

// TokenCache is the two-tier bearer token cache: a short-lived in-process
// tier over the provider-owned disk tier. The disk tier is read-only from
// this side.
type TokenCache struct {
	dir       string
	memoryTTL time.Duration
	now       func() time.Time

	mu     sync.Mutex
	memory map[string]memoryToken
}

type memoryToken struct {
	token    Token
	loadedAt time.Time
}

// NewTokenCache builds a cache over the provider's cache directory.
func NewTokenCache(dir string) *TokenCache {
	return &TokenCache{
		dir:       dir,
		memoryTTL: DefaultMemoryTTL,
		now:       time.Now,
		memory:    map[string]memoryToken{},
	}
}

// GetToken returns the cached token for startURL, or false when no unexpired
// token exists in either tier. Disk hits are promoted into memory.
func (c *TokenCache) GetToken(startURL string) (Token, bool) {
	now := c.now()

	if token, ok := c.fromMemory(startURL, now); ok {
		return token, true
	}

	token, ok := c.fromDisk(startURL, now)
	if !ok {
		return Token{}, false
	}

	c.mu.Lock()
	c.memory[startURL] = memoryToken{token: token, loadedAt: now}
	c.mu.Unlock()
	return token, true
}

// TokenExpiry reports whether a valid token exists for startURL and when it
// expires. Listing enrichment uses this without touching the access token.
func (c *TokenCache) TokenExpiry(startURL string) (time.Time, bool) {
	token, ok := c.GetToken(startURL)
	if !ok {
		return time.Time{}, false
	}
	return token.ExpiresAt, true
}

// Clear empties the memory tier only; the disk tier belongs to the provider.
func (c *TokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.memory = map[string]memoryToken{}
}

func (c *TokenCache) fromMemory(startURL string, now time.Time) (Token, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.memory[startURL]
	if !ok {
		return Token{}, false
	}
	if now.Sub(entry.loadedAt) >= c.memoryTTL || !entry.token.Valid(now) {
		delete(c.memory, startURL)
		return Token{}, false
	}
	return entry.token, true
}

func (c *TokenCache) fromDisk(startURL string, now time.Time) (Token, bool) {
	if _, err := os.Stat(c.dir); err != nil {
		return Token{}, false
	}

	// Fast path: the provider names cache files after the SHA1 of the start
	// URL.
	if token, ok := c.readTokenFile(c.hashedPath(startURL), now); ok && token.matches(startURL) {
		return token, true
	}

	// Slow path: scan every cache file and match on content.
	paths, err := filepath.Glob(filepath.Join(c.dir, "*.json"))
	if err != nil {
		return Token{}, false
	}
	for _, path := range paths {
		token, ok := c.readTokenFile(path, now)
		if ok && token.StartURL == startURL {
			return token, true
		}
	}
	return Token{}, false
}

// matches accepts hashed-path hits whose payload omits startUrl; the filename
// already identified them.
func (t Token) matches(startURL string) bool {
	return t.StartURL == "" || t.StartURL == startURL
}

func (c *TokenCache) hashedPath(startURL string) string {
	sum := sha1.Sum([]byte(startURL))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}

func (c *TokenCache) readTokenFile(path string, now time.Time) (Token, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Token{}, false
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		log.Debug("skipping unreadable token cache file", "path", path, "err", err)
		return Token{}, false
	}
	if token.AccessToken == "" || !token.Valid(now) {
		return Token{}, false
	}
	return token, true
}
