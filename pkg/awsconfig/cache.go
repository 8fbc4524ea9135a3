package awsconfig

import (
	"os"
	"sync"
	"time"
)

// FileCache memoizes parsed file contents keyed by path, invalidated only by a
// change in the file's modification time, never by elapsed time.
type FileCache struct {
	mu      sync.Mutex
	entries map[string]fileCacheEntry
}

type fileCacheEntry struct {
	modTime time.Time
	records []Record
}

// NewFileCache creates an empty cache. Callers construct one per process and
// share it between the parsers that read the same files.
func NewFileCache() *FileCache {
	return &FileCache{entries: map[string]fileCacheEntry{}}
}

// Get returns the cached records for path if the file still carries the
// modification time recorded at Set. A missing file always misses.
func (c *FileCache) Get(path string) ([]Record, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[path]
	if !ok || !entry.modTime.Equal(info.ModTime()) {
		return nil, false
	}
	return entry.records, true
}

// Set records the parse result together with the file's current modification
// time. The entry is replaced atomically under the cache lock.
func (c *FileCache) Set(path string, records []Record) {
	info, err := os.Stat(path)
	if err != nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[path] = fileCacheEntry{modTime: info.ModTime(), records: records}
}

// Clear drops every cached entry.
func (c *FileCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]fileCacheEntry{}
}
