// Package tmpfiles tracks temporary capture files and deletes them when they
// expire.
//
// A Cache is an explicit instance owned by the process; nothing is persisted.
// Entries expire after a TTL (10 hours by default) and the expiry callback
// deletes the file from disk. Removing an entry also deletes its file.
package tmpfiles

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"slices"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// DefaultTTL is how long a temp file lives without being removed explicitly.
const DefaultTTL = 10 * time.Hour

// maxCleanupInterval caps how often expired entries are swept.
const maxCleanupInterval = 10 * time.Minute

// Cache is a concurrency-safe set of temp file paths with expiry.
type Cache struct {
	items  *gocache.Cache
	ttl    time.Duration
	logger *slog.Logger

	// dropping counts explicit removals in progress; the eviction callback
	// leaves those files alone.
	mu       sync.Mutex
	dropping map[string]int
}

// New returns a Cache whose entries expire after ttl. ttl <= 0 uses DefaultTTL.
func New(ttl time.Duration, logger *slog.Logger) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.Default()
	}

	c := &Cache{
		items:  gocache.New(ttl, min(ttl, maxCleanupInterval)),
		ttl:      ttl,
		logger:   logger,
		dropping: make(map[string]int),
	}
	c.items.OnEvicted(func(path string, _ interface{}) {
		c.mu.Lock()
		explicit := c.dropping[path] > 0
		c.mu.Unlock()
		if explicit {
			return
		}
		c.logger.Debug("temp file expired", "path", path)
		c.deleteFile(path)
	})
	return c
}

// TTL returns the entry lifetime.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// Add starts tracking path. Adding a tracked path restarts its TTL.
func (c *Cache) Add(path string) {
	c.items.SetDefault(path, path)
	c.logger.Debug("tracking temp file", "path", path, "ttl", c.ttl)
}

// Contains reports whether path is tracked and not expired.
func (c *Cache) Contains(path string) bool {
	_, ok := c.items.Get(path)
	return ok
}

// Remove deletes the file and stops tracking it. A file that is already
// gone is not an error.
func (c *Cache) Remove(path string) error {
	c.untrack(path)
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		err = nil
	}
	return err
}

// untrack drops path from the cache without running the expiry callback.
func (c *Cache) untrack(path string) {
	c.mu.Lock()
	c.dropping[path]++
	c.mu.Unlock()

	c.items.Delete(path)

	c.mu.Lock()
	if c.dropping[path]--; c.dropping[path] <= 0 {
		delete(c.dropping, path)
	}
	c.mu.Unlock()
}

// Len returns the number of tracked paths, including expired entries that
// have not been swept yet.
func (c *Cache) Len() int {
	return c.items.ItemCount()
}

// Paths returns the tracked, unexpired paths in sorted order.
func (c *Cache) Paths() []string {
	items := c.items.Items()
	paths := make([]string, 0, len(items))
	for path := range items {
		paths = append(paths, path)
	}
	slices.Sort(paths)
	return paths
}

// Sweep deletes expired entries and their files now instead of waiting for
// the background janitor.
func (c *Cache) Sweep() {
	c.items.DeleteExpired()
}

// Cleanup deletes every tracked file, expired or not, and empties the cache.
// It returns the number of files removed from disk.
func (c *Cache) Cleanup() int {
	removed := 0
	for path := range c.items.Items() {
		c.untrack(path)
		if c.deleteFile(path) {
			removed++
		}
	}
	c.Sweep()
	c.items.Flush()
	return removed
}

func (c *Cache) deleteFile(path string) bool {
	err := os.Remove(path)
	switch {
	case err == nil:
		return true
	case errors.Is(err, fs.ErrNotExist):
		return false
	default:
		c.logger.Warn("failed to delete temp file", "path", path, "error", err)
		return false
	}
}
