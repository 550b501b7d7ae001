// Package caching provides the in-process TTL cache used for CMS
// content so public pages survive short backend outages.
package caching

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/atomic"
)

// Cache wraps go-cache with hit/miss counters for the status page.
type Cache struct {
	store *gocache.Cache

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCache creates a cache with the given default TTL. Expired entries
// are swept at twice the TTL.
func NewCache(defaultTTL time.Duration) *Cache {
	return &Cache{
		store: gocache.New(defaultTTL, 2*defaultTTL),
	}
}

// Get returns the cached value for key, if present and fresh.
func (c *Cache) Get(key string) (any, bool) {
	v, ok := c.store.Get(key)
	if ok {
		c.hits.Inc()
	} else {
		c.misses.Inc()
	}
	return v, ok
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.SetDefault(key, value)
}

// SetTTL stores value under key with an explicit TTL.
func (c *Cache) SetTTL(key string, value any, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

// Delete removes key from the cache.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Flush drops every entry.
func (c *Cache) Flush() {
	c.store.Flush()
}

// Stats returns cumulative hit/miss counts and the current entry count.
func (c *Cache) Stats() (hits, misses int64, entries int) {
	return c.hits.Load(), c.misses.Load(), c.store.ItemCount()
}
