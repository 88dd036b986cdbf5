// Package cache is a thin TTL cache in front of the failure log and
// audit store, built on patrickmn/go-cache. List endpoints consult it
// so repeated polling does not reread the log on every request.
package cache

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// Cache stores expiring response payloads keyed by request shape.
type Cache struct {
	store *gocache.Cache
}

// New returns a cache whose entries expire after defaultTTL and whose
// expired entries are swept every cleanupInterval.
func New(defaultTTL, cleanupInterval time.Duration) *Cache {
	return &Cache{store: gocache.New(defaultTTL, cleanupInterval)}
}

// Get looks up a cached value; the second return reports a hit.
func (c *Cache) Get(key string) (any, bool) {
	return c.store.Get(key)
}

// Set stores value under key with the default TTL.
func (c *Cache) Set(key string, value any) {
	c.store.Set(key, value, gocache.DefaultExpiration)
}

// SetWithTTL stores value under key with an explicit TTL.
func (c *Cache) SetWithTTL(key string, value any, ttl time.Duration) {
	c.store.Set(key, value, ttl)
}

// Delete drops a single entry.
func (c *Cache) Delete(key string) {
	c.store.Delete(key)
}

// Clear drops every entry. Invoked after a reconciliation pass or a
// correction so listings never show stale failure state.
func (c *Cache) Clear() {
	c.store.Flush()
}

// ItemCount reports how many entries are currently held, expired
// entries included until the next sweep.
func (c *Cache) ItemCount() int {
	return c.store.ItemCount()
}

// Stats is the cache section of the admin stats response.
type Stats struct {
	ItemCount int `json:"item_count"`
}

// GetStats snapshots the cache for the admin endpoint.
func (c *Cache) GetStats() Stats {
	return Stats{ItemCount: c.store.ItemCount()}
}
