package websearch

import (
	"sync"
	"time"
)

// CacheConfig configures the in-memory search cache.
type CacheConfig struct {
	Enabled         bool          `json:"enabled"`
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
	MaxSize         int           `json:"max_size"`
}

// DefaultCacheConfig returns the cache defaults.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:         true,
		TTL:             24 * time.Hour,
		CleanupInterval: time.Hour,
		MaxSize:         10000,
	}
}

type cacheEntry struct {
	result     *SearchResult
	expiration time.Time
}

// CacheStats counts cache effectiveness.
type CacheStats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
	Size   int   `json:"size"`
}

// Cache is a TTL cache for search results. Plant names repeat across
// registries and runs; caching keeps the external search budget down.
type Cache struct {
	config CacheConfig
	data   map[string]*cacheEntry
	mutex  sync.RWMutex
	stats  CacheStats
}

// NewCache creates a cache and starts its cleanup loop when enabled.
func NewCache(config CacheConfig) *Cache {
	cache := &Cache{
		config: config,
		data:   make(map[string]*cacheEntry),
	}

	if config.Enabled && config.CleanupInterval > 0 {
		go cache.cleanupLoop()
	}

	return cache
}

// Get returns a cached result, expiring stale entries on read.
func (c *Cache) Get(key string) (*SearchResult, bool) {
	if !c.config.Enabled {
		return nil, false
	}

	c.mutex.RLock()
	entry, ok := c.data[key]
	c.mutex.RUnlock()

	if !ok || time.Now().After(entry.expiration) {
		c.mutex.Lock()
		if !ok {
			c.stats.Misses++
		} else {
			delete(c.data, key)
			c.stats.Misses++
		}
		c.mutex.Unlock()
		return nil, false
	}

	c.mutex.Lock()
	c.stats.Hits++
	c.mutex.Unlock()
	return entry.result, true
}

// Set stores a result. When the cache is full the expired entries are
// dropped first; if it is still full the write is skipped rather than
// evicting live entries.
func (c *Cache) Set(key string, result *SearchResult) {
	if !c.config.Enabled {
		return
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if c.config.MaxSize > 0 && len(c.data) >= c.config.MaxSize {
		c.removeExpiredLocked()
		if len(c.data) >= c.config.MaxSize {
			return
		}
	}

	c.data[key] = &cacheEntry{
		result:     result,
		expiration: time.Now().Add(c.config.TTL),
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	stats := c.stats
	stats.Size = len(c.data)
	return stats
}

func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(c.config.CleanupInterval)
	defer ticker.Stop()
	for range ticker.C {
		c.mutex.Lock()
		c.removeExpiredLocked()
		c.mutex.Unlock()
	}
}

func (c *Cache) removeExpiredLocked() {
	now := time.Now()
	for key, entry := range c.data {
		if now.After(entry.expiration) {
			delete(c.data, key)
		}
	}
}
