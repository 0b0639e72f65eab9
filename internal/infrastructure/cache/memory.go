package cache

import (
	"sync"
	"time"
)

// cacheItem represents a single item in the cache with expiration
type cacheItem struct {
	Value      any
	Expiration time.Time
}

// MemoryCache is a thread-safe in-memory store with TTL support. The
// comparison core is stateless across runs; this store only backs
// transport-level state such as per-client rate limiters.
type MemoryCache struct {
	data  map[string]cacheItem
	mutex sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{
		data: make(map[string]cacheItem),
	}

	// Cleanup goroutine removes expired entries every 10 minutes
	go cache.cleanupExpired()

	return cache
}

// Get retrieves a value from the cache. The second return is false when
// the key is missing or expired.
func (c *MemoryCache) Get(key string) (any, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	item, exists := c.data[key]
	if !exists {
		return nil, false
	}

	if time.Now().After(item.Expiration) {
		return nil, false
	}

	return item.Value, true
}

// Set stores a value in the cache with TTL
func (c *MemoryCache) Set(key string, value any, ttl time.Duration) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.data[key] = cacheItem{
		Value:      value,
		Expiration: time.Now().Add(ttl),
	}
}

// GetOrSet returns the live value under key, storing value first when the
// key is missing or expired. The lookup and store happen under one lock so
// concurrent callers for the same key all observe the same value. The
// entry's TTL is refreshed either way.
func (c *MemoryCache) GetOrSet(key string, value any, ttl time.Duration) any {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	expiration := time.Now().Add(ttl)
	if item, exists := c.data[key]; exists && time.Now().Before(item.Expiration) {
		item.Expiration = expiration
		c.data[key] = item
		return item.Value
	}

	c.data[key] = cacheItem{
		Value:      value,
		Expiration: expiration,
	}
	return value
}

// Delete removes a value from the cache
func (c *MemoryCache) Delete(key string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	delete(c.data, key)
}

// cleanupExpired removes expired entries from the cache periodically
func (c *MemoryCache) cleanupExpired() {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mutex.Lock()
		now := time.Now()
		for key, item := range c.data {
			if now.After(item.Expiration) {
				delete(c.data, key)
			}
		}
		c.mutex.Unlock()
	}
}

// Size returns the current number of items in the cache (for debugging/monitoring)
func (c *MemoryCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.data)
}

// Clear removes all items from the cache
func (c *MemoryCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.data = make(map[string]cacheItem)
}
