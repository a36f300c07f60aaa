package ratelimit

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sync"
	"time"
)

// CacheKey derives a deterministic key from the fields that shape a
// generation response. Identical inputs always hash to the same key.
func CacheKey(prompt, provider, model string) string {
	sum := md5.Sum([]byte(fmt.Sprintf("%s|%s|%s", prompt, provider, model)))
	return hex.EncodeToString(sum[:])
}

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// Cache is an in-process TTL cache for generation responses. Expired entries
// are evicted lazily on access.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached value for key, evicting it first if expired.
func (c *Cache) Get(key string) (interface{}, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		// Recheck under the write lock; a Set may have replaced the entry.
		if cur, ok := c.entries[key]; ok && c.now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return entry.value, true
}

func (c *Cache) Set(key string, value interface{}) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(c.ttl)}
	c.mu.Unlock()
}

// Len reports live plus not-yet-evicted entries. Used for the usage endpoint.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
