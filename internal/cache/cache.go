package cache

import (
	"strings"
	"sync"
	"time"
)

// CachedResponse holds an upstream response body.
type CachedResponse struct {
	StatusCode int
	Body       []byte
	FetchedAt  time.Time
}

// entry wraps a cached response with expiry and insertion order tracking.
type entry struct {
	resp      *CachedResponse
	expiry    time.Time
	insertIdx int64
}

// ResponseCache caches successful GET responses from the market-data API
// so repeated page loads inside the TTL do not spend the upstream rate limit.
// Keys are "method:url" with the full query string.
type ResponseCache struct {
	mu         sync.RWMutex
	items      map[string]entry
	ttl        time.Duration
	maxEntries int
	nextIdx    int64
	now        func() time.Time
}

// New creates a ResponseCache with the given TTL and max entry count.
// A non-positive TTL or entry count disables caching.
func New(ttl time.Duration, maxEntries int) *ResponseCache {
	return &ResponseCache{
		items:      make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

// MakeKey builds a cache key from the HTTP method and request URL.
func MakeKey(method, url string) string {
	return method + ":" + url
}

// Enabled reports whether Set stores anything.
func (c *ResponseCache) Enabled() bool {
	return c != nil && c.ttl > 0 && c.maxEntries > 0
}

// Get returns a cached response if found and not expired.
func (c *ResponseCache) Get(key string) (*CachedResponse, bool) {
	if !c.Enabled() {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if !c.now().Before(e.expiry) {
		c.mu.Lock()
		if e2, ok2 := c.items[key]; ok2 && !c.now().Before(e2.expiry) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	return e.resp, true
}

// Set stores a response. Evicts the oldest entry when at capacity.
func (c *ResponseCache) Set(key string, resp *CachedResponse) {
	if !c.Enabled() {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if resp.FetchedAt.IsZero() {
		resp.FetchedAt = now
	}
	e := entry{resp: resp, expiry: now.Add(c.ttl), insertIdx: c.nextIdx}
	c.nextIdx++

	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxEntries {
		c.evictOldest()
	}
	c.items[key] = e
}

// InvalidatePrefix removes all entries whose key contains substr.
func (c *ResponseCache) InvalidatePrefix(substr string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key := range c.items {
		if strings.Contains(key, substr) {
			delete(c.items, key)
		}
	}
}

// Len returns the number of stored entries, expired ones included.
func (c *ResponseCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// evictOldest removes the entry with the lowest insertIdx. Must be called with mu held.
func (c *ResponseCache) evictOldest() {
	var oldestKey string
	var oldestIdx int64 = -1

	for key, e := range c.items {
		if oldestIdx == -1 || e.insertIdx < oldestIdx {
			oldestIdx = e.insertIdx
			oldestKey = key
		}
	}

	if oldestKey != "" {
		delete(c.items, oldestKey)
	}
}
