package db

import (
	"container/list"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
)

const (
	DefaultCacheTTL        = 15 * time.Minute
	DefaultCacheMaxEntries = 20000
)

// cacheEntry holds a cached read result and the moment it was inserted.
type cacheEntry struct {
	key        string
	value      any
	insertedAt time.Time
	elem       *list.Element
}

// QueryCache holds read results keyed by statement text plus parameters.
// Entries expire a fixed TTL after insertion and the oldest inserted entry
// is evicted when the cache is full. Cached values are shared; callers must
// treat them as read-only.
type QueryCache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*cacheEntry
	order      *list.List // front = oldest insertion
	now        func() time.Time
}

// NewQueryCache creates a cache with the given TTL and capacity. Zero values
// fall back to the defaults.
func NewQueryCache(ttl time.Duration, maxEntries int) *QueryCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if maxEntries <= 0 {
		maxEntries = DefaultCacheMaxEntries
	}
	return &QueryCache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*cacheEntry),
		order:      list.New(),
		now:        time.Now,
	}
}

// CacheKey returns the cache key for a statement and its parameters.
func CacheKey(query string, args []any) string {
	b, err := json.Marshal(args)
	if err != nil {
		return query + fmt.Sprintf("%v", args)
	}
	return query + string(b)
}

// Get returns the cached value for key. Expired entries are dropped on read.
func (c *QueryCache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.expired(e) {
		c.remove(e)
		return nil, false
	}
	return e.value, true
}

// Set stores value under key. Writing an existing key replaces it and counts
// as a fresh insertion.
func (c *QueryCache) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
	for len(c.entries) >= c.maxEntries {
		oldest := c.order.Front()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*cacheEntry))
	}

	e := &cacheEntry{key: key, value: value, insertedAt: c.now()}
	e.elem = c.order.PushBack(e)
	c.entries[key] = e
}

// Delete removes a single key.
func (c *QueryCache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
}

// InvalidateMatching removes every entry whose key contains pattern and
// returns how many were removed. An empty pattern clears the cache.
func (c *QueryCache) InvalidateMatching(pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		c.reset()
		return n
	}
	removed := 0
	for key, e := range c.entries {
		if strings.Contains(key, pattern) {
			c.remove(e)
			removed++
		}
	}
	return removed
}

// Clear removes all entries.
func (c *QueryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset()
}

// Len returns the number of entries, including expired ones not yet swept.
func (c *QueryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep drops every expired entry and returns how many were dropped.
func (c *QueryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for e := c.order.Front(); e != nil; {
		next := e.Next()
		entry := e.Value.(*cacheEntry)
		if !c.expired(entry) {
			// Insertion order is also expiry order.
			break
		}
		c.remove(entry)
		removed++
		e = next
	}
	return removed
}

// Run sweeps the cache every interval until ctx is done.
func (c *QueryCache) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Sweep()
		}
	}
}

func (c *QueryCache) expired(e *cacheEntry) bool {
	return c.now().Sub(e.insertedAt) > c.ttl
}

func (c *QueryCache) remove(e *cacheEntry) {
	c.order.Remove(e.elem)
	delete(c.entries, e.key)
}

func (c *QueryCache) reset() {
	c.entries = make(map[string]*cacheEntry)
	c.order.Init()
}
