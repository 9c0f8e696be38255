// Package cache is a small in-process read cache. Entries expire after a TTL
// and the least recently read entries are evicted once the cache is full.
// Writers name the keys they make stale and call Invalidate with them.
package cache

import (
	"sort"
	"sync"
	"time"
)

// Defaults used when New is given a non-positive size or TTL.
const (
	DefaultMaxSize = 1000
	DefaultTTL     = 5 * time.Minute
)

type entry struct {
	value    any
	storedAt time.Time
	lastRead time.Time
}

// Cache maps string keys to values.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	maxSize int
	ttl     time.Duration
	now     func() time.Time

	// gen counts invalidations. Load skips storing a value whose read
	// started before the latest one.
	gen uint64

	hits, misses uint64
}

// New creates a cache holding at most maxSize entries for ttl each.
func New(maxSize int, ttl time.Duration) *Cache {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]*entry),
		maxSize: maxSize,
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the value stored under key if it has not expired.
func (c *Cache) Get(key string) (any, bool) {
	if c == nil {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	now := c.now()
	if now.Sub(e.storedAt) > c.ttl {
		delete(c.entries, key)
		c.misses++
		return nil, false
	}
	e.lastRead = now
	c.hits++
	return e.value, true
}

// Set stores value under key, evicting old entries if the cache is full.
func (c *Cache) Set(key string, value any) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.store(key, value)
}

// setIfCurrent stores value only if nothing was invalidated since gen was read.
func (c *Cache) setIfCurrent(key string, value any, gen uint64) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gen == gen {
		c.store(key, value)
	}
}

func (c *Cache) generation() uint64 {
	if c == nil {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// store writes an entry. Caller holds mu.
func (c *Cache) store(key string, value any) {
	now := c.now()
	c.entries[key] = &entry{value: value, storedAt: now, lastRead: now}
	if len(c.entries) > c.maxSize {
		c.evict(max(1, c.maxSize/5))
	}
}

// Invalidate drops the given keys.
func (c *Cache) Invalidate(keys ...string) {
	if c == nil {
		return
	}

	c.mu.Lock()
	for _, k := range keys {
		delete(c.entries, k)
	}
	c.gen++
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats returns the hit and miss counters.
func (c *Cache) Stats() (hits, misses uint64) {
	if c == nil {
		return 0, 0
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.hits, c.misses
}

// evict removes the count least recently read entries. Caller holds mu.
func (c *Cache) evict(count int) {
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return c.entries[keys[i]].lastRead.Before(c.entries[keys[j]].lastRead)
	})
	for _, k := range keys[:min(count, len(keys))] {
		delete(c.entries, k)
	}
}

// Load returns the cached value for key, or calls load and caches its result.
// Errors from load are returned as is and nothing is cached. If any key is
// invalidated while load runs, the result is returned but not cached, since
// it may have been read before the write that caused the invalidation.
func Load[T any](c *Cache, key string, load func() (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	gen := c.generation()
	t, err := load()
	if err != nil {
		return t, err
	}
	c.setIfCurrent(key, t, gen)
	return t, nil
}
