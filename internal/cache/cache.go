// Package cache provides a bounded LRU cache for compiled filters.
//
// Compiling the same filter twice yields the same statement, so the
// compiler keys results by the input fingerprint and serves repeats from
// here.
//
// Features:
//   - LRU eviction for bounded memory
//   - Optional TTL expiration
//   - Safe for concurrent use
//   - Hit/miss statistics
//
// Usage:
//
//	c := cache.New[*Compiled](1000, 0)
//	key := cache.Key(fingerprint, "Person", "auto")
//	if v, ok := c.Get(key); ok {
//		return v
//	}
//	c.Put(key, compiled)
package cache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

// DefaultSize is used when a non-positive size is requested.
const DefaultSize = 1000

// Cache is an LRU cache of V values keyed by string.
//
// The cache uses:
//   - Hash map for O(1) lookups
//   - Doubly-linked list for LRU ordering
//   - TTL for expiration (0 disables it)
type Cache[V any] struct {
	mu sync.Mutex

	maxSize int
	ttl     time.Duration
	now     func() time.Time

	list  *list.List
	items map[string]*list.Element

	hits   uint64
	misses uint64
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
}

// Option configures a Cache.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock replaces time.Now for TTL checks.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a cache holding at most maxSize entries, each for at most
// ttl (0 = no expiration).
func New[V any](maxSize int, ttl time.Duration, opts ...Option) *Cache[V] {
	if maxSize <= 0 {
		maxSize = DefaultSize
	}
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Cache[V]{
		maxSize: maxSize,
		ttl:     ttl,
		now:     o.now,
		list:    list.New(),
		items:   make(map[string]*list.Element, maxSize),
	}
}

// Key joins the parts identifying one compilation into a cache key.
func Key(parts ...string) string {
	return strings.Join(parts, "|")
}

// Get returns the cached value if present and not expired, and marks it
// most recently used.
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	elem, ok := c.items[key]
	if !ok {
		c.misses++
		return zero, false
	}
	e := elem.Value.(*entry[V])
	if c.ttl > 0 && c.now().After(e.expiresAt) {
		c.removeElement(elem)
		c.misses++
		return zero, false
	}
	c.list.MoveToFront(elem)
	c.hits++
	return e.value, true
}

// Put adds or replaces a value, evicting the least recently used entry
// when the cache is full.
func (c *Cache[V]) Put(key string, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		e := elem.Value.(*entry[V])
		e.value = value
		e.expiresAt = c.expiry()
		c.list.MoveToFront(elem)
		return
	}
	for c.list.Len() >= c.maxSize {
		c.removeElement(c.list.Back())
	}
	c.items[key] = c.list.PushFront(&entry[V]{key: key, value: value, expiresAt: c.expiry()})
}

// Remove deletes an entry.
func (c *Cache[V]) Remove(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
}

// Clear removes all entries. Statistics are kept.
func (c *Cache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.list.Init()
	c.items = make(map[string]*list.Element, c.maxSize)
}

// Len returns the number of cached entries.
func (c *Cache[V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.list.Len()
}

// Stats holds cache performance statistics.
type Stats struct {
	Size    int     // Current number of entries
	MaxSize int     // Maximum capacity
	Hits    uint64  // Number of cache hits
	Misses  uint64  // Number of cache misses
	HitRate float64 // Hit rate percentage (0-100)
}

// Stats returns a snapshot of the statistics.
func (c *Cache[V]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	var rate float64
	if total := c.hits + c.misses; total > 0 {
		rate = float64(c.hits) / float64(total) * 100
	}
	return Stats{
		Size:    c.list.Len(),
		MaxSize: c.maxSize,
		Hits:    c.hits,
		Misses:  c.misses,
		HitRate: rate,
	}
}

// expiry returns the expiration time of an entry stored now.
// Caller must hold the lock.
func (c *Cache[V]) expiry() time.Time {
	if c.ttl <= 0 {
		return time.Time{}
	}
	return c.now().Add(c.ttl)
}

// removeElement unlinks elem. Caller must hold the lock.
func (c *Cache[V]) removeElement(elem *list.Element) {
	c.list.Remove(elem)
	delete(c.items, elem.Value.(*entry[V]).key)
}
