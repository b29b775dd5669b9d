// Package cache provides the in-memory TTL cache that sits between the
// console handlers and the ProcStudio REST API.
//
// Reads check expiry themselves, so correctness never depends on the
// background janitor having run. There is no single-flight: concurrent misses
// on the same key each invoke their producer and the last one to finish wins.
package cache

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"
)

const (
	// DefaultTTL is used when Set is called with a non-positive ttl.
	DefaultTTL = 5 * time.Minute
	// DefaultSweepInterval is how often the janitor removes expired entries.
	DefaultSweepInterval = 10 * time.Minute
)

// Entry is a single cached payload.
type Entry struct {
	Value     any
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the entry is no longer valid at now.
func (e Entry) Expired(now time.Time) bool {
	return now.After(e.ExpiresAt)
}

// Producer computes a value on a cache miss.
type Producer func(ctx context.Context) (any, error)

// Cache is an in-memory TTL cache safe for concurrent access.
type Cache struct {
	mu         sync.RWMutex
	items      map[string]Entry
	defaultTTL time.Duration
	now        func() time.Time

	hits   atomic.Int64
	misses atomic.Int64

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// Option configures a Cache.
type Option func(*Cache)

// WithDefaultTTL overrides DefaultTTL.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		if ttl > 0 {
			c.defaultTTL = ttl
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs an empty Cache.
func New(opts ...Option) *Cache {
	c := &Cache{
		items:      make(map[string]Entry),
		defaultTTL: DefaultTTL,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultTTL returns the ttl applied when Set receives a non-positive one.
func (c *Cache) DefaultTTL() time.Duration { return c.defaultTTL }

// Set stores a value under key for ttl. A non-positive ttl means the default.
func (c *Cache) Set(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = Entry{Value: value, CreatedAt: now, ExpiresAt: now.Add(ttl)}
}

// Get retrieves a non-expired value for the key, returning false if missing or expired.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.RLock()
	it, ok := c.items[key]
	c.mu.RUnlock()
	if !ok {
		c.misses.Add(1)
		return nil, false
	}
	if it.Expired(c.now()) {
		c.mu.Lock()
		// Another writer may have refreshed the key since the read lock was dropped.
		if cur, ok := c.items[key]; ok && cur.Expired(c.now()) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return it.Value, true
}

// Delete removes key and reports whether an entry was present.
func (c *Cache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	delete(c.items, key)
	return ok
}

// DeletePrefix removes every entry whose key starts with prefix and returns
// how many were removed.
func (c *Cache) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.items)
	c.items = make(map[string]Entry)
	c.mu.Unlock()
	log.WithField("entries", n).Debug("cache cleared")
}

// ClearExpired removes entries whose expiry has passed and returns how many went.
func (c *Cache) ClearExpired() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for k, it := range c.items {
		if it.Expired(now) {
			delete(c.items, k)
			removed++
		}
	}
	return removed
}

// CachedCall returns the cached value for key, or runs producer and caches its
// result for ttl. Producer errors are returned unchanged and never cached.
func (c *Cache) CachedCall(ctx context.Context, key string, ttl time.Duration, producer Producer) (any, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := producer(ctx)
	if err != nil {
		return nil, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Fetch is the typed form of CachedCall. A cached value of another type is
// treated as a miss and overwritten.
func Fetch[T any](ctx context.Context, c *Cache, key string, ttl time.Duration, producer func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
		log.WithField("key", key).Warn("cached value has unexpected type, refetching")
	}
	t, err := producer(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	c.Set(key, t, ttl)
	return t, nil
}
