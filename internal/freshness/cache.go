// Package freshness provides a keyed in-memory store whose entries expire a
// fixed time after they were written (absolute expiry). Reads never extend
// an entry's lifetime.
package freshness

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrInvalidTTL is returned when a cache is configured with a negative TTL
var ErrInvalidTTL = errors.New("freshness: ttl must not be negative")

// Cache is a TTL-gated map.
// ⭐ SSOT: 외부 데이터(시세/차트/지표) 신선도 판단은 여기서만
type Cache[K comparable, T any] struct {
	mu      sync.Mutex
	entries map[K]TimedEntry[T]
	ttl     time.Duration
	ttlFunc func(time.Time) time.Duration
	clock   Clock
	name    string

	hits   int64
	misses int64
}

// Option configures a Cache
type Option func(*options)

type options struct {
	clock   Clock
	name    string
	ttlFunc func(time.Time) time.Duration
}

// WithClock overrides the time source (tests, replay)
func WithClock(c Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithName labels the cache in stats and sweep logs
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithTTLFunc makes the TTL depend on the read instant, e.g. a shorter
// window while the market is open. The static ttl passed to New is used as
// the fallback when fn returns a negative duration.
func WithTTLFunc(fn func(now time.Time) time.Duration) Option {
	return func(o *options) { o.ttlFunc = fn }
}

// New creates a cache with the given time-to-live
func New[K comparable, T any](ttl time.Duration, opts ...Option) (*Cache[K, T], error) {
	if ttl < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTTL, ttl)
	}

	o := options{clock: SystemClock, name: "cache"}
	for _, opt := range opts {
		opt(&o)
	}

	return &Cache[K, T]{
		entries: make(map[K]TimedEntry[T]),
		ttl:     ttl,
		ttlFunc: o.ttlFunc,
		clock:   o.clock,
		name:    o.name,
	}, nil
}

// MustNew is New for package-level wiring where the TTL is a constant
func MustNew[K comparable, T any](ttl time.Duration, opts ...Option) *Cache[K, T] {
	c, err := New[K, T](ttl, opts...)
	if err != nil {
		panic(err)
	}
	return c
}

// Get returns the cached value if it is still within its TTL.
// A stale entry is evicted and reported as absent.
func (c *Cache[K, T]) Get(key K) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	entry, ok := c.entries[key]
	if ok && entry.FreshAt(now, c.ttlAt(now)) {
		c.hits++
		return entry.Value, true
	}

	if ok {
		delete(c.entries, key)
	}
	c.misses++

	var zero T
	return zero, false
}

// Entry returns the raw entry for key when it is fresh
func (c *Cache[K, T]) Entry(key K) (TimedEntry[T], bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	entry, ok := c.entries[key]
	if !ok || !entry.FreshAt(now, c.ttlAt(now)) {
		return TimedEntry[T]{}, false
	}
	return entry, true
}

// Set stores value under key stamped with the current time,
// replacing any previous entry.
func (c *Cache[K, T]) Set(key K, value T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = TimedEntry[T]{Value: value, StoredAt: c.clock.Now()}
}

// Clear removes the given keys, or every entry when called without keys
func (c *Cache[K, T]) Clear(keys ...K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(keys) == 0 {
		c.entries = make(map[K]TimedEntry[T])
		return
	}
	for _, key := range keys {
		delete(c.entries, key)
	}
}

// ClearFunc removes every key for which match returns true
func (c *Cache[K, T]) ClearFunc(match func(K) bool) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key := range c.entries {
		if match(key) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Sweep physically removes expired entries and returns how many were dropped.
// Expired entries already read as absent, so this is housekeeping only.
func (c *Cache[K, T]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	ttl := c.ttlAt(now)
	removed := 0
	for key, entry := range c.entries {
		if !entry.FreshAt(now, ttl) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored entries, including expired ones not yet swept
func (c *Cache[K, T]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// ttlAt returns the TTL in force at now. Caller holds c.mu.
func (c *Cache[K, T]) ttlAt(now time.Time) time.Duration {
	if c.ttlFunc != nil {
		if ttl := c.ttlFunc(now); ttl >= 0 {
			return ttl
		}
	}
	return c.ttl
}

// TTL returns the time-to-live in force right now
func (c *Cache[K, T]) TTL() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ttlAt(c.clock.Now())
}

// Clock returns the cache's time source
func (c *Cache[K, T]) Clock() Clock { return c.clock }

// Name returns the cache label
func (c *Cache[K, T]) Name() string { return c.name }

// Stats returns a snapshot of cache counters
func (c *Cache[K, T]) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Name:    c.name,
		Entries: len(c.entries),
		Hits:    c.hits,
		Misses:  c.misses,
		TTL:     c.ttlAt(c.clock.Now()).String(),
	}
}

// Stats represents cache statistics
type Stats struct {
	Name    string `json:"name"`
	Entries int    `json:"entries"`
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	TTL     string `json:"ttl"`
}

// Sweeper is implemented by every Cache regardless of type parameters,
// which lets the scheduler sweep heterogeneous caches.
type Sweeper interface {
	Name() string
	Sweep() int
	Stats() Stats
}
