package freshness

import "time"

// TimedEntry is a cached value plus the instant it was stored.
// Entries are never mutated; Set replaces them wholesale.
type TimedEntry[T any] struct {
	Value    T
	StoredAt time.Time
}

// Age returns how long ago the entry was stored
func (e TimedEntry[T]) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// FreshAt reports whether the entry may still be served at now.
// A zero ttl is never fresh.
func (e TimedEntry[T]) FreshAt(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		return false
	}
	return e.Age(now) <= ttl
}

// Clock is the source of "now" for a cache
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now implements Clock
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock
var SystemClock Clock = ClockFunc(time.Now)
