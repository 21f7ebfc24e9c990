package freshness

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(ms)
}

type quote struct {
	Price int64
}

func TestNew_RejectsNegativeTTL(t *testing.T) {
	_, err := New[string, quote](-time.Millisecond)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTTL))

	assert.Panics(t, func() { MustNew[string, quote](-1) })
}

func TestCache_ExpiryBoundary(t *testing.T) {
	clock := newFakeClock()
	c, err := New[string, quote](60*time.Second, WithClock(clock))
	require.NoError(t, err)

	c.Set("AAPL", quote{Price: 100})

	clock.Set(59_999)
	got, ok := c.Get("AAPL")
	require.True(t, ok)
	assert.Equal(t, quote{Price: 100}, got)

	clock.Set(60_000)
	_, ok = c.Get("AAPL")
	assert.True(t, ok, "age == ttl is still fresh")

	clock.Set(60_001)
	_, ok = c.Get("AAPL")
	assert.False(t, ok)
}

func TestCache_ZeroTTLNeverServes(t *testing.T) {
	clock := newFakeClock()
	c, err := New[string, int](0, WithClock(clock))
	require.NoError(t, err)

	c.Set("k", 1)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_SetReplacesAndRestampsEntry(t *testing.T) {
	clock := newFakeClock()
	c := MustNew[string, int](time.Second, WithClock(clock))

	c.Set("k", 1)
	clock.Set(900)
	c.Set("k", 2)

	clock.Set(1_500)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, 2, got)

	entry, ok := c.Entry("k")
	require.True(t, ok)
	assert.Equal(t, time.UnixMilli(900), entry.StoredAt)
}

func TestCache_ReadsDoNotExtendFreshness(t *testing.T) {
	clock := newFakeClock()
	c := MustNew[string, int](time.Second, WithClock(clock))
	c.Set("k", 1)

	for ms := int64(100); ms <= 1_000; ms += 100 {
		clock.Set(ms)
		_, ok := c.Get("k")
		require.True(t, ok, "t=%d", ms)
	}

	clock.Set(1_001)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_GetIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	c := MustNew[string, int](time.Second, WithClock(clock))
	c.Set("k", 7)

	for i := 0; i < 5; i++ {
		got, ok := c.Get("k")
		require.True(t, ok)
		assert.Equal(t, 7, got)
		assert.Equal(t, 1, c.Len())
	}

	_, ok := c.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}

func TestCache_StaleEntryEvictedOnRead(t *testing.T) {
	clock := newFakeClock()
	c := MustNew[string, int](time.Second, WithClock(clock))
	c.Set("k", 1)

	clock.Set(2_000)
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Clear(t *testing.T) {
	c := MustNew[string, int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Set("c", 3)

	c.Clear("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestCache_ClearFunc(t *testing.T) {
	c := MustNew[string, int](time.Minute)
	c.Set("portfolio:1", 1)
	c.Set("portfolio:2", 2)
	c.Set("quote:005930", 3)

	removed := c.ClearFunc(func(k string) bool { return k == "portfolio:1" || k == "portfolio:2" })
	assert.Equal(t, 2, removed)
	assert.Equal(t, 1, c.Len())
}

func TestCache_Sweep(t *testing.T) {
	clock := newFakeClock()
	c := MustNew[string, int](time.Second, WithClock(clock), WithName("quotes"))

	c.Set("old", 1)
	clock.Set(800)
	c.Set("new", 2)

	clock.Set(1_500)
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())

	_, ok := c.Get("new")
	assert.True(t, ok)

	var s Sweeper = c
	assert.Equal(t, "quotes", s.Name())
}

func TestCache_Stats(t *testing.T) {
	c := MustNew[string, int](time.Minute, WithName("charts"))
	c.Set("a", 1)
	c.Get("a")
	c.Get("a")
	c.Get("b")

	stats := c.Stats()
	assert.Equal(t, "charts", stats.Name)
	assert.Equal(t, 1, stats.Entries)
	assert.EqualValues(t, 2, stats.Hits)
	assert.EqualValues(t, 1, stats.Misses)
	assert.Equal(t, "1m0s", stats.TTL)
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := MustNew[int, int](time.Minute)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(i%10, i)
			c.Get(i % 10)
			if i%7 == 0 {
				c.Sweep()
			}
		}(i)
	}
	wg.Wait()

	assert.LessOrEqual(t, c.Len(), 10)
}

func TestCache_TTLFunc(t *testing.T) {
	clock := newFakeClock()
	open := true
	c := MustNew[string, int](time.Minute,
		WithClock(clock),
		WithTTLFunc(func(time.Time) time.Duration {
			if open {
				return 10 * time.Second
			}
			return 10 * time.Minute
		}),
	)

	c.Set("k", 1)
	clock.Set(30_000)
	_, ok := c.Get("k")
	assert.False(t, ok, "open-session ttl applies")

	c.Set("k", 2)
	open = false
	clock.Set(30_000 + 5*60_000)
	got, ok := c.Get("k")
	require.True(t, ok, "closed-session ttl applies")
	assert.Equal(t, 2, got)
	assert.Equal(t, 10*time.Minute, c.TTL())
}

func TestCache_TTLFuncNegativeFallsBack(t *testing.T) {
	clock := newFakeClock()
	c := MustNew[string, int](time.Second,
		WithClock(clock),
		WithTTLFunc(func(time.Time) time.Duration { return -1 }),
	)

	c.Set("k", 1)
	clock.Set(500)
	_, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, time.Second, c.TTL())
}
