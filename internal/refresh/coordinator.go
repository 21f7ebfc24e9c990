// Package refresh coalesces upstream fetches behind a freshness cache: for a
// given key at most one upstream call is in flight, and every caller that
// arrives while it runs receives that call's result.
package refresh

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// Fetcher loads a fresh value from the upstream source
type Fetcher[T any] func(ctx context.Context) (T, error)

// Coordinator guards one freshness cache.
// ⭐ SSOT: 외부 API 재조회(캐시 miss → upstream) 조율은 여기서만
type Coordinator[T any] struct {
	cache   *freshness.Cache[string, T]
	group   atomic.Pointer[singleflight.Group] // Invalidate() 시 교체
	logger  *logger.Logger
	timeout time.Duration

	// generation is bumped by Invalidate; a fetch that started under an
	// older generation still answers its callers but does not populate the cache.
	generation atomic.Uint64

	upstreamCalls atomic.Int64
	failures      atomic.Int64
	shared        atomic.Int64
}

// Option configures a Coordinator
type Option func(*coordinatorOptions)

type coordinatorOptions struct {
	logger  *logger.Logger
	timeout time.Duration
}

// WithLogger sets the logger used for upstream failures
func WithLogger(log *logger.Logger) Option {
	return func(o *coordinatorOptions) { o.logger = log }
}

// WithFetchTimeout bounds each shared upstream call. The bound applies to
// the detached fetch, not to the callers waiting on it.
func WithFetchTimeout(d time.Duration) Option {
	return func(o *coordinatorOptions) { o.timeout = d }
}

// New creates a coordinator over cache
func New[T any](cache *freshness.Cache[string, T], opts ...Option) *Coordinator[T] {
	o := coordinatorOptions{logger: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	c := &Coordinator[T]{
		cache:   cache,
		logger:  o.logger.Component("refresh").WithField("cache", cache.Name()),
		timeout: o.timeout,
	}
	c.group.Store(new(singleflight.Group))
	return c
}

// Fetch returns the cached value for key, or joins/starts the single
// upstream call for it.
//
// The upstream call runs detached from ctx cancellation: a caller that gives
// up gets ctx.Err() while the fetch still completes and fills the cache for
// everyone else. Failures are returned unchanged to every waiting caller and
// are never cached.
func (c *Coordinator[T]) Fetch(ctx context.Context, key string, fetch Fetcher[T]) (T, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}

	ch := c.group.Load().DoChan(key, func() (interface{}, error) {
		// A fetch for this key may have settled between our miss and
		// singleflight registering us as the leader.
		if v, ok := c.cache.Get(key); ok {
			return v, nil
		}
		return c.load(ctx, key, fetch)
	})

	select {
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	case res := <-ch:
		if res.Shared {
			c.shared.Add(1)
		}
		if res.Err != nil {
			var zero T
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func (c *Coordinator[T]) load(ctx context.Context, key string, fetch Fetcher[T]) (T, error) {
	gen := c.generation.Load()
	c.upstreamCalls.Add(1)

	fetchCtx := context.WithoutCancel(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(fetchCtx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	v, err := fetch(fetchCtx)
	if err != nil {
		c.failures.Add(1)
		c.logger.WithError(err).WithFields(map[string]interface{}{
			"key":      key,
			"duration": time.Since(start),
		}).Warn("Upstream fetch failed")
		return v, err
	}

	if c.generation.Load() == gen {
		c.cache.Set(key, v)
	}

	c.logger.WithFields(map[string]interface{}{
		"key":      key,
		"duration": time.Since(start),
	}).Debug("Upstream fetch completed")

	return v, nil
}

// Peek returns the cached value without ever calling upstream
func (c *Coordinator[T]) Peek(key string) (T, bool) {
	return c.cache.Get(key)
}

// Invalidate drops cached values (all of them when no key is given) and
// detaches in-flight fetches so that later callers start a new one.
// Detached fetches still answer the callers already waiting on them.
func (c *Coordinator[T]) Invalidate(keys ...string) {
	c.generation.Add(1)
	c.cache.Clear(keys...)
	if len(keys) == 0 {
		c.group.Store(new(singleflight.Group))
		return
	}
	group := c.group.Load()
	for _, key := range keys {
		group.Forget(key)
	}
}

// Cache exposes the underlying cache (sweeping, stats)
func (c *Coordinator[T]) Cache() *freshness.Cache[string, T] {
	return c.cache
}

// Stats returns coordinator counters along with cache stats
func (c *Coordinator[T]) Stats() Stats {
	return Stats{
		Cache:         c.cache.Stats(),
		UpstreamCalls: c.upstreamCalls.Load(),
		Failures:      c.failures.Load(),
		SharedResults: c.shared.Load(),
	}
}

// Stats represents coordinator statistics
type Stats struct {
	Cache         freshness.Stats `json:"cache"`
	UpstreamCalls int64           `json:"upstream_calls"`
	Failures      int64           `json:"failures"`
	SharedResults int64           `json:"shared_results"`
}
