package market

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/internal/marketclock"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

func newTestQuoteService(t *testing.T, src Source, now time.Time) (*QuoteService, *fakeClock) {
	t.Helper()

	mc, err := marketclock.New(marketclock.DefaultConfig())
	require.NoError(t, err)

	clock := newFakeClock(now)
	policy := marketclock.TTLPolicy{Clock: mc, Open: 10 * time.Second, Closed: 10 * time.Minute}
	svc, err := NewQuoteService(src, policy, nil, 0, logger.Nop(), freshness.WithClock(clock))
	require.NoError(t, err)
	return svc, clock
}

// Monday 2024-01-15
func kst(hour, min int) time.Time {
	return time.Date(2024, 1, 15, hour, min, 0, 0, marketclock.Seoul())
}

func TestQuoteService_InvalidCode(t *testing.T) {
	src := newFakeSource("kis")
	svc, _ := newTestQuoteService(t, src, kst(10, 0))

	_, err := svc.Get(context.Background(), "5930")
	assert.ErrorIs(t, err, ErrInvalidCode)
	assert.Equal(t, int32(0), src.quoteCalls.Load())
}

func TestQuoteService_NegativePolicy(t *testing.T) {
	_, err := NewQuoteService(newFakeSource("kis"), marketclock.TTLPolicy{Open: -time.Second}, nil, 0, logger.Nop())
	assert.ErrorIs(t, err, freshness.ErrInvalidTTL)
}

func TestQuoteService_OpenSessionTTL(t *testing.T) {
	src := newFakeSource("kis")
	svc, clock := newTestQuoteService(t, src, kst(10, 0))
	ctx := context.Background()

	q, err := svc.Get(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, int64(72_000), q.Price)

	src.setPrice(73_000)
	clock.Advance(9 * time.Second)
	q, err = svc.Get(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, int64(72_000), q.Price, "served from cache within open TTL")

	clock.Advance(2 * time.Second)
	q, err = svc.Get(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, int64(73_000), q.Price)
	assert.Equal(t, int32(2), src.quoteCalls.Load())
}

func TestQuoteService_ClosedSessionTTL(t *testing.T) {
	src := newFakeSource("kis")
	svc, clock := newTestQuoteService(t, src, kst(16, 0))
	ctx := context.Background()

	_, err := svc.Get(ctx, "005930")
	require.NoError(t, err)

	clock.Advance(5 * time.Minute)
	_, err = svc.Get(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, int32(1), src.quoteCalls.Load())

	clock.Advance(6 * time.Minute)
	_, err = svc.Get(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.quoteCalls.Load())
}

func TestQuoteService_CoalescesConcurrentCalls(t *testing.T) {
	src := newFakeSource("kis")
	src.delay = 50 * time.Millisecond
	svc, _ := newTestQuoteService(t, src, kst(10, 0))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Get(context.Background(), "005930")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), src.quoteCalls.Load())
}

func TestQuoteService_FailureNotCached(t *testing.T) {
	src := newFakeSource("kis")
	src.err = errUpstream
	svc, _ := newTestQuoteService(t, src, kst(10, 0))
	ctx := context.Background()

	_, err := svc.Get(ctx, "005930")
	assert.ErrorIs(t, err, errUpstream)

	src.err = nil
	q, err := svc.Get(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, int64(72_000), q.Price)
}

func TestQuoteService_Invalidate(t *testing.T) {
	src := newFakeSource("kis")
	svc, _ := newTestQuoteService(t, src, kst(10, 0))
	ctx := context.Background()

	_, err := svc.Get(ctx, "005930")
	require.NoError(t, err)

	svc.Invalidate("005930")
	_, err = svc.Get(ctx, "005930")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.quoteCalls.Load())
}

func TestQuoteService_GetMany(t *testing.T) {
	src := newFakeSource("kis")
	svc, _ := newTestQuoteService(t, src, kst(10, 0))

	quotes, errs := svc.GetMany(context.Background(), []string{"005930", "bad", "000660"})
	assert.Len(t, quotes, 2)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs["bad"], ErrInvalidCode)
}
