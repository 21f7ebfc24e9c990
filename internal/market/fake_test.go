package market

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/freshness"
)

var errUpstream = errors.New("upstream down")

type fakeSource struct {
	name  string
	err   error
	delay time.Duration

	quoteCalls   atomic.Int32
	chartCalls   atomic.Int32
	rankingCalls atomic.Int32

	mu      sync.Mutex
	price   int64
	candles []contracts.Candle
	ranking []contracts.StockSummary
}

func newFakeSource(name string) *fakeSource {
	return &fakeSource{name: name, price: 72_000}
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) setPrice(p int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.price = p
}

func (f *fakeSource) wait(ctx context.Context) error {
	if f.delay == 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(f.delay):
		return nil
	}
}

func (f *fakeSource) Quote(ctx context.Context, code string) (*contracts.Quote, error) {
	f.quoteCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return &contracts.Quote{Code: code, Price: f.price, Source: contracts.Source(f.name)}, nil
}

func (f *fakeSource) DailyChart(ctx context.Context, code string, period contracts.Period, bars int) (*contracts.Chart, error) {
	f.chartCalls.Add(1)
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return &contracts.Chart{
		Code:    code,
		Period:  period,
		Candles: lastN(append([]contracts.Candle(nil), f.candles...), bars),
		Source:  contracts.Source(f.name),
	}, nil
}

func (f *fakeSource) Ranking(ctx context.Context, sector string, sort contracts.ListSort) ([]contracts.StockSummary, error) {
	f.rankingCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]contracts.StockSummary(nil), f.ranking...), nil
}

// fakeClock is a manually advanced clock
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{now: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var _ freshness.Clock = (*fakeClock)(nil)

// makeCandles builds n daily candles with the given closes/volumes
func makeCandles(closes []int64, volumes []int64) []contracts.Candle {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make([]contracts.Candle, len(closes))
	for i, c := range closes {
		out[i] = contracts.Candle{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c}
		if i < len(volumes) {
			out[i].Volume = volumes[i]
		}
	}
	return out
}

func makeRanking(n int) []contracts.StockSummary {
	out := make([]contracts.StockSummary, n)
	for i := range out {
		out[i] = contracts.StockSummary{Rank: i + 1, Code: fmt.Sprintf("%06d", i+1)}
	}
	return out
}
