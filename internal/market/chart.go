package market

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/internal/refresh"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

const (
	DefaultChartBars = 60
	MaxChartBars     = 100
)

// ChartService serves OHLCV candles
type ChartService struct {
	source Source
	coord  *refresh.Coordinator[contracts.Chart]
}

// NewChartService creates a chart service with the given TTL
func NewChartService(source Source, ttl time.Duration, log *logger.Logger, opts ...freshness.Option) (*ChartService, error) {
	cache, err := freshness.New[string, contracts.Chart](ttl, append([]freshness.Option{freshness.WithName("chart")}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &ChartService{
		source: source,
		coord:  refresh.New(cache, refresh.WithLogger(log), refresh.WithFetchTimeout(15*time.Second)),
	}, nil
}

// Get returns the last bars candles of code, oldest first.
// bars <= 0 selects DefaultChartBars; larger than MaxChartBars is clamped.
func (s *ChartService) Get(ctx context.Context, code string, period contracts.Period, bars int) (contracts.Chart, error) {
	if !contracts.ValidCode(code) {
		return contracts.Chart{}, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	bars = clampBars(bars)

	return s.coord.Fetch(ctx, ChartKey(code, period, bars), func(ctx context.Context) (contracts.Chart, error) {
		chart, err := s.source.DailyChart(ctx, code, period, bars)
		if err != nil {
			return contracts.Chart{}, err
		}
		return *chart, nil
	})
}

// Coordinator exposes the underlying coordinator
func (s *ChartService) Coordinator() *refresh.Coordinator[contracts.Chart] {
	return s.coord
}

func clampBars(bars int) int {
	switch {
	case bars <= 0:
		return DefaultChartBars
	case bars > MaxChartBars:
		return MaxChartBars
	}
	return bars
}
