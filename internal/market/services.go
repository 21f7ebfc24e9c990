package market

import (
	"fmt"

	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/internal/marketclock"
	"github.com/wonny/paper-kospi/backend/internal/refresh"
	"github.com/wonny/paper-kospi/backend/pkg/config"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
	"github.com/wonny/paper-kospi/backend/pkg/redis"
)

// Services bundles every market data surface
type Services struct {
	Quotes     *QuoteService
	Charts     *ChartService
	Indicators *IndicatorService
	Volume     *VolumeService
	Lists      *ListService
}

// NewServices wires all surfaces over one source with TTLs from config
func NewServices(cfg config.CacheConfig, source Source, clock *marketclock.Clock, l2 *redis.Cache, log *logger.Logger, opts ...freshness.Option) (*Services, error) {
	policy := marketclock.TTLPolicy{
		Clock:  clock,
		Open:   cfg.QuoteOpenTTL,
		Closed: cfg.QuoteClosedTTL,
	}

	quotes, err := NewQuoteService(source, policy, l2, cfg.RedisTTL, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("quote service: %w", err)
	}
	charts, err := NewChartService(source, cfg.ChartTTL, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("chart service: %w", err)
	}
	indicators, err := NewIndicatorService(charts, cfg.IndicatorTTL, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("indicator service: %w", err)
	}
	volume, err := NewVolumeService(charts, cfg.VolumeTTL, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("volume service: %w", err)
	}
	lists, err := NewListService(source, cfg.StockListTTL, log, opts...)
	if err != nil {
		return nil, fmt.Errorf("list service: %w", err)
	}

	return &Services{
		Quotes:     quotes,
		Charts:     charts,
		Indicators: indicators,
		Volume:     volume,
		Lists:      lists,
	}, nil
}

// Sweepers returns every cache for the sweep job
func (s *Services) Sweepers() []freshness.Sweeper {
	return []freshness.Sweeper{
		s.Quotes.Coordinator().Cache(),
		s.Charts.Coordinator().Cache(),
		s.Indicators.Coordinator().Cache(),
		s.Volume.Coordinator().Cache(),
		s.Lists.Coordinator().Cache(),
	}
}

// Stats returns coordinator stats keyed by cache name
func (s *Services) Stats() map[string]refresh.Stats {
	stats := []refresh.Stats{
		s.Quotes.Coordinator().Stats(),
		s.Charts.Coordinator().Stats(),
		s.Indicators.Coordinator().Stats(),
		s.Volume.Coordinator().Stats(),
		s.Lists.Coordinator().Stats(),
	}
	out := make(map[string]refresh.Stats, len(stats))
	for _, st := range stats {
		out[st.Cache.Name] = st
	}
	return out
}
