package market

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/external/kis"
	"github.com/wonny/paper-kospi/backend/internal/external/naver"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// Source is an upstream provider of market data
type Source interface {
	Name() string
	Quote(ctx context.Context, code string) (*contracts.Quote, error)
	DailyChart(ctx context.Context, code string, period contracts.Period, bars int) (*contracts.Chart, error)
	Ranking(ctx context.Context, sector string, sort contracts.ListSort) ([]contracts.StockSummary, error)
}

// ErrUnsupported is returned by a source that cannot serve a request shape
var ErrUnsupported = errors.New("market: not supported by source")

// ========================================
// KIS
// ========================================

// KISSource serves market data from the KIS REST API
type KISSource struct {
	client *kis.Client
	now    func() time.Time
}

// NewKISSource wraps a KIS client
func NewKISSource(client *kis.Client) *KISSource {
	return &KISSource{client: client, now: time.Now}
}

func (s *KISSource) Name() string { return "kis" }

func (s *KISSource) Quote(ctx context.Context, code string) (*contracts.Quote, error) {
	return s.client.GetQuote(ctx, code)
}

func (s *KISSource) DailyChart(ctx context.Context, code string, period contracts.Period, bars int) (*contracts.Chart, error) {
	from, to := kis.ChartWindow(period, bars, s.now())
	chart, err := s.client.GetDailyChart(ctx, code, period, from, to)
	if err != nil {
		return nil, err
	}
	chart.Candles = lastN(chart.Candles, bars)
	return chart, nil
}

func (s *KISSource) Ranking(ctx context.Context, sector string, sort contracts.ListSort) ([]contracts.StockSummary, error) {
	return s.client.GetVolumeRank(ctx, kis.VolumeRankQuery{Sector: sector, Sort: sort})
}

// ========================================
// Naver
// ========================================

// NaverSource serves market data scraped from Naver Finance
type NaverSource struct {
	client *naver.Client
	now    func() time.Time
}

// NewNaverSource wraps a Naver client
func NewNaverSource(client *naver.Client) *NaverSource {
	return &NaverSource{client: client, now: time.Now}
}

func (s *NaverSource) Name() string { return "naver" }

func (s *NaverSource) Quote(ctx context.Context, code string) (*contracts.Quote, error) {
	return s.client.FetchQuote(ctx, code)
}

func (s *NaverSource) DailyChart(ctx context.Context, code string, period contracts.Period, bars int) (*contracts.Chart, error) {
	from, to := kis.ChartWindow(period, bars, s.now())
	chart, err := s.client.FetchPrices(ctx, code, period, from, to)
	if err != nil {
		return nil, err
	}
	chart.Candles = lastN(chart.Candles, bars)
	return chart, nil
}

// Ranking supports the whole market only; Naver has no sector filter
func (s *NaverSource) Ranking(ctx context.Context, sector string, sort contracts.ListSort) ([]contracts.StockSummary, error) {
	if sector != "" {
		return nil, fmt.Errorf("%w: sector filter", ErrUnsupported)
	}
	items, err := s.client.FetchRanking(ctx, sort, 100)
	if errors.Is(err, naver.ErrUnsupportedSort) {
		return nil, fmt.Errorf("%w: %v", ErrUnsupported, err)
	}
	return items, err
}

// ========================================
// Fallback
// ========================================

// FallbackSource tries primary first and falls back to secondary on error.
// A cancelled caller context is not retried.
type FallbackSource struct {
	primary   Source
	secondary Source
	logger    *logger.Logger
}

// NewFallbackSource chains two sources
func NewFallbackSource(primary, secondary Source, log *logger.Logger) *FallbackSource {
	return &FallbackSource{
		primary:   primary,
		secondary: secondary,
		logger:    log.Component("market_source"),
	}
}

func (s *FallbackSource) Name() string {
	return s.primary.Name() + "+" + s.secondary.Name()
}

func (s *FallbackSource) Quote(ctx context.Context, code string) (*contracts.Quote, error) {
	return fallback(ctx, s, "quote", code, func(src Source) (*contracts.Quote, error) {
		return src.Quote(ctx, code)
	})
}

func (s *FallbackSource) DailyChart(ctx context.Context, code string, period contracts.Period, bars int) (*contracts.Chart, error) {
	return fallback(ctx, s, "chart", code, func(src Source) (*contracts.Chart, error) {
		return src.DailyChart(ctx, code, period, bars)
	})
}

func (s *FallbackSource) Ranking(ctx context.Context, sector string, sort contracts.ListSort) ([]contracts.StockSummary, error) {
	return fallback(ctx, s, "ranking", string(sort), func(src Source) ([]contracts.StockSummary, error) {
		return src.Ranking(ctx, sector, sort)
	})
}

func fallback[T any](ctx context.Context, s *FallbackSource, op, subject string, call func(Source) (T, error)) (T, error) {
	v, err := call(s.primary)
	if err == nil {
		return v, nil
	}
	if ctx.Err() != nil {
		return v, err
	}

	s.logger.WithError(err).WithFields(map[string]interface{}{
		"op":        op,
		"subject":   subject,
		"primary":   s.primary.Name(),
		"secondary": s.secondary.Name(),
	}).Warn("Primary source failed, falling back")

	v, err2 := call(s.secondary)
	if err2 != nil {
		return v, errors.Join(err, err2)
	}
	return v, nil
}

// NewSource builds the source chain from what is configured: KIS first
// when credentials exist, Naver always.
func NewSource(kisClient *kis.Client, naverClient *naver.Client, log *logger.Logger) Source {
	naverSrc := NewNaverSource(naverClient)
	if kisClient == nil {
		return naverSrc
	}
	return NewFallbackSource(NewKISSource(kisClient), naverSrc, log)
}

func lastN(candles []contracts.Candle, n int) []contracts.Candle {
	if n > 0 && len(candles) > n {
		return candles[len(candles)-n:]
	}
	return candles
}

// normaliseSector maps the "whole market" spellings to "" and lower-cases
// the rest
func normaliseSector(sector string) string {
	sector = strings.ToLower(strings.TrimSpace(sector))
	switch sector {
	case "", "all", "0000", "kospi":
		return ""
	}
	return sector
}
