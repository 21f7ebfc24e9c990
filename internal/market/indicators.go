package market

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/internal/refresh"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// IndicatorQuery selects which indicators to compute
type IndicatorQuery struct {
	Period    contracts.Period
	Bars      int
	SMA       []int
	EMA       []int
	RSI       int  // period, 0 = skip
	MACD      bool // 12/26/9
	Bollinger int  // period, 0 = skip
}

// DefaultIndicatorQuery is used when a request names no indicator
func DefaultIndicatorQuery() IndicatorQuery {
	return IndicatorQuery{
		Period:    contracts.PeriodDay,
		Bars:      MaxChartBars,
		SMA:       []int{5, 20, 60},
		EMA:       []int{12, 26},
		RSI:       14,
		MACD:      true,
		Bollinger: 20,
	}
}

// Normalize fills defaults and canonicalises windows so equal requests
// produce equal cache keys
func (q IndicatorQuery) Normalize() IndicatorQuery {
	if len(q.SMA) == 0 && len(q.EMA) == 0 && q.RSI <= 0 && !q.MACD && q.Bollinger <= 0 {
		d := DefaultIndicatorQuery()
		d.Period, d.Bars = q.Period, q.Bars
		q = d
	}
	if q.Period == "" {
		q.Period = contracts.PeriodDay
	}
	if q.Bars <= 0 {
		q.Bars = MaxChartBars
	}
	q.Bars = clampBars(q.Bars)
	q.SMA = normaliseWindows(q.SMA)
	q.EMA = normaliseWindows(q.EMA)
	if q.RSI < 0 {
		q.RSI = 0
	}
	if q.Bollinger < 0 {
		q.Bollinger = 0
	}
	return q
}

// Indicators holds the latest indicator values. Values that need more bars
// than available are omitted.
type Indicators struct {
	Code      string             `json:"code"`
	Period    contracts.Period   `json:"period"`
	Bars      int                `json:"bars"`
	AsOf      time.Time          `json:"as_of"`
	Close     float64            `json:"close"`
	SMA       map[string]float64 `json:"sma,omitempty"`
	EMA       map[string]float64 `json:"ema,omitempty"`
	RSI       *float64           `json:"rsi,omitempty"`
	MACD      *MACDValue         `json:"macd,omitempty"`
	Bollinger *BollingerValue    `json:"bollinger,omitempty"`
}

// IndicatorService computes technical indicators from cached charts.
// Results have their own cache so repeated reads skip the math.
// ⭐ SSOT: 기술적 지표 계산은 여기서만
type IndicatorService struct {
	charts *ChartService
	coord  *refresh.Coordinator[Indicators]
}

// NewIndicatorService creates an indicator service
func NewIndicatorService(charts *ChartService, ttl time.Duration, log *logger.Logger, opts ...freshness.Option) (*IndicatorService, error) {
	cache, err := freshness.New[string, Indicators](ttl, append([]freshness.Option{freshness.WithName("indicator")}, opts...)...)
	if err != nil {
		return nil, err
	}

	return &IndicatorService{
		charts: charts,
		coord:  refresh.New(cache, refresh.WithLogger(log)),
	}, nil
}

// Get computes (or returns cached) indicators for code
func (s *IndicatorService) Get(ctx context.Context, code string, q IndicatorQuery) (Indicators, error) {
	if !contracts.ValidCode(code) {
		return Indicators{}, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}
	q = q.Normalize()

	return s.coord.Fetch(ctx, IndicatorKey(code, q), func(ctx context.Context) (Indicators, error) {
		chart, err := s.charts.Get(ctx, code, q.Period, q.Bars)
		if err != nil {
			return Indicators{}, err
		}
		return Compute(chart, q), nil
	})
}

// Coordinator exposes the underlying coordinator
func (s *IndicatorService) Coordinator() *refresh.Coordinator[Indicators] {
	return s.coord
}

// Compute evaluates q over chart
func Compute(chart contracts.Chart, q IndicatorQuery) Indicators {
	closes := chart.Closes()
	out := Indicators{
		Code:   chart.Code,
		Period: chart.Period,
		Bars:   len(closes),
	}
	if len(closes) == 0 {
		return out
	}
	out.AsOf = chart.Candles[len(chart.Candles)-1].Date
	out.Close = closes[len(closes)-1]

	for _, n := range q.SMA {
		if v, ok := SMA(closes, n); ok {
			if out.SMA == nil {
				out.SMA = make(map[string]float64)
			}
			out.SMA[strconv.Itoa(n)] = v
		}
	}
	for _, n := range q.EMA {
		if v, ok := EMA(closes, n); ok {
			if out.EMA == nil {
				out.EMA = make(map[string]float64)
			}
			out.EMA[strconv.Itoa(n)] = v
		}
	}
	if q.RSI > 0 {
		if v, ok := RSI(closes, q.RSI); ok {
			out.RSI = &v
		}
	}
	if q.MACD {
		if v, ok := MACD(closes, 12, 26, 9); ok {
			out.MACD = &v
		}
	}
	if q.Bollinger > 0 {
		if v, ok := Bollinger(closes, q.Bollinger, 2); ok {
			out.Bollinger = &v
		}
	}
	return out
}
