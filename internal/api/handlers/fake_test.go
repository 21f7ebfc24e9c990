package handlers

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/market"
	"github.com/wonny/paper-kospi/backend/internal/marketclock"
	"github.com/wonny/paper-kospi/backend/internal/trading"
	"github.com/wonny/paper-kospi/backend/pkg/config"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

var errUpstream = errors.New("kis: connection refused")

// stubSource serves deterministic market data
type stubSource struct {
	mu  sync.Mutex
	err error
}

func (s *stubSource) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *stubSource) failure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Quote(ctx context.Context, code string) (*contracts.Quote, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}
	return &contracts.Quote{
		Code:      code,
		Name:      "삼성전자",
		Price:     72_000,
		Volume:    1_000_000,
		Timestamp: time.Now(),
		Source:    contracts.SourceKISREST,
	}, nil
}

func (s *stubSource) DailyChart(ctx context.Context, code string, period contracts.Period, bars int) (*contracts.Chart, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, marketclock.Seoul())
	candles := make([]contracts.Candle, bars)
	for i := range candles {
		price := int64(70_000 + i*100)
		candles[i] = contracts.Candle{
			Date:   start.AddDate(0, 0, i),
			Open:   price,
			High:   price + 500,
			Low:    price - 500,
			Close:  price,
			Volume: int64(100_000 + i*1_000),
		}
	}
	return &contracts.Chart{Code: code, Period: period, Candles: candles, Source: contracts.SourceKISREST}, nil
}

func (s *stubSource) Ranking(ctx context.Context, sector string, sort contracts.ListSort) ([]contracts.StockSummary, error) {
	if err := s.failure(); err != nil {
		return nil, err
	}
	codes := []string{"005930", "000660", "035420", "005380", "051910"}
	out := make([]contracts.StockSummary, len(codes))
	for i, code := range codes {
		out[i] = contracts.StockSummary{Rank: i + 1, Code: code, Price: 10_000, Volume: int64(5-i) * 1_000}
	}
	return out, nil
}

func newTestServices(t *testing.T, source market.Source) *market.Services {
	t.Helper()

	clock, err := marketclock.New(marketclock.DefaultConfig())
	require.NoError(t, err)

	services, err := market.NewServices(config.CacheConfig{
		QuoteOpenTTL:   time.Minute,
		QuoteClosedTTL: time.Minute,
		ChartTTL:       time.Minute,
		IndicatorTTL:   time.Minute,
		VolumeTTL:      time.Minute,
		StockListTTL:   time.Minute,
	}, source, clock, nil, logger.Nop())
	require.NoError(t, err)
	return services
}

// stubTrading records calls and returns canned results
type stubTrading struct {
	err      error
	lastUser int64
	lastReq  trading.OrderRequest
}

func (s *stubTrading) Register(ctx context.Context, username, password string) (contracts.User, error) {
	if s.err != nil {
		return contracts.User{}, s.err
	}
	return contracts.User{ID: 1, Username: username}, nil
}

func (s *stubTrading) Portfolio(ctx context.Context, userID int64) (contracts.Portfolio, error) {
	s.lastUser = userID
	if s.err != nil {
		return contracts.Portfolio{}, s.err
	}
	return contracts.Portfolio{UserID: userID, Cash: 10_000_000, InitialCash: 10_000_000, TotalAsset: 10_000_000}, nil
}

func (s *stubTrading) PlaceOrder(ctx context.Context, userID int64, req trading.OrderRequest) (contracts.Order, error) {
	s.lastUser = userID
	s.lastReq = req
	if s.err != nil {
		return contracts.Order{}, s.err
	}
	return contracts.Order{ID: "ord-1", UserID: userID, Code: req.Code, Side: req.Side, Qty: req.Qty, Price: 72_000}, nil
}

func (s *stubTrading) Orders(ctx context.Context, userID int64, limit int) ([]contracts.Order, error) {
	s.lastUser = userID
	return []contracts.Order{{ID: "ord-1", UserID: userID}}, s.err
}

func (s *stubTrading) Performance(ctx context.Context, userID int64, days int) ([]contracts.Snapshot, error) {
	s.lastUser = userID
	return []contracts.Snapshot{}, s.err
}
