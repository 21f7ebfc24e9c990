package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/paper-kospi/backend/internal/api/handlers"
	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/market"
	"github.com/wonny/paper-kospi/backend/internal/marketclock"
	"github.com/wonny/paper-kospi/backend/internal/trading"
	"github.com/wonny/paper-kospi/backend/pkg/config"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

type flatSource struct{}

func (flatSource) Name() string { return "flat" }

func (flatSource) Quote(ctx context.Context, code string) (*contracts.Quote, error) {
	return &contracts.Quote{Code: code, Price: 50_000, Timestamp: time.Now()}, nil
}

func (flatSource) DailyChart(ctx context.Context, code string, period contracts.Period, bars int) (*contracts.Chart, error) {
	return &contracts.Chart{Code: code, Period: period}, nil
}

func (flatSource) Ranking(ctx context.Context, sector string, sort contracts.ListSort) ([]contracts.StockSummary, error) {
	return nil, nil
}

type fakeAccounts struct {
	authErr error
}

func (f *fakeAccounts) Authenticate(ctx context.Context, username, password string) (contracts.User, error) {
	if f.authErr != nil {
		return contracts.User{}, f.authErr
	}
	if username != "wonny" || password != "secret123" {
		return contracts.User{}, trading.ErrInvalidCredentials
	}
	return contracts.User{ID: 42, Username: username}, nil
}

func (f *fakeAccounts) Register(ctx context.Context, username, password string) (contracts.User, error) {
	return contracts.User{ID: 1, Username: username}, nil
}

func (f *fakeAccounts) Portfolio(ctx context.Context, userID int64) (contracts.Portfolio, error) {
	return contracts.Portfolio{UserID: userID}, nil
}

func (f *fakeAccounts) PlaceOrder(ctx context.Context, userID int64, req trading.OrderRequest) (contracts.Order, error) {
	return contracts.Order{UserID: userID, Code: req.Code}, nil
}

func (f *fakeAccounts) Orders(ctx context.Context, userID int64, limit int) ([]contracts.Order, error) {
	return nil, nil
}

func (f *fakeAccounts) Performance(ctx context.Context, userID int64, days int) ([]contracts.Snapshot, error) {
	return nil, nil
}

func newTestRouter(t *testing.T, accounts *fakeAccounts) http.Handler {
	t.Helper()
	log := logger.Nop()

	clock, err := marketclock.New(marketclock.DefaultConfig())
	require.NoError(t, err)
	services, err := market.NewServices(config.CacheConfig{
		QuoteOpenTTL:   time.Minute,
		QuoteClosedTTL: time.Minute,
		ChartTTL:       time.Minute,
		IndicatorTTL:   time.Minute,
		VolumeTTL:      time.Minute,
		StockListTTL:   time.Minute,
	}, flatSource{}, clock, nil, log)
	require.NoError(t, err)

	return NewRouter(Handlers{
		Stock:   handlers.NewStockHandler(services, log),
		Trading: handlers.NewTradingHandler(accounts, log),
		Market:  handlers.NewMarketHandler(clock, services),
		Stream:  handlers.NewStreamHandler(services.Quotes, time.Second, log),
	}, accounts, log)
}

func TestRouter_Health(t *testing.T) {
	router := newTestRouter(t, &fakeAccounts{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestRouter_PublicRoutes(t *testing.T) {
	router := newTestRouter(t, &fakeAccounts{})

	for _, path := range []string{"/api/market/status", "/api/market/cache", "/api/stocks/005930/quote"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusOK, rec.Code, path)
	}
}

func TestRouter_BasicAuth(t *testing.T) {
	router := newTestRouter(t, &fakeAccounts{})

	tests := []struct {
		name     string
		user     string
		password string
		status   int
	}{
		{"no credentials", "", "", http.StatusUnauthorized},
		{"wrong password", "wonny", "nope", http.StatusUnauthorized},
		{"valid", "wonny", "secret123", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
			if tt.user != "" {
				req.SetBasicAuth(tt.user, tt.password)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRouter_AuthenticatedUserReachesHandler(t *testing.T) {
	router := newTestRouter(t, &fakeAccounts{})

	req := httptest.NewRequest(http.MethodGet, "/api/portfolio", nil)
	req.SetBasicAuth("wonny", "secret123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data contracts.Portfolio `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, int64(42), body.Data.UserID)
}

func TestRouter_AuthBackendFailure(t *testing.T) {
	router := newTestRouter(t, &fakeAccounts{authErr: errors.New("db down")})

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.SetBasicAuth("wonny", "secret123")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRouter_RegisterIsPublic(t *testing.T) {
	router := newTestRouter(t, &fakeAccounts{})

	req := httptest.NewRequest(http.MethodPost, "/api/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// empty body is rejected by the handler, not by auth
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
