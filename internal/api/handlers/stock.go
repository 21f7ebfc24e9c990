package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/market"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// StockHandler handles market data API endpoints
// ⭐ SSOT: 종목 시세 API 핸들러는 이 구조체에서만
type StockHandler struct {
	services *market.Services
	logger   *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(services *market.Services, log *logger.Logger) *StockHandler {
	return &StockHandler{
		services: services,
		logger:   log.Component("stock_handler"),
	}
}

// List returns a page of the ranked stock list
// GET /api/stocks?page=1&size=20&sector=&sort=volume
func (h *StockHandler) List(w http.ResponseWriter, r *http.Request) {
	sort, err := contracts.ParseListSort(r.URL.Query().Get("sort"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.services.Lists.List(r.Context(), market.ListQuery{
		Page:     intParam(r, "page", 1),
		PageSize: intParam(r, "size", market.DefaultPageSize),
		Sector:   r.URL.Query().Get("sector"),
		Sort:     sort,
	})
	if err != nil {
		h.fail(w, r, err, "Failed to get stock list")
		return
	}

	respondData(w, http.StatusOK, list)
}

// GetQuote returns the current price
// GET /api/stocks/{code}/quote
func (h *StockHandler) GetQuote(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	quote, err := h.services.Quotes.Get(r.Context(), code)
	if err != nil {
		h.fail(w, r, err, "Failed to get quote")
		return
	}

	respondData(w, http.StatusOK, quote)
}

// GetChart returns OHLCV candles
// GET /api/stocks/{code}/chart?period=D&bars=60
func (h *StockHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	period, err := contracts.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	chart, err := h.services.Charts.Get(r.Context(), code, period, intParam(r, "bars", market.DefaultChartBars))
	if err != nil {
		h.fail(w, r, err, "Failed to get chart")
		return
	}

	respondData(w, http.StatusOK, chart)
}

// GetIndicators returns technical indicators
// GET /api/stocks/{code}/indicators?period=D&sma=5,20&ema=12&rsi=14&macd=true&bb=20
func (h *StockHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	q := r.URL.Query()

	period, err := contracts.ParsePeriod(q.Get("period"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	sma, err := parseIntList(q.Get("sma"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid sma: "+err.Error())
		return
	}
	ema, err := parseIntList(q.Get("ema"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid ema: "+err.Error())
		return
	}
	macd, _ := strconv.ParseBool(q.Get("macd"))

	result, err := h.services.Indicators.Get(r.Context(), code, market.IndicatorQuery{
		Period:    period,
		Bars:      intParam(r, "bars", market.MaxChartBars),
		SMA:       sma,
		EMA:       ema,
		RSI:       intParam(r, "rsi", 0),
		MACD:      macd,
		Bollinger: intParam(r, "bb", 0),
	})
	if err != nil {
		h.fail(w, r, err, "Failed to get indicators")
		return
	}

	respondData(w, http.StatusOK, result)
}

// GetVolume returns the volume analysis
// GET /api/stocks/{code}/volume?days=20
func (h *StockHandler) GetVolume(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]

	analysis, err := h.services.Volume.Analyze(r.Context(), code, intParam(r, "days", market.DefaultVolumeDays))
	if err != nil {
		h.fail(w, r, err, "Failed to analyze volume")
		return
	}

	respondData(w, http.StatusOK, analysis)
}

func (h *StockHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	fields := map[string]interface{}{"path": r.URL.Path}
	if code := mux.Vars(r)["code"]; code != "" {
		fields["code"] = code
	}
	if statusFor(err) >= http.StatusInternalServerError {
		h.logger.WithError(err).WithFields(fields).Error(msg)
	}
	respondErr(w, err)
}

func parseIntList(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
