package handlers

import (
	"net/http"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/market"
	"github.com/wonny/paper-kospi/backend/internal/marketclock"
)

// MarketHandler reports session status and cache health
type MarketHandler struct {
	clock    *marketclock.Clock
	services *market.Services
	now      func() time.Time
}

// NewMarketHandler creates a new market handler
func NewMarketHandler(clock *marketclock.Clock, services *market.Services) *MarketHandler {
	return &MarketHandler{
		clock:    clock,
		services: services,
		now:      time.Now,
	}
}

// GetStatus returns whether the KRX regular session is open
// GET /api/market/status
func (h *MarketHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.clock.StatusAt(h.now()))
}

// GetCacheStats returns hit/miss and upstream counters per cache
// GET /api/market/cache
func (h *MarketHandler) GetCacheStats(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.services.Stats())
}
