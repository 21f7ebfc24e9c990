package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/trading"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// TradingService is the paper trading surface used by the handlers.
// *trading.Service implements it.
type TradingService interface {
	Register(ctx context.Context, username, password string) (contracts.User, error)
	Portfolio(ctx context.Context, userID int64) (contracts.Portfolio, error)
	PlaceOrder(ctx context.Context, userID int64, req trading.OrderRequest) (contracts.Order, error)
	Orders(ctx context.Context, userID int64, limit int) ([]contracts.Order, error)
	Performance(ctx context.Context, userID int64, days int) ([]contracts.Snapshot, error)
}

// TradingHandler handles paper trading API endpoints
type TradingHandler struct {
	service TradingService
	logger  *logger.Logger
}

// NewTradingHandler creates a new trading handler
func NewTradingHandler(service TradingService, log *logger.Logger) *TradingHandler {
	return &TradingHandler{
		service: service,
		logger:  log.Component("trading_handler"),
	}
}

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register creates a user with the initial cash balance
// POST /api/users
func (h *TradingHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		h.fail(w, r, err, "Failed to register user")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"user_id":  user.ID,
		"username": user.Username,
	}).Info("User registered")

	respondData(w, http.StatusCreated, user)
}

// GetPortfolio returns the caller's valued portfolio
// GET /api/portfolio
func (h *TradingHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	portfolio, err := h.service.Portfolio(r.Context(), user.ID)
	if err != nil {
		h.fail(w, r, err, "Failed to get portfolio")
		return
	}

	respondData(w, http.StatusOK, portfolio)
}

// PlaceOrder executes a market order at the current quote
// POST /api/orders
func (h *TradingHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	var req trading.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.PlaceOrder(r.Context(), user.ID, req)
	if err != nil {
		h.fail(w, r, err, "Failed to place order")
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"order_id": order.ID,
		"user_id":  user.ID,
		"code":     order.Code,
		"side":     order.Side,
		"qty":      order.Qty,
		"price":    order.Price,
	}).Info("Order filled")

	respondData(w, http.StatusCreated, order)
}

// GetOrders returns the caller's recent orders
// GET /api/orders?limit=50
func (h *TradingHandler) GetOrders(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	orders, err := h.service.Orders(r.Context(), user.ID, intParam(r, "limit", trading.DefaultOrderLimit))
	if err != nil {
		h.fail(w, r, err, "Failed to get orders")
		return
	}

	respondData(w, http.StatusOK, orders)
}

// GetPerformance returns daily snapshots
// GET /api/portfolio/performance?days=30
func (h *TradingHandler) GetPerformance(w http.ResponseWriter, r *http.Request) {
	user, ok := h.user(w, r)
	if !ok {
		return
	}

	snapshots, err := h.service.Performance(r.Context(), user.ID, intParam(r, "days", 30))
	if err != nil {
		h.fail(w, r, err, "Failed to get performance")
		return
	}

	respondData(w, http.StatusOK, snapshots)
}

func (h *TradingHandler) user(w http.ResponseWriter, r *http.Request) (contracts.User, bool) {
	user, ok := UserFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "authentication required")
	}
	return user, ok
}

func (h *TradingHandler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if statusFor(err) >= http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", r.URL.Path).Error(msg)
	}
	respondErr(w, err)
}
