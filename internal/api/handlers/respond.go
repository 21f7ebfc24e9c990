package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/market"
	"github.com/wonny/paper-kospi/backend/internal/trading"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"success": false,
		"error":   message,
	})
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, market.ErrInvalidCode),
		errors.Is(err, trading.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, trading.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, trading.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, trading.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, trading.ErrInsufficientCash),
		errors.Is(err, trading.ErrInsufficientShares):
		return http.StatusUnprocessableEntity
	case errors.Is(err, market.ErrUnsupported):
		return http.StatusNotImplemented
	case errors.Is(err, trading.ErrNoPrice):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, context.Canceled):
		return 499 // client closed request
	}
	return http.StatusBadGateway
}

// respondErr writes err with its mapped status. Upstream failures hide
// the upstream message.
func respondErr(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusBadGateway {
		respondError(w, status, "upstream market data unavailable")
		return
	}
	respondError(w, status, err.Error())
}

// intParam parses a positive integer query parameter, falling back to def
func intParam(r *http.Request, name string, def int) int {
	if s := r.URL.Query().Get(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

// ========================================
// Authenticated user
// ========================================

type userKey struct{}

// WithUser stores the authenticated user in ctx
func WithUser(ctx context.Context, user contracts.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFrom returns the authenticated user from ctx
func UserFrom(ctx context.Context) (contracts.User, bool) {
	user, ok := ctx.Value(userKey{}).(contracts.User)
	return user, ok
}
