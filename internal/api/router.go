package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/paper-kospi/backend/internal/api/handlers"
	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/trading"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

// Authenticator verifies basic-auth credentials. *trading.Service implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (contracts.User, error)
}

// Handlers bundles every route handler
type Handlers struct {
	Stock   *handlers.StockHandler
	Trading *handlers.TradingHandler
	Market  *handlers.MarketHandler
	Stream  *handlers.StreamHandler
}

// NewRouter creates and configures the HTTP router
// ⭐ SSOT: 라우팅 설정은 이 함수에서만
func NewRouter(h Handlers, auth Authenticator, log *logger.Logger) http.Handler {
	r := mux.NewRouter()

	// Health check
	r.HandleFunc("/health", healthCheckHandler).Methods("GET")

	// Quote stream
	r.HandleFunc("/ws/quotes", h.Stream.ServeQuotes).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()

	// Market
	api.HandleFunc("/market/status", h.Market.GetStatus).Methods("GET")
	api.HandleFunc("/market/cache", h.Market.GetCacheStats).Methods("GET")

	// Stocks
	api.HandleFunc("/stocks", h.Stock.List).Methods("GET")
	api.HandleFunc("/stocks/{code}/quote", h.Stock.GetQuote).Methods("GET")
	api.HandleFunc("/stocks/{code}/chart", h.Stock.GetChart).Methods("GET")
	api.HandleFunc("/stocks/{code}/indicators", h.Stock.GetIndicators).Methods("GET")
	api.HandleFunc("/stocks/{code}/volume", h.Stock.GetVolume).Methods("GET")

	// Users
	api.HandleFunc("/users", h.Trading.Register).Methods("POST")

	// Paper trading (basic auth)
	private := api.NewRoute().Subrouter()
	private.Use(basicAuthMiddleware(auth, log))
	private.HandleFunc("/portfolio", h.Trading.GetPortfolio).Methods("GET")
	private.HandleFunc("/portfolio/performance", h.Trading.GetPerformance).Methods("GET")
	private.HandleFunc("/orders", h.Trading.PlaceOrder).Methods("POST")
	private.HandleFunc("/orders", h.Trading.GetOrders).Methods("GET")

	// Apply middleware
	r.Use(loggingMiddleware(log))
	r.Use(recoveryMiddleware(log))

	return r
}

// healthCheckHandler returns server health status
func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  "ok",
		"service": "paper-kospi-api",
	})
}

// basicAuthMiddleware resolves the caller from HTTP basic auth
func basicAuthMiddleware(auth Authenticator, log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, password, ok := r.BasicAuth()
			if !ok {
				unauthorized(w)
				return
			}

			user, err := auth.Authenticate(r.Context(), username, password)
			if err != nil {
				if !errors.Is(err, trading.ErrInvalidCredentials) {
					log.WithError(err).WithField("username", username).Error("Authentication failed")
					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
					return
				}
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(handlers.WithUser(r.Context(), user)))
		})
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", `Basic realm="paper-kospi"`)
	writeJSONError(w, http.StatusUnauthorized, "authentication required")
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"error":   msg,
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// Call next handler
			next.ServeHTTP(w, r)

			// Log request
			log.WithFields(map[string]interface{}{
				"method":   r.Method,
				"path":     r.URL.Path,
				"duration": time.Since(start),
			}).Debug("HTTP request")
		})
	}
}

// recoveryMiddleware recovers from panics
func recoveryMiddleware(log *logger.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					log.WithFields(map[string]interface{}{
						"error": err,
						"path":  r.URL.Path,
					}).Error("Panic recovered")

					writeJSONError(w, http.StatusInternalServerError, "Internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
