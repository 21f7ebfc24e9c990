package trading

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/internal/market"
	"github.com/wonny/paper-kospi/backend/internal/marketclock"
	"github.com/wonny/paper-kospi/backend/internal/refresh"
	"github.com/wonny/paper-kospi/backend/pkg/config"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
)

const (
	DefaultOrderLimit  = 50
	MaxOrderLimit      = 200
	MaxPerformanceDays = 365
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// QuoteProvider returns current prices; *market.QuoteService satisfies it
type QuoteProvider interface {
	Get(ctx context.Context, code string) (contracts.Quote, error)
}

// Service runs the paper trading account logic
// ⭐ SSOT: 모의 주문/잔고 평가는 이 서비스에서만
type Service struct {
	store      Store
	quotes     QuoteProvider
	clock      *marketclock.Clock
	cfg        config.TradingConfig
	portfolios *refresh.Coordinator[contracts.Portfolio]
	logger     *logger.Logger
	now        func() time.Time
	bcryptCost int
}

// NewService creates a trading service. portfolioTTL bounds how stale a
// valued portfolio may be; orders invalidate it immediately.
func NewService(store Store, quotes QuoteProvider, clock *marketclock.Clock, cfg config.TradingConfig, portfolioTTL time.Duration, log *logger.Logger) (*Service, error) {
	cache, err := freshness.New[string, contracts.Portfolio](portfolioTTL, freshness.WithName("portfolio"))
	if err != nil {
		return nil, err
	}

	return &Service{
		store:      store,
		quotes:     quotes,
		clock:      clock,
		cfg:        cfg,
		portfolios: refresh.New(cache, refresh.WithLogger(log)),
		logger:     log.Component("trading"),
		now:        time.Now,
		bcryptCost: bcrypt.DefaultCost,
	}, nil
}

// ========================================
// Users
// ========================================

// Register creates a user with the configured starting cash
func (s *Service) Register(ctx context.Context, username, password string) (contracts.User, error) {
	err := validation.Errors{
		"username": validation.Validate(username,
			validation.Required,
			validation.Length(3, 32),
			validation.Match(usernamePattern).Error("must contain only letters, digits and underscores"),
		),
		"password": validation.Validate(password,
			validation.Required,
			validation.Length(8, 72), // bcrypt input limit
		),
	}.Filter()
	if err != nil {
		return contracts.User{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return contracts.User{}, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.store.CreateUser(ctx, username, string(hash), s.cfg.InitialCash)
	if err != nil {
		return contracts.User{}, err
	}

	s.logger.WithFields(map[string]interface{}{
		"user_id":      user.ID,
		"username":     user.Username,
		"initial_cash": s.cfg.InitialCash,
	}).Info("User registered")

	return user, nil
}

// Authenticate checks a username/password pair
func (s *Service) Authenticate(ctx context.Context, username, password string) (contracts.User, error) {
	user, hash, err := s.store.GetCredentials(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return contracts.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return contracts.User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return contracts.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// ========================================
// Orders
// ========================================

// MaxOrderQty caps the share count of a single order
const MaxOrderQty = 1_000_000_000

// OrderRequest is a market order for immediate fill at the current quote
type OrderRequest struct {
	Code string              `json:"code"`
	Side contracts.OrderSide `json:"side"`
	Qty  int64               `json:"qty"`
}

// Validate implements validation.Validatable
func (r OrderRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required, validation.By(func(v interface{}) error {
			if !contracts.ValidCode(v.(string)) {
				return errors.New("must be a 6-digit stock code")
			}
			return nil
		})),
		validation.Field(&r.Side, validation.Required, validation.In(contracts.OrderSideBuy, contracts.OrderSideSell)),
		validation.Field(&r.Qty, validation.Required, validation.Min(int64(1)), validation.Max(int64(MaxOrderQty))),
	)
}

// PlaceOrder fills req at the current quote. Orders are accepted outside
// the regular session too; Order.MarketOpen records which it was.
func (s *Service) PlaceOrder(ctx context.Context, userID int64, req OrderRequest) (contracts.Order, error) {
	if err := req.Validate(); err != nil {
		return contracts.Order{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	quote, err := s.quotes.Get(ctx, req.Code)
	if err != nil {
		return contracts.Order{}, fmt.Errorf("get quote %s: %w", req.Code, err)
	}
	if quote.Price <= 0 {
		return contracts.Order{}, fmt.Errorf("%w: %s", ErrNoPrice, req.Code)
	}

	amount, ok := OrderAmount(quote.Price, req.Qty)
	if !ok {
		return contracts.Order{}, fmt.Errorf("%w: %d x %d overflows", ErrInvalidRequest, req.Qty, quote.Price)
	}

	now := s.now()
	order := contracts.Order{
		ID:         uuid.NewString(),
		UserID:     userID,
		Code:       req.Code,
		Name:       quote.Name,
		Side:       req.Side,
		Qty:        req.Qty,
		Price:      quote.Price,
		Amount:     amount,
		Fee:        Fee(amount, s.cfg.FeeRate),
		MarketOpen: s.clock.IsOpen(now),
		CreatedAt:  now,
	}

	if err := s.store.ExecuteOrder(ctx, &order); err != nil {
		return contracts.Order{}, err
	}

	// 체결 후 잔고 캐시 무효화
	s.portfolios.Invalidate(market.PortfolioKey(userID))

	s.logger.WithFields(map[string]interface{}{
		"order_id":    order.ID,
		"user_id":     userID,
		"code":        order.Code,
		"side":        order.Side,
		"qty":         order.Qty,
		"price":       order.Price,
		"fee":         order.Fee,
		"cash_after":  order.CashAfter,
		"market_open": order.MarketOpen,
	}).Info("Order filled")

	return order, nil
}

// Orders returns the user's most recent orders
func (s *Service) Orders(ctx context.Context, userID int64, limit int) ([]contracts.Order, error) {
	if limit <= 0 {
		limit = DefaultOrderLimit
	}
	if limit > MaxOrderLimit {
		limit = MaxOrderLimit
	}
	return s.store.ListOrders(ctx, userID, limit)
}

// ========================================
// Performance
// ========================================

// Performance returns daily snapshots of the last days days
func (s *Service) Performance(ctx context.Context, userID int64, days int) ([]contracts.Snapshot, error) {
	if days <= 0 || days > MaxPerformanceDays {
		days = MaxPerformanceDays
	}
	since := s.today().AddDate(0, 0, -days)
	return s.store.ListSnapshots(ctx, userID, since)
}

// SnapshotAll values every account and stores today's snapshot.
// It returns how many snapshots were written.
func (s *Service) SnapshotAll(ctx context.Context) (int, error) {
	ids, err := s.store.ListUserIDs(ctx)
	if err != nil {
		return 0, err
	}

	date := s.today()
	written := 0
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		p, err := s.valuate(ctx, id)
		if err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
			continue
		}

		snap := contracts.Snapshot{
			UserID:     id,
			Date:       date,
			Cash:       p.Cash,
			Evaluation: p.TotalEvaluation,
			TotalAsset: p.TotalAsset,
			ReturnRate: p.ReturnRate,
		}
		if err := s.store.SaveSnapshot(ctx, snap); err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", id, err))
			continue
		}
		written++
	}

	s.logger.WithFields(map[string]interface{}{
		"users":   len(ids),
		"written": written,
		"failed":  len(errs),
	}).Info("Portfolio snapshots saved")

	return written, errors.Join(errs...)
}

// HeldCodes returns every code held by any account
func (s *Service) HeldCodes(ctx context.Context) ([]string, error) {
	return s.store.ListHeldCodes(ctx)
}

// today is midnight of the current market date
func (s *Service) today() time.Time {
	now := s.now().In(s.clock.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}

// Portfolios exposes the portfolio cache for sweeping and stats
func (s *Service) Portfolios() *refresh.Coordinator[contracts.Portfolio] {
	return s.portfolios
}
