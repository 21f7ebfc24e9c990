package market

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/paper-kospi/backend/internal/contracts"
	"github.com/wonny/paper-kospi/backend/internal/freshness"
	"github.com/wonny/paper-kospi/backend/internal/marketclock"
	"github.com/wonny/paper-kospi/backend/internal/refresh"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
	"github.com/wonny/paper-kospi/backend/pkg/redis"
)

// ErrInvalidCode is returned for codes that are not 6-digit KRX short codes
var ErrInvalidCode = errors.New("market: invalid stock code")

// QuoteService serves current prices. The TTL follows the session: short
// while the market is open, long after the close.
// ⭐ SSOT: 현재가 조회는 이 서비스를 통해서만
type QuoteService struct {
	source Source
	coord  *refresh.Coordinator[contracts.Quote]
	policy marketclock.TTLPolicy
	l2     *redis.Cache
	l2TTL  time.Duration
	clock  freshness.Clock
	logger *logger.Logger
}

// NewQuoteService creates a quote service. l2 may be nil or disabled.
func NewQuoteService(source Source, policy marketclock.TTLPolicy, l2 *redis.Cache, l2TTL time.Duration, log *logger.Logger, opts ...freshness.Option) (*QuoteService, error) {
	if policy.Open < 0 || policy.Closed < 0 {
		return nil, fmt.Errorf("%w: quote policy %v/%v", freshness.ErrInvalidTTL, policy.Open, policy.Closed)
	}

	opts = append([]freshness.Option{
		freshness.WithName("quote"),
		freshness.WithTTLFunc(policy.For),
	}, opts...)
	cache, err := freshness.New[string, contracts.Quote](policy.Closed, opts...)
	if err != nil {
		return nil, err
	}

	return &QuoteService{
		source: source,
		coord:  refresh.New(cache, refresh.WithLogger(log), refresh.WithFetchTimeout(10*time.Second)),
		policy: policy,
		l2:     l2,
		l2TTL:  l2TTL,
		clock:  cache.Clock(),
		logger: log.Component("quote_service"),
	}, nil
}

// Get returns the quote for code, from cache when fresh
func (s *QuoteService) Get(ctx context.Context, code string) (contracts.Quote, error) {
	if !contracts.ValidCode(code) {
		return contracts.Quote{}, fmt.Errorf("%w: %q", ErrInvalidCode, code)
	}

	key := QuoteKey(code)
	return s.coord.Fetch(ctx, key, func(ctx context.Context) (contracts.Quote, error) {
		return s.load(ctx, key, code)
	})
}

// GetMany fetches quotes for codes; failed codes are reported in errs
func (s *QuoteService) GetMany(ctx context.Context, codes []string) (map[string]contracts.Quote, map[string]error) {
	quotes := make(map[string]contracts.Quote, len(codes))
	errs := make(map[string]error)
	for _, code := range codes {
		q, err := s.Get(ctx, code)
		if err != nil {
			errs[code] = err
			continue
		}
		quotes[code] = q
	}
	return quotes, errs
}

// Invalidate drops cached quotes (all when no code is given)
func (s *QuoteService) Invalidate(codes ...string) {
	keys := make([]string, len(codes))
	for i, code := range codes {
		keys[i] = QuoteKey(code)
	}
	s.coord.Invalidate(keys...)
}

// Coordinator exposes the underlying coordinator (stats, sweeping)
func (s *QuoteService) Coordinator() *refresh.Coordinator[contracts.Quote] {
	return s.coord
}

func (s *QuoteService) load(ctx context.Context, key, code string) (contracts.Quote, error) {
	now := s.clock.Now()
	ttl := s.policy.For(now)
	if s.l2TTL > 0 && s.l2TTL < ttl {
		ttl = s.l2TTL
	}

	if s.l2.Enabled() && ttl > 0 {
		var cached contracts.Quote
		found, err := s.l2.Get(ctx, key, &cached)
		if err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("L2 quote lookup failed")
		}
		// Another instance may have written it under a longer TTL
		if found && now.Sub(cached.Timestamp) <= ttl {
			cached.Source = contracts.SourceRedis
			return cached, nil
		}
	}

	q, err := s.source.Quote(ctx, code)
	if err != nil {
		return contracts.Quote{}, err
	}
	if q.Timestamp.IsZero() {
		q.Timestamp = now
	}

	if s.l2.Enabled() && ttl > 0 {
		if err := s.l2.Set(ctx, key, q, ttl); err != nil {
			s.logger.WithError(err).WithField("key", key).Warn("L2 quote store failed")
		}
	}
	return *q, nil
}
