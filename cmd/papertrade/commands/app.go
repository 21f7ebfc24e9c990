package commands

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/paper-kospi/backend/internal/external/kis"
	"github.com/wonny/paper-kospi/backend/internal/external/naver"
	"github.com/wonny/paper-kospi/backend/internal/market"
	"github.com/wonny/paper-kospi/backend/internal/marketclock"
	"github.com/wonny/paper-kospi/backend/internal/trading"
	"github.com/wonny/paper-kospi/backend/pkg/config"
	"github.com/wonny/paper-kospi/backend/pkg/database"
	"github.com/wonny/paper-kospi/backend/pkg/httputil"
	"github.com/wonny/paper-kospi/backend/pkg/logger"
	"github.com/wonny/paper-kospi/backend/pkg/redis"
)

// app holds every wired dependency shared by the commands
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	db      *database.DB
	redis   *redis.Client
	clock   *marketclock.Clock
	market  *market.Services
	trading *trading.Service
}

// newApp loads config and wires the market and trading services.
// withDB=false skips the database (market-only commands).
func newApp(withDB bool) (*app, error) {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	a := &app{cfg: cfg, log: log}

	// 3. Market clock
	a.clock, err = marketClock(cfg.Market)
	if err != nil {
		return nil, err
	}

	// 4. Redis (optional L2 cache + shared rate limit)
	a.redis, err = redis.New(cfg.Redis)
	if err != nil {
		log.WithError(err).Warn("Redis unavailable, continuing without L2 cache")
		a.redis = redis.Disabled()
	}

	// 5. External clients
	source := market.NewSource(a.kisClient(), a.naverClient(), log)
	log.WithField("source", source.Name()).Info("Market data source ready")

	// 6. Market services
	l2 := redis.NewCache(a.redis, "paper")
	a.market, err = market.NewServices(cfg.Cache, source, a.clock, l2, log)
	if err != nil {
		return nil, fmt.Errorf("market services: %w", err)
	}

	if !withDB {
		return a, nil
	}

	// 7. Database + trading
	a.db, err = database.New(cfg)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("Connected to database")

	a.trading, err = trading.NewService(
		trading.NewRepository(a.db.Pool),
		a.market.Quotes,
		a.clock,
		cfg.Trading,
		cfg.Cache.PortfolioTTL,
		log,
	)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("trading service: %w", err)
	}

	return a, nil
}

// marketClock builds the session clock; weekends stay closed
func marketClock(cfg config.MarketConfig) (*marketclock.Clock, error) {
	clockCfg := marketclock.DefaultConfig()
	clockCfg.OpenHour = cfg.OpenHour
	clockCfg.CloseHour = cfg.CloseHour
	clockCfg.Location = cfg.Location()

	clock, err := marketclock.New(clockCfg)
	if err != nil {
		return nil, fmt.Errorf("market clock: %w", err)
	}
	return clock, nil
}

// kisClient returns nil when no KIS credentials are configured
func (a *app) kisClient() *kis.Client {
	if !a.cfg.KIS.Enabled() {
		a.log.Info("KIS credentials not set, using Naver only")
		return nil
	}
	return kis.NewClient(a.cfg.KIS, a.limitedHTTP(redis.KISRateLimit), a.log)
}

func (a *app) naverClient() *naver.Client {
	return naver.NewClient(a.cfg.Naver, a.limitedHTTP(redis.NaverRateLimit), a.log)
}

// limitedHTTP builds an HTTP client limited per upstream. With redis the
// limit is shared across processes; otherwise it is a local token bucket.
func (a *app) limitedHTTP(limit redis.RateLimitConfig) *httputil.Client {
	client := httputil.New(a.log)
	if a.redis.Enabled() {
		return client.WithRateLimiter(redis.NewRateLimiter(a.redis, "paper"), limit)
	}
	every := rate.Every(limit.Window / time.Duration(limit.Limit))
	return client.WithLimiter(rate.NewLimiter(every, 1))
}

func (a *app) close() {
	if a.db != nil {
		a.db.Close()
	}
	if a.redis != nil {
		a.redis.Close()
	}
}
