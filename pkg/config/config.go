package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	Database DatabaseConfig
	Redis    RedisConfig

	// External APIs
	KIS   KISConfig
	Naver NaverConfig

	Market  MarketConfig
	Cache   CacheConfig
	Trading TradingConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// KISConfig holds KIS (한국투자증권) API configuration.
// AppKey가 비어 있으면 시세는 Naver로만 조회한다.
type KISConfig struct {
	AppKey    string
	AppSecret string
	BaseURL   string
	IsVirtual bool // 모의투자 여부
}

// Enabled reports whether KIS credentials are configured
func (k KISConfig) Enabled() bool {
	return k.AppKey != "" && k.AppSecret != ""
}

// NaverConfig holds Naver Finance configuration
type NaverConfig struct {
	BaseURL  string
	ChartURL string
}

// MarketConfig describes the KRX regular session window
type MarketConfig struct {
	OpenHour  int
	CloseHour int
	Timezone  string
}

// CacheConfig holds TTLs for every data-fetching surface
type CacheConfig struct {
	QuoteOpenTTL   time.Duration // 장중 시세
	QuoteClosedTTL time.Duration // 장 마감 후 시세
	ChartTTL       time.Duration
	IndicatorTTL   time.Duration
	VolumeTTL      time.Duration
	StockListTTL   time.Duration
	PortfolioTTL   time.Duration
	RedisTTL       time.Duration // L2 (shared) quote cache
}

// TradingConfig holds paper trading parameters
type TradingConfig struct {
	InitialCash int64   // 가입 시 지급되는 가상 원화
	FeeRate     float64 // 매매 수수료율
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		KIS: KISConfig{
			AppKey:    getEnv("KIS_APP_KEY", ""),
			AppSecret: getEnv("KIS_APP_SECRET", ""),
			BaseURL:   getEnv("KIS_BASE_URL", "https://openapi.koreainvestment.com:9443"),
			IsVirtual: getEnvAsBool("KIS_IS_VIRTUAL", true),
		},

		Naver: NaverConfig{
			BaseURL:  getEnv("NAVER_BASE_URL", "https://finance.naver.com"),
			ChartURL: getEnv("NAVER_CHART_URL", "https://fchart.stock.naver.com"),
		},

		Market: MarketConfig{
			OpenHour:  getEnvAsInt("MARKET_OPEN_HOUR", 9),
			CloseHour: getEnvAsInt("MARKET_CLOSE_HOUR", 15),
			Timezone:  getEnv("MARKET_TIMEZONE", "Asia/Seoul"),
		},

		Cache: CacheConfig{
			QuoteOpenTTL:   getEnvAsDuration("CACHE_QUOTE_OPEN_TTL", "10s"),
			QuoteClosedTTL: getEnvAsDuration("CACHE_QUOTE_CLOSED_TTL", "10m"),
			ChartTTL:       getEnvAsDuration("CACHE_CHART_TTL", "1m"),
			IndicatorTTL:   getEnvAsDuration("CACHE_INDICATOR_TTL", "1m"),
			VolumeTTL:      getEnvAsDuration("CACHE_VOLUME_TTL", "1m"),
			StockListTTL:   getEnvAsDuration("CACHE_STOCK_LIST_TTL", "1m"),
			PortfolioTTL:   getEnvAsDuration("CACHE_PORTFOLIO_TTL", "5s"),
			RedisTTL:       getEnvAsDuration("CACHE_REDIS_TTL", "30s"),
		},

		Trading: TradingConfig{
			InitialCash: getEnvAsInt64("TRADING_INITIAL_CASH", 10_000_000),
			FeeRate:     getEnvAsFloat("TRADING_FEE_RATE", 0.00015),
		},

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Market.OpenHour < 0 || c.Market.CloseHour > 24 || c.Market.OpenHour >= c.Market.CloseHour {
		return fmt.Errorf("invalid market window [%d, %d)", c.Market.OpenHour, c.Market.CloseHour)
	}

	ttls := map[string]time.Duration{
		"CACHE_QUOTE_OPEN_TTL":   c.Cache.QuoteOpenTTL,
		"CACHE_QUOTE_CLOSED_TTL": c.Cache.QuoteClosedTTL,
		"CACHE_CHART_TTL":        c.Cache.ChartTTL,
		"CACHE_INDICATOR_TTL":    c.Cache.IndicatorTTL,
		"CACHE_VOLUME_TTL":       c.Cache.VolumeTTL,
		"CACHE_STOCK_LIST_TTL":   c.Cache.StockListTTL,
		"CACHE_PORTFOLIO_TTL":    c.Cache.PortfolioTTL,
		"CACHE_REDIS_TTL":        c.Cache.RedisTTL,
	}
	for name, ttl := range ttls {
		if ttl < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.Trading.InitialCash <= 0 {
		return fmt.Errorf("TRADING_INITIAL_CASH must be positive")
	}
	if c.Trading.FeeRate < 0 || c.Trading.FeeRate >= 1 {
		return fmt.Errorf("TRADING_FEE_RATE must be in [0, 1)")
	}

	return nil
}

// Location resolves the market timezone, falling back to a fixed KST offset
// when the tz database is unavailable.
func (m MarketConfig) Location() *time.Location {
	loc, err := time.LoadLocation(m.Timezone)
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}
	return loc
}

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsDuration parses a duration. A negative value is kept as-is so that
// validate() can reject it instead of silently falling back.
func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
