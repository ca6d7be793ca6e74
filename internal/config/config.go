package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
	"github.com/shopspring/decimal"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	JWTIssuer          string
	JWTAudience        string
	AccessCookie       string
	AdminAPIKey        string
	CORSAllowedOrigins []string
	IdempotencyTTL     time.Duration
	CartTTL            time.Duration
	CatalogCacheTTL    time.Duration
	LockTTL            time.Duration
	LockRetryBackoff   time.Duration
	LockMaxWait        time.Duration
	RateLimitWindow    time.Duration
	RateLimitMax       int
	Finance            FinanceConfig
	Job                JobConfig
	Notify             NotifyConfig
}

// FinanceConfig carries the credit terms snapshotted into new invoices.
type FinanceConfig struct {
	AnnualInterest   decimal.Decimal
	DailyPenaltyRate decimal.Decimal
	GraceDays        int
	AllowedShares    []int
}

// JobConfig configures the installment lifecycle run.
type JobConfig struct {
	Cron        string
	Timezone    string
	BatchSize   int
	Concurrency int
}

// NotifyConfig toggles customer email notifications.
type NotifyConfig struct {
	EmailEnabled bool
	EmailFrom    string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		JWTIssuer:          strings.TrimSpace(k.String("JWT_ISSUER")),
		JWTAudience:        strings.TrimSpace(k.String("JWT_AUDIENCE")),
		AccessCookie:       valueOrDefault(k.String("ACCESS_COOKIE"), "access_token"),
		AdminAPIKey:        strings.TrimSpace(k.String("ADMIN_API_KEY")),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		CartTTL:            parseDuration(k.String("CART_TTL"), "168h"),
		CatalogCacheTTL:    parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		LockTTL:            parseDuration(k.String("LOCK_TTL"), "30s"),
		LockRetryBackoff:   parseDuration(k.String("LOCK_RETRY_BACKOFF"), "50ms"),
		LockMaxWait:        parseDuration(k.String("LOCK_MAX_WAIT"), "5s"),
		RateLimitWindow:    parseDuration(k.String("RATE_LIMIT_WINDOW"), "1m"),
		RateLimitMax:       parseInt(k.String("RATE_LIMIT_MAX"), 30),
		Job: JobConfig{
			Cron:        valueOrDefault(k.String("INSTALLMENT_JOB_CRON"), "0 1 * * *"),
			Timezone:    valueOrDefault(k.String("INSTALLMENT_JOB_TIMEZONE"), "UTC"),
			BatchSize:   parseInt(k.String("INSTALLMENT_JOB_BATCH"), 200),
			Concurrency: parseInt(k.String("WORKER_CONCURRENCY"), 5),
		},
		Notify: NotifyConfig{
			EmailEnabled: parseBool(valueOrDefault(k.String("NOTIFY_EMAIL_ENABLED"), "true")),
			EmailFrom:    valueOrDefault(k.String("NOTIFY_EMAIL_FROM"), "billing@toko.local"),
		},
	}

	finance, err := loadFinance(k)
	if err != nil {
		return nil, err
	}
	cfg.Finance = finance

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if _, err := time.LoadLocation(cfg.Job.Timezone); err != nil {
		return nil, fmt.Errorf("INSTALLMENT_JOB_TIMEZONE: %w", err)
	}

	return cfg, nil
}

func loadFinance(k *koanf.Koanf) (FinanceConfig, error) {
	annual, err := decimal.NewFromString(valueOrDefault(k.String("FINANCE_ANNUAL_INTEREST"), "5"))
	if err != nil || annual.IsNegative() {
		return FinanceConfig{}, errors.New("FINANCE_ANNUAL_INTEREST must be a non-negative number")
	}
	penalty, err := decimal.NewFromString(valueOrDefault(k.String("FINANCE_DAILY_PENALTY_RATE"), "0.001"))
	if err != nil || penalty.IsNegative() {
		return FinanceConfig{}, errors.New("FINANCE_DAILY_PENALTY_RATE must be a non-negative number")
	}
	grace := parseInt(k.String("FINANCE_GRACE_DAYS"), 5)
	if grace < 0 {
		return FinanceConfig{}, errors.New("FINANCE_GRACE_DAYS must not be negative")
	}
	var shares []int
	for _, raw := range splitAndTrim(valueOrDefault(k.String("FINANCE_ALLOWED_SHARES"), "2,3,6,12,18,24,36")) {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 2 {
			return FinanceConfig{}, fmt.Errorf("FINANCE_ALLOWED_SHARES: invalid share %q", raw)
		}
		shares = append(shares, n)
	}
	return FinanceConfig{
		AnnualInterest:   annual,
		DailyPenaltyRate: penalty,
		GraceDays:        grace,
		AllowedShares:    shares,
	}, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func parseInt(value string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// MustLoad behaves like Load but panics on error. Useful for tests and command entrypoints.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
