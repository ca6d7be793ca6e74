// Package app wires the shared infrastructure used by the api and worker
// binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/toko-kredit/internal/config"
	"github.com/noah-isme/toko-kredit/internal/lock"
	"github.com/noah-isme/toko-kredit/internal/notify"
	"github.com/noah-isme/toko-kredit/internal/obs"
	"github.com/noah-isme/toko-kredit/internal/purchase"
	"github.com/noah-isme/toko-kredit/internal/resilience"
)

// Dependencies enumerates the connections shared across modules.
type Dependencies struct {
	DB       *pgxpool.Pool
	Redis    *redis.Client
	TaskOpt  asynq.RedisConnOpt
	Logger   zerolog.Logger
	Config   *config.Config
	Location *time.Location
}

// Open connects to Postgres and Redis. The returned close function releases
// both.
func Open(ctx context.Context, cfg *config.Config, appName string, metrics bool, logger zerolog.Logger) (*Dependencies, func(), error) {
	pool, err := OpenPostgres(ctx, cfg.DatabaseURL, appName)
	if err != nil {
		return nil, nil, err
	}
	client, err := OpenRedis(ctx, cfg.RedisURL, metrics, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}
	taskOpt, err := asynq.ParseRedisURI(cfg.RedisURL)
	if err != nil {
		pool.Close()
		_ = client.Close()
		return nil, nil, fmt.Errorf("parse task redis url: %w", err)
	}
	loc, err := time.LoadLocation(cfg.Job.Timezone)
	if err != nil {
		pool.Close()
		_ = client.Close()
		return nil, nil, err
	}
	deps := &Dependencies{DB: pool, Redis: client, TaskOpt: taskOpt, Logger: logger, Config: cfg, Location: loc}
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
		pool.Close()
	}
	return deps, closeFn, nil
}

// OpenPostgres builds a traced pgx pool and pings it.
func OpenPostgres(ctx context.Context, databaseURL, appName string) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}
	poolConfig.ConnConfig.Tracer = obs.PGXTracer{}
	if poolConfig.ConnConfig.RuntimeParams == nil {
		poolConfig.ConnConfig.RuntimeParams = map[string]string{}
	}
	poolConfig.ConnConfig.RuntimeParams["application_name"] = appName
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// OpenRedis builds an instrumented redis client and pings it.
func OpenRedis(ctx context.Context, redisURL string, metrics bool, logger zerolog.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := redisotel.InstrumentTracing(client); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metrics {
		if err := redisotel.InstrumentMetrics(client); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// Terms maps the finance configuration onto invoice terms.
func Terms(cfg config.FinanceConfig) purchase.Terms {
	terms := purchase.DefaultTerms()
	terms.AnnualInterest = cfg.AnnualInterest
	terms.DailyPenaltyRate = cfg.DailyPenaltyRate
	terms.GraceDays = cfg.GraceDays
	if len(cfg.AllowedShares) > 0 {
		terms.AllowedShares = cfg.AllowedShares
	}
	return terms
}

// Locker builds the per-purchase redis lock.
func (d *Dependencies) Locker() lock.Locker {
	return lock.Locker{R: d.Redis, RetryBackoff: d.Config.LockRetryBackoff, MaxWait: d.Config.LockMaxWait}
}

// Purchases builds the purchase service over Postgres.
func (d *Dependencies) Purchases() *purchase.Service {
	return &purchase.Service{
		Store:    purchase.NewPGStore(d.DB),
		Locker:   d.Locker(),
		LockTTL:  d.Config.LockTTL,
		Renderer: purchase.TextRenderer{},
		Logger:   d.Logger.With().Str("component", "purchase").Logger(),
	}
}

// Notifier builds the customer email notifier.
func (d *Dependencies) Notifier() notify.Notifier {
	mail := notify.EmailNotifier{
		Mail:    notify.LogMailer{Logger: d.Logger, From: d.Config.Notify.EmailFrom},
		Enabled: d.Config.Notify.EmailEnabled,
	}
	breaker := resilience.NewBreaker(5, 0.5, time.Minute).
		WithTarget("mail").
		WithLogger(d.Logger)
	return notify.Guarded{Next: mail, Breaker: breaker}
}
