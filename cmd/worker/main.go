package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/toko-kredit/internal/app"
	"github.com/noah-isme/toko-kredit/internal/config"
	"github.com/noah-isme/toko-kredit/internal/jobs"
	"github.com/noah-isme/toko-kredit/internal/obs"
	"github.com/noah-isme/toko-kredit/internal/purchase"
	"github.com/noah-isme/toko-kredit/internal/resilience"
)

func main() {
	once := flag.Bool("once", false, "run a single installment pass and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger("toko-kredit-worker", logFormat, logLevel).With().Str("component", "worker").Logger()
	namespace := envOrDefault("OBS_METRICS_NAMESPACE", "toko")
	obs.MustRegisterDomainMetrics(namespace, nil)
	resilience.MustRegisterMetrics(namespace, nil)

	if strings.ToLower(envOrDefault("OBS_ENABLE_TRACING", "true")) == "true" {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName: "toko-kredit-worker",
			Endpoint:    envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:    envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			Environment: cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
		} else {
			defer func() { _ = shutdown(context.Background()) }()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, closeDeps, err := app.Open(startCtx, cfg, "toko-kredit-worker", false, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect dependencies")
	}
	defer closeDeps()

	runner := &jobs.Runner{
		Store:     purchase.NewPGStore(deps.DB),
		Purchases: deps.Purchases(),
		Notifier:  deps.Notifier(),
		BatchSize: cfg.Job.BatchSize,
		Logger:    &logger,
	}

	if *once {
		report, err := runner.RunOnce(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("installment run failed")
			closeDeps()
			os.Exit(1)
		}
		logger.Info().Interface("report", report).Msg("installment run complete")
		return
	}

	if addr := envOrDefault("WORKER_METRICS_ADDR", ":9091"); addr != "off" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsSrv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Str("addr", addr).Msg("metrics listener stopped")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	taskLogger := jobs.Logger{Z: logger}
	scheduler := asynq.NewScheduler(deps.TaskOpt, &asynq.SchedulerOpts{
		Location: deps.Location,
		Logger:   taskLogger,
	})
	entryID, err := jobs.RegisterSchedule(scheduler, cfg.Job.Cron)
	if err != nil {
		logger.Fatal().Err(err).Str("cron", cfg.Job.Cron).Msg("register installment schedule")
	}

	server := asynq.NewServer(deps.TaskOpt, asynq.Config{
		Concurrency:     cfg.Job.Concurrency,
		Queues:          map[string]int{jobs.QueueName: 1},
		Logger:          taskLogger,
		ShutdownTimeout: 30 * time.Second,
	})

	if err := scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("start scheduler")
	}
	if err := server.Start(jobs.NewServeMux(runner)); err != nil {
		logger.Fatal().Err(err).Msg("start task server")
	}
	logger.Info().
		Str("cron", cfg.Job.Cron).
		Str("timezone", cfg.Job.Timezone).
		Str("entry_id", entryID).
		Msg("worker starting")

	<-ctx.Done()
	logger.Info().Msg("worker shutting down")
	scheduler.Shutdown()
	server.Shutdown()
	logger.Info().Msg("worker shutdown complete")
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}
