package main

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/toko-kredit/internal/app"
	"github.com/noah-isme/toko-kredit/internal/audit"
	"github.com/noah-isme/toko-kredit/internal/auth"
	"github.com/noah-isme/toko-kredit/internal/cart"
	"github.com/noah-isme/toko-kredit/internal/catalog"
	"github.com/noah-isme/toko-kredit/internal/checkout"
	"github.com/noah-isme/toko-kredit/internal/common"
	"github.com/noah-isme/toko-kredit/internal/config"
	"github.com/noah-isme/toko-kredit/internal/health"
	"github.com/noah-isme/toko-kredit/internal/jobs"
	"github.com/noah-isme/toko-kredit/internal/obs"
	"github.com/noah-isme/toko-kredit/internal/purchase"
	"github.com/noah-isme/toko-kredit/internal/ratelimit"
	"github.com/noah-isme/toko-kredit/internal/resilience"
	"github.com/noah-isme/toko-kredit/internal/security"
	"github.com/noah-isme/toko-kredit/internal/user"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger("toko-kredit-api", logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "toko")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)
	resilience.MustRegisterMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "toko-kredit-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			Exporter:      envOrDefault("OBS_TRACING_EXPORTER", "otlp"),
			SamplingRatio: envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0),
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				if err := shutdown(context.Background()); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	startCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	deps, closeDeps, err := app.Open(startCtx, cfg, "toko-kredit-api", metricsEnabled, logger)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("connect dependencies")
	}
	defer closeDeps()

	tokens, err := auth.NewTokenVerifier(auth.TokenConfig{
		Secret:    cfg.JWTSecret,
		Issuer:    cfg.JWTIssuer,
		Audience:  cfg.JWTAudience,
		ClockSkew: 30 * time.Second,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise token verifier")
	}
	authMiddleware := auth.Middleware{Tokens: tokens, AccessCookie: cfg.AccessCookie}
	adminOnly := auth.RequireAPIKey(cfg.AdminAPIKey)

	catalogService := catalog.NewService(catalog.ServiceConfig{
		Store:  catalog.NewPGStore(deps.DB),
		Cache:  catalog.NewCache(deps.Redis, cfg.CatalogCacheTTL),
		Logger: logger.With().Str("component", "catalog").Logger(),
	})
	catalogHandler := catalog.NewHandler(catalog.HandlerConfig{Service: catalogService})

	cartSvc := &cart.Service{R: deps.Redis, Products: catalogService, TTL: cfg.CartTTL}
	cartHandler := &cart.Handler{Svc: cartSvc}

	checkoutSvc := &checkout.Service{
		Tx:        checkout.PGTransactor{Pool: deps.DB},
		Cart:      cartSvc,
		Customers: user.NewService(deps.DB),
		Catalog:   catalogService,
		Terms:     app.Terms(cfg.Finance),
		Logger:    logger.With().Str("component", "checkout").Logger(),
	}
	checkoutHandler := &checkout.Handler{Svc: checkoutSvc}

	purchaseHandler := &purchase.Handler{Svc: deps.Purchases()}

	taskClient := asynq.NewClient(deps.TaskOpt)
	defer func() {
		if err := taskClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close task client")
		}
	}()
	jobsAdmin := &jobs.AdminHandler{Client: taskClient}

	auditRec := audit.HTTPRecorder{
		Service: &audit.Service{
			Sink:    audit.LogSink{Logger: logger.With().Str("stream", "audit").Logger()},
			Enabled: envBool("AUDIT_ENABLED", true),
		},
		OnError: func(err error) { logger.Warn().Err(err).Msg("audit record failed") },
	}
	audited := func(action string) func(http.Handler) http.Handler {
		return auditRec.Middleware(audit.HTTPConfig{Action: action, ResourceIDParam: "id"})
	}

	idem := common.Idem{R: deps.Redis, TTL: cfg.IdempotencyTTL}
	limiter := ratelimit.Limiter{Client: deps.Redis, Prefix: "ratelimit:"}
	onLimitError := func(err error) { logger.Warn().Err(err).Msg("rate limiter unavailable") }
	limit := func(scope string) func(http.Handler) http.Handler {
		return ratelimit.Handler{
			Limiter: limiter,
			Config:  ratelimit.Config{Scope: scope, Window: cfg.RateLimitWindow, Max: cfg.RateLimitMax},
			OnError: onLimitError,
		}.Middleware
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(security.Headers{
		EnableHSTS:     cfg.AppEnv == "production",
		PublicPrefixes: []string{"/api/v1/products/"},
	}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", common.IdempotencyHeader},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}
	if envBool("OBS_ENABLE_PPROF", false) {
		user := envOrDefault("SECURE_PPROF_BASIC_AUTH_USER", "")
		pass := envOrDefault("SECURE_PPROF_BASIC_AUTH_PASS", "")
		r.Mount("/debug/pprof", protectPprof(newPprofMux(), user, pass))
	}

	healthHandler := health.Handler{
		Checks:  []health.Check{health.Postgres(deps.DB), health.Redis(deps.Redis)},
		Timeout: envDurationMillis("HEALTH_READY_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Use(security.BodyLimit{Max: int64(envInt("HTTP_MAX_BODY_BYTES", 1<<20))}.Middleware)
		v.Use(security.CSRF{AccessCookie: cfg.AccessCookie}.Middleware)
		v.Get("/products/{id}", catalogHandler.ProductDetail)

		v.Group(func(authR chi.Router) {
			authR.Use(authMiddleware.RequireAuth)

			authR.Get("/cart", cartHandler.Get)
			authR.Post("/cart/items", cartHandler.AddItem)
			authR.Delete("/cart/items/{productId}", cartHandler.RemoveItem)

			authR.With(limit("checkout"), idem.Middleware, audited("checkout.create")).Post("/checkout", checkoutHandler.Checkout)

			authR.Route("/purchases", func(p chi.Router) {
				p.Get("/", purchaseHandler.List)
				p.Get("/{id}", purchaseHandler.Get)
				p.With(audited("purchase.remove")).Delete("/{id}", purchaseHandler.Remove)
				p.Get("/{id}/plan", purchaseHandler.Plan)
				p.Get("/{id}/invoice", purchaseHandler.Invoice)
				p.With(limit("pay"), idem.Middleware, audited("installment.pay")).
					Post("/{id}/installments/{installmentId}/pay", purchaseHandler.Pay)
			})
		})

		v.Route("/admin", func(admin chi.Router) {
			admin.Use(adminOnly)
			admin.With(audited("product.create")).Post("/products", catalogHandler.CreateProduct)
			admin.With(audited("installments.trigger")).Post("/jobs/installments", jobsAdmin.Trigger)
		})
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		health.SetReady(false)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("shutdown http server")
		}
	}()

	logger.Info().Str("addr", srv.Addr).Msg("server starting")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("server exited unexpectedly")
	}
	logger.Info().Msg("server stopped")
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
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

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}

func newPprofMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", pprof.Index)
	mux.HandleFunc("/cmdline", pprof.Cmdline)
	mux.HandleFunc("/profile", pprof.Profile)
	mux.HandleFunc("/symbol", pprof.Symbol)
	mux.HandleFunc("/trace", pprof.Trace)
	mux.Handle("/goroutine", pprof.Handler("goroutine"))
	mux.Handle("/heap", pprof.Handler("heap"))
	return mux
}

func protectPprof(handler http.Handler, user, pass string) http.Handler {
	user = strings.TrimSpace(user)
	pass = strings.TrimSpace(pass)
	if user == "" {
		return handler
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || subtle.ConstantTimeCompare([]byte(u), []byte(user)) != 1 || subtle.ConstantTimeCompare([]byte(p), []byte(pass)) != 1 {
			w.Header().Set("WWW-Authenticate", "Basic realm=restricted")
			http.Error(w, "unauthorised", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}
