package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grana-finance/grana-go/internal/config"
	"github.com/grana-finance/grana-go/internal/handler"
	"github.com/grana-finance/grana-go/internal/infra/cache"
	"github.com/grana-finance/grana-go/internal/infra/observability"
	"github.com/grana-finance/grana-go/internal/infra/rates"
	"github.com/grana-finance/grana-go/internal/infra/resilience"
	"github.com/grana-finance/grana-go/internal/infra/supabase"
	"github.com/grana-finance/grana-go/internal/port"
	"github.com/grana-finance/grana-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = config.LoadDotEnv(".env")

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.Duration("jwt_access_ttl", cfg.JWTAccessTTL),
		zap.Duration("jwt_refresh_ttl", cfg.JWTRefreshTTL),
	)

	if cfg.SupabaseURL == "" {
		logger.Fatal("SUPABASE_URL is required")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "grana-api")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches ---
	// Rate lookups hit the Banco Central feed; cached in Redis when
	// available so replicas share the series, in-memory otherwise.
	var currentRateCache port.Cache[float64]
	var historyCache port.Cache[map[string]float64]
	if cfg.RedisURL != "" {
		rc, err := cache.NewRedis[float64](cfg.RedisURL, "grana:rate", cfg.CacheTTL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		hc, err := cache.NewRedis[map[string]float64](cfg.RedisURL, "grana:rate-history", cfg.RateHistoryCacheTTL)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		currentRateCache = rc
		historyCache = hc
		logger.Info("using redis cache", zap.String("redis_url", cfg.RedisURL))
	} else {
		currentRateCache = cache.New[float64](cfg.CacheTTL)
		historyCache = cache.New[map[string]float64](cfg.RateHistoryCacheTTL)
		logger.Info("using in-memory cache")
	}

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
	}
	supabaseCB := resilience.NewCircuitBreaker("supabase")
	ratesCB := resilience.NewCircuitBreaker("bcb-sgs")

	// --- Clients ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	supabaseClient := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		supabaseCB,
		resilienceCfg,
		logger,
	)

	rateSource := rates.NewCDIClient(
		httpClient,
		cfg.RateFeedURL,
		cfg.RateAnnualOverride,
		cfg.RateFallbackAnnual,
		ratesCB,
		resilienceCfg,
		currentRateCache,
		historyCache,
		metrics,
		logger,
	)

	// --- Services ---
	trackerSvc := service.NewTrackerService(
		supabaseClient,
		supabaseClient,
		supabaseClient,
		rateSource,
		metrics,
		logger,
	)
	envSvc := service.NewEnvironmentsService(supabaseClient, logger)
	authSvc := service.NewAuthService(supabaseClient, cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL, logger)

	// --- Router ---
	router := handler.NewRouter(trackerSvc, envSvc, authSvc, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
