package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/catalog"
	"github.com/boddenberg/checkout-bfa-go/internal/config"
	"github.com/boddenberg/checkout-bfa-go/internal/coupon"
	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/handler"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/cache"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/client"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/observability"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/redisstore"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/checkout-bfa-go/internal/port"
	"github.com/boddenberg/checkout-bfa-go/internal/service"

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

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("session_ttl", cfg.SessionTTL),
		zap.Bool("empty_state", cfg.EnableEmptyState),
		zap.String("default_issuer", cfg.DefaultIssuer),
		zap.String("default_plan", cfg.DefaultPlan),
		zap.Bool("redis", cfg.RedisAddr != ""),
		zap.Bool("handoff_webhook", cfg.HandoffWebhookURL != ""),
		zap.Bool("tracing", cfg.TracingEnabled),
	)

	// --- Tracing ---
	endpoint := ""
	if cfg.TracingEnabled {
		endpoint = cfg.OTLPEndpoint
	}
	shutdown, err := observability.InitTracer(endpoint, "checkout-bfa")
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Catalog & coupons ---
	cat, err := catalog.Default(catalog.Options{
		DefaultIssuer: cfg.DefaultIssuer,
		DefaultPlan:   cfg.DefaultPlan,
		EmptyState:    cfg.EnableEmptyState,
	})
	if err != nil {
		logger.Fatal("invalid plan catalog", zap.Error(err))
	}

	coupons := coupon.DefaultRegistry()
	if cfg.CouponCodes != "" {
		if coupons, err = coupon.ParseRegistry(cfg.CouponCodes); err != nil {
			logger.Fatal("invalid COUPON_CODES", zap.Error(err))
		}
	}
	logger.Info("coupon registry loaded", zap.Int("codes", len(coupons)))

	// --- Session store ---
	var store port.SessionStore
	var checks []handler.ReadinessCheck
	if cfg.RedisAddr != "" {
		redisClient := redisstore.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		defer redisClient.Close()
		rs := redisstore.New(redisClient, cfg.SessionTTL, metrics)
		store = rs
		checks = append(checks, handler.ReadinessCheck{Name: "redis", Pinger: rs})
		logger.Info("using Redis session store", zap.String("addr", cfg.RedisAddr))
	} else {
		sessions := cache.New[domain.Session](cfg.SessionTTL)
		defer sessions.Close()
		store = cache.NewSessionStore(sessions, metrics)
		logger.Info("using in-memory session store")
	}

	// --- Order handoff ---
	sinks := []service.HandoffSink{{Name: "log", Handoff: service.NewLogHandoff(logger)}}
	if cfg.HandoffWebhookURL != "" {
		resilienceCfg := resilience.Config{
			MaxRetries:     cfg.MaxRetries,
			InitialBackoff: cfg.InitialBackoff,
			MaxConcurrency: cfg.MaxConcurrency,
		}
		webhook := client.NewWebhookClient(
			&http.Client{Timeout: cfg.HTTPTimeout},
			cfg.HandoffWebhookURL,
			cfg.HandoffWebhookSecret,
			resilience.NewCircuitBreaker("handoff-webhook", logger),
			resilienceCfg,
		)
		sinks = append(sinks, service.HandoffSink{Name: "webhook", Handoff: webhook})
		logger.Info("order handoff webhook enabled", zap.String("url", cfg.HandoffWebhookURL))
	}
	handoff := service.NewFanOutHandoff(metrics, logger, sinks...)
	checks = append(checks, handler.ReadinessCheck{Name: "handoff", Pinger: handoff, Advisory: true})

	// --- Services ---
	checkoutSvc := service.NewCheckoutService(
		cat,
		coupons,
		store,
		handoff,
		service.NewSessionTokens(cfg.SessionSecret, cfg.SessionTTL),
		metrics,
		logger,
	)

	// --- Router ---
	router := handler.NewRouter(checkoutSvc, checks, metrics, logger)

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
