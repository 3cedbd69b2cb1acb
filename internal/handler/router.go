package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/observability"
	"github.com/boddenberg/checkout-bfa-go/internal/port"
	"github.com/boddenberg/checkout-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

const readinessTimeout = 2 * time.Second

// ReadinessCheck is one dependency probed by GET /readyz. A failing
// Advisory check reports the instance as degraded but keeps it ready.
type ReadinessCheck struct {
	Name     string
	Pinger   port.Pinger
	Advisory bool
}

// NewRouter creates the HTTP router with all routes and middleware.
// The /v1 API is mounted only when svc is non-nil.
func NewRouter(svc *service.CheckoutService, checks []ReadinessCheck, metrics *observability.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler(checks, logger))
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	if svc == nil {
		return r
	}

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/checkout", checkoutMetricsHandler(metrics))

		// =============================================
		// 1. Planos
		// GET /v1/plans/resolve?path=/kathy/projeto-90d
		// GET /v1/plans/{issuer}/{plan}
		// =============================================
		r.Get("/plans/resolve", resolvePlanHandler(svc, logger))
		r.Get("/plans/{issuer}/{plan}", getPlanHandler(svc, logger))

		// =============================================
		// 2. Preço & utilitários
		// =============================================
		r.Post("/quote", quoteHandler(svc, logger))
		r.Get("/cards/brand", cardBrandHandler(svc))
		r.Get("/countries", countriesHandler())
		r.Post("/format", formatHandler(logger))

		// =============================================
		// 3. Checkout
		// =============================================
		r.Post("/checkout/sessions", startSessionHandler(svc, logger))

		r.Route("/checkout/sessions/{sessionId}", func(r chi.Router) {
			r.Use(SessionAuthMiddleware(svc, logger))

			r.Get("/", getSessionHandler(svc, logger))
			r.Post("/user-data", submitUserDataHandler(svc, logger))
			r.Patch("/user-data", updateUserDataHandler(svc, logger))
			r.Post("/back", goBackHandler(svc, logger))
			r.Put("/payment-method", selectPaymentMethodHandler(svc, logger))
			r.Put("/installments", setInstallmentsHandler(svc, logger))
			r.Post("/coupon", applyCouponHandler(svc, logger))
			r.Delete("/coupon", clearCouponHandler(svc, logger))
			r.Post("/complete", completeHandler(svc, logger))
		})
	})

	return r
}

// ============================================================
// Operational
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:   "healthy",
			Services: []domain.ServiceHealth{{Name: "checkout-bfa", Status: "healthy"}},
		})
	}
}

func readyzHandler(checks []ReadinessCheck, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		overall := "healthy"
		services := make([]domain.ServiceHealth, 0, len(checks))
		for _, c := range checks {
			start := time.Now()
			err := c.Pinger.Ping(ctx)
			sh := domain.ServiceHealth{
				Name:      c.Name,
				Status:    "healthy",
				LatencyMs: time.Since(start).Milliseconds(),
			}
			switch {
			case err == nil:
			case c.Advisory:
				logger.Warn("advisory check failed", zap.String("dependency", c.Name), zap.Error(err))
				sh.Status = "degraded"
				sh.Error = err.Error()
				if overall == "healthy" {
					overall = "degraded"
				}
			default:
				logger.Warn("readiness check failed", zap.String("dependency", c.Name), zap.Error(err))
				sh.Status = "unhealthy"
				sh.Error = err.Error()
				overall = "unhealthy"
			}
			services = append(services, sh)
		}

		status := http.StatusOK
		if overall == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, domain.HealthStatus{Status: overall, Services: services})
	}
}

func checkoutMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.GetCheckoutSnapshot())
	}
}
