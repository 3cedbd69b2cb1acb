package observability

import (
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Transition actions, used as the "action" label of checkout_transitions_total.
const (
	ActionSubmitUserData      = "submit_user_data"
	ActionUpdateUserData      = "update_user_data"
	ActionGoBack              = "go_back"
	ActionSelectPaymentMethod = "select_payment_method"
	ActionSetInstallments     = "set_installments"
	ActionApplyCoupon         = "apply_coupon"
	ActionClearCoupon         = "clear_coupon"
	ActionComplete            = "complete"
)

var transitionActions = []string{
	ActionSubmitUserData,
	ActionUpdateUserData,
	ActionGoBack,
	ActionSelectPaymentMethod,
	ActionSetInstallments,
	ActionApplyCoupon,
	ActionClearCoupon,
	ActionComplete,
}

var paymentMethods = []string{"card", "pix", "boleto"}

// Metrics holds all Prometheus metrics for the checkout BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration   *prometheus.HistogramVec
	sessionsStarted   prometheus.Counter
	transitions       *prometheus.CounterVec
	couponValidations *prometheus.CounterVec
	completed         *prometheus.CounterVec
	handoffErrors     *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "checkout_request_duration_seconds",
				Help:    "Duration of checkout operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		sessionsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "checkout_sessions_started_total",
				Help: "Total checkout sessions started.",
			},
		),
		transitions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_transitions_total",
				Help: "Checkout transitions by action and result (ok, rejected).",
			},
			[]string{"action", "result"},
		),
		couponValidations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_coupon_validations_total",
				Help: "Coupon validation attempts by result.",
			},
			[]string{"result"},
		),
		completed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_completed_total",
				Help: "Completed checkouts by payment method.",
			},
			[]string{"method"},
		),
		handoffErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_handoff_errors_total",
				Help: "Order handoff failures by sink.",
			},
			[]string{"sink"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_session_cache_hits_total",
				Help: "Session store hits.",
			},
			[]string{"store"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "checkout_session_cache_misses_total",
				Help: "Session store misses.",
			},
			[]string{"store"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncrSessionStarted() {
	m.sessionsStarted.Inc()
}

// IncrTransition counts a transition attempt; rejected when err != nil.
func (m *Metrics) IncrTransition(action string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	m.transitions.WithLabelValues(action, result).Inc()
}

func (m *Metrics) IncrCouponValidation(valid bool) {
	result := "invalid"
	if valid {
		result = "valid"
	}
	m.couponValidations.WithLabelValues(result).Inc()
}

func (m *Metrics) IncrCompleted(method string) {
	m.completed.WithLabelValues(method).Inc()
}

func (m *Metrics) IncrHandoffError(sink string) {
	m.handoffErrors.WithLabelValues(sink).Inc()
}

// IncrCacheHit increments the session store hit counter.
func (m *Metrics) IncrCacheHit(store string) {
	m.cacheHits.WithLabelValues(store).Inc()
}

// IncrCacheMiss increments the session store miss counter.
func (m *Metrics) IncrCacheMiss(store string) {
	m.cacheMisses.WithLabelValues(store).Inc()
}

// GetCheckoutSnapshot returns the counters behind GET /v1/metrics/checkout.
func (m *Metrics) GetCheckoutSnapshot() *domain.CheckoutMetrics {
	started := getCounter(m.sessionsStarted)

	byMethod := make(map[string]int64, len(paymentMethods))
	completed := float64(0)
	for _, method := range paymentMethods {
		v := getCounterValue(m.completed, method)
		byMethod[method] = int64(v)
		completed += v
	}

	rejected := float64(0)
	for _, action := range transitionActions {
		rejected += getCounterValue(m.transitions, action, "rejected")
	}

	handoffErrors := float64(0)
	for _, sink := range []string{"log", "webhook"} {
		handoffErrors += getCounterValue(m.handoffErrors, sink)
	}

	hits := getCounterValue(m.cacheHits, "memory") + getCounterValue(m.cacheHits, "redis")
	misses := getCounterValue(m.cacheMisses, "memory") + getCounterValue(m.cacheMisses, "redis")

	conversion := float64(0)
	if started > 0 {
		conversion = completed / started
	}
	hitRate := float64(0)
	if hits+misses > 0 {
		hitRate = hits / (hits + misses)
	}

	return &domain.CheckoutMetrics{
		SessionsStarted:     int64(started),
		Completed:           int64(completed),
		CompletedByMethod:   byMethod,
		ConversionRate:      conversion,
		RejectedTransitions: int64(rejected),
		CouponsValid:        int64(getCounterValue(m.couponValidations, "valid")),
		CouponsInvalid:      int64(getCounterValue(m.couponValidations, "invalid")),
		HandoffErrors:       int64(handoffErrors),
		CacheHitRate:        hitRate,
		Period:              "all_time",
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for the given labels.
func getCounterValue(cv *prometheus.CounterVec, labels ...string) float64 {
	return getCounter(cv.WithLabelValues(labels...))
}

func getCounter(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
