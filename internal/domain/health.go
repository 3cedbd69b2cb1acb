package domain

// ============================================================
// Health & Metrics API Responses
// ============================================================

// HealthStatus is returned by GET /readyz.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Services []ServiceHealth `json:"services"`
}

// ServiceHealth represents the health of one dependency (session store, handoff sink).
type ServiceHealth struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	LatencyMs int64  `json:"latencyMs"`
	Error     string `json:"error,omitempty"`
}

// CheckoutMetrics is returned by GET /v1/metrics/checkout.
type CheckoutMetrics struct {
	SessionsStarted     int64            `json:"sessionsStarted"`
	Completed           int64            `json:"completed"`
	CompletedByMethod   map[string]int64 `json:"completedByMethod"`
	ConversionRate      float64          `json:"conversionRate"`
	RejectedTransitions int64            `json:"rejectedTransitions"`
	CouponsValid        int64            `json:"couponsValid"`
	CouponsInvalid      int64            `json:"couponsInvalid"`
	HandoffErrors       int64            `json:"handoffErrors"`
	CacheHitRate        float64          `json:"cacheHitRate"`
	Period              string           `json:"period"`
}

// ============================================================
// Generic API Response wrappers
// ============================================================

// SuccessResponse wraps a successful single-entity response.
type SuccessResponse struct {
	Message string `json:"message"`
	ID      string `json:"id,omitempty"`
}
