package handler_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/catalog"
	"github.com/boddenberg/checkout-bfa-go/internal/coupon"
	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/handler"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/cache"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/client"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/observability"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/checkout-bfa-go/internal/service"

	"go.uber.org/zap"
)

const webhookSecret = "whsec_integration"

// webhookReceiver records the events POSTed by the handoff client.
type webhookReceiver struct {
	mu       sync.Mutex
	events   []client.WebhookEvent
	verified bool
	status   int
}

func (rcv *webhookReceiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	rcv.mu.Lock()
	defer rcv.mu.Unlock()

	rcv.verified = client.VerifySignature([]byte(webhookSecret), r.Header.Get(client.SignatureHeader), body)
	var ev client.WebhookEvent
	if err := json.Unmarshal(body, &ev); err == nil {
		rcv.events = append(rcv.events, ev)
	}
	w.WriteHeader(rcv.status)
}

func newIntegrationRouter(t *testing.T, webhookURL string, metrics *observability.Metrics) http.Handler {
	t.Helper()
	logger := zap.NewNop()

	cat, err := catalog.Default(catalog.Options{})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	mem := cache.New[domain.Session](time.Hour)
	t.Cleanup(mem.Close)

	cfg := resilience.Config{MaxRetries: 0, InitialBackoff: 10 * time.Millisecond, MaxConcurrency: 10}
	webhook := client.NewWebhookClient(&http.Client{Timeout: 5 * time.Second}, webhookURL, webhookSecret,
		resilience.NewCircuitBreaker("integration", logger), cfg)
	handoff := service.NewFanOutHandoff(metrics, logger,
		service.HandoffSink{Name: "log", Handoff: service.NewLogHandoff(logger)},
		service.HandoffSink{Name: "webhook", Handoff: webhook},
	)

	svc := service.NewCheckoutService(
		cat,
		coupon.DefaultRegistry(),
		cache.NewSessionStore(mem, metrics),
		handoff,
		service.NewSessionTokens("integration-secret", time.Hour),
		metrics,
		logger,
	)
	checks := []handler.ReadinessCheck{{Name: "handoff", Pinger: handoff}}
	return handler.NewRouter(svc, checks, metrics, logger)
}

// TestIntegration_PixCheckoutHandsOffSignedOrder runs a PIX checkout end to
// end and checks the order received by the webhook.
func TestIntegration_PixCheckoutHandsOffSignedOrder(t *testing.T) {
	receiver := &webhookReceiver{status: http.StatusAccepted}
	webhookServer := httptest.NewServer(receiver)
	defer webhookServer.Close()

	metrics := observability.NewMetrics()
	router := newIntegrationRouter(t, webhookServer.URL, metrics)

	started := decode[domain.StartedSession](t, do(t, router, http.MethodPost, "/v1/checkout/sessions", "",
		domain.StartSessionRequest{Path: "/gilliard/projeto-180d"}))
	base := "/v1/checkout/sessions/" + started.Session.ID
	token := started.Token

	steps := []struct {
		method string
		path   string
		body   any
	}{
		{http.MethodPost, base + "/user-data", domain.UserData{FullName: "João", Email: "joao@example.com", Phone: "+55 (21) 9 1234-5678", CPF: "111.222.333-44"}},
		{http.MethodPut, base + "/payment-method", domain.SelectPaymentMethodRequest{Method: "pix"}},
		{http.MethodPost, base + "/coupon", domain.ApplyCouponRequest{Code: "teste90"}},
		{http.MethodPost, base + "/complete", nil},
	}
	var rec *httptest.ResponseRecorder
	for _, s := range steps {
		rec = do(t, router, s.method, s.path, token, s.body)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s %s: expected 200, got %d: %s", s.method, s.path, rec.Code, rec.Body.String())
		}
	}

	result := decode[domain.CompletionResult](t, rec)
	// 947 with 90% off is 94.70; 10% PIX discount gives 85.23.
	if result.Order.Charge.Label != "R$ 85,23" {
		t.Errorf("unexpected charge label '%s'", result.Order.Charge.Label)
	}

	receiver.mu.Lock()
	defer receiver.mu.Unlock()
	if len(receiver.events) != 1 {
		t.Fatalf("expected 1 webhook event, got %d", len(receiver.events))
	}
	if !receiver.verified {
		t.Error("webhook signature did not verify")
	}
	ev := receiver.events[0]
	if ev.Type != client.EventCheckoutCompleted || ev.Data.ID != result.Order.ID {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Data.Card != nil {
		t.Error("PIX orders carry no card")
	}
	if ev.Data.Coupon == nil || ev.Data.Coupon.Code != "teste90" {
		t.Errorf("unexpected coupon %+v", ev.Data.Coupon)
	}
}

// TestIntegration_WebhookFailureKeepsCheckoutCompleted checks that a failing
// collaborator does not undo the checkout.
func TestIntegration_WebhookFailureKeepsCheckoutCompleted(t *testing.T) {
	receiver := &webhookReceiver{status: http.StatusInternalServerError}
	webhookServer := httptest.NewServer(receiver)
	defer webhookServer.Close()

	metrics := observability.NewMetrics()
	router := newIntegrationRouter(t, webhookServer.URL, metrics)

	started := decode[domain.StartedSession](t, do(t, router, http.MethodPost, "/v1/checkout/sessions", "", nil))
	base := "/v1/checkout/sessions/" + started.Session.ID
	token := started.Token

	do(t, router, http.MethodPost, base+"/user-data", token, domain.UserData{FullName: "Ana", Email: "ana@example.com", Phone: "1", CPF: "1"})
	do(t, router, http.MethodPut, base+"/payment-method", token, domain.SelectPaymentMethodRequest{Method: "boleto"})

	rec := do(t, router, http.MethodPost, base+"/complete", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	snap := metrics.GetCheckoutSnapshot()
	if snap.HandoffErrors != 1 || snap.Completed != 1 {
		t.Errorf("unexpected counters %+v", snap)
	}

	rec = do(t, router, http.MethodGet, base, token, nil)
	if got := decode[domain.SessionView](t, rec); got.Step != domain.StepCompleted {
		t.Errorf("expected completed, got '%s'", got.Step)
	}
}
