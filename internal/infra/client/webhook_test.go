package client_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/client"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/resilience"

	"go.uber.org/zap"
)

var testSecret = []byte("whsec_test")

func testOrder() *domain.Order {
	return &domain.Order{
		ID:        "order-1",
		SessionID: "session-1",
		PlanName:  "Projeto - 60D",
		Payment:   domain.PaymentSelection{Method: domain.PaymentMethodPix, Installments: 1},
	}
}

func newClient(url string, retries int) *client.WebhookClient {
	cfg := resilience.Config{MaxRetries: retries, InitialBackoff: time.Millisecond, MaxConcurrency: 4}
	return client.NewWebhookClient(&http.Client{Timeout: time.Second}, url, string(testSecret),
		resilience.NewCircuitBreaker("webhook-test", zap.NewNop()), cfg)
}

func TestWebhookClient_DeliversSignedEvent(t *testing.T) {
	var got client.WebhookEvent
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if !client.VerifySignature(testSecret, r.Header.Get(client.SignatureHeader), body) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := newClient(srv.URL, 0).Deliver(context.Background(), testOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Type != client.EventCheckoutCompleted {
		t.Errorf("expected checkout.completed, got '%s'", got.Type)
	}
	if got.Data == nil || got.Data.ID != "order-1" {
		t.Errorf("unexpected event data %+v", got.Data)
	}
}

func TestWebhookClient_RetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	if err := newClient(srv.URL, 3).Deliver(context.Background(), testOrder()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestWebhookClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	err := newClient(srv.URL, 3).Deliver(context.Background(), testOrder())

	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if calls != 1 {
		t.Errorf("expected a single call, got %d", calls)
	}
}

func TestWebhookClient_OpenCircuit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	c := newClient(srv.URL, 0)

	for i := 0; i < 5; i++ {
		_ = c.Deliver(context.Background(), testOrder())
	}

	err := c.Deliver(context.Background(), testOrder())
	var open *domain.ErrCircuitOpen
	if !errors.As(err, &open) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if c.Ping(context.Background()) == nil {
		t.Error("ping should fail while the circuit is open")
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"checkout.completed"}`)
	header := client.Sign(testSecret, time.Unix(1700000000, 0), payload)

	if !client.VerifySignature(testSecret, header, payload) {
		t.Error("expected signature to verify")
	}
	if client.VerifySignature([]byte("other"), header, payload) {
		t.Error("wrong secret must not verify")
	}
	if client.VerifySignature(testSecret, header, []byte(`{}`)) {
		t.Error("tampered payload must not verify")
	}
	if client.VerifySignature(testSecret, "garbage", payload) {
		t.Error("malformed header must not verify")
	}
}
