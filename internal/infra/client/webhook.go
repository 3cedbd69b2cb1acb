// Package client holds HTTP clients for collaborators outside the BFA.
package client

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/resilience"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/client")

const (
	// SignatureHeader carries "t=<unix>,v1=<hex hmac-sha256>".
	SignatureHeader = "X-Checkout-Signature"

	EventCheckoutCompleted = "checkout.completed"
)

// WebhookEvent is the body POSTed to the handoff URL.
type WebhookEvent struct {
	ID   string        `json:"id"`
	Type string        `json:"type"`
	Data *domain.Order `json:"data"`
}

// WebhookClient delivers completed orders to an external collaborator
// (typically the payment gateway integration).
type WebhookClient struct {
	httpClient *http.Client
	url        string
	secret     []byte
	cb         *gobreaker.CircuitBreaker
	bulkhead   *resilience.Bulkhead
	cfg        resilience.Config
	now        func() time.Time
}

// NewWebhookClient creates a new WebhookClient.
func NewWebhookClient(httpClient *http.Client, url, secret string, cb *gobreaker.CircuitBreaker, cfg resilience.Config) *WebhookClient {
	return &WebhookClient{
		httpClient: httpClient,
		url:        url,
		secret:     []byte(secret),
		cb:         cb,
		bulkhead:   resilience.NewBulkhead(cfg.MaxConcurrency),
		cfg:        cfg,
		now:        time.Now,
	}
}

// Deliver POSTs a checkout.completed event. 5xx and transport errors are
// retried with backoff; 4xx answers are not.
func (c *WebhookClient) Deliver(ctx context.Context, order *domain.Order) error {
	ctx, span := tracer.Start(ctx, "WebhookClient.Deliver")
	defer span.End()
	span.SetAttributes(
		attribute.String("order.id", order.ID),
		attribute.String("session.id", order.SessionID),
	)

	payload, err := json.Marshal(WebhookEvent{
		ID:   "EV_" + uuid.NewString(),
		Type: EventCheckoutCompleted,
		Data: order,
	})
	if err != nil {
		return fmt.Errorf("encoding webhook event: %w", err)
	}

	err = c.bulkhead.Do(ctx, func() error {
		_, err := c.cb.Execute(func() (any, error) {
			return nil, resilience.RetryWithBackoff(ctx, c.cfg, func() error {
				return c.post(ctx, payload)
			})
		})
		return err
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return &domain.ErrCircuitOpen{Service: "handoff-webhook"}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &domain.ErrTimeout{Operation: "handoff-webhook"}
	}
	return &domain.ErrExternalService{Service: "handoff-webhook", Err: err}
}

func (c *WebhookClient) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return resilience.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(c.secret, c.now(), payload))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	default:
		return resilience.Permanent(fmt.Errorf("webhook returned status %d", resp.StatusCode))
	}
}

// Ping reports whether the breaker currently lets deliveries through.
func (c *WebhookClient) Ping(context.Context) error {
	if c.cb.State() == gobreaker.StateOpen {
		return &domain.ErrCircuitOpen{Service: "handoff-webhook"}
	}
	return nil
}

// Sign builds the signature header value for payload sent at ts.
func Sign(secret []byte, ts time.Time, payload []byte) string {
	timestamp := strconv.FormatInt(ts.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", timestamp, signature(secret, timestamp, payload))
}

// VerifySignature checks a header produced by Sign. Receivers should also
// reject timestamps older than their replay window.
func VerifySignature(secret []byte, header string, payload []byte) bool {
	var timestamp, sig string
	for _, part := range strings.Split(header, ",") {
		k, v, _ := strings.Cut(part, "=")
		switch k {
		case "t":
			timestamp = v
		case "v1":
			sig = v
		}
	}
	if timestamp == "" || sig == "" {
		return false
	}
	return hmac.Equal([]byte(sig), []byte(signature(secret, timestamp, payload)))
}

func signature(secret []byte, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp + "."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
