package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/observability"
	"github.com/boddenberg/checkout-bfa-go/internal/port"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ============================================================
// Log handoff (default sink)
// ============================================================

// LogHandoff only logs the order. It is the default terminal action when no
// payment collaborator is configured.
type LogHandoff struct {
	logger *zap.Logger
}

func NewLogHandoff(logger *zap.Logger) *LogHandoff {
	return &LogHandoff{logger: logger}
}

func (h *LogHandoff) Deliver(_ context.Context, order *domain.Order) error {
	fields := []zap.Field{
		zap.String("order_id", order.ID),
		zap.String("session_id", order.SessionID),
		zap.String("plan_id", order.PlanID),
		zap.String("plan", order.PlanName),
		zap.String("method", string(order.Payment.Method)),
		zap.Int("installments", order.Payment.Installments),
		zap.String("amount", order.Charge.Amount.StringFixed(2)),
		zap.String("total", order.Charge.Total.StringFixed(2)),
	}
	if order.Coupon != nil {
		fields = append(fields, zap.String("coupon", order.Coupon.Code))
	}
	if order.Card != nil {
		fields = append(fields, zap.String("card_brand", string(order.Card.Brand)), zap.String("card_last4", order.Card.Last4))
	}
	h.logger.Info("Processando seu pagamento", fields...)
	return nil
}

// ============================================================
// Fan-out
// ============================================================

// HandoffSink is a named delivery target.
type HandoffSink struct {
	Name    string
	Handoff port.OrderHandoff
}

// FanOutHandoff delivers each order to every sink concurrently. A failing
// sink does not stop the others; failures are counted per sink and joined.
type FanOutHandoff struct {
	sinks   []HandoffSink
	metrics *observability.Metrics
	logger  *zap.Logger
}

func NewFanOutHandoff(metrics *observability.Metrics, logger *zap.Logger, sinks ...HandoffSink) *FanOutHandoff {
	return &FanOutHandoff{sinks: sinks, metrics: metrics, logger: logger}
}

// Deliver runs every sink to completion. The group is not bound to a
// cancelling context, so one sink's failure does not abort the others.
func (f *FanOutHandoff) Deliver(ctx context.Context, order *domain.Order) error {
	errs := make([]error, len(f.sinks))

	var g errgroup.Group
	for i, sink := range f.sinks {
		g.Go(func() error {
			err := sink.Handoff.Deliver(ctx, order)
			if err == nil {
				return nil
			}
			f.metrics.IncrHandoffError(sink.Name)
			f.logger.Error("order handoff failed",
				zap.String("sink", sink.Name),
				zap.String("order_id", order.ID),
				zap.Error(err),
			)
			errs[i] = fmt.Errorf("%s: %w", sink.Name, err)
			return errs[i]
		})
	}
	if err := g.Wait(); err != nil {
		return errors.Join(errs...)
	}
	return nil
}

// Ping checks every sink that can report readiness.
func (f *FanOutHandoff) Ping(ctx context.Context) error {
	var errs []error
	for _, sink := range f.sinks {
		if p, ok := sink.Handoff.(port.Pinger); ok {
			if err := p.Ping(ctx); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", sink.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
