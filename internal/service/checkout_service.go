// Package service provides the business logic layer (use cases).
// CheckoutService runs one checkout session per browser tab on top of the
// flow state machine, the coupon ledger and the pricing calculator.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/catalog"
	"github.com/boddenberg/checkout-bfa-go/internal/checkout"
	"github.com/boddenberg/checkout-bfa-go/internal/coupon"
	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/observability"
	"github.com/boddenberg/checkout-bfa-go/internal/port"
	"github.com/boddenberg/checkout-bfa-go/internal/pricing"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("service/checkout")

// CheckoutService orchestrates checkout sessions.
type CheckoutService struct {
	catalog *catalog.Catalog
	coupons coupon.Registry
	store   port.SessionStore
	handoff port.OrderHandoff
	tokens  *SessionTokens
	metrics *observability.Metrics
	logger  *zap.Logger
	locks   *keyedMutex
	now     func() time.Time
}

// NewCheckoutService creates a new checkout service.
func NewCheckoutService(
	cat *catalog.Catalog,
	coupons coupon.Registry,
	store port.SessionStore,
	handoff port.OrderHandoff,
	tokens *SessionTokens,
	metrics *observability.Metrics,
	logger *zap.Logger,
) *CheckoutService {
	return &CheckoutService{
		catalog: cat,
		coupons: coupons,
		store:   store,
		handoff: handoff,
		tokens:  tokens,
		metrics: metrics,
		logger:  logger,
		locks:   newKeyedMutex(),
		now:     time.Now,
	}
}

// ============================================================
// Plans & stateless helpers
// ============================================================

// ResolvePlan resolves a URL path to the plan it sells.
func (s *CheckoutService) ResolvePlan(ctx context.Context, path string) (domain.PlanConfig, error) {
	_, span := tracer.Start(ctx, "CheckoutService.ResolvePlan")
	defer span.End()
	span.SetAttributes(attribute.String("checkout.path", path))

	return s.catalog.ResolvePath(path)
}

// DetectCardBrand returns the cosmetic brand of a card number prefix.
func (s *CheckoutService) DetectCardBrand(number string) domain.CardBrand {
	return checkout.DetectCardBrand(number)
}

// ValidateSessionToken checks a bearer token and returns the session id it
// was issued for.
func (s *CheckoutService) ValidateSessionToken(token string) (string, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// Quote prices a plan for a payment selection and an optional coupon
// without creating a session.
func (s *CheckoutService) Quote(ctx context.Context, req *domain.QuoteRequest) (*domain.Quote, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.Quote")
	defer span.End()
	start := s.now()
	defer func() { s.metrics.RecordRequestDuration("quote", time.Since(start)) }()

	plan, err := s.ResolvePlan(ctx, req.Path)
	if err != nil {
		return nil, err
	}

	method := domain.PaymentMethodCard
	if req.Method != "" {
		if method, err = domain.ParsePaymentMethod(req.Method); err != nil {
			return nil, err
		}
	}
	installments := 1
	if method == domain.PaymentMethodCard {
		installments = pricing.ClampInstallments(plan, req.Installments)
	}

	ledger := coupon.NewLedger(s.coupons)
	if req.Coupon != "" {
		s.metrics.IncrCouponValidation(ledger.ValidateAndApply(req.Coupon))
	}

	discounted := ledger.ApplyDiscount(plan.Price)
	charge := pricing.ComputeCharge(plan, method, installments, discounted)

	return &domain.Quote{
		Plan:               plan,
		Payment:            domain.PaymentSelection{Method: method, Installments: installments},
		Coupon:             ledger.View(),
		Summary:            charge,
		PaymentPanel:       pricing.PaymentPanel(plan, method, charge),
		InstallmentOptions: pricing.InstallmentOptions(plan, discounted),
	}, nil
}

// ============================================================
// Sessions
// ============================================================

// StartSession resolves the plan for path, opens a session on it and signs
// the token that scopes the remaining calls to this session.
func (s *CheckoutService) StartSession(ctx context.Context, path string) (*domain.StartedSession, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.StartSession")
	defer span.End()
	start := s.now()
	defer func() { s.metrics.RecordRequestDuration("start_session", time.Since(start)) }()

	plan, err := s.ResolvePlan(ctx, path)
	if err != nil {
		return nil, err
	}

	flow := checkout.NewFlow(plan)
	ledger := coupon.NewLedger(s.coupons)
	now := s.now()
	sess := &domain.Session{
		ID:        uuid.NewString(),
		Locator:   catalog.ParseLocator(path).String(),
		Plan:      plan,
		Flow:      flow.State(),
		Coupon:    ledger.State(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	span.SetAttributes(attribute.String("session.id", sess.ID), attribute.String("plan.id", plan.ID))

	token, expiresAt, err := s.tokens.Sign(sess.ID)
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}

	s.metrics.IncrSessionStarted()
	s.logger.Info("checkout session started",
		zap.String("session_id", sess.ID),
		zap.String("locator", sess.Locator),
		zap.String("plan", plan.DisplayName),
	)

	return &domain.StartedSession{
		Token:     token,
		ExpiresAt: expiresAt,
		Session:   s.buildView(sess.ID, flow, ledger, ""),
	}, nil
}

// GetSession returns the current view of a session.
func (s *CheckoutService) GetSession(ctx context.Context, id string) (*domain.SessionView, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService.GetSession")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	flow := checkout.Restore(sess.Plan, sess.Flow)
	ledger := coupon.RestoreLedger(s.coupons, sess.Coupon)
	view := s.buildView(sess.ID, flow, ledger, sess.OrderID)
	return &view, nil
}

// ============================================================
// Transitions
// ============================================================

func (s *CheckoutService) SubmitUserData(ctx context.Context, id string, data domain.UserData) (*domain.SessionView, error) {
	return s.transition(ctx, id, observability.ActionSubmitUserData, func(sess *sessionState) error {
		return sess.flow.SubmitUserData(data)
	})
}

// UpdateUserData edits individual fields while still on the first step.
func (s *CheckoutService) UpdateUserData(ctx context.Context, id string, patch domain.UserDataPatch) (*domain.SessionView, error) {
	return s.transition(ctx, id, observability.ActionUpdateUserData, func(sess *sessionState) error {
		return sess.flow.UpdateUserData(patch)
	})
}

func (s *CheckoutService) GoBack(ctx context.Context, id string) (*domain.SessionView, error) {
	return s.transition(ctx, id, observability.ActionGoBack, func(sess *sessionState) error {
		return sess.flow.GoBack()
	})
}

func (s *CheckoutService) SelectPaymentMethod(ctx context.Context, id, method string) (*domain.SessionView, error) {
	return s.transition(ctx, id, observability.ActionSelectPaymentMethod, func(sess *sessionState) error {
		m, err := domain.ParsePaymentMethod(method)
		if err != nil {
			return err
		}
		return sess.flow.SelectPaymentMethod(m)
	})
}

func (s *CheckoutService) SetInstallments(ctx context.Context, id string, n int) (*domain.SessionView, error) {
	return s.transition(ctx, id, observability.ActionSetInstallments, func(sess *sessionState) error {
		return sess.flow.SetInstallments(n)
	})
}

// ApplyCoupon validates code and replaces any active coupon on a hit. A miss
// clears the active coupon and is not an error: the view reports it.
func (s *CheckoutService) ApplyCoupon(ctx context.Context, id, code string) (*domain.SessionView, error) {
	return s.transition(ctx, id, observability.ActionApplyCoupon, func(sess *sessionState) error {
		if err := expectOpen(sess.flow, "apply coupon"); err != nil {
			return err
		}
		valid := sess.ledger.ValidateAndApply(code)
		s.metrics.IncrCouponValidation(valid)
		s.logger.Debug("coupon validated",
			zap.String("session_id", id),
			zap.Bool("valid", valid),
		)
		return nil
	})
}

func (s *CheckoutService) ClearCoupon(ctx context.Context, id string) (*domain.SessionView, error) {
	return s.transition(ctx, id, observability.ActionClearCoupon, func(sess *sessionState) error {
		if err := expectOpen(sess.flow, "clear coupon"); err != nil {
			return err
		}
		sess.ledger.Clear()
		return nil
	})
}

// Complete finishes the checkout and hands the order off. Card details are
// only used to mask the card for the order; they are never stored.
//
// Handoff runs after the session is saved and unlocked. A failing handoff is
// logged and counted but the checkout stays completed.
func (s *CheckoutService) Complete(ctx context.Context, id string, card *domain.CardDetails) (*domain.CompletionResult, error) {
	var order *domain.Order
	view, err := s.transition(ctx, id, observability.ActionComplete, func(sess *sessionState) error {
		if err := sess.flow.Complete(card); err != nil {
			return err
		}
		order = s.buildOrder(sess, card)
		sess.orderID = order.ID
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncrCompleted(string(order.Payment.Method))
	s.logger.Info("checkout completed",
		zap.String("session_id", id),
		zap.String("order_id", order.ID),
		zap.String("method", string(order.Payment.Method)),
		zap.Int("installments", order.Payment.Installments),
	)

	ctx, span := tracer.Start(ctx, "CheckoutService.Handoff")
	defer span.End()
	if err := s.handoff.Deliver(context.WithoutCancel(ctx), order); err != nil {
		span.RecordError(err)
		s.logger.Error("order handoff failed",
			zap.String("session_id", id),
			zap.String("order_id", order.ID),
			zap.Error(err),
		)
	}

	return &domain.CompletionResult{Order: order, Session: *view}, nil
}

// ============================================================
// Internals
// ============================================================

// sessionState is a loaded session with its flow and ledger restored.
type sessionState struct {
	flow    *checkout.Flow
	ledger  *coupon.Ledger
	orderID string
	session *domain.Session
}

// maxTransitionAttempts bounds the reload-and-retry loop when another
// instance saves the same session between our read and our write.
const maxTransitionAttempts = 3

// transition runs fn on the session under its lock and saves the result.
// Nothing is saved when fn fails. The in-process lock only covers this
// instance; a version conflict in the store reloads the session and runs fn
// again on the fresh state.
func (s *CheckoutService) transition(ctx context.Context, id, action string, fn func(*sessionState) error) (*domain.SessionView, error) {
	ctx, span := tracer.Start(ctx, "CheckoutService."+action)
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))
	start := s.now()
	defer func() { s.metrics.RecordRequestDuration(action, time.Since(start)) }()

	unlock := s.locks.Lock(id)
	defer unlock()

	var err error
	for attempt := 1; attempt <= maxTransitionAttempts; attempt++ {
		var view *domain.SessionView
		view, err = s.applyOnce(ctx, id, action, fn)
		var conflict *domain.ErrConflict
		if !errors.As(err, &conflict) {
			return view, err
		}
		s.logger.Warn("session modified concurrently, retrying",
			zap.String("session_id", id),
			zap.String("action", action),
			zap.Int("attempt", attempt),
		)
	}
	span.RecordError(err)
	return nil, err
}

// applyOnce loads the session, runs fn and saves it once.
func (s *CheckoutService) applyOnce(ctx context.Context, id, action string, fn func(*sessionState) error) (*domain.SessionView, error) {
	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	st := &sessionState{
		flow:    checkout.Restore(sess.Plan, sess.Flow),
		ledger:  coupon.RestoreLedger(s.coupons, sess.Coupon),
		orderID: sess.OrderID,
		session: sess,
	}
	err = fn(st)
	if err != nil {
		s.metrics.IncrTransition(action, err)
		var invalid *domain.ErrInvalidTransition
		if errors.As(err, &invalid) {
			s.logger.Debug("transition rejected",
				zap.String("session_id", id),
				zap.String("action", action),
				zap.String("step", string(invalid.Step)),
			)
		}
		return nil, err
	}

	sess.Flow = st.flow.State()
	sess.Coupon = st.ledger.State()
	sess.OrderID = st.orderID
	sess.UpdatedAt = s.now()
	if err := s.store.Save(ctx, sess); err != nil {
		return nil, err
	}
	s.metrics.IncrTransition(action, nil)

	s.logger.Debug("transition applied",
		zap.String("session_id", id),
		zap.String("action", action),
		zap.String("step", string(sess.Flow.Step)),
		zap.String("method", string(sess.Flow.Payment.Method)),
	)

	view := s.buildView(sess.ID, st.flow, st.ledger, sess.OrderID)
	return &view, nil
}

func (s *CheckoutService) buildView(id string, flow *checkout.Flow, ledger *coupon.Ledger, orderID string) domain.SessionView {
	plan := flow.Plan()
	state := flow.State()

	installments := 1
	if state.Payment.Method == domain.PaymentMethodCard {
		installments = pricing.ClampInstallments(plan, state.Payment.Installments)
	}
	discounted := ledger.ApplyDiscount(plan.Price)
	charge := pricing.ComputeCharge(plan, state.Payment.Method, installments, discounted)

	return domain.SessionView{
		ID:                   id,
		Step:                 state.Step,
		UserData:             state.UserData,
		Payment:              state.Payment,
		LastCardInstallments: state.LastCardInstallments,
		Plan:                 plan,
		SupportURL:           plan.SupportURL(),
		Coupon:               ledger.View(),
		Summary:              charge,
		PaymentPanel:         pricing.PaymentPanel(plan, state.Payment.Method, charge),
		InstallmentOptions:   pricing.InstallmentOptions(plan, discounted),
		OrderID:              orderID,
	}
}

func (s *CheckoutService) buildOrder(st *sessionState, card *domain.CardDetails) *domain.Order {
	plan := st.flow.Plan()
	state := st.flow.State()

	discounted := st.ledger.ApplyDiscount(plan.Price)
	order := &domain.Order{
		ID:          uuid.NewString(),
		SessionID:   st.session.ID,
		PlanID:      plan.ID,
		IssuerName:  plan.IssuerName,
		PlanKey:     plan.PlanKey,
		PlanName:    plan.DisplayName,
		UserData:    state.UserData,
		Payment:     state.Payment,
		Coupon:      st.ledger.Active(),
		Charge:      pricing.ComputeCharge(plan, state.Payment.Method, state.Payment.Installments, discounted),
		CompletedAt: s.now(),
	}
	if state.Payment.Method == domain.PaymentMethodCard && card != nil {
		masked := checkout.MaskCardNumber(card.Number)
		order.Card = &masked
	}
	return order
}

// expectOpen rejects coupon edits once the checkout is completed.
func expectOpen(flow *checkout.Flow, action string) error {
	if flow.Step().IsTerminal() {
		return &domain.ErrInvalidTransition{Action: action, Step: flow.Step()}
	}
	return nil
}
