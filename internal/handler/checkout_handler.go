package handler

import (
	"net/http"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/service"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 3. Checkout: POST /v1/checkout/sessions
// ============================================================

func startSessionHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/sessions")
		defer span.End()

		var req domain.StartSessionRequest
		if err := decodeJSON(r, &req, true); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		started, err := svc.StartSession(ctx, req.Path)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("session.id", started.Session.ID))
		writeJSON(w, http.StatusCreated, started)
	}
}

// ============================================================
// Session-scoped: /v1/checkout/sessions/{sessionId}
// ============================================================

func getSessionHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/checkout/sessions/{sessionId}")
		defer span.End()

		view, err := svc.GetSession(ctx, SessionIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func submitUserDataHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/sessions/{sessionId}/user-data")
		defer span.End()

		var req domain.UserData
		if err := decodeJSON(r, &req, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := svc.SubmitUserData(ctx, SessionIDFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func updateUserDataHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/checkout/sessions/{sessionId}/user-data")
		defer span.End()

		var req domain.UserDataPatch
		if err := decodeJSON(r, &req, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := svc.UpdateUserData(ctx, SessionIDFromContext(ctx), req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func goBackHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/sessions/{sessionId}/back")
		defer span.End()

		view, err := svc.GoBack(ctx, SessionIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func selectPaymentMethodHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/checkout/sessions/{sessionId}/payment-method")
		defer span.End()

		var req domain.SelectPaymentMethodRequest
		if err := decodeJSON(r, &req, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("payment.method", req.Method))

		view, err := svc.SelectPaymentMethod(ctx, SessionIDFromContext(ctx), req.Method)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func setInstallmentsHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PUT /v1/checkout/sessions/{sessionId}/installments")
		defer span.End()

		var req domain.SetInstallmentsRequest
		if err := decodeJSON(r, &req, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.Int("payment.installments", req.Installments))

		view, err := svc.SetInstallments(ctx, SessionIDFromContext(ctx), req.Installments)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func applyCouponHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/sessions/{sessionId}/coupon")
		defer span.End()

		var req domain.ApplyCouponRequest
		if err := decodeJSON(r, &req, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		view, err := svc.ApplyCoupon(ctx, SessionIDFromContext(ctx), req.Code)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func clearCouponHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/checkout/sessions/{sessionId}/coupon")
		defer span.End()

		view, err := svc.ClearCoupon(ctx, SessionIDFromContext(ctx))
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

// completeHandler accepts the card fields in the body; non-card methods
// may send an empty body.
func completeHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/checkout/sessions/{sessionId}/complete")
		defer span.End()

		var card domain.CardDetails
		if err := decodeJSON(r, &card, true); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		result, err := svc.Complete(ctx, SessionIDFromContext(ctx), &card)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		span.SetAttributes(attribute.String("order.id", result.Order.ID))
		writeJSON(w, http.StatusOK, result)
	}
}
