package handler

import (
	"net/http"

	"github.com/boddenberg/checkout-bfa-go/internal/checkout"
	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// 1. Planos
// ============================================================

func resolvePlanHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/plans/resolve")
		defer span.End()

		path := r.URL.Query().Get("path")
		span.SetAttributes(attribute.String("checkout.path", path))

		plan, err := svc.ResolvePlan(ctx, path)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

func getPlanHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/plans/{issuer}/{plan}")
		defer span.End()

		path := "/" + chi.URLParam(r, "issuer") + "/" + chi.URLParam(r, "plan")
		plan, err := svc.ResolvePlan(ctx, path)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, plan)
	}
}

// ============================================================
// 2. Preço & utilitários
// ============================================================

func quoteHandler(svc *service.CheckoutService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/quote")
		defer span.End()

		var req domain.QuoteRequest
		if err := decodeJSON(r, &req, true); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		quote, err := svc.Quote(ctx, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, quote)
	}
}

type cardBrandResponse struct {
	Brand domain.CardBrand `json:"brand"`
}

func cardBrandHandler(svc *service.CheckoutService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, cardBrandResponse{Brand: svc.DetectCardBrand(r.URL.Query().Get("number"))})
	}
}

func countriesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, checkout.Countries)
	}
}

type formatRequest struct {
	Field   string `json:"field" validate:"required,oneof=phone cpf cardNumber expiry cvv"`
	Value   string `json:"value"`
	Country string `json:"country,omitempty"`
}

type formatResponse struct {
	Value string           `json:"value"`
	Brand domain.CardBrand `json:"brand,omitempty"`
}

// formatHandler applies the input masks of the checkout form.
func formatHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req formatRequest
		if err := decodeJSON(r, &req, false); err != nil {
			handleServiceError(w, err, logger)
			return
		}

		var resp formatResponse
		switch req.Field {
		case "phone":
			resp.Value = checkout.FormatPhone(checkout.LookupCountry(req.Country), req.Value)
		case "cpf":
			resp.Value = checkout.FormatCPF(req.Value)
		case "cardNumber":
			resp.Value = checkout.FormatCardNumber(req.Value)
			resp.Brand = checkout.DetectCardBrand(req.Value)
		case "expiry":
			resp.Value = checkout.FormatExpiry(req.Value)
		case "cvv":
			resp.Value = checkout.FormatCVV(req.Value)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
