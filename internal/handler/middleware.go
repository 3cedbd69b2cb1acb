package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/boddenberg/checkout-bfa-go/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type contextKey string

const sessionIDKey contextKey = "sessionID"

// SessionAuthMiddleware validates the Bearer session token and requires its
// subject to match the {sessionId} route parameter.
func SessionAuthMiddleware(svc *service.CheckoutService, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("auth: missing session token",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				writeError(w, http.StatusUnauthorized, "Token de sessão não fornecido")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "Formato de token inválido")
				return
			}

			subject, err := svc.ValidateSessionToken(parts[1])
			if err != nil {
				logger.Warn("auth: invalid or expired session token",
					zap.String("path", r.URL.Path),
					zap.Error(err),
				)
				writeError(w, http.StatusUnauthorized, err.Error())
				return
			}

			if subject != chi.URLParam(r, "sessionId") {
				logger.Warn("auth: token issued for another session",
					zap.String("path", r.URL.Path),
					zap.String("token_session_id", subject),
				)
				writeError(w, http.StatusForbidden, "Token não pertence a esta sessão")
				return
			}

			ctx := context.WithValue(r.Context(), sessionIDKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionIDFromContext extracts the authenticated session ID from context.
func SessionIDFromContext(ctx context.Context) string {
	v, _ := ctx.Value(sessionIDKey).(string)
	return v
}
