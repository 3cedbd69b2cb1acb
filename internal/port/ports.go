// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
)

// SessionStore keeps checkout sessions between HTTP requests.
// Get returns *domain.ErrNotFound for unknown or expired sessions.
// Save is a compare-and-set on Session.Version: it fails with
// *domain.ErrConflict when the stored version differs, and bumps
// s.Version on success. New sessions are saved with Version 0.
type SessionStore interface {
	Get(ctx context.Context, id string) (*domain.Session, error)
	Save(ctx context.Context, s *domain.Session) error
	Delete(ctx context.Context, id string) error
}

// OrderHandoff receives the order of a completed checkout.
// It is the terminal collaborator; the checkout does not capture payments.
type OrderHandoff interface {
	Deliver(ctx context.Context, order *domain.Order) error
}

// Pinger is implemented by dependencies that can report readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
