package cache

import (
	"context"
	"sync"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/observability"
	"github.com/boddenberg/checkout-bfa-go/internal/port"
)

const storeName = "memory"

// SessionStore keeps sessions in process memory. Saving a session restarts
// its TTL, so idle sessions expire and active ones do not.
type SessionStore struct {
	mu      sync.Mutex // serializes the version check and write in Save
	cache   port.Cache[domain.Session]
	metrics *observability.Metrics
}

// NewSessionStore wraps a cache. metrics may be nil.
func NewSessionStore(c port.Cache[domain.Session], metrics *observability.Metrics) *SessionStore {
	return &SessionStore{cache: c, metrics: metrics}
}

func (s *SessionStore) Get(_ context.Context, id string) (*domain.Session, error) {
	sess, ok := s.cache.Get(id)
	if !ok {
		if s.metrics != nil {
			s.metrics.IncrCacheMiss(storeName)
		}
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	if s.metrics != nil {
		s.metrics.IncrCacheHit(storeName)
	}
	return &sess, nil
}

// Save stores a copy of sess when its version matches the stored one and
// bumps sess.Version.
func (s *SessionStore) Save(_ context.Context, sess *domain.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stored int64
	if cur, ok := s.cache.Get(sess.ID); ok {
		stored = cur.Version
	}
	if stored != sess.Version {
		return &domain.ErrConflict{Resource: "session", ID: sess.ID}
	}
	sess.Version++
	s.cache.Set(sess.ID, *sess)
	return nil
}

func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Ping always succeeds; the store lives in process.
func (s *SessionStore) Ping(context.Context) error {
	return nil
}
