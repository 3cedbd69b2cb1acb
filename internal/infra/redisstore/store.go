// Package redisstore keeps checkout sessions in Redis so several BFA
// instances can serve the same browser tab. Saves are compare-and-set on
// the session version, so concurrent writes from different instances
// cannot overwrite each other.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/observability"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("infra/redisstore")

const (
	keyPrefix = "checkout:session:"
	storeName = "redis"
)

// saveScript writes ARGV[2] with a PX of ARGV[3] only when the stored
// session's version equals ARGV[1]. A missing key counts as version 0.
// Returns 1 when written and 0 on a version mismatch.
const saveScript = `
local cur = redis.call('GET', KEYS[1])
local ver = 0
if cur then
  ver = tonumber(cjson.decode(cur).version) or 0
end
if ver ~= tonumber(ARGV[1]) then
  return 0
end
redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
return 1
`

// RedisClient is the subset of *redis.Client the store uses.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// Store is a port.SessionStore backed by Redis. Sessions are JSON values
// expiring ttl after their last save.
type Store struct {
	client  RedisClient
	ttl     time.Duration
	metrics *observability.Metrics
}

// New creates a Store. metrics may be nil.
func New(client RedisClient, ttl time.Duration, metrics *observability.Metrics) *Store {
	return &Store{client: client, ttl: ttl, metrics: metrics}
}

// NewClient opens a go-redis client for addr.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func (s *Store) Get(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "RedisStore.Get")
	defer span.End()
	span.SetAttributes(attribute.String("session.id", id))

	raw, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		s.count(false)
		return nil, &domain.ErrNotFound{Resource: "session", ID: id}
	}
	if err != nil {
		return nil, &domain.ErrExternalService{Service: storeName, Err: err}
	}
	s.count(true)

	var sess domain.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, fmt.Errorf("decoding session %s: %w", id, err)
	}
	return &sess, nil
}

// Save writes sess if nobody saved it since it was read, and bumps
// sess.Version. A lost race returns *domain.ErrConflict.
func (s *Store) Save(ctx context.Context, sess *domain.Session) error {
	ctx, span := tracer.Start(ctx, "RedisStore.Save")
	defer span.End()
	span.SetAttributes(
		attribute.String("session.id", sess.ID),
		attribute.Int64("session.version", sess.Version),
	)

	next := *sess
	next.Version++
	raw, err := json.Marshal(&next)
	if err != nil {
		return fmt.Errorf("encoding session %s: %w", sess.ID, err)
	}

	written, err := s.client.Eval(ctx, saveScript, []string{keyPrefix + sess.ID},
		sess.Version, raw, s.ttl.Milliseconds()).Int()
	if err != nil {
		return &domain.ErrExternalService{Service: storeName, Err: err}
	}
	if written == 0 {
		return &domain.ErrConflict{Resource: "session", ID: sess.ID}
	}
	sess.Version = next.Version
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return &domain.ErrExternalService{Service: storeName, Err: err}
	}
	return nil
}

// Ping checks the Redis connection for /readyz.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Store) count(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.IncrCacheHit(storeName)
	} else {
		s.metrics.IncrCacheMiss(storeName)
	}
}
