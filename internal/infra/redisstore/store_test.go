package redisstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
	"github.com/boddenberg/checkout-bfa-go/internal/infra/redisstore"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// fakeRedis is an in-memory stand-in for *redis.Client.
type fakeRedis struct {
	data    map[string]string
	ttls    map[string]time.Duration
	failAll error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	if f.failAll != nil {
		return redis.NewStringResult("", f.failAll)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

// Eval runs the save script's compare-and-set against the map.
func (f *fakeRedis) Eval(_ context.Context, _ string, keys []string, args ...interface{}) *redis.Cmd {
	if f.failAll != nil {
		return redis.NewCmdResult(nil, f.failAll)
	}
	key := keys[0]
	var stored struct {
		Version int64 `json:"version"`
	}
	if cur, ok := f.data[key]; ok {
		_ = json.Unmarshal([]byte(cur), &stored)
	}
	if stored.Version != args[0].(int64) {
		return redis.NewCmdResult(int64(0), nil)
	}
	f.data[key] = string(args[1].([]byte))
	f.ttls[key] = time.Duration(args[2].(int64)) * time.Millisecond
	return redis.NewCmdResult(int64(1), nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *redis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return redis.NewIntResult(n, nil)
}

func (f *fakeRedis) Ping(context.Context) *redis.StatusCmd {
	if f.failAll != nil {
		return redis.NewStatusResult("", f.failAll)
	}
	return redis.NewStatusResult("PONG", nil)
}

func TestStore_SaveAndGet(t *testing.T) {
	fake := newFakeRedis()
	store := redisstore.New(fake, 30*time.Minute, nil)
	ctx := context.Background()

	sess := &domain.Session{
		ID:      "abc",
		Locator: "/kathy/projeto-90d",
		Plan:    domain.PlanConfig{DisplayName: "Projeto - 90D", Price: decimal.NewFromInt(497), MaxInstallments: 3},
		Flow: domain.FlowState{
			Step:                 domain.StepSelectingPayment,
			Payment:              domain.PaymentSelection{Method: domain.PaymentMethodCard, Installments: 3},
			LastCardInstallments: 3,
		},
		Coupon: domain.LedgerState{
			Active:   &domain.Coupon{Code: "teste10", Discount: decimal.RequireFromString("0.1")},
			Validity: domain.CouponValid,
		},
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.ttls["checkout:session:abc"] != 30*time.Minute {
		t.Errorf("expected ttl 30m, got %s", fake.ttls["checkout:session:abc"])
	}

	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Plan.Price.Equal(decimal.NewFromInt(497)) || got.Flow.Payment.Installments != 3 {
		t.Errorf("unexpected session %+v", got)
	}
	if got.Coupon.Active == nil || !got.Coupon.Active.Discount.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("coupon lost in round trip: %+v", got.Coupon)
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := redisstore.New(newFakeRedis(), time.Minute, nil)

	_, err := store.Get(context.Background(), "missing")

	var nf *domain.ErrNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_BackendFailure(t *testing.T) {
	fake := newFakeRedis()
	fake.failAll = errors.New("connection refused")
	store := redisstore.New(fake, time.Minute, nil)

	_, err := store.Get(context.Background(), "abc")
	var ext *domain.ErrExternalService
	if !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService, got %v", err)
	}
	if err := store.Save(context.Background(), &domain.Session{ID: "abc"}); !errors.As(err, &ext) {
		t.Fatalf("expected ErrExternalService on save, got %v", err)
	}
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected ping error")
	}
}

func TestStore_Delete(t *testing.T) {
	fake := newFakeRedis()
	store := redisstore.New(fake, time.Minute, nil)
	ctx := context.Background()
	_ = store.Save(ctx, &domain.Session{ID: "abc"})

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := fake.data["checkout:session:abc"]; ok {
		t.Error("expected key to be removed")
	}
}

func TestStore_ConcurrentSavesOnSameVersion(t *testing.T) {
	fake := newFakeRedis()
	store := redisstore.New(fake, time.Minute, nil)
	ctx := context.Background()

	if err := store.Save(ctx, &domain.Session{ID: "abc"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Two instances read the same version and both try to write.
	onA, _ := store.Get(ctx, "abc")
	onB, _ := store.Get(ctx, "abc")

	onA.Coupon = domain.LedgerState{
		Active:   &domain.Coupon{Code: "teste10", Discount: decimal.RequireFromString("0.1")},
		Validity: domain.CouponValid,
	}
	if err := store.Save(ctx, onA); err != nil {
		t.Fatalf("first save: %v", err)
	}
	if onA.Version != 2 {
		t.Errorf("expected version 2, got %d", onA.Version)
	}

	onB.Flow.Payment.Installments = 2
	var conflict *domain.ErrConflict
	if err := store.Save(ctx, onB); !errors.As(err, &conflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if onB.Version != 1 {
		t.Errorf("rejected save must not bump the version, got %d", onB.Version)
	}

	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Coupon.Active == nil || got.Coupon.Active.Code != "teste10" {
		t.Errorf("coupon lost to a stale write: %+v", got.Coupon)
	}
	if got.Version != 2 {
		t.Errorf("expected stored version 2, got %d", got.Version)
	}
}
