package coupon_test

import (
	"testing"

	"github.com/boddenberg/checkout-bfa-go/internal/coupon"
	"github.com/boddenberg/checkout-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

var price = decimal.RequireFromString("1797.00")

func TestLedger_ValidCodeAppliesDiscount(t *testing.T) {
	l := coupon.NewLedger(coupon.DefaultRegistry())

	if !l.ValidateAndApply("TESTE10") {
		t.Fatal("expected TESTE10 to be valid")
	}
	if l.Validity() != domain.CouponValid {
		t.Errorf("expected valid, got %s", l.Validity())
	}
	got := l.ApplyDiscount(price)
	if !got.Equal(decimal.RequireFromString("1617.30")) {
		t.Errorf("expected 1617.30, got %s", got)
	}
	if l.Message() != "Cupom aplicado com sucesso! (10% de desconto)" {
		t.Errorf("unexpected message '%s'", l.Message())
	}
}

func TestLedger_InvalidCodeIsIdentity(t *testing.T) {
	l := coupon.NewLedger(coupon.DefaultRegistry())
	l.ValidateAndApply("teste10")

	if l.ValidateAndApply("nope") {
		t.Fatal("expected 'nope' to be invalid")
	}
	if l.Active() != nil {
		t.Error("invalid code must clear the active coupon")
	}
	if l.Validity() != domain.CouponInvalid {
		t.Errorf("expected invalid, got %s", l.Validity())
	}
	if !l.ApplyDiscount(price).Equal(price) {
		t.Errorf("expected identity, got %s", l.ApplyDiscount(price))
	}
	if l.Message() != "Cupom inválido" {
		t.Errorf("unexpected message '%s'", l.Message())
	}
}

func TestLedger_RevalidationReplacesNotStacks(t *testing.T) {
	l := coupon.NewLedger(coupon.DefaultRegistry())

	l.ValidateAndApply("teste10")
	l.ValidateAndApply("teste10")
	if got := l.ApplyDiscount(price); !got.Equal(decimal.RequireFromString("1617.30")) {
		t.Errorf("discount compounded: %s", got)
	}

	l.ValidateAndApply("teste90")
	if got := l.ApplyDiscount(price); !got.Equal(decimal.RequireFromString("179.70")) {
		t.Errorf("expected 179.70 after replacing coupon, got %s", got)
	}
}

func TestLedger_ClearResetsToUnknown(t *testing.T) {
	l := coupon.NewLedger(coupon.DefaultRegistry())
	l.ValidateAndApply("nope")

	l.Clear()

	if l.Validity() != domain.CouponUnknown {
		t.Errorf("expected unknown, got %s", l.Validity())
	}
	if l.Message() != "" {
		t.Errorf("expected no message, got '%s'", l.Message())
	}
}

func TestLedger_FullAndZeroDiscount(t *testing.T) {
	reg := coupon.Registry{"free": decimal.NewFromInt(1), "noop": decimal.Zero}
	l := coupon.NewLedger(reg)

	l.ValidateAndApply("free")
	if !l.ApplyDiscount(price).IsZero() {
		t.Errorf("expected zero, got %s", l.ApplyDiscount(price))
	}

	l.ValidateAndApply("noop")
	if !l.ApplyDiscount(price).Equal(price) {
		t.Errorf("expected unchanged price, got %s", l.ApplyDiscount(price))
	}
}

func TestLedger_ApplyDiscountProperty(t *testing.T) {
	fractions := []string{"0", "0.01", "0.1", "0.15", "0.333", "0.5", "0.9", "1"}
	prices := []string{"0.01", "197", "354", "1797", "9999.99"}

	for _, f := range fractions {
		d := decimal.RequireFromString(f)
		l := coupon.NewLedger(coupon.Registry{"c": d})
		l.ValidateAndApply("c")
		for _, p := range prices {
			pd := decimal.RequireFromString(p)
			want := pd.Mul(decimal.NewFromInt(1).Sub(d))
			if got := l.ApplyDiscount(pd); !got.Equal(want) {
				t.Errorf("d=%s p=%s: got %s, want %s", f, p, got, want)
			}
		}
	}
}

func TestLedger_StateRoundTrip(t *testing.T) {
	reg := coupon.DefaultRegistry()
	l := coupon.NewLedger(reg)
	l.ValidateAndApply("Desconto10")

	restored := coupon.RestoreLedger(reg, l.State())

	if restored.Validity() != domain.CouponValid {
		t.Errorf("expected valid, got %s", restored.Validity())
	}
	if restored.Active() == nil || restored.Active().Code != "Desconto10" {
		t.Errorf("unexpected active coupon %+v", restored.Active())
	}

	fresh := coupon.RestoreLedger(reg, domain.LedgerState{})
	if fresh.Validity() != domain.CouponUnknown {
		t.Errorf("expected unknown for empty state, got %s", fresh.Validity())
	}
}

func TestParseRegistry(t *testing.T) {
	reg, err := coupon.ParseRegistry(" Black=0.15 , free=1,")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d, ok := reg.Lookup("BLACK")
	if !ok || !d.Equal(decimal.RequireFromString("0.15")) {
		t.Errorf("unexpected lookup result %s %v", d, ok)
	}

	for _, raw := range []string{"", "x", "x=abc", "x=1.5", "x=-0.1", "=0.1"} {
		if _, err := coupon.ParseRegistry(raw); err == nil {
			t.Errorf("ParseRegistry(%q): expected error", raw)
		}
	}
}
