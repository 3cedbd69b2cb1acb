package coupon

import (
	"fmt"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	msgApplied = "Cupom aplicado com sucesso! (%s%% de desconto)"
	msgInvalid = "Cupom inválido"
)

// Ledger holds at most one active coupon and the outcome of the last
// validation. It is not safe for concurrent use; callers serialize access
// per checkout session.
type Ledger struct {
	registry Registry
	active   *domain.Coupon
	validity domain.CouponValidity
}

// NewLedger returns an empty ledger with unknown validity.
func NewLedger(reg Registry) *Ledger {
	return &Ledger{registry: reg, validity: domain.CouponUnknown}
}

// RestoreLedger rebuilds a ledger from a saved state.
func RestoreLedger(reg Registry, state domain.LedgerState) *Ledger {
	l := NewLedger(reg)
	if state.Active != nil {
		c := *state.Active
		l.active = &c
	}
	if state.Validity != "" {
		l.validity = state.Validity
	}
	return l
}

// ValidateAndApply looks code up. A hit replaces the active coupon, a miss
// clears it. Re-validating the same code never stacks discounts.
func (l *Ledger) ValidateAndApply(code string) bool {
	d, ok := l.registry.Lookup(code)
	if !ok {
		l.active = nil
		l.validity = domain.CouponInvalid
		return false
	}
	l.active = &domain.Coupon{Code: code, Discount: d}
	l.validity = domain.CouponValid
	return true
}

// Clear drops the active coupon and resets validity to unknown.
func (l *Ledger) Clear() {
	l.active = nil
	l.validity = domain.CouponUnknown
}

// ApplyDiscount returns price*(1-d) for the active coupon, or price.
func (l *Ledger) ApplyDiscount(price decimal.Decimal) decimal.Decimal {
	if l.active == nil {
		return price
	}
	return price.Mul(decimal.NewFromInt(1).Sub(l.active.Discount))
}

// Active returns a copy of the active coupon, or nil.
func (l *Ledger) Active() *domain.Coupon {
	if l.active == nil {
		return nil
	}
	c := *l.active
	return &c
}

func (l *Ledger) Validity() domain.CouponValidity {
	return l.validity
}

// State returns the serializable form of the ledger.
func (l *Ledger) State() domain.LedgerState {
	return domain.LedgerState{Active: l.Active(), Validity: l.validity}
}

// Message is the feedback line shown under the coupon field.
func (l *Ledger) Message() string {
	switch l.validity {
	case domain.CouponValid:
		if l.active != nil {
			return fmt.Sprintf(msgApplied, l.active.Discount.Mul(decimal.NewFromInt(100)).String())
		}
	case domain.CouponInvalid:
		return msgInvalid
	}
	return ""
}

// View renders the ledger for API responses.
func (l *Ledger) View() domain.CouponView {
	v := domain.CouponView{Validity: l.validity, Message: l.Message(), Discount: decimal.Zero}
	if l.active != nil {
		v.Code = l.active.Code
		v.Discount = l.active.Discount
	}
	return v
}
