package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Plans
// ============================================================

// DefaultSupportPhone is the vendor WhatsApp number used when the issuer has none.
const DefaultSupportPhone = "5511999999999"

// PlanConfig is the immutable plan a checkout session sells.
// It is resolved once per navigation and shared read-only.
type PlanConfig struct {
	ID                    string          `json:"id"`
	IssuerKey             string          `json:"issuerKey"`
	IssuerName            string          `json:"issuerName"`
	IssuerID              string          `json:"issuerId"`
	IssuerPhone           string          `json:"issuerPhone,omitempty"`
	PlanKey               string          `json:"planKey"`
	DisplayName           string          `json:"displayName"`
	Price                 decimal.Decimal `json:"price"`
	MaxInstallments       int             `json:"maxInstallments"`
	PixDiscountPercentage decimal.Decimal `json:"pixDiscountPercentage"`
	Recurring             bool            `json:"recurring"`
}

// SupportURL returns the WhatsApp deep link for the plan's issuer.
func (p PlanConfig) SupportURL() string {
	phone := p.IssuerPhone
	if phone == "" {
		phone = DefaultSupportPhone
	}
	return "https://wa.me/" + phone
}

// HasPixDiscount reports whether paying with PIX lowers the price.
func (p PlanConfig) HasPixDiscount() bool {
	return p.PixDiscountPercentage.IsPositive()
}

// ============================================================
// Payment
// ============================================================

// PaymentMethod is one of card, pix or boleto.
type PaymentMethod string

const (
	PaymentMethodCard   PaymentMethod = "card"
	PaymentMethodPix    PaymentMethod = "pix"
	PaymentMethodBoleto PaymentMethod = "boleto"
)

// ParsePaymentMethod validates a raw payment method name.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	switch m := PaymentMethod(raw); m {
	case PaymentMethodCard, PaymentMethodPix, PaymentMethodBoleto:
		return m, nil
	}
	return "", &ErrValidation{Field: "method", Message: fmt.Sprintf("unknown payment method %q", raw)}
}

// PaymentSelection is the payment method plus the card installment count.
// Installments is always 1 for non-card methods.
type PaymentSelection struct {
	Method       PaymentMethod `json:"method"`
	Installments int           `json:"installments"`
}

// CardDetails are the card fields typed in the payment step.
// They only travel with the completion request and are never stored.
type CardDetails struct {
	Number string `json:"cardNumber"`
	Expiry string `json:"expiry"`
	CVV    string `json:"cvv"`
}

// CardBrand is the cosmetic brand detected from the card number prefix.
type CardBrand string

const (
	CardBrandVisa       CardBrand = "visa"
	CardBrandMastercard CardBrand = "mastercard"
	CardBrandAmex       CardBrand = "amex"
	CardBrandElo        CardBrand = "elo"
	CardBrandHipercard  CardBrand = "hipercard"
	CardBrandUnknown    CardBrand = "unknown"
)

// MaskedCard is what leaves the checkout about a card: brand and last digits.
type MaskedCard struct {
	Brand  CardBrand `json:"brand"`
	Last4  string    `json:"last4"`
	Masked string    `json:"masked"`
}

// ============================================================
// User data
// ============================================================

// UserData is the buyer's personal data collected in the first step.
type UserData struct {
	FullName string `json:"fullName" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
	CPF      string `json:"cpf" validate:"required"`
}

// MissingFields lists the json names of empty required fields.
func (u UserData) MissingFields() []string {
	var missing []string
	if u.FullName == "" {
		missing = append(missing, "fullName")
	}
	if u.Email == "" {
		missing = append(missing, "email")
	}
	if u.Phone == "" {
		missing = append(missing, "phone")
	}
	if u.CPF == "" {
		missing = append(missing, "cpf")
	}
	return missing
}

// UserDataPatch is a partial edit of UserData; nil fields are left alone.
type UserDataPatch struct {
	FullName *string `json:"fullName,omitempty"`
	Email    *string `json:"email,omitempty"`
	Phone    *string `json:"phone,omitempty"`
	CPF      *string `json:"cpf,omitempty"`
}

// Apply returns u with the non-nil patch fields replaced.
func (p UserDataPatch) Apply(u UserData) UserData {
	if p.FullName != nil {
		u.FullName = *p.FullName
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Phone != nil {
		u.Phone = *p.Phone
	}
	if p.CPF != nil {
		u.CPF = *p.CPF
	}
	return u
}

// ============================================================
// Checkout flow
// ============================================================

// Step is the current wizard step.
type Step string

const (
	StepCollectingUserData Step = "collecting-user-data"
	StepSelectingPayment   Step = "selecting-payment"
	StepCompleted          Step = "completed"
)

// IsTerminal reports whether no further transition is defined.
func (s Step) IsTerminal() bool {
	return s == StepCompleted
}

// FlowState is the serializable state of one checkout flow.
type FlowState struct {
	Step                 Step             `json:"step"`
	UserData             UserData         `json:"userData"`
	Payment              PaymentSelection `json:"payment"`
	LastCardInstallments int              `json:"lastCardInstallments"`
}

// ============================================================
// Coupons
// ============================================================

// Coupon is an applied discount code. Discount is the fraction off, in [0,1].
type Coupon struct {
	Code     string          `json:"code"`
	Discount decimal.Decimal `json:"discount"`
}

// CouponValidity is the outcome of the latest validation attempt.
type CouponValidity string

const (
	CouponUnknown CouponValidity = "unknown"
	CouponValid   CouponValidity = "valid"
	CouponInvalid CouponValidity = "invalid"
)

// LedgerState is the serializable state of a coupon ledger.
type LedgerState struct {
	Active   *Coupon        `json:"active,omitempty"`
	Validity CouponValidity `json:"validity"`
}

// ============================================================
// Pricing
// ============================================================

// Charge is the amount shown and charged for a payment selection.
// Amount is per installment for card splits; Total is the coupon-adjusted
// full price (after the PIX discount when paying with PIX).
type Charge struct {
	Amount       decimal.Decimal `json:"amount"`
	Total        decimal.Decimal `json:"total"`
	Installments int             `json:"installments"`
	Label        string          `json:"label"`
	SubLabel     string          `json:"subLabel"`
}

// PaymentPanel is the "Total nesta cobrança" block of the payment step.
type PaymentPanel struct {
	Text string `json:"text"`
	Note string `json:"note,omitempty"`
}

// InstallmentOption is one entry of the installments select.
type InstallmentOption struct {
	Value  int             `json:"value"`
	Amount decimal.Decimal `json:"amount"`
	Label  string          `json:"label"`
}

// ============================================================
// Sessions
// ============================================================

// Session is one checkout in progress, as kept by a SessionStore.
type Session struct {
	ID        string      `json:"id"`
	Locator   string      `json:"locator"`
	Plan      PlanConfig  `json:"plan"`
	Flow      FlowState   `json:"flow"`
	Coupon    LedgerState `json:"coupon"`
	OrderID   string      `json:"orderId,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`

	// Version counts saves. A store only accepts a save whose Version
	// matches the stored one, and bumps it on success.
	Version int64 `json:"version"`
}

// CouponView is the coupon block of a session response.
type CouponView struct {
	Code     string          `json:"code,omitempty"`
	Discount decimal.Decimal `json:"discount"`
	Validity CouponValidity  `json:"validity"`
	Message  string          `json:"message,omitempty"`
}

// SessionView is what the API returns for a session.
type SessionView struct {
	ID                   string              `json:"id"`
	Step                 Step                `json:"step"`
	UserData             UserData            `json:"userData"`
	Payment              PaymentSelection    `json:"payment"`
	LastCardInstallments int                 `json:"lastCardInstallments"`
	Plan                 PlanConfig          `json:"plan"`
	SupportURL           string              `json:"supportUrl"`
	Coupon               CouponView          `json:"coupon"`
	Summary              Charge              `json:"summary"`
	PaymentPanel         PaymentPanel        `json:"paymentPanel"`
	InstallmentOptions   []InstallmentOption `json:"installmentOptions"`
	OrderID              string              `json:"orderId,omitempty"`
}

// ============================================================
// Orders
// ============================================================

// Order is the tuple handed off when a checkout completes.
type Order struct {
	ID          string           `json:"id"`
	SessionID   string           `json:"sessionId"`
	PlanID      string           `json:"planId"`
	IssuerName  string           `json:"issuerName"`
	PlanKey     string           `json:"planKey"`
	PlanName    string           `json:"planName"`
	UserData    UserData         `json:"userData"`
	Payment     PaymentSelection `json:"payment"`
	Card        *MaskedCard      `json:"card,omitempty"`
	Coupon      *Coupon          `json:"coupon,omitempty"`
	Charge      Charge           `json:"charge"`
	CompletedAt time.Time        `json:"completedAt"`
}

// ============================================================
// Requests & results
// ============================================================

// StartSessionRequest is the body of POST /v1/checkout/sessions.
type StartSessionRequest struct {
	Path string `json:"path"`
}

// StartedSession is returned when a checkout session is created.
type StartedSession struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	Session   SessionView `json:"session"`
}

// SelectPaymentMethodRequest is the body of PUT .../payment-method.
type SelectPaymentMethodRequest struct {
	Method string `json:"method" validate:"required,oneof=card pix boleto"`
}

// SetInstallmentsRequest is the body of PUT .../installments.
type SetInstallmentsRequest struct {
	Installments int `json:"installments" validate:"required,min=1"`
}

// ApplyCouponRequest is the body of POST .../coupon.
type ApplyCouponRequest struct {
	Code string `json:"code"`
}

// CompletionResult is returned by POST .../complete.
type CompletionResult struct {
	Order   *Order      `json:"order"`
	Session SessionView `json:"session"`
}

// QuoteRequest prices a plan without a session.
type QuoteRequest struct {
	Path         string `json:"path"`
	Method       string `json:"method" validate:"omitempty,oneof=card pix boleto"`
	Installments int    `json:"installments" validate:"omitempty,min=1"`
	Coupon       string `json:"coupon,omitempty"`
}

// Quote is the stateless pricing answer.
type Quote struct {
	Plan               PlanConfig          `json:"plan"`
	Payment            PaymentSelection    `json:"payment"`
	Coupon             CouponView          `json:"coupon"`
	Summary            Charge              `json:"summary"`
	PaymentPanel       PaymentPanel        `json:"paymentPanel"`
	InstallmentOptions []InstallmentOption `json:"installmentOptions"`
}
