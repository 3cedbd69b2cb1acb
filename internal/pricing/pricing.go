// Package pricing turns a plan, a payment selection and a coupon-adjusted
// price into the amounts shown by the summary and payment panels.
//
// Every value is kept as a decimal with full precision; rounding to two
// places happens only in FormatBRL.
package pricing

import (
	"fmt"
	"strings"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	labelMonthly = "por mês"
	labelInFull  = "à vista"
)

var hundred = decimal.NewFromInt(100)

// ComputeCharge returns the amount and labels for a payment selection.
//
// discountedPrice must already carry the coupon discount. installments must
// be within 1..plan.MaxInstallments; use ClampInstallments first.
func ComputeCharge(plan domain.PlanConfig, method domain.PaymentMethod, installments int, discountedPrice decimal.Decimal) domain.Charge {
	switch {
	case method == domain.PaymentMethodCard && installments > 1:
		amount := discountedPrice.Div(decimal.NewFromInt(int64(installments)))
		return domain.Charge{
			Amount:       amount,
			Total:        discountedPrice,
			Installments: installments,
			Label:        fmt.Sprintf("%dx de R$ %s", installments, FormatBRL(amount)),
			SubLabel:     fmt.Sprintf("ou R$ %s %s", FormatBRL(discountedPrice), labelInFull),
		}

	case method == domain.PaymentMethodPix:
		amount := ApplyPixDiscount(plan, discountedPrice)
		sub := settlementLabel(plan)
		if plan.HasPixDiscount() {
			sub = PixDiscountNote(plan)
		}
		return domain.Charge{
			Amount:       amount,
			Total:        amount,
			Installments: 1,
			Label:        "R$ " + FormatBRL(amount),
			SubLabel:     sub,
		}

	default:
		return domain.Charge{
			Amount:       discountedPrice,
			Total:        discountedPrice,
			Installments: 1,
			Label:        "R$ " + FormatBRL(discountedPrice),
			SubLabel:     settlementLabel(plan),
		}
	}
}

// ApplyPixDiscount applies the plan's PIX percentage to price.
func ApplyPixDiscount(plan domain.PlanConfig, price decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Sub(plan.PixDiscountPercentage.Div(hundred))
	return price.Mul(factor)
}

// PixDiscountNote is the "10% de desconto no PIX" line, empty without a discount.
func PixDiscountNote(plan domain.PlanConfig) string {
	if !plan.HasPixDiscount() {
		return ""
	}
	return fmt.Sprintf("%s%% de desconto no PIX", plan.PixDiscountPercentage.String())
}

// PaymentPanel builds the payment step total from the same charge the
// summary shows.
func PaymentPanel(plan domain.PlanConfig, method domain.PaymentMethod, charge domain.Charge) domain.PaymentPanel {
	panel := domain.PaymentPanel{Text: charge.Label}
	if method == domain.PaymentMethodPix {
		panel.Note = PixDiscountNote(plan)
	}
	return panel
}

// InstallmentOptions lists 1..MaxInstallments interest-free splits.
func InstallmentOptions(plan domain.PlanConfig, discountedPrice decimal.Decimal) []domain.InstallmentOption {
	options := make([]domain.InstallmentOption, 0, plan.MaxInstallments)
	for i := 1; i <= plan.MaxInstallments; i++ {
		amount := discountedPrice.Div(decimal.NewFromInt(int64(i)))
		options = append(options, domain.InstallmentOption{
			Value:  i,
			Amount: amount,
			Label:  fmt.Sprintf("%dx de R$ %s sem juros", i, FormatBRL(amount)),
		})
	}
	return options
}

// ClampInstallments forces n into 1..plan.MaxInstallments.
func ClampInstallments(plan domain.PlanConfig, n int) int {
	if n < 1 {
		return 1
	}
	if plan.MaxInstallments >= 1 && n > plan.MaxInstallments {
		return plan.MaxInstallments
	}
	return n
}

// FormatBRL renders d with two decimals and a comma separator ("134,78").
func FormatBRL(d decimal.Decimal) string {
	return strings.Replace(d.StringFixed(2), ".", ",", 1)
}

func settlementLabel(plan domain.PlanConfig) string {
	if plan.Recurring {
		return labelMonthly
	}
	return labelInFull
}
