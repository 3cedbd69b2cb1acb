package checkout

import (
	"regexp"
	"strings"

	"github.com/boddenberg/checkout-bfa-go/internal/domain"
)

// Patterns are tried in order and the first match wins. The Elo BINs that
// start with 4 are therefore reported as Visa.
var brandPatterns = []struct {
	brand domain.CardBrand
	re    *regexp.Regexp
}{
	{domain.CardBrandVisa, regexp.MustCompile(`^4`)},
	{domain.CardBrandMastercard, regexp.MustCompile(`^5[1-5]`)},
	{domain.CardBrandAmex, regexp.MustCompile(`^3[47]`)},
	{domain.CardBrandElo, regexp.MustCompile(`^(636368|438935|504175|451416|509048|509067|509049|509069|509050|509074|509068|509040|509045|509051|509046|509066|509047|509042|509052|509043|509064)`)},
	{domain.CardBrandHipercard, regexp.MustCompile(`^606282`)},
}

// DetectCardBrand classifies a card number by prefix. Non-digits are
// ignored; unknown is returned when nothing matches.
func DetectCardBrand(number string) domain.CardBrand {
	digits := Digits(number)
	for _, p := range brandPatterns {
		if p.re.MatchString(digits) {
			return p.brand
		}
	}
	return domain.CardBrandUnknown
}

// MaskCardNumber keeps only the brand and the last four digits.
func MaskCardNumber(number string) domain.MaskedCard {
	digits := Digits(number)
	last4 := digits
	if len(digits) > 4 {
		last4 = digits[len(digits)-4:]
	}
	return domain.MaskedCard{
		Brand:  DetectCardBrand(digits),
		Last4:  last4,
		Masked: strings.Repeat("•", len(digits)-len(last4)) + last4,
	}
}
