// Package coupon validates discount codes and keeps the one active coupon
// of a checkout.
package coupon

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Registry maps a lower-case coupon code to the fraction it takes off.
type Registry map[string]decimal.Decimal

// DefaultRegistry returns the codes accepted when COUPON_CODES is unset.
func DefaultRegistry() Registry {
	return Registry{
		"teste90":    decimal.RequireFromString("0.9"),
		"teste10":    decimal.RequireFromString("0.1"),
		"teste100":   decimal.NewFromInt(1),
		"desconto10": decimal.RequireFromString("0.1"),
	}
}

// ParseRegistry reads "code=0.15,other=1". Fractions must be within [0,1].
func ParseRegistry(raw string) (Registry, error) {
	reg := Registry{}
	for _, entry := range strings.Split(raw, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		code, value, ok := strings.Cut(entry, "=")
		if !ok {
			return nil, fmt.Errorf("coupon entry %q: expected code=fraction", entry)
		}
		code = normalizeCode(code)
		if code == "" {
			return nil, fmt.Errorf("coupon entry %q: empty code", entry)
		}
		d, err := decimal.NewFromString(strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("coupon %q: %w", code, err)
		}
		if err := checkFraction(d); err != nil {
			return nil, fmt.Errorf("coupon %q: %w", code, err)
		}
		reg[code] = d
	}
	if len(reg) == 0 {
		return nil, fmt.Errorf("no coupon codes in %q", raw)
	}
	return reg, nil
}

// Lookup finds a code, ignoring case and surrounding spaces.
func (r Registry) Lookup(code string) (decimal.Decimal, bool) {
	d, ok := r[normalizeCode(code)]
	return d, ok
}

func checkFraction(d decimal.Decimal) error {
	if d.IsNegative() || d.GreaterThan(decimal.NewFromInt(1)) {
		return fmt.Errorf("discount must be within [0,1], got %s", d)
	}
	return nil
}

func normalizeCode(code string) string {
	return strings.ToLower(strings.TrimSpace(code))
}
