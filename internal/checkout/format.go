package checkout

import (
	"strings"
	"unicode"
)

const (
	maxPhoneDigits = 11
	maxCPFDigits   = 11
	maxCardDigits  = 16
	maxExpiry      = 4
	maxCVV         = 4
)

// Country is an entry of the phone dial-code selector.
type Country struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	DialCode string `json:"dialCode"`
}

// Countries lists the selectable phone countries; Brazil is the default.
var Countries = []Country{
	{Code: "BR", Name: "Brasil", DialCode: "+55"},
	{Code: "US", Name: "United States", DialCode: "+1"},
	{Code: "PT", Name: "Portugal", DialCode: "+351"},
	{Code: "ES", Name: "España", DialCode: "+34"},
	{Code: "FR", Name: "France", DialCode: "+33"},
	{Code: "IT", Name: "Italia", DialCode: "+39"},
	{Code: "DE", Name: "Deutschland", DialCode: "+49"},
}

// LookupCountry finds a country by ISO code, falling back to Brazil.
func LookupCountry(code string) Country {
	for _, c := range Countries {
		if strings.EqualFold(c.Code, strings.TrimSpace(code)) {
			return c
		}
	}
	return Countries[0]
}

// Digits strips everything but ASCII digits.
func Digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r <= unicode.MaxASCII && unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// FormatPhone renders "+55 (11) 9 8765-4321" progressively as digits are
// typed. Digits beyond the eleventh are dropped. The dial code is always
// kept, so an empty field yields "+55 ".
func FormatPhone(country Country, raw string) string {
	d := truncate(Digits(raw), maxPhoneDigits)
	if d == "" {
		return country.DialCode + " "
	}
	var b strings.Builder
	b.WriteString("(" + d[:min(2, len(d))])
	if len(d) > 2 {
		b.WriteString(") " + d[2:3])
	}
	if len(d) > 3 {
		b.WriteString(" " + d[3:min(7, len(d))])
	}
	if len(d) > 7 {
		b.WriteString("-" + d[7:])
	}
	return country.DialCode + " " + b.String()
}

// FormatCPF renders "123.456.789-09" progressively.
func FormatCPF(raw string) string {
	d := truncate(Digits(raw), maxCPFDigits)
	var b strings.Builder
	for i, r := range d {
		switch i {
		case 3, 6:
			b.WriteByte('.')
		case 9:
			b.WriteByte('-')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatCardNumber groups up to sixteen digits in blocks of four.
func FormatCardNumber(raw string) string {
	d := truncate(Digits(raw), maxCardDigits)
	var b strings.Builder
	for i, r := range d {
		if i > 0 && i%4 == 0 {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// FormatExpiry renders "MM/YY" once the month is typed.
func FormatExpiry(raw string) string {
	d := truncate(Digits(raw), maxExpiry)
	if len(d) >= 2 {
		return d[:2] + "/" + d[2:]
	}
	return d
}

// FormatCVV keeps up to four digits.
func FormatCVV(raw string) string {
	return truncate(Digits(raw), maxCVV)
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
