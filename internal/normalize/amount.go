// Package normalize converts loosely formatted amounts and dates into
// canonical values. Every parser reports failure with a boolean and never
// panics on malformed input.
package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount extracts a decimal from text such as "£1,234.56" or "-£5".
// Every character other than digits, signs and the decimal point is
// discarded. A sign is only honoured in leading position.
func ParseAmount(text string) (decimal.Decimal, bool) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' || r == '+' {
			return r
		}
		return -1
	}, text)

	negative := false
	switch {
	case strings.HasPrefix(cleaned, "-"):
		negative = true
		cleaned = cleaned[1:]
	case strings.HasPrefix(cleaned, "+"):
		cleaned = cleaned[1:]
	}
	if cleaned == "" || cleaned == "." || strings.ContainsAny(cleaned, "+-") {
		return decimal.Zero, false
	}
	if strings.HasPrefix(cleaned, ".") {
		cleaned = "0" + cleaned
	}
	if strings.HasSuffix(cleaned, ".") {
		cleaned += "0"
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	if negative {
		d = d.Neg()
	}
	return d, true
}

// FormatAmount renders d with two decimals and a currency symbol, e.g.
// "£12.99" or "-£5.00".
func FormatAmount(d decimal.Decimal, symbol string) string {
	if d.IsNegative() {
		return "-" + symbol + d.Abs().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}
