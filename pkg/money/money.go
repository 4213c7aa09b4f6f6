package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FromFloat converts a backend price into a two-place decimal.
func FromFloat(value float64) decimal.Decimal {
	return decimal.NewFromFloat(value).Round(2)
}

// LineTotal returns price * quantity.
func LineTotal(price float64, quantity int) decimal.Decimal {
	return FromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// Format renders an amount as dollars, e.g. "$20.00" or "-$3.50".
func Format(amount decimal.Decimal) string {
	fixed := amount.Abs().StringFixed(2)
	whole, frac, _ := strings.Cut(fixed, ".")
	out := "$" + groupThousands(whole) + "." + frac
	if amount.IsNegative() {
		return "-" + out
	}
	return out
}

// FormatFloat is Format for raw backend prices.
func FormatFloat(value float64) string {
	return Format(FromFloat(value))
}

func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % 3
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}
