package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	cases := map[string]decimal.Decimal{
		"$0.00":         decimal.Zero,
		"$20.00":        decimal.NewFromInt(20),
		"$9.99":         decimal.RequireFromString("9.99"),
		"$1,234.50":     decimal.RequireFromString("1234.5"),
		"$1,000,000.00": decimal.NewFromInt(1000000),
		"-$3.50":        decimal.RequireFromString("-3.5"),
	}
	for want, amount := range cases {
		assert.Equal(t, want, Format(amount))
	}
}

func TestLineTotal(t *testing.T) {
	assert.Equal(t, "$20.00", Format(LineTotal(10, 2)))
	assert.Equal(t, "$0.30", Format(LineTotal(0.1, 3)))
	assert.Equal(t, "$0.00", Format(LineTotal(19.99, 0)))
}
