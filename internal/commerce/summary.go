package commerce

import (
	"github.com/angelmondragon/storefront/internal/normalize"
	"github.com/angelmondragon/storefront/pkg/money"
	"github.com/shopspring/decimal"
)

// CartLine is a cart row with its computed line total.
type CartLine struct {
	normalize.CartRow
	LineTotal decimal.Decimal
}

// CartSummary is the cart as rendered: lines, item count and subtotal.
type CartSummary struct {
	Lines     []CartLine
	ItemCount int
	Subtotal  decimal.Decimal
	Malformed bool
}

func (c CartSummary) Empty() bool {
	return len(c.Lines) == 0
}

func (c CartSummary) SubtotalText() string {
	return money.Format(c.Subtotal)
}

// Summarize totals normalized cart rows.
func Summarize(result normalize.Result[normalize.CartRow]) CartSummary {
	summary := CartSummary{
		Lines:     make([]CartLine, 0, len(result.Rows)),
		Subtotal:  decimal.Zero,
		Malformed: result.Malformed(),
	}
	for _, row := range result.Rows {
		line := CartLine{CartRow: row, LineTotal: money.LineTotal(row.Product.Price, row.Quantity)}
		summary.Lines = append(summary.Lines, line)
		summary.ItemCount += row.Quantity
		summary.Subtotal = summary.Subtotal.Add(line.LineTotal)
	}
	return summary
}
