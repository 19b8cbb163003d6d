package commissions

import (
	"github.com/shopspring/decimal"
)

// Currency is the only currency commissions are billed in.
const Currency = "USD"

// Rate is the marketplace commission applied to merchandise sales.
// Each payment stores the rate it was billed at.
var Rate = decimal.RequireFromString("0.04")

// Commission is the computed obligation for a range of orders.
type Commission struct {
	TotalSales       decimal.Decimal
	CommissionAmount decimal.Decimal
	Rate             decimal.Decimal
}

// Calculate sums subtotals and applies rate, rounding half-up to cents.
func Calculate(subtotals []decimal.Decimal, rate decimal.Decimal) Commission {
	total := decimal.Zero
	for _, s := range subtotals {
		total = total.Add(s)
	}
	if total.IsZero() {
		return Commission{TotalSales: decimal.Zero, CommissionAmount: decimal.Zero, Rate: rate}
	}
	return Commission{
		TotalSales:       total,
		CommissionAmount: total.Mul(rate).Round(2),
		Rate:             rate,
	}
}

// AmountCents converts a two-decimal amount into minor units.
func AmountCents(amount decimal.Decimal) int64 {
	return amount.Round(2).Shift(2).IntPart()
}
