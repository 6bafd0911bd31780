package finance

import (
	"github.com/shopspring/decimal"
)

// MarginFallback is rendered instead of a percentage when the tariff is zero.
const MarginFallback = "N/A"

// Money renders an amount with two decimals.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Percent renders a margin with two decimals, or MarginFallback for nil.
func Percent(m *decimal.Decimal) string {
	if m == nil {
		return MarginFallback
	}
	return m.StringFixed(2) + "%"
}

// RemainingAfter reports what the client would still owe after paying
// amount. Zero means the payment settles the trip.
func RemainingAfter(b ClientBalance, amount decimal.Decimal) decimal.Decimal {
	rest := b.Outstanding.Sub(amount)
	if rest.IsNegative() {
		return decimal.Zero
	}
	return rest
}
