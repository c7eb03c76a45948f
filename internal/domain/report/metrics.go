package report

import "github.com/shopspring/decimal"

// MoneyPlaces is the rounding precision of reported amounts
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// Percent returns num / den × 100 rounded to two places, or zero when den is zero
func Percent(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den).Mul(hundred).Round(MoneyPlaces)
}

// Share returns num / den, or zero when den is zero
func Share(num, den decimal.Decimal) decimal.Decimal {
	if den.IsZero() {
		return decimal.Zero
	}
	return num.Div(den)
}
