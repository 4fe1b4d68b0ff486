package records

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ToCents converts an amount in currency units to the processor's smallest unit.
func ToCents(amount decimal.Decimal) int64 {
	return amount.Mul(hundred).Round(0).IntPart()
}

// FromCents converts a smallest-unit total back to currency units, two decimals.
func FromCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
