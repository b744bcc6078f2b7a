// Package pricing derives pack sale prices from cost and markup.
package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

var ErrNegativeInput = errors.New("cost price and markup must not be negative")

// DefaultMarkupPercent applies when no markup has been configured.
var DefaultMarkupPercent = decimal.NewFromInt(10)

var (
	hundred = decimal.NewFromInt(100)
	half    = decimal.NewFromFloat(0.5)
)

// ComputeSalePrice returns cost * (1 + markup/100) quantized up to the next
// half unit.
func ComputeSalePrice(costPrice decimal.Decimal, markupPercent decimal.Decimal) (decimal.Decimal, error) {
	if costPrice.IsNegative() || markupPercent.IsNegative() {
		return decimal.Zero, ErrNegativeInput
	}
	factor := decimal.NewFromInt(1).Add(markupPercent.Div(hundred))
	return Round50(costPrice.Mul(factor)), nil
}

// Round50 rounds up to the nearest multiple of 0.5. Values already on a
// whole unit are returned unchanged; it never rounds down.
func Round50(price decimal.Decimal) decimal.Decimal {
	floor := price.Floor()
	frac := price.Sub(floor)
	switch {
	case frac.IsZero():
		return floor
	case frac.LessThanOrEqual(half):
		return floor.Add(half)
	default:
		return floor.Add(decimal.NewFromInt(1))
	}
}
