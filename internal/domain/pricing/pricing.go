// Package pricing computes discounted line prices and order totals.
//
// Discounts apply to each unit, not to the line or order total: a fixed
// coupon worth 15 takes 15 off every unit, and a percentage coupon takes
// its fraction off every unit. A discounted unit price never goes below
// zero. The order total is quantized exactly once, at the end.
package pricing

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
)

// Line is one cart line with its current catalog unit price.
type Line struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	Quantity  int
}

// PricedLine carries the frozen per-unit price after discount.
type PricedLine struct {
	ProductID string
	Name      string
	UnitPrice decimal.Decimal
	// DiscountedUnitPrice is what the buyer pays per unit. It equals
	// UnitPrice when no discount applies.
	DiscountedUnitPrice decimal.Decimal
	Quantity            int
}

// Quote is the outcome of pricing a cart against an optional coupon.
type Quote struct {
	Lines []PricedLine
	// Total is the sum of line totals, rounded half-up to 2 decimal
	// places and never negative.
	Total decimal.Decimal
}

// Compute prices the given lines. A nil coupon means no discount. An
// unrecognized discount type is logged and treated as no discount.
func Compute(lg *zap.Logger, lines []Line, c *coupon.Coupon) Quote {
	priced := make([]PricedLine, len(lines))
	total := decimal.Zero

	for i, l := range lines {
		unit := l.UnitPrice
		if c != nil {
			unit = discountUnit(lg, c, unit)
		}
		priced[i] = PricedLine{
			ProductID:           l.ProductID,
			Name:                l.Name,
			UnitPrice:           l.UnitPrice,
			DiscountedUnitPrice: unit,
			Quantity:            l.Quantity,
		}
		total = total.Add(unit.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}

	if total.IsNegative() {
		total = decimal.Zero
	}
	// decimal.Round rounds half away from zero, which is half-up for the
	// non-negative amounts we deal in.
	return Quote{Lines: priced, Total: total.Round(2)}
}

// discountUnit applies the coupon to a single unit price and clamps the
// result at zero.
func discountUnit(lg *zap.Logger, c *coupon.Coupon, unit decimal.Decimal) decimal.Decimal {
	var amount decimal.Decimal
	switch c.DiscountType {
	case coupon.DiscountPercentage:
		amount = unit.Mul(c.Value)
	case coupon.DiscountFixed:
		amount = c.Value
	default:
		lg.Warn("unknown discount type, skipping discount",
			zap.String("coupon", c.Code),
			zap.String("discount_type", string(c.DiscountType)),
		)
		return unit
	}

	if c.MaxDiscount.IsPositive() && amount.GreaterThan(c.MaxDiscount) {
		amount = c.MaxDiscount
	}

	unit = unit.Sub(amount)
	if unit.IsNegative() {
		return decimal.Zero
	}
	return unit
}
