package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func percentCoupon(code, fraction string) *coupon.Coupon {
	return &coupon.Coupon{
		Code:         code,
		DiscountType: coupon.DiscountPercentage,
		Value:        dec(fraction),
		ExpiresAt:    time.Now().Add(time.Hour),
		Active:       true,
	}
}

func fixedCoupon(code, amount string) *coupon.Coupon {
	return &coupon.Coupon{
		Code:         code,
		DiscountType: coupon.DiscountFixed,
		Value:        dec(amount),
		ExpiresAt:    time.Now().Add(time.Hour),
		Active:       true,
	}
}

func TestComputeNoCoupon(t *testing.T) {
	lg := zaptest.NewLogger(t)
	quote := Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("19.99"), Quantity: 2},
		{ProductID: "p2", UnitPrice: dec("5.50"), Quantity: 1},
	}, nil)

	require.Len(t, quote.Lines, 2)
	assert.True(t, quote.Lines[0].DiscountedUnitPrice.Equal(dec("19.99")))
	assert.True(t, quote.Total.Equal(dec("45.48")), "got %s", quote.Total)
}

func TestComputePercentagePerUnit(t *testing.T) {
	lg := zaptest.NewLogger(t)

	// 10% off a 100.00 unit leaves 90.00.
	quote := Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("100.00"), Quantity: 1},
	}, percentCoupon("TEN", "0.10"))
	assert.True(t, quote.Total.Equal(dec("90.00")), "got %s", quote.Total)

	// The discount scales with quantity because it applies per unit.
	quote = Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("100.00"), Quantity: 3},
	}, percentCoupon("TEN", "0.10"))
	assert.True(t, quote.Total.Equal(dec("270.00")), "got %s", quote.Total)
}

func TestComputeFixedClampsAtZero(t *testing.T) {
	lg := zaptest.NewLogger(t)

	// A fixed 15 on a 10.00 unit clamps to zero, it never goes negative.
	quote := Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 2},
	}, fixedCoupon("BIG", "15"))
	require.Len(t, quote.Lines, 1)
	assert.True(t, quote.Lines[0].DiscountedUnitPrice.IsZero())
	assert.True(t, quote.Total.IsZero())
}

func TestComputeFixedPerUnit(t *testing.T) {
	lg := zaptest.NewLogger(t)

	// Fixed 5 off each of 3 units of 20.00: 3 * 15.00 = 45.00.
	quote := Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("20.00"), Quantity: 3},
	}, fixedCoupon("FIVE", "5"))
	assert.True(t, quote.Total.Equal(dec("45.00")), "got %s", quote.Total)
}

func TestComputeUnknownDiscountType(t *testing.T) {
	lg := zaptest.NewLogger(t)
	c := &coupon.Coupon{
		Code:         "WEIRD",
		DiscountType: "bogo",
		Value:        dec("1"),
	}

	quote := Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("12.00"), Quantity: 1},
	}, c)
	// Unknown types price as if no coupon were applied.
	assert.True(t, quote.Total.Equal(dec("12.00")), "got %s", quote.Total)
}

func TestComputeMaxDiscountCap(t *testing.T) {
	lg := zaptest.NewLogger(t)
	c := percentCoupon("HALF", "0.50")
	c.MaxDiscount = dec("30")

	// 50% of 100.00 is 50, capped at 30: unit becomes 70.00.
	quote := Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("100.00"), Quantity: 1},
	}, c)
	assert.True(t, quote.Total.Equal(dec("70.00")), "got %s", quote.Total)
}

func TestComputeRoundsOnceHalfUp(t *testing.T) {
	lg := zaptest.NewLogger(t)

	// 3 units at 33.335 after discount: per-unit values stay unrounded,
	// the total rounds half-up once at the end.
	// 10% off 37.039 = 33.3351; x3 = 100.0053 -> 100.01.
	quote := Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("37.039"), Quantity: 3},
	}, percentCoupon("TEN", "0.10"))
	assert.True(t, quote.Total.Equal(dec("100.01")), "got %s", quote.Total)
}

func TestComputeMixedLines(t *testing.T) {
	lg := zaptest.NewLogger(t)

	quote := Compute(lg, []Line{
		{ProductID: "p1", UnitPrice: dec("10.00"), Quantity: 2},
		{ProductID: "p2", UnitPrice: dec("4.00"), Quantity: 1},
	}, percentCoupon("QTR", "0.25"))

	require.Len(t, quote.Lines, 2)
	assert.True(t, quote.Lines[0].DiscountedUnitPrice.Equal(dec("7.50")))
	assert.True(t, quote.Lines[1].DiscountedUnitPrice.Equal(dec("3.00")))
	assert.True(t, quote.Total.Equal(dec("18.00")), "got %s", quote.Total)
	// Original catalog prices remain visible on the line.
	assert.True(t, quote.Lines[0].UnitPrice.Equal(dec("10.00")))
}

func TestComputeEmptyLines(t *testing.T) {
	quote := Compute(zaptest.NewLogger(t), nil, nil)
	assert.Empty(t, quote.Lines)
	assert.True(t, quote.Total.IsZero())
}
