// Package coupon implements coupon lookup and use-time validation.
package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DiscountType enumerates the supported coupon discount strategies.
type DiscountType string

const (
	// DiscountPercentage subtracts a fraction of each unit price.
	// Value is the fraction itself: 0.10 means 10% off.
	DiscountPercentage DiscountType = "percentage"
	// DiscountFixed subtracts a flat currency amount from each unit price.
	DiscountFixed DiscountType = "fixed"
)

var (
	// ErrNotFound is returned when no coupon matches the code.
	ErrNotFound = errors.New("coupon not found")
	// ErrExpired is returned when the coupon's expiry timestamp has passed.
	ErrExpired = errors.New("coupon expired")
)

// Coupon is a stored discount rule. The expiry timestamp is authoritative:
// an expired coupon is unusable even while the Active flag is still true,
// and a coupon whose expiry is in the future stays usable even if a stale
// Active flag says otherwise. The flag is corrected on the next write of
// the record (see the expiry sweep worker).
type Coupon struct {
	Code         string
	DiscountType DiscountType
	Value        decimal.Decimal
	// MaxDiscount caps the per-unit discount amount. Zero means no cap.
	MaxDiscount decimal.Decimal
	ExpiresAt   time.Time
	Active      bool
	Usage       int
	CreatedAt   time.Time
}

// Usable reports whether the coupon can be redeemed at the given instant.
// Only expiry is checked; the stored Active flag may lag behind it.
func (c *Coupon) Usable(now time.Time) error {
	if !now.Before(c.ExpiresAt) {
		return ErrExpired
	}
	return nil
}

// Repository provides lookup and mutation of coupons.
type Repository interface {
	// FindByCode looks a coupon up by its code, case-insensitively.
	// Returns ErrNotFound when no coupon matches.
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	// IncrementUsage bumps the redemption counter for the code.
	IncrementUsage(ctx context.Context, code string) error
}
