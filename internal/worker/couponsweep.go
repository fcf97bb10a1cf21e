package worker

import (
	"context"
	"time"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// CouponDeactivator corrects stale active flags in bulk.
type CouponDeactivator interface {
	DeactivateExpired(ctx context.Context) (int64, error)
}

// CouponSweep periodically deactivates expired coupons. Validation never
// trusts the active flag, so the sweep is cosmetic for correctness but
// keeps reporting queries honest.
type CouponSweep struct {
	interval time.Duration
	coupons  CouponDeactivator
}

// NewCouponSweep constructs the sweep with the given interval (default 1h).
func NewCouponSweep(interval time.Duration, coupons CouponDeactivator) *CouponSweep {
	if interval <= 0 {
		interval = time.Hour
	}
	return &CouponSweep{interval: interval, coupons: coupons}
}

// Run sweeps on the interval until ctx is cancelled.
func (w *CouponSweep) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n, err := w.coupons.DeactivateExpired(ctx)
			if err != nil {
				zctx.From(ctx).Error("coupon sweep failed", zap.Error(err))
				continue
			}
			if n > 0 {
				zctx.From(ctx).Info("expired coupons deactivated", zap.Int64("count", n))
			}
		}
	}
}
