// Package worker holds the background loops: stale payment reconciliation
// and the expired coupon sweep.
package worker

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rohn21/e-commerce-webapp/internal/domain/order"
)

// ReconcilerConfig tunes the stale payment sweep.
type ReconcilerConfig struct {
	// Interval between sweeps.
	Interval time.Duration
	// MinAge is how old a pending session must be before it is polled.
	// Fresh sessions are left to the webhook.
	MinAge time.Duration
	// BatchSize caps orders polled per sweep.
	BatchSize int
	// Concurrency caps in-flight gateway calls per sweep.
	Concurrency int
}

func (c *ReconcilerConfig) defaults() {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	if c.MinAge <= 0 {
		c.MinAge = 15 * time.Minute
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
}

// Reconciler periodically polls the gateway for orders whose payment
// confirmation never arrived, catching webhooks that were lost.
type Reconciler struct {
	cfg        ReconcilerConfig
	store      order.Store
	reconciler *order.Reconciler
}

// NewReconciler constructs the sweep worker.
func NewReconciler(cfg ReconcilerConfig, store order.Store, rec *order.Reconciler) *Reconciler {
	cfg.defaults()
	return &Reconciler{cfg: cfg, store: store, reconciler: rec}
}

// Run sweeps on the configured interval until ctx is cancelled.
func (w *Reconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				zctx.From(ctx).Error("payment reconcile sweep failed", zap.Error(err))
			}
		}
	}
}

// RunOnce performs a single sweep: list stale pending orders and confirm
// each session against the gateway. Per-order failures are logged and do
// not stop the sweep.
func (w *Reconciler) RunOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-w.cfg.MinAge)
	stale, err := w.store.ListStalePending(ctx, cutoff, w.cfg.BatchSize)
	if err != nil {
		return errors.Wrap(err, "list stale pending orders")
	}
	if len(stale) == 0 {
		return nil
	}

	zctx.From(ctx).Info("reconciling stale pending orders", zap.Int("count", len(stale)))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)
	for _, o := range stale {
		g.Go(func() error {
			_, err := w.reconciler.ConfirmSession(gctx, o.PaymentSessionID)
			switch {
			case err == nil:
			case errors.Is(err, order.ErrSessionUnpaid):
				// Still awaiting payment; next sweep will look again.
			default:
				zctx.From(gctx).Warn("reconcile failed",
					zap.String("order_id", o.ID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	return g.Wait()
}
