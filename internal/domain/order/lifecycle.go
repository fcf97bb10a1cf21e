package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/rohn21/e-commerce-webapp/internal/payment"
)

// Lifecycle governs order status transitions: fulfillment advances
// (shipped, delivered) and cancellation with its coupled refund.
type Lifecycle struct {
	store   Store
	gateway payment.Gateway
}

// NewLifecycle constructs a Lifecycle manager.
func NewLifecycle(store Store, gateway payment.Gateway) *Lifecycle {
	return &Lifecycle{store: store, gateway: gateway}
}

// Cancel cancels an order on the owner's behalf. Orders that have shipped,
// been delivered, or are already cancelled cannot be cancelled. When the
// order carries a charge reference, a successful refund must precede the
// status change; a failed refund leaves the order untouched.
//
// Cancellation racing payment reconciliation is resolved by the store: the
// final status write only applies while the payment status still matches
// what was observed here, so a concurrent "mark paid" fails the
// cancellation rather than leaking an unrefunded charge.
func (l *Lifecycle) Cancel(ctx context.Context, ownerID, orderID string) error {
	o, err := l.store.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.OwnerID != ownerID {
		return ErrNotFound
	}

	if o.Status != StatusCheckout {
		return ErrCannotCancel
	}

	if o.PaymentChargeID != "" {
		if err := l.refund(ctx, o); err != nil {
			return err
		}
	}

	applied, err := l.store.MarkCancelled(ctx, o.ID, o.PaymentStatus)
	if err != nil {
		return errors.Wrap(err, "mark cancelled")
	}
	if !applied {
		// Payment state moved under us; refuse rather than cancel an
		// order whose charge we have not inspected.
		return ErrCannotCancel
	}

	zctx.From(ctx).Info("order cancelled", zap.String("order_id", o.ID))
	return nil
}

// refund checks the charge with the gateway and refunds it when it
// actually collected money. Refund failure blocks cancellation.
func (l *Lifecycle) refund(ctx context.Context, o *Order) error {
	ch, err := l.gateway.RetrieveCharge(ctx, o.PaymentChargeID)
	if err != nil {
		return errors.Wrap(err, "retrieve charge")
	}
	if !ch.Succeeded() {
		// Charge never settled; nothing to refund.
		return nil
	}

	ref, err := l.gateway.CreateRefund(ctx, o.PaymentChargeID)
	if err != nil {
		return errors.Wrap(err, "create refund")
	}
	if !ref.Succeeded() {
		return ErrRefundFailed
	}

	zctx.From(ctx).Info("charge refunded",
		zap.String("order_id", o.ID),
		zap.String("charge_id", o.PaymentChargeID),
		zap.String("refund_id", ref.ID),
	)
	return nil
}

// MarkShipped advances a checkout order to shipped, recording the carrier
// tracking number.
func (l *Lifecycle) MarkShipped(ctx context.Context, orderID, trackingNumber string) error {
	return l.transition(ctx, orderID, StatusCheckout, StatusShipped, trackingNumber)
}

// MarkDelivered advances a shipped order to delivered.
func (l *Lifecycle) MarkDelivered(ctx context.Context, orderID string) error {
	return l.transition(ctx, orderID, StatusShipped, StatusDelivered, "")
}

func (l *Lifecycle) transition(ctx context.Context, orderID string, from, to Status, trackingNumber string) error {
	if !from.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	applied, err := l.store.Transition(ctx, orderID, from, to, trackingNumber)
	if err != nil {
		return errors.Wrapf(err, "transition to %s", to)
	}
	if !applied {
		o, err := l.store.Get(ctx, orderID)
		if err != nil {
			return err
		}
		return errors.Wrapf(ErrInvalidTransition, "order is %s", o.Status)
	}
	zctx.From(ctx).Info("order status changed",
		zap.String("order_id", orderID),
		zap.String("status", string(to)),
	)
	return nil
}
