package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/rohn21/e-commerce-webapp/internal/payment"
)

// ErrSessionUnpaid is returned by the confirmation path when the gateway
// still reports the session as unpaid. The order stays pending; the caller
// (or a later webhook delivery) may retry.
var ErrSessionUnpaid = errors.New("payment session not paid")

// Reconciler converges the two asynchronous payment confirmation paths,
// the gateway webhook and the client confirmation poll, onto one
// idempotent order update. Both paths may race for the same order: the
// first to apply wins and the second becomes a no-op.
type Reconciler struct {
	store   Store
	gateway payment.Gateway
}

// NewReconciler constructs a Reconciler.
func NewReconciler(store Store, gateway payment.Gateway) *Reconciler {
	return &Reconciler{store: store, gateway: gateway}
}

// ApplyEvent handles a verified webhook event. Events other than a paid
// checkout completion are ignored. Redelivery of the same event is a
// no-op, never an error.
func (r *Reconciler) ApplyEvent(ctx context.Context, ev *payment.Event) error {
	if ev.Type != payment.EventCheckoutCompleted {
		zctx.From(ctx).Debug("ignoring webhook event", zap.String("type", ev.Type))
		return nil
	}

	orderID := ev.OrderID()
	if orderID == "" {
		return errors.New("event carries no order correlation token")
	}
	o, err := r.store.Get(ctx, orderID)
	if err != nil {
		return errors.Wrap(err, "lookup order")
	}

	if !ev.Paid() {
		zctx.From(ctx).Info("session completed without payment, order left pending",
			zap.String("order_id", o.ID))
		return nil
	}
	return r.markPaid(ctx, o.ID, ev.ChargeID)
}

// ConfirmSession is the client-initiated path: retrieve the session from
// the gateway and, when it is paid, apply the same idempotent update the
// webhook path would. Returns the order in its current state.
func (r *Reconciler) ConfirmSession(ctx context.Context, sessionID string) (*Order, error) {
	sess, err := r.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "get session")
	}

	o, err := r.store.FindBySession(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "lookup order")
	}

	if sess.PaymentStatus != payment.SessionPaid {
		return o, ErrSessionUnpaid
	}

	if err := r.markPaid(ctx, o.ID, sess.ChargeID); err != nil {
		return nil, err
	}
	return r.store.Get(ctx, o.ID)
}

// markPaid performs the optimistic pending→completed transition. A lost
// race (already completed, or cancelled meanwhile) is logged and absorbed.
func (r *Reconciler) markPaid(ctx context.Context, orderID, chargeID string) error {
	applied, err := r.store.MarkPaid(ctx, orderID, chargeID)
	if err != nil {
		return errors.Wrap(err, "mark paid")
	}
	if !applied {
		zctx.From(ctx).Info("payment already reconciled, no-op",
			zap.String("order_id", orderID))
		return nil
	}
	zctx.From(ctx).Info("payment completed",
		zap.String("order_id", orderID),
		zap.String("charge_id", chargeID),
	)
	return nil
}
