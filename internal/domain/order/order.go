// Package order implements the checkout, payment reconciliation, and order
// lifecycle logic.
package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/rohn21/e-commerce-webapp/internal/domain/address"
	"github.com/rohn21/e-commerce-webapp/internal/domain/cart"
	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
	"github.com/rohn21/e-commerce-webapp/internal/domain/product"
)

// Status is the fulfillment state of an order.
type Status string

const (
	StatusCheckout  Status = "checkout"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

// PaymentStatus tracks whether the gateway has collected payment.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// transitions is the allowed status state machine. Delivered and cancelled
// are terminal. Cancellation is only reachable from checkout: once an order
// ships it can no longer be cancelled.
var transitions = map[Status][]Status{
	StatusCheckout: {StatusShipped, StatusCancelled},
	StatusShipped:  {StatusDelivered},
}

// CanTransitionTo reports whether the state machine allows moving from s to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

var (
	// ErrNotFound is returned when an order does not exist or belongs to a
	// different owner.
	ErrNotFound = errors.New("order not found")
	// ErrEmptyCart is returned when checkout is attempted with no cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrCannotCancel is returned when cancellation is requested for an
	// order that has shipped, been delivered, or is already cancelled,
	// or when a concurrent payment confirmation wins the race.
	ErrCannotCancel = errors.New("order can no longer be cancelled")
	// ErrRefundFailed is returned when the gateway rejects the refund that
	// must precede cancellation of a charged order.
	ErrRefundFailed = errors.New("refund failed")
	// ErrInvalidTransition is returned for a disallowed status change.
	ErrInvalidTransition = errors.New("invalid status transition")
)

// Line is one immutable order line. UnitPrice is the discounted per-unit
// price frozen at checkout, independent of later catalog changes.
type Line struct {
	ProductID string
	Name      string
	Quantity  int
	UnitPrice decimal.Decimal
}

// Order is a persisted purchase.
type Order struct {
	ID               string
	OwnerID          string
	CouponCode       string
	Total            decimal.Decimal
	Status           Status
	PaymentStatus    PaymentStatus
	PaymentSessionID string
	PaymentChargeID  string
	AddressID        string
	ShippingMethodID string
	TrackingNumber   string
	Lines            []Line
	CreatedAt        time.Time
}

// CheckoutTx is the transactional view available while building an order.
// Everything read or written through it commits or rolls back as one unit.
type CheckoutTx interface {
	coupon.Repository

	CartLines(ctx context.Context, ownerID string) ([]cart.Line, error)
	ProductsByIDs(ctx context.Context, ids []string) ([]product.Product, error)
	AddressByID(ctx context.Context, ownerID, id string) (*address.Address, error)
	DefaultAddress(ctx context.Context, ownerID string) (*address.Address, error)
	InsertOrder(ctx context.Context, o *Order) error
	ClearCart(ctx context.Context, ownerID string) error
	SetPaymentSession(ctx context.Context, orderID, sessionID string) error
}

// Store defines persistence for orders. Concurrency guarantees live here:
// MarkPaid and MarkCancelled are conditional updates that report whether
// they applied, so racing reconciliation and cancellation resolve in the
// database rather than in process memory.
type Store interface {
	// Checkout runs fn inside a single transaction; any error from fn
	// rolls the whole transaction back.
	Checkout(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error

	Get(ctx context.Context, id string) (*Order, error)
	ListByOwner(ctx context.Context, ownerID string) ([]Order, error)
	FindBySession(ctx context.Context, sessionID string) (*Order, error)

	// MarkPaid flips payment_status pending→completed and records the
	// charge reference. Returns false when the order was not pending.
	MarkPaid(ctx context.Context, orderID, chargeID string) (bool, error)
	// MarkCancelled sets status=cancelled only while the order is still in
	// checkout AND its payment status equals the one the caller observed.
	// Returns false when either condition no longer holds.
	MarkCancelled(ctx context.Context, orderID string, seen PaymentStatus) (bool, error)
	// Transition moves status from→to, recording a tracking number when
	// one is supplied. Returns false when the order was not in from.
	Transition(ctx context.Context, orderID string, from, to Status, trackingNumber string) (bool, error)

	// ListStalePending returns orders still awaiting payment whose session
	// was opened before the cutoff, for the background reconcile sweep.
	ListStalePending(ctx context.Context, before time.Time, limit int) ([]Order, error)
}
