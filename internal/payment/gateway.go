// Package payment integrates the external payment processor: session
// creation, status retrieval, charges, refunds, and webhook verification.
// The processor is opaque; this package only speaks its HTTP API.
package payment

import (
	"context"
	"fmt"
)

// Metadata keys attached to a payment session so asynchronous callbacks can
// be correlated back to the order that opened it.
const (
	MetaOrderID    = "order_id"
	MetaCouponCode = "coupon_code"
)

// SessionStatus is the gateway's view of a payment session.
type SessionStatus string

const (
	SessionUnpaid SessionStatus = "unpaid"
	SessionPaid   SessionStatus = "paid"
)

// LineItem is one external line item, priced in minor currency units
// (cents) as the gateway requires.
type LineItem struct {
	Name       string
	UnitAmount int64
	Quantity   int
}

// CreateSessionParams describes the session to open for one order.
type CreateSessionParams struct {
	LineItems  []LineItem
	Currency   string
	SuccessURL string
	CancelURL  string
	Metadata   map[string]string
}

// Session is the gateway's representation of a payment collection attempt.
type Session struct {
	ID            string
	URL           string
	PaymentStatus SessionStatus
	ChargeID      string
	Metadata      map[string]string
}

// Charge is a settled (or attempted) payment.
type Charge struct {
	ID     string
	Status string
}

// Succeeded reports whether the charge actually collected money.
func (c *Charge) Succeeded() bool { return c.Status == "succeeded" }

// Refund is the outcome of a refund request.
type Refund struct {
	ID     string
	Status string
}

// Succeeded reports whether the gateway accepted the refund.
func (r *Refund) Succeeded() bool { return r.Status == "succeeded" }

// Gateway is the client contract consumed by checkout, reconciliation, and
// cancellation. Implementations must bound every call with a timeout; a
// timeout surfaces as a *GatewayError, never a hang.
type Gateway interface {
	CreateSession(ctx context.Context, params CreateSessionParams) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	RetrieveCharge(ctx context.Context, id string) (*Charge, error)
	CreateRefund(ctx context.Context, chargeID string) (*Refund, error)
}

// GatewayError wraps any failure to reach or be understood by the payment
// processor. StatusCode is zero for transport-level failures.
type GatewayError struct {
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *GatewayError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("payment gateway: %s: %s", e.Op, e.Message)
	}
	return fmt.Sprintf("payment gateway: %s: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retryable reports whether the caller may reasonably retry: transport
// failures, timeouts, rate limits, and gateway-side 5xx responses.
func (e *GatewayError) Retryable() bool {
	return e.StatusCode == 0 || e.StatusCode == 429 || e.StatusCode >= 500
}
