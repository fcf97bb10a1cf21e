package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"

	"github.com/rohn21/e-commerce-webapp/internal/domain/address"
	"github.com/rohn21/e-commerce-webapp/internal/domain/cart"
	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
	"github.com/rohn21/e-commerce-webapp/internal/domain/product"
	"github.com/rohn21/e-commerce-webapp/internal/payment"
)

// fakeStore is an in-memory Store with transactional checkout semantics:
// mutations made through the tx are rolled back when fn errors.
type fakeStore struct {
	carts     map[string][]cart.Line
	products  map[string]product.Product
	coupons   map[string]*coupon.Coupon
	addresses map[string]address.Address
	orders    map[string]*Order
	usage     map[string]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		carts:     map[string][]cart.Line{},
		products:  map[string]product.Product{},
		coupons:   map[string]*coupon.Coupon{},
		addresses: map[string]address.Address{},
		orders:    map[string]*Order{},
		usage:     map[string]int{},
	}
}

func (s *fakeStore) snapshot() *fakeStore {
	cp := newFakeStore()
	for k, v := range s.carts {
		cp.carts[k] = append([]cart.Line(nil), v...)
	}
	for k, v := range s.products {
		cp.products[k] = v
	}
	for k, v := range s.coupons {
		c := *v
		cp.coupons[k] = &c
	}
	for k, v := range s.addresses {
		cp.addresses[k] = v
	}
	for k, v := range s.orders {
		o := *v
		o.Lines = append([]Line(nil), v.Lines...)
		cp.orders[k] = &o
	}
	for k, v := range s.usage {
		cp.usage[k] = v
	}
	return cp
}

func (s *fakeStore) restore(snap *fakeStore) {
	s.carts = snap.carts
	s.products = snap.products
	s.coupons = snap.coupons
	s.addresses = snap.addresses
	s.orders = snap.orders
	s.usage = snap.usage
}

func (s *fakeStore) Checkout(ctx context.Context, fn func(ctx context.Context, tx CheckoutTx) error) error {
	snap := s.snapshot()
	if err := fn(ctx, &fakeTx{s: s}); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *fakeStore) Get(_ context.Context, id string) (*Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeStore) ListByOwner(_ context.Context, ownerID string) ([]Order, error) {
	var out []Order
	for _, o := range s.orders {
		if o.OwnerID == ownerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeStore) FindBySession(_ context.Context, sessionID string) (*Order, error) {
	for _, o := range s.orders {
		if o.PaymentSessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *fakeStore) MarkPaid(_ context.Context, orderID, chargeID string) (bool, error) {
	o, ok := s.orders[orderID]
	if !ok || o.PaymentStatus != PaymentPending {
		return false, nil
	}
	o.PaymentStatus = PaymentCompleted
	o.PaymentChargeID = chargeID
	return true, nil
}

func (s *fakeStore) MarkCancelled(_ context.Context, orderID string, seen PaymentStatus) (bool, error) {
	o, ok := s.orders[orderID]
	if !ok || o.Status != StatusCheckout || o.PaymentStatus != seen {
		return false, nil
	}
	o.Status = StatusCancelled
	return true, nil
}

func (s *fakeStore) Transition(_ context.Context, orderID string, from, to Status, trackingNumber string) (bool, error) {
	o, ok := s.orders[orderID]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if trackingNumber != "" {
		o.TrackingNumber = trackingNumber
	}
	return true, nil
}

func (s *fakeStore) ListStalePending(_ context.Context, before time.Time, limit int) ([]Order, error) {
	var out []Order
	for _, o := range s.orders {
		if len(out) >= limit {
			break
		}
		if o.PaymentStatus == PaymentPending && o.Status == StatusCheckout &&
			o.PaymentSessionID != "" && o.CreatedAt.Before(before) {
			out = append(out, *o)
		}
	}
	return out, nil
}

// fakeTx exposes the store's maps through the CheckoutTx contract.
type fakeTx struct {
	s *fakeStore
}

func (t *fakeTx) CartLines(_ context.Context, ownerID string) ([]cart.Line, error) {
	return t.s.carts[ownerID], nil
}

func (t *fakeTx) ProductsByIDs(_ context.Context, ids []string) ([]product.Product, error) {
	var out []product.Product
	for _, id := range ids {
		if p, ok := t.s.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (t *fakeTx) FindByCode(_ context.Context, code string) (*coupon.Coupon, error) {
	c, ok := t.s.coupons[code]
	if !ok {
		return nil, coupon.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (t *fakeTx) IncrementUsage(_ context.Context, code string) error {
	t.s.usage[code]++
	return nil
}

func (t *fakeTx) AddressByID(_ context.Context, ownerID, id string) (*address.Address, error) {
	a, ok := t.s.addresses[id]
	if !ok || a.OwnerID != ownerID {
		return nil, address.ErrNotFound
	}
	return &a, nil
}

func (t *fakeTx) DefaultAddress(_ context.Context, ownerID string) (*address.Address, error) {
	for _, a := range t.s.addresses {
		if a.OwnerID == ownerID && a.IsDefault {
			cp := a
			return &cp, nil
		}
	}
	return nil, address.ErrNoDefault
}

func (t *fakeTx) InsertOrder(_ context.Context, o *Order) error {
	cp := *o
	cp.Lines = append([]Line(nil), o.Lines...)
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = time.Now()
	}
	t.s.orders[o.ID] = &cp
	return nil
}

func (t *fakeTx) ClearCart(_ context.Context, ownerID string) error {
	delete(t.s.carts, ownerID)
	return nil
}

func (t *fakeTx) SetPaymentSession(_ context.Context, orderID, sessionID string) error {
	t.s.orders[orderID].PaymentSessionID = sessionID
	return nil
}

// fakeGateway scripts gateway behaviour and records calls.
type fakeGateway struct {
	createErr      error
	createdSession *payment.Session
	createCalls    int
	lastParams     payment.CreateSessionParams

	sessions map[string]*payment.Session

	charges     map[string]*payment.Charge
	refund      *payment.Refund
	refundErr   error
	refundCalls int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions: map[string]*payment.Session{},
		charges:  map[string]*payment.Charge{},
	}
}

func (g *fakeGateway) CreateSession(_ context.Context, params payment.CreateSessionParams) (*payment.Session, error) {
	g.createCalls++
	g.lastParams = params
	if g.createErr != nil {
		return nil, g.createErr
	}
	if g.createdSession != nil {
		return g.createdSession, nil
	}
	return &payment.Session{ID: "sess_1", URL: "https://pay.example/sess_1"}, nil
}

func (g *fakeGateway) GetSession(_ context.Context, id string) (*payment.Session, error) {
	s, ok := g.sessions[id]
	if !ok {
		return nil, &payment.GatewayError{Op: "get session", StatusCode: 404, Message: "no such session"}
	}
	return s, nil
}

func (g *fakeGateway) RetrieveCharge(_ context.Context, id string) (*payment.Charge, error) {
	c, ok := g.charges[id]
	if !ok {
		return nil, &payment.GatewayError{Op: "retrieve charge", StatusCode: 404, Message: "no such charge"}
	}
	return c, nil
}

func (g *fakeGateway) CreateRefund(_ context.Context, chargeID string) (*payment.Refund, error) {
	g.refundCalls++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	if g.refund != nil {
		return g.refund, nil
	}
	return &payment.Refund{ID: "re_1", Status: "succeeded"}, nil
}

var errGatewayDown = errors.New("gateway unreachable")
