package handler

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rohn21/e-commerce-webapp/internal/domain/auth"
	"github.com/rohn21/e-commerce-webapp/internal/domain/order"
	"github.com/rohn21/e-commerce-webapp/internal/payment"
)

const (
	testPepper = "pepper"
	testKey    = "key_test_123"
	testOwner  = "owner-1"
)

func hashKey(key string) string {
	mac := hmac.New(sha256.New, []byte(testPepper))
	mac.Write([]byte(key))
	return hex.EncodeToString(mac.Sum(nil))
}

// fakeKeyRepo resolves exactly one API key.
type fakeKeyRepo struct {
	info *auth.APIKeyInfo
}

func (r *fakeKeyRepo) FindByHash(_ context.Context, hash string) (*auth.APIKeyInfo, error) {
	if r.info != nil && r.info.KeyHash == hash {
		return r.info, nil
	}
	return nil, auth.ErrKeyNotFound
}

func testKeyRepo(scopes ...string) *fakeKeyRepo {
	return &fakeKeyRepo{info: &auth.APIKeyInfo{
		ID:      "key-1",
		KeyHash: hashKey(testKey),
		Name:    "test",
		OwnerID: testOwner,
		Scopes:  scopes,
	}}
}

// fakeOrderStore backs the reconciliation and lifecycle paths in handler
// tests. Only the methods those paths touch are implemented.
type fakeOrderStore struct {
	orders map[string]*order.Order
}

func (s *fakeOrderStore) Checkout(context.Context, func(ctx context.Context, tx order.CheckoutTx) error) error {
	panic("not used")
}

func (s *fakeOrderStore) Get(_ context.Context, id string) (*order.Order, error) {
	o, ok := s.orders[id]
	if !ok {
		return nil, order.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (s *fakeOrderStore) ListByOwner(_ context.Context, ownerID string) ([]order.Order, error) {
	var out []order.Order
	for _, o := range s.orders {
		if o.OwnerID == ownerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (s *fakeOrderStore) FindBySession(_ context.Context, sessionID string) (*order.Order, error) {
	for _, o := range s.orders {
		if o.PaymentSessionID == sessionID {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

func (s *fakeOrderStore) MarkPaid(_ context.Context, orderID, chargeID string) (bool, error) {
	o, ok := s.orders[orderID]
	if !ok || o.PaymentStatus != order.PaymentPending {
		return false, nil
	}
	o.PaymentStatus = order.PaymentCompleted
	o.PaymentChargeID = chargeID
	return true, nil
}

func (s *fakeOrderStore) MarkCancelled(_ context.Context, orderID string, seen order.PaymentStatus) (bool, error) {
	o, ok := s.orders[orderID]
	if !ok || o.Status != order.StatusCheckout || o.PaymentStatus != seen {
		return false, nil
	}
	o.Status = order.StatusCancelled
	return true, nil
}

func (s *fakeOrderStore) Transition(_ context.Context, orderID string, from, to order.Status, trackingNumber string) (bool, error) {
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

func (s *fakeOrderStore) ListStalePending(context.Context, time.Time, int) ([]order.Order, error) {
	return nil, nil
}

// nopGateway satisfies payment.Gateway for paths that never call it.
type nopGateway struct{}

func (nopGateway) CreateSession(context.Context, payment.CreateSessionParams) (*payment.Session, error) {
	panic("not used")
}
func (nopGateway) GetSession(context.Context, string) (*payment.Session, error) { panic("not used") }
func (nopGateway) RetrieveCharge(context.Context, string) (*payment.Charge, error) {
	panic("not used")
}
func (nopGateway) CreateRefund(context.Context, string) (*payment.Refund, error) {
	panic("not used")
}

func pendingTestOrder(id string) *order.Order {
	return &order.Order{
		ID:               id,
		OwnerID:          testOwner,
		Total:            decimal.NewFromInt(100),
		Status:           order.StatusCheckout,
		PaymentStatus:    order.PaymentPending,
		PaymentSessionID: "sess-" + id,
		CreatedAt:        time.Now(),
	}
}

// newTestServer builds the full routed handler over the given store and
// key repo, exactly as the app wires it.
func newTestServer(store order.Store, keys auth.Repository, webhookSecret string) *httptest.Server {
	h := NewHandler(
		Config{WebhookSecret: []byte(webhookSecret)},
		nil, nil, nil, store,
		nil,
		order.NewReconciler(store, nopGateway{}),
		order.NewLifecycle(store, nopGateway{}),
	)
	security := NewSecurity(keys, []byte(testPepper))

	mux := http.NewServeMux()
	h.Routes(mux, security.Middleware)
	return httptest.NewServer(mux)
}
