package order

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rohn21/e-commerce-webapp/internal/domain/address"
	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
	"github.com/rohn21/e-commerce-webapp/internal/domain/pricing"
	"github.com/rohn21/e-commerce-webapp/internal/domain/product"
	"github.com/rohn21/e-commerce-webapp/internal/payment"
)

// ProductNotFoundError indicates a cart line references a product that no
// longer exists in the catalog.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

// CheckoutConfig holds the redirect targets passed to the gateway.
type CheckoutConfig struct {
	Currency   string
	SuccessURL string
	CancelURL  string
}

// CheckoutRequest is the input for turning a cart into an order.
type CheckoutRequest struct {
	OwnerID          string
	CouponCode       string
	AddressID        string
	ShippingMethodID string
}

// CheckoutResult is the outcome of a successful checkout.
type CheckoutResult struct {
	Order *Order
	// RedirectURL is where the buyer completes payment.
	RedirectURL string
}

// CheckoutService converts a cart snapshot into a pending order and opens a
// payment session for it.
type CheckoutService struct {
	store   Store
	gateway payment.Gateway
	cfg     CheckoutConfig
	filter  *coupon.CodeFilter
}

// NewCheckoutService constructs a CheckoutService. The gateway client is
// injected; nothing here reads ambient credentials.
func NewCheckoutService(store Store, gateway payment.Gateway, cfg CheckoutConfig) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "inr"
	}
	return &CheckoutService{store: store, gateway: gateway, cfg: cfg}
}

// WithCouponFilter attaches a negative-lookup coupon filter and returns the
// service.
func (s *CheckoutService) WithCouponFilter(f *coupon.CodeFilter) *CheckoutService {
	s.filter = f
	return s
}

// Checkout builds an order from the owner's cart inside one transaction:
// cart read, coupon resolution, order and order-line insert with frozen
// discounted unit prices, cart clear, gateway session creation, and session
// reference persist. Any failure, including the gateway call, rolls the
// whole transaction back, so the cart is never emptied without a usable
// order and no order exists without its cart having been consumed.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	lg := zctx.From(ctx)

	var result *CheckoutResult
	err := s.store.Checkout(ctx, func(ctx context.Context, tx CheckoutTx) error {
		lines, err := tx.CartLines(ctx, req.OwnerID)
		if err != nil {
			return errors.Wrap(err, "read cart")
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		addr, err := s.resolveAddress(ctx, tx, req)
		if err != nil {
			return err
		}

		// Resolve the coupon before touching anything else; an invalid
		// code aborts the whole checkout with no partial order.
		var cpn *coupon.Coupon
		if req.CouponCode != "" {
			validator := coupon.NewRepoValidator(tx).WithFilter(s.filter)
			cpn, err = validator.Validate(ctx, req.CouponCode)
			if err != nil {
				return err
			}
		}

		ids := make([]string, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}
		products, err := tx.ProductsByIDs(ctx, ids)
		if err != nil {
			return errors.Wrap(err, "get products")
		}
		byID := make(map[string]product.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		priceLines := make([]pricing.Line, len(lines))
		for i, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok {
				return &ProductNotFoundError{ProductID: l.ProductID}
			}
			priceLines[i] = pricing.Line{
				ProductID: p.ID,
				Name:      p.Name,
				UnitPrice: p.Price,
				Quantity:  l.Quantity,
			}
		}

		quote := pricing.Compute(lg, priceLines, cpn)

		o := &Order{
			ID:               uuid.New().String(),
			OwnerID:          req.OwnerID,
			Total:            quote.Total,
			Status:           StatusCheckout,
			PaymentStatus:    PaymentPending,
			AddressID:        addr.ID,
			ShippingMethodID: req.ShippingMethodID,
			Lines:            make([]Line, len(quote.Lines)),
		}
		if cpn != nil {
			o.CouponCode = cpn.Code
		}
		for i, pl := range quote.Lines {
			o.Lines[i] = Line{
				ProductID: pl.ProductID,
				Name:      pl.Name,
				Quantity:  pl.Quantity,
				UnitPrice: pl.DiscountedUnitPrice,
			}
		}

		if err := tx.InsertOrder(ctx, o); err != nil {
			return errors.Wrap(err, "create order")
		}
		if cpn != nil {
			if err := tx.IncrementUsage(ctx, cpn.Code); err != nil {
				return errors.Wrap(err, "increment coupon usage")
			}
		}
		if err := tx.ClearCart(ctx, req.OwnerID); err != nil {
			return errors.Wrap(err, "clear cart")
		}

		sess, err := s.gateway.CreateSession(ctx, s.sessionParams(o))
		if err != nil {
			// Still inside the transaction: the order insert and cart
			// clear roll back together with this failure.
			return errors.Wrap(err, "create payment session")
		}
		if err := tx.SetPaymentSession(ctx, o.ID, sess.ID); err != nil {
			return errors.Wrap(err, "persist payment session")
		}
		o.PaymentSessionID = sess.ID

		result = &CheckoutResult{Order: o, RedirectURL: sess.URL}
		return nil
	})
	if err != nil {
		return nil, err
	}

	lg.Info("checkout complete",
		zap.String("order_id", result.Order.ID),
		zap.String("total", result.Order.Total.String()),
	)
	return result, nil
}

// resolveAddress returns the requested address (which must belong to the
// owner) or falls back to the owner's default.
func (s *CheckoutService) resolveAddress(ctx context.Context, tx CheckoutTx, req CheckoutRequest) (*address.Address, error) {
	if req.AddressID != "" {
		addr, err := tx.AddressByID(ctx, req.OwnerID, req.AddressID)
		if err != nil {
			if errors.Is(err, address.ErrNotFound) {
				return nil, address.ErrNotFound
			}
			return nil, errors.Wrap(err, "get address")
		}
		return addr, nil
	}
	addr, err := tx.DefaultAddress(ctx, req.OwnerID)
	if err != nil {
		if errors.Is(err, address.ErrNoDefault) {
			return nil, address.ErrNoDefault
		}
		return nil, errors.Wrap(err, "get default address")
	}
	return addr, nil
}

// sessionParams maps the order to the gateway request: one external line
// item per order line at its frozen price, plus the correlation metadata.
func (s *CheckoutService) sessionParams(o *Order) payment.CreateSessionParams {
	items := make([]payment.LineItem, len(o.Lines))
	for i, l := range o.Lines {
		items[i] = payment.LineItem{
			Name: l.Name,
			// Gateways price in minor units.
			UnitAmount: l.UnitPrice.Shift(2).Round(0).IntPart(),
			Quantity:   l.Quantity,
		}
	}
	meta := map[string]string{payment.MetaOrderID: o.ID}
	if o.CouponCode != "" {
		meta[payment.MetaCouponCode] = o.CouponCode
	}
	return payment.CreateSessionParams{
		LineItems:  items,
		Currency:   s.cfg.Currency,
		SuccessURL: s.cfg.SuccessURL,
		CancelURL:  s.cfg.CancelURL,
		Metadata:   meta,
	}
}
