package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohn21/e-commerce-webapp/internal/domain/address"
	"github.com/rohn21/e-commerce-webapp/internal/domain/cart"
	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
	"github.com/rohn21/e-commerce-webapp/internal/domain/order"
	"github.com/rohn21/e-commerce-webapp/internal/domain/product"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, owner_id, coupon_code, total_price, status,
		payment_status, address_id, shipping_method_id)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''))`

	insertOrderLineSQL = `INSERT INTO order_lines (order_id, product_id, quantity, unit_price)
		VALUES ($1, $2, $3, $4)`

	setPaymentSessionSQL = `UPDATE orders SET payment_session_id = $2 WHERE id = $1`

	orderColumns = `id, owner_id, COALESCE(coupon_code, ''), total_price, status,
		payment_status, payment_session_id, payment_charge_id,
		COALESCE(address_id, ''), COALESCE(shipping_method_id, ''), tracking_number, created_at`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	listOrdersByOwnerSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE owner_id = $1 ORDER BY created_at DESC`

	findOrderBySessionSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE payment_session_id = $1`

	listOrderLinesSQL = `SELECT ol.order_id, ol.product_id, COALESCE(p.name, ol.product_id),
		ol.quantity, ol.unit_price
		FROM order_lines ol LEFT JOIN products p ON p.id = ol.product_id
		WHERE ol.order_id = ANY($1) ORDER BY ol.product_id`

	// Conditional updates below carry the concurrency guarantees: a lost
	// race affects zero rows instead of overwriting newer state.
	markPaidSQL = `UPDATE orders SET payment_status = 'completed', payment_charge_id = $2
		WHERE id = $1 AND payment_status = 'pending'`

	markCancelledSQL = `UPDATE orders SET status = 'cancelled'
		WHERE id = $1 AND status = 'checkout' AND payment_status = $2`

	transitionSQL = `UPDATE orders
		SET status = $3, tracking_number = CASE WHEN $4 = '' THEN tracking_number ELSE $4 END
		WHERE id = $1 AND status = $2`

	listStalePendingSQL = `SELECT ` + orderColumns + ` FROM orders
		WHERE payment_status = 'pending' AND status = 'checkout'
		AND payment_session_id <> '' AND created_at < $1
		ORDER BY created_at LIMIT $2`
)

var _ order.Store = (*OrderStore)(nil)

// OrderStore implements order.Store backed by PostgreSQL.
type OrderStore struct {
	pool *pgxpool.Pool
}

// NewOrderStore returns an OrderStore that uses the given pool.
func NewOrderStore(pool *pgxpool.Pool) *OrderStore {
	return &OrderStore{pool: pool}
}

// Checkout runs fn inside a single transaction. The transactional view
// given to fn spans the cart, catalog, coupon, address, and order tables,
// so the checkout either fully commits or leaves nothing behind.
func (s *OrderStore) Checkout(ctx context.Context, fn func(ctx context.Context, tx order.CheckoutTx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &checkoutTx{tx: tx})
	})
}

// Get returns one order with its lines.
func (s *OrderStore) Get(ctx context.Context, id string) (*order.Order, error) {
	return s.getOne(ctx, getOrderSQL, id)
}

// FindBySession returns the order that opened the given payment session.
func (s *OrderStore) FindBySession(ctx context.Context, sessionID string) (*order.Order, error) {
	return s.getOne(ctx, findOrderBySessionSQL, sessionID)
}

func (s *OrderStore) getOne(ctx context.Context, sql, arg string) (*order.Order, error) {
	rows, err := s.pool.Query(ctx, sql, arg)
	if err != nil {
		return nil, fmt.Errorf("getting order: %w", err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("getting order: %w", err)
	}
	if err := s.attachLines(ctx, []*order.Order{&o}); err != nil {
		return nil, err
	}
	return &o, nil
}

// ListByOwner returns the owner's orders, newest first, with lines attached.
func (s *OrderStore) ListByOwner(ctx context.Context, ownerID string) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listOrdersByOwnerSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	list, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	refs := make([]*order.Order, len(list))
	for i := range list {
		refs[i] = &list[i]
	}
	if err := s.attachLines(ctx, refs); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkPaid flips payment_status pending→completed. Zero affected rows
// means a reconciliation or cancellation got there first.
func (s *OrderStore) MarkPaid(ctx context.Context, orderID, chargeID string) (bool, error) {
	tag, err := s.pool.Exec(ctx, markPaidSQL, orderID, chargeID)
	if err != nil {
		return false, fmt.Errorf("marking order %q paid: %w", orderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// MarkCancelled cancels the order only while it is still in checkout and
// its payment status matches what the caller observed.
func (s *OrderStore) MarkCancelled(ctx context.Context, orderID string, seen order.PaymentStatus) (bool, error) {
	tag, err := s.pool.Exec(ctx, markCancelledSQL, orderID, string(seen))
	if err != nil {
		return false, fmt.Errorf("cancelling order %q: %w", orderID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Transition moves status from→to, optionally recording a tracking number.
func (s *OrderStore) Transition(ctx context.Context, orderID string, from, to order.Status, trackingNumber string) (bool, error) {
	tag, err := s.pool.Exec(ctx, transitionSQL, orderID, string(from), string(to), trackingNumber)
	if err != nil {
		return false, fmt.Errorf("transitioning order %q to %s: %w", orderID, to, err)
	}
	return tag.RowsAffected() == 1, nil
}

// ListStalePending returns pending orders whose session predates the cutoff.
func (s *OrderStore) ListStalePending(ctx context.Context, before time.Time, limit int) ([]order.Order, error) {
	rows, err := s.pool.Query(ctx, listStalePendingSQL, before, limit)
	if err != nil {
		return nil, fmt.Errorf("listing stale pending orders: %w", err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// attachLines loads order lines for the given orders in one query.
func (s *OrderStore) attachLines(ctx context.Context, orders []*order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	byID := make(map[string]*order.Order, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		byID[o.ID] = o
	}

	rows, err := s.pool.Query(ctx, listOrderLinesSQL, ids)
	if err != nil {
		return fmt.Errorf("listing order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			l       order.Line
		)
		if err := rows.Scan(&orderID, &l.ProductID, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
			return fmt.Errorf("scanning order line: %w", err)
		}
		if o, ok := byID[orderID]; ok {
			o.Lines = append(o.Lines, l)
		}
	}
	return rows.Err()
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&o.ID, &o.OwnerID, &o.CouponCode, &o.Total, &status,
		&paymentStatus, &o.PaymentSessionID, &o.PaymentChargeID,
		&o.AddressID, &o.ShippingMethodID, &o.TrackingNumber, &o.CreatedAt,
	)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, err
}

// checkoutTx adapts a pgx.Tx to the order.CheckoutTx contract.
type checkoutTx struct {
	tx pgx.Tx
}

var _ order.CheckoutTx = (*checkoutTx)(nil)

func (t *checkoutTx) CartLines(ctx context.Context, ownerID string) ([]cart.Line, error) {
	rows, err := t.tx.Query(ctx, listCartLinesSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines: %w", err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

func (t *checkoutTx) ProductsByIDs(ctx context.Context, ids []string) ([]product.Product, error) {
	rows, err := t.tx.Query(ctx, getProductsByIDsSQL, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

func (t *checkoutTx) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCoupon(ctx, t.tx, code)
}

func (t *checkoutTx) IncrementUsage(ctx context.Context, code string) error {
	return incrementCouponUsage(ctx, t.tx, code)
}

func (t *checkoutTx) AddressByID(ctx context.Context, ownerID, id string) (*address.Address, error) {
	return getAddress(ctx, t.tx, getAddressByIDSQL, ownerID, id)
}

func (t *checkoutTx) DefaultAddress(ctx context.Context, ownerID string) (*address.Address, error) {
	a, err := getAddress(ctx, t.tx, getDefaultAddressSQL, ownerID)
	if errors.Is(err, address.ErrNotFound) {
		return nil, address.ErrNoDefault
	}
	return a, err
}

func (t *checkoutTx) InsertOrder(ctx context.Context, o *order.Order) error {
	_, err := t.tx.Exec(ctx, insertOrderSQL,
		o.ID, o.OwnerID, o.CouponCode, o.Total, string(o.Status),
		string(o.PaymentStatus), o.AddressID, o.ShippingMethodID,
	)
	if err != nil {
		return fmt.Errorf("inserting order %q: %w", o.ID, err)
	}
	for _, l := range o.Lines {
		if _, err := t.tx.Exec(ctx, insertOrderLineSQL, o.ID, l.ProductID, l.Quantity, l.UnitPrice); err != nil {
			return fmt.Errorf("inserting order line (%s, %s): %w", o.ID, l.ProductID, err)
		}
	}
	return nil
}

func (t *checkoutTx) ClearCart(ctx context.Context, ownerID string) error {
	if _, err := t.tx.Exec(ctx, clearCartSQL, ownerID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

func (t *checkoutTx) SetPaymentSession(ctx context.Context, orderID, sessionID string) error {
	if _, err := t.tx.Exec(ctx, setPaymentSessionSQL, orderID, sessionID); err != nil {
		return fmt.Errorf("setting payment session on order %q: %w", orderID, err)
	}
	return nil
}
