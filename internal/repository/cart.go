package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohn21/e-commerce-webapp/internal/domain/cart"
)

const (
	selectCartLineForUpdateSQL = `SELECT quantity FROM cart_lines
		WHERE owner_id = $1 AND product_id = $2 FOR UPDATE`

	insertCartLineSQL = `INSERT INTO cart_lines (owner_id, product_id, quantity)
		VALUES ($1, $2, $3)`

	incrementCartLineSQL = `UPDATE cart_lines SET quantity = quantity + $3
		WHERE owner_id = $1 AND product_id = $2
		RETURNING quantity`

	listCartLinesSQL = `SELECT owner_id, product_id, quantity FROM cart_lines
		WHERE owner_id = $1 ORDER BY product_id`

	deleteCartLineSQL = `DELETE FROM cart_lines WHERE owner_id = $1 AND product_id = $2`

	clearCartSQL = `DELETE FROM cart_lines WHERE owner_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	pool *pgxpool.Pool
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{pool: pool}
}

// Add inserts a cart line or increments an existing one. The two branches
// run under one transaction with the existing row locked, keyed by
// (owner, product), so concurrent adds of the same product serialize
// instead of clobbering each other.
func (r *CartRepository) Add(ctx context.Context, ownerID, productID string, quantity int) (*cart.Line, error) {
	if quantity <= 0 {
		return nil, cart.ErrInvalidQuantity
	}

	line := &cart.Line{OwnerID: ownerID, ProductID: productID, Quantity: quantity}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var existing int
		err := tx.QueryRow(ctx, selectCartLineForUpdateSQL, ownerID, productID).Scan(&existing)
		switch {
		case errors.Is(err, pgx.ErrNoRows):
			_, err = tx.Exec(ctx, insertCartLineSQL, ownerID, productID, quantity)
			return err
		case err != nil:
			return err
		default:
			return tx.QueryRow(ctx, incrementCartLineSQL, ownerID, productID, quantity).
				Scan(&line.Quantity)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("adding cart line (%s, %s): %w", ownerID, productID, err)
	}
	return line, nil
}

// List returns the owner's cart lines ordered by product.
func (r *CartRepository) List(ctx context.Context, ownerID string) ([]cart.Line, error) {
	rows, err := r.pool.Query(ctx, listCartLinesSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing cart lines: %w", err)
	}
	return pgx.CollectRows(rows, scanCartLine)
}

// Remove deletes one product from the owner's cart.
func (r *CartRepository) Remove(ctx context.Context, ownerID, productID string) error {
	tag, err := r.pool.Exec(ctx, deleteCartLineSQL, ownerID, productID)
	if err != nil {
		return fmt.Errorf("removing cart line (%s, %s): %w", ownerID, productID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return nil
}

// Clear removes all cart lines for the owner.
func (r *CartRepository) Clear(ctx context.Context, ownerID string) error {
	if _, err := r.pool.Exec(ctx, clearCartSQL, ownerID); err != nil {
		return fmt.Errorf("clearing cart: %w", err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(&l.OwnerID, &l.ProductID, &l.Quantity)
	return l, err
}
