// Package cart models the pending-purchase lines an owner accumulates before
// checkout. A line is unique per (owner, product); adding the same product
// again increments the quantity instead of creating a second line.
package cart

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrInvalidQuantity is returned when a quantity is not positive.
	ErrInvalidQuantity = errors.New("quantity must be greater than 0")
	// ErrLineNotFound is returned when removing a product that is not in the cart.
	ErrLineNotFound = errors.New("cart line not found")
)

// Line is one product pending purchase for an owner.
type Line struct {
	OwnerID   string
	ProductID string
	Quantity  int
}

// Repository defines persistence operations for cart lines.
//
// Add is an explicit two-branch operation: insert the line if absent,
// otherwise increment the stored quantity, both under one transaction keyed
// by (owner, product).
type Repository interface {
	Add(ctx context.Context, ownerID, productID string, quantity int) (*Line, error)
	List(ctx context.Context, ownerID string) ([]Line, error)
	Remove(ctx context.Context, ownerID, productID string) error
	Clear(ctx context.Context, ownerID string) error
}
