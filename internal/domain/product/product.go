// Package product holds the catalog types consumed at checkout time.
// The catalog itself is maintained elsewhere; this service only reads it.
package product

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a product does not exist in the catalog.
var ErrNotFound = errors.New("product not found")

// Image holds the responsive image variants for a product.
type Image struct {
	Thumbnail string
	Mobile    string
	Tablet    string
	Desktop   string
}

// Product is a single catalog entry. Price is the current unit price; orders
// freeze their own copy of it at checkout.
type Product struct {
	ID       string
	Name     string
	Category string
	Price    decimal.Decimal
	Image    Image
}

// Repository defines read access to the product catalog.
type Repository interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}
