// Package address models shipping addresses and their ownership rules.
package address

import (
	"context"

	"github.com/go-faster/errors"
)

var (
	// ErrNotFound is returned when an address does not exist or belongs to
	// a different owner.
	ErrNotFound = errors.New("address not found")
	// ErrNoDefault is returned when an owner has no default address to fall
	// back on at checkout.
	ErrNoDefault = errors.New("no default address")
	// ErrInvalidPincode is returned when a postal code is not exactly six digits.
	ErrInvalidPincode = errors.New("pincode must be exactly 6 digits")
)

// Address is a shipping destination. At most one address per owner carries
// IsDefault; it is used when checkout does not name an address explicitly.
type Address struct {
	ID        string
	OwnerID   string
	City      string
	Street    string
	State     string
	Pincode   string
	IsDefault bool
}

// ValidatePincode checks that p is exactly six ASCII digits.
func ValidatePincode(p string) error {
	if len(p) != 6 {
		return ErrInvalidPincode
	}
	for i := range len(p) {
		if p[i] < '0' || p[i] > '9' {
			return ErrInvalidPincode
		}
	}
	return nil
}

// Repository defines persistence operations for addresses. Lookups are
// owner-scoped: an address belonging to another owner behaves as missing.
type Repository interface {
	Create(ctx context.Context, a *Address) error
	ListByOwner(ctx context.Context, ownerID string) ([]Address, error)
	GetByID(ctx context.Context, ownerID, id string) (*Address, error)
	// GetDefault returns the owner's default address, or ErrNoDefault.
	GetDefault(ctx context.Context, ownerID string) (*Address, error)
}
