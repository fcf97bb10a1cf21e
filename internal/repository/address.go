package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rohn21/e-commerce-webapp/internal/domain/address"
)

const (
	insertAddressSQL = `INSERT INTO addresses (id, owner_id, city, street, state, pincode, is_default)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	clearDefaultAddressSQL = `UPDATE addresses SET is_default = FALSE
		WHERE owner_id = $1 AND is_default`

	listAddressesSQL = `SELECT id, owner_id, city, street, state, pincode, is_default
		FROM addresses WHERE owner_id = $1 ORDER BY is_default DESC, id`

	getAddressByIDSQL = `SELECT id, owner_id, city, street, state, pincode, is_default
		FROM addresses WHERE owner_id = $1 AND id = $2`

	getDefaultAddressSQL = `SELECT id, owner_id, city, street, state, pincode, is_default
		FROM addresses WHERE owner_id = $1 AND is_default`
)

var _ address.Repository = (*AddressRepository)(nil)

// AddressRepository implements address.Repository backed by PostgreSQL.
type AddressRepository struct {
	pool *pgxpool.Pool
}

// NewAddressRepository returns an AddressRepository that uses the given pool.
func NewAddressRepository(pool *pgxpool.Pool) *AddressRepository {
	return &AddressRepository{pool: pool}
}

// Create persists an address. When the new address is marked default, the
// previous default is demoted in the same transaction, keeping the
// one-default-per-owner invariant.
func (r *AddressRepository) Create(ctx context.Context, a *address.Address) error {
	if err := address.ValidatePincode(a.Pincode); err != nil {
		return err
	}
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if a.IsDefault {
			if _, err := tx.Exec(ctx, clearDefaultAddressSQL, a.OwnerID); err != nil {
				return err
			}
		}
		_, err := tx.Exec(ctx, insertAddressSQL,
			a.ID, a.OwnerID, a.City, a.Street, a.State, a.Pincode, a.IsDefault)
		return err
	})
	if err != nil {
		return fmt.Errorf("creating address %q: %w", a.ID, err)
	}
	return nil
}

// ListByOwner returns the owner's addresses, default first.
func (r *AddressRepository) ListByOwner(ctx context.Context, ownerID string) ([]address.Address, error) {
	rows, err := r.pool.Query(ctx, listAddressesSQL, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing addresses: %w", err)
	}
	return pgx.CollectRows(rows, scanAddress)
}

// GetByID returns one address; an address owned by someone else behaves as
// missing.
func (r *AddressRepository) GetByID(ctx context.Context, ownerID, id string) (*address.Address, error) {
	return getAddress(ctx, r.pool, getAddressByIDSQL, ownerID, id)
}

// GetDefault returns the owner's default address or ErrNoDefault.
func (r *AddressRepository) GetDefault(ctx context.Context, ownerID string) (*address.Address, error) {
	a, err := getAddress(ctx, r.pool, getDefaultAddressSQL, ownerID)
	if errors.Is(err, address.ErrNotFound) {
		return nil, address.ErrNoDefault
	}
	return a, err
}

func getAddress(ctx context.Context, q querier, sql string, args ...any) (*address.Address, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("getting address: %w", err)
	}
	a, err := pgx.CollectExactlyOneRow(rows, scanAddress)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, address.ErrNotFound
		}
		return nil, fmt.Errorf("getting address: %w", err)
	}
	return &a, nil
}

func scanAddress(row pgx.CollectableRow) (address.Address, error) {
	var a address.Address
	err := row.Scan(&a.ID, &a.OwnerID, &a.City, &a.Street, &a.State, &a.Pincode, &a.IsDefault)
	return a, err
}
