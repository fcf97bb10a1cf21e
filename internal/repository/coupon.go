package repository

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/rohn21/e-commerce-webapp/internal/domain/coupon"
)

const (
	getCouponByCodeSQL = `SELECT code, discount_type, discount_value, max_discount,
		expires_at, active, usage, created_at
		FROM coupons WHERE UPPER(code) = UPPER($1)`

	incrementCouponUsageSQL = `UPDATE coupons SET usage = usage + 1 WHERE code = $1`

	deactivateExpiredCouponsSQL = `UPDATE coupons SET active = FALSE
		WHERE active AND expires_at <= now()`

	listCouponCodesSQL = `SELECT code FROM coupons`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
//
// FindByCode deliberately does not filter on the active flag: the validator
// treats the expiry timestamp as authoritative, and the flag is corrected
// separately by DeactivateExpired.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its code, case-insensitively.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return findCoupon(ctx, r.pool, code)
}

// IncrementUsage atomically bumps the redemption counter.
func (r *CouponRepository) IncrementUsage(ctx context.Context, code string) error {
	return incrementCouponUsage(ctx, r.pool, code)
}

// DeactivateExpired corrects stale active flags on coupons whose expiry
// has passed. Run periodically by the coupon sweep worker.
func (r *CouponRepository) DeactivateExpired(ctx context.Context) (int64, error) {
	tag, err := r.pool.Exec(ctx, deactivateExpiredCouponsSQL)
	if err != nil {
		return 0, fmt.Errorf("deactivating expired coupons: %w", err)
	}
	return tag.RowsAffected(), nil
}

// ListCodes returns every stored coupon code, for seeding the negative
// lookup filter at startup.
func (r *CouponRepository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, listCouponCodesSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupon codes: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		var code string
		err := row.Scan(&code)
		return code, err
	})
}

// querier is the subset of pgx shared by pools and transactions, letting
// the same coupon statements run inside the checkout transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func findCoupon(ctx context.Context, q querier, code string) (*coupon.Coupon, error) {
	rows, err := q.Query(ctx, getCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

func incrementCouponUsage(ctx context.Context, q querier, code string) error {
	if _, err := q.Exec(ctx, incrementCouponUsageSQL, code); err != nil {
		return fmt.Errorf("incrementing usage for coupon %q: %w", code, err)
	}
	return nil
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var (
		c            coupon.Coupon
		discountType string
		maxDiscount  *decimal.Decimal
	)
	err := row.Scan(
		&c.Code, &discountType, &c.Value, &maxDiscount,
		&c.ExpiresAt, &c.Active, &c.Usage, &c.CreatedAt,
	)
	c.DiscountType = coupon.DiscountType(discountType)
	if maxDiscount != nil {
		c.MaxDiscount = *maxDiscount
	}
	return c, err
}
