package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dukahub/storefront/internal/domain/coupon"
)

const (
	couponColumns = `id, code, discount, expires_at, active, usage_limit, used_count, used_by, created_at`

	findCouponByCodeSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE code = $1`

	// The redemption predicate is re-evaluated inside this single UPDATE, so
	// the limit check and the duplicate-user check are atomic with the write.
	reserveCouponSQL = `UPDATE coupons
		SET used_count = used_count + 1, used_by = array_append(used_by, $2)
		WHERE code = $1 AND active AND expires_at > now()
		  AND (usage_limit = 0 OR used_count < usage_limit)
		  AND NOT ($2 = ANY(used_by))`

	createCouponSQL = `INSERT INTO coupons (id, code, discount, expires_at, active, usage_limit, used_count, used_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, 0, '{}', $7)`

	listCouponsSQL       = `SELECT ` + couponColumns + ` FROM coupons ORDER BY created_at DESC`
	listActiveCouponsSQL = `SELECT ` + couponColumns + ` FROM coupons WHERE active AND expires_at >= $1 ORDER BY created_at DESC`
	deleteCouponSQL      = `DELETE FROM coupons WHERE id = $1`
	toggleCouponSQL      = `UPDATE coupons SET active = NOT active WHERE id = $1 RETURNING ` + couponColumns

	couponAnalyticsSQL = `SELECT c.code, c.discount, c.active, c.usage_limit, c.used_count,
			COUNT(o.id), COALESCE(SUM(o.total_price), 0)
		FROM coupons c
		LEFT JOIN orders o ON o.coupon_code = c.code
		GROUP BY c.id, c.code, c.discount, c.active, c.usage_limit, c.used_count, c.created_at
		ORDER BY c.created_at DESC`
)

var _ coupon.Repository = (*CouponRepository)(nil)

// CouponRepository implements coupon.Repository backed by PostgreSQL.
type CouponRepository struct {
	pool *pgxpool.Pool
}

// NewCouponRepository returns a CouponRepository that uses the given pool.
func NewCouponRepository(pool *pgxpool.Pool) *CouponRepository {
	return &CouponRepository{pool: pool}
}

// FindByCode looks up a coupon by its normalized code.
// Returns coupon.ErrInvalidCoupon when no such coupon exists.
func (r *CouponRepository) FindByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, findCouponByCodeSQL, code)
	if err != nil {
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrInvalidCoupon
		}
		return nil, fmt.Errorf("finding coupon by code %q: %w", code, err)
	}
	return &c, nil
}

// Reserve consumes one redemption slot as a single conditional update. Zero
// rows affected means the coupon lost validity or the user raced out of the
// last slot; both surface as coupon.ErrCouponExhausted.
func (r *CouponRepository) Reserve(ctx context.Context, code, userID string) error {
	tag, err := r.pool.Exec(ctx, reserveCouponSQL, code, userID)
	if err != nil {
		return fmt.Errorf("reserving coupon %q: %w", code, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrCouponExhausted
	}
	return nil
}

// Create inserts a new coupon. Returns coupon.ErrCodeExists on a duplicate code.
func (r *CouponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	_, err := r.pool.Exec(ctx, createCouponSQL,
		c.ID, c.Code, c.Discount, c.ExpiresAt, c.Active, c.UsageLimit, c.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return coupon.ErrCodeExists
		}
		return fmt.Errorf("creating coupon %q: %w", c.Code, err)
	}
	return nil
}

// List returns all coupons, newest first.
func (r *CouponRepository) List(ctx context.Context) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listCouponsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// ListActive returns coupons that are enabled and unexpired at the given time.
func (r *CouponRepository) ListActive(ctx context.Context, now time.Time) ([]coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, listActiveCouponsSQL, now)
	if err != nil {
		return nil, fmt.Errorf("listing active coupons: %w", err)
	}
	return pgx.CollectRows(rows, scanCoupon)
}

// Delete removes a coupon by ID. Returns coupon.ErrNotFound when absent.
func (r *CouponRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, deleteCouponSQL, id)
	if err != nil {
		return fmt.Errorf("deleting coupon %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return coupon.ErrNotFound
	}
	return nil
}

// Toggle flips the active flag in place and returns the updated coupon.
func (r *CouponRepository) Toggle(ctx context.Context, id string) (*coupon.Coupon, error) {
	rows, err := r.pool.Query(ctx, toggleCouponSQL, id)
	if err != nil {
		return nil, fmt.Errorf("toggling coupon %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCoupon)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, coupon.ErrNotFound
		}
		return nil, fmt.Errorf("toggling coupon %q: %w", id, err)
	}
	return &c, nil
}

// Analytics aggregates per-coupon usage across all orders carrying the code.
func (r *CouponRepository) Analytics(ctx context.Context) ([]coupon.Analytics, error) {
	rows, err := r.pool.Query(ctx, couponAnalyticsSQL)
	if err != nil {
		return nil, fmt.Errorf("coupon analytics: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (coupon.Analytics, error) {
		var (
			a         coupon.Analytics
			timesUsed int64
		)
		err := row.Scan(&a.Code, &a.Discount, &a.Active, &a.UsageLimit, &a.UsedCount,
			&timesUsed, &a.RevenueGenerated)
		a.TimesUsed = int(timesUsed)
		return a, err
	})
}

func scanCoupon(row pgx.CollectableRow) (coupon.Coupon, error) {
	var c coupon.Coupon
	err := row.Scan(
		&c.ID, &c.Code, &c.Discount, &c.ExpiresAt, &c.Active,
		&c.UsageLimit, &c.UsedCount, &c.UsedBy, &c.CreatedAt,
	)
	return c, err
}
