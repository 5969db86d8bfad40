package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dukahub/storefront/internal/domain/order"
)

const (
	orderColumns = `id, user_id, items, shipping, payment_method, items_price, shipping_price,
		total_price, coupon_code, is_paid, paid_at, is_delivered, delivered_at, created_at`

	createOrderSQL = `INSERT INTO orders (id, user_id, items, shipping, payment_method,
			items_price, shipping_price, total_price, coupon_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getOrderSQL        = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	listUserOrdersSQL  = `SELECT ` + orderColumns + ` FROM orders WHERE user_id = $1 ORDER BY created_at DESC`
	listOrdersPageSQL  = `SELECT ` + orderColumns + ` FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	countOrdersSQL     = `SELECT COUNT(*) FROM orders`
	markPaidSQL        = `UPDATE orders SET is_paid = TRUE, paid_at = $2 WHERE id = $1 RETURNING ` + orderColumns
	markDeliveredSQL   = `UPDATE orders SET is_delivered = TRUE, delivered_at = $2 WHERE id = $1 RETURNING ` + orderColumns
	orderStatsSQL      = `SELECT COUNT(*), COUNT(*) FILTER (WHERE is_paid), COALESCE(SUM(total_price), 0) FROM orders`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

// Create persists a new order. Line items and the shipping address are
// serialized to JSONB columns.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	itemsJSON, err := json.Marshal(o.Items)
	if err != nil {
		return fmt.Errorf("marshaling order items: %w", err)
	}
	shippingJSON, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshaling shipping address: %w", err)
	}

	var couponCode *string
	if o.CouponCode != "" {
		couponCode = &o.CouponCode
	}

	_, err = r.pool.Exec(ctx, createOrderSQL,
		o.ID, o.UserID, itemsJSON, shippingJSON, o.PaymentMethod,
		o.ItemsPrice, o.ShippingPrice, o.TotalPrice, couponCode, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.ID, err)
	}
	return nil
}

// GetByID fetches a single order. Returns order.ErrNotFound when absent.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, getOrderSQL, id)
	if err != nil {
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("finding order %q: %w", id, err)
	}
	return &o, nil
}

// ListByUser returns a user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string) ([]order.Order, error) {
	rows, err := r.pool.Query(ctx, listUserOrdersSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("listing orders for user %q: %w", userID, err)
	}
	return pgx.CollectRows(rows, scanOrder)
}

// ListPage returns one page of the admin order listing, newest first.
func (r *OrderRepository) ListPage(ctx context.Context, page, limit int) (*order.Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}

	var total int
	if err := r.pool.QueryRow(ctx, countOrdersSQL).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting orders: %w", err)
	}

	rows, err := r.pool.Query(ctx, listOrdersPageSQL, limit, (page-1)*limit)
	if err != nil {
		return nil, fmt.Errorf("listing orders page %d: %w", page, err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders page %d: %w", page, err)
	}

	return &order.Page{
		Orders: orders,
		Page:   page,
		Pages:  (total + limit - 1) / limit,
		Total:  total,
	}, nil
}

// MarkPaid sets the paid flag and timestamp, returning the updated order.
func (r *OrderRepository) MarkPaid(ctx context.Context, id string, at time.Time) (*order.Order, error) {
	return r.update(ctx, markPaidSQL, id, at)
}

// MarkDelivered sets the delivered flag and timestamp, returning the updated order.
func (r *OrderRepository) MarkDelivered(ctx context.Context, id string, at time.Time) (*order.Order, error) {
	return r.update(ctx, markDeliveredSQL, id, at)
}

func (r *OrderRepository) update(ctx context.Context, sql, id string, at time.Time) (*order.Order, error) {
	rows, err := r.pool.Query(ctx, sql, id, at)
	if err != nil {
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}

	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrNotFound
		}
		return nil, fmt.Errorf("updating order %q: %w", id, err)
	}
	return &o, nil
}

// Stats re-scans the orders table for store-wide aggregates.
func (r *OrderRepository) Stats(ctx context.Context) (order.Stats, error) {
	var (
		total, paid int64
		revenue     decimal.Decimal
	)
	if err := r.pool.QueryRow(ctx, orderStatsSQL).Scan(&total, &paid, &revenue); err != nil {
		return order.Stats{}, fmt.Errorf("order stats: %w", err)
	}
	return order.Stats{
		TotalOrders: int(total),
		PaidOrders:  int(paid),
		Revenue:     revenue,
	}, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o            order.Order
		itemsJSON    []byte
		shippingJSON []byte
		couponCode   *string
	)
	err := row.Scan(
		&o.ID, &o.UserID, &itemsJSON, &shippingJSON, &o.PaymentMethod,
		&o.ItemsPrice, &o.ShippingPrice, &o.TotalPrice, &couponCode,
		&o.IsPaid, &o.PaidAt, &o.IsDelivered, &o.DeliveredAt, &o.CreatedAt,
	)
	if err != nil {
		return o, err
	}
	if err := json.Unmarshal(itemsJSON, &o.Items); err != nil {
		return o, fmt.Errorf("unmarshaling order items: %w", err)
	}
	if err := json.Unmarshal(shippingJSON, &o.ShippingAddress); err != nil {
		return o, fmt.Errorf("unmarshaling shipping address: %w", err)
	}
	if couponCode != nil {
		o.CouponCode = *couponCode
	}
	return o, nil
}
