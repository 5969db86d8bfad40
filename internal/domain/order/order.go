package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Sentinel errors for order validation and lookup.
var (
	ErrEmptyCart = errors.New("no order items")
	ErrNotFound  = errors.New("order not found")
)

// InvalidAmountError indicates a monetary field is negative.
type InvalidAmountError struct {
	Field string
}

func (e *InvalidAmountError) Error() string {
	return fmt.Sprintf("%s must be a non-negative amount", e.Field)
}

// InvalidQuantityError indicates a line item has a quantity below one.
type InvalidQuantityError struct {
	ProductID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be at least 1 for product %s", e.ProductID)
}

// LineItem is one product snapshot within an order. Name, price, and image
// are copied at checkout time so later catalog edits never alter the order.
type LineItem struct {
	ProductID string          `json:"product"`
	Name      string          `json:"name"`
	Quantity  int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

// ShippingAddress is the destination captured with the order.
type ShippingAddress struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone"`
}

// Order is a placed customer order. Line items and pricing fields are
// immutable after creation; only the paid and delivered flags change later.
type Order struct {
	ID              string
	UserID          string
	Items           []LineItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	ItemsPrice      decimal.Decimal
	ShippingPrice   decimal.Decimal
	TotalPrice      decimal.Decimal
	CouponCode      string
	IsPaid          bool
	PaidAt          *time.Time
	IsDelivered     bool
	DeliveredAt     *time.Time
	CreatedAt       time.Time
}

// Stats is a store-wide aggregate over all orders.
type Stats struct {
	TotalOrders int
	PaidOrders  int
	Revenue     decimal.Decimal
}

// Page is one page of the admin order listing.
type Page struct {
	Orders []Order
	Page   int
	Pages  int
	Total  int
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, o *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
	ListByUser(ctx context.Context, userID string) ([]Order, error)
	ListPage(ctx context.Context, page, limit int) (*Page, error)
	MarkPaid(ctx context.Context, id string, at time.Time) (*Order, error)
	MarkDelivered(ctx context.Context, id string, at time.Time) (*Order, error)
	Stats(ctx context.Context) (Stats, error)
}
