package coupon

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidCoupon is returned when a coupon code does not exist or is
	// disabled.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrCouponExpired is returned when a coupon is past its expiry timestamp.
	ErrCouponExpired = errors.New("coupon expired")
	// ErrCouponExhausted is returned when a coupon has no redemption slots
	// left, including when a concurrent redemption consumed the last slot.
	ErrCouponExhausted = errors.New("coupon usage limit reached")
	// ErrAlreadyRedeemed is returned when the requesting user has already
	// redeemed this coupon.
	ErrAlreadyRedeemed = errors.New("coupon already used by this user")
	// ErrCodeExists is returned when creating a coupon whose code is taken.
	ErrCodeExists = errors.New("coupon code already exists")
	// ErrNotFound is returned for admin operations on an absent coupon.
	ErrNotFound = errors.New("coupon not found")
)

// Coupon is a named, time-bounded, usage-limited percentage discount code.
// A UsageLimit of zero means unlimited redemptions. UsedBy tracks every user
// that redeemed the code; a user appears at most once.
type Coupon struct {
	ID         string
	Code       string
	Discount   decimal.Decimal
	ExpiresAt  time.Time
	Active     bool
	UsageLimit int
	UsedCount  int
	UsedBy     []string
	CreatedAt  time.Time
}

// Usable reports whether the coupon can still be redeemed at the given time,
// ignoring per-user restrictions.
func (c *Coupon) Usable(now time.Time) bool {
	return c.Active &&
		now.Before(c.ExpiresAt) &&
		(c.UsageLimit == 0 || c.UsedCount < c.UsageLimit)
}

// RedeemedBy reports whether the given user already redeemed the coupon.
func (c *Coupon) RedeemedBy(userID string) bool {
	for _, id := range c.UsedBy {
		if id == userID {
			return true
		}
	}
	return false
}

// NormalizeCode canonicalizes a user-supplied coupon code: trimmed and
// upper-cased. All lookups and writes go through the normalized form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Analytics aggregates redemption outcomes for one coupon across all orders
// that carried its code.
type Analytics struct {
	Code             string
	Discount         decimal.Decimal
	Active           bool
	UsageLimit       int
	UsedCount        int
	TimesUsed        int
	RevenueGenerated decimal.Decimal
}

// Repository provides lookup and mutation of coupons.
//
// Reserve is the only write path that consumes a redemption slot. It must be
// an atomic conditional update: the limit and duplicate-user checks are
// evaluated at write time against current storage state, and a failed
// condition reports ErrCouponExhausted without modifying anything.
type Repository interface {
	FindByCode(ctx context.Context, code string) (*Coupon, error)
	Reserve(ctx context.Context, code, userID string) error

	Create(ctx context.Context, c *Coupon) error
	List(ctx context.Context) ([]Coupon, error)
	ListActive(ctx context.Context, now time.Time) ([]Coupon, error)
	Delete(ctx context.Context, id string) error
	Toggle(ctx context.Context, id string) (*Coupon, error)
	Analytics(ctx context.Context) ([]Analytics, error)
}
