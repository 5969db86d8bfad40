package coupon

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Resolution is the outcome of resolving a coupon against an items subtotal.
type Resolution struct {
	Coupon         *Coupon
	DiscountAmount decimal.Decimal
}

// Ledger owns coupon validity and redemption state. Resolve answers "would
// this code apply, and for how much" against a point-in-time read; Reserve
// consumes one redemption slot with the same predicate re-evaluated
// atomically at write time. Two concurrent checkouts can both pass Resolve
// on a near-exhausted coupon, so a Reserve failure is authoritative and the
// caller must abort.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

// NewLedger creates a Ledger backed by the given repository.
func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// Resolve validates the code for the given user and computes the discount
// against the items subtotal. It has no side effects: resolving the same
// unredeemed coupon twice yields the same discount both times.
func (l *Ledger) Resolve(ctx context.Context, code, userID string, itemsSubtotal decimal.Decimal) (*Resolution, error) {
	c, err := l.repo.FindByCode(ctx, NormalizeCode(code))
	if err != nil {
		if errors.Is(err, ErrInvalidCoupon) {
			return nil, ErrInvalidCoupon
		}
		return nil, errors.Wrap(err, "lookup coupon")
	}

	now := l.now()
	switch {
	case !c.Active:
		return nil, ErrInvalidCoupon
	case !now.Before(c.ExpiresAt):
		return nil, ErrCouponExpired
	case c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit:
		return nil, ErrCouponExhausted
	case c.RedeemedBy(userID):
		return nil, ErrAlreadyRedeemed
	}

	return &Resolution{
		Coupon:         c,
		DiscountAmount: DiscountAmount(c.Discount, itemsSubtotal),
	}, nil
}

// Reserve consumes one redemption slot for the user. The underlying
// repository performs the limit and duplicate-user checks as a single
// conditional write; losing the race reports ErrCouponExhausted.
//
// There is intentionally no Release: reservation is ordered after all other
// checkout validation, so the only failure left behind it is an order
// persistence failure, which is logged as a consistency warning rather than
// compensated.
func (l *Ledger) Reserve(ctx context.Context, code, userID string) error {
	if err := l.repo.Reserve(ctx, NormalizeCode(code), userID); err != nil {
		if errors.Is(err, ErrCouponExhausted) {
			return ErrCouponExhausted
		}
		return errors.Wrap(err, "reserve coupon")
	}
	return nil
}
