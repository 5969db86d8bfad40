package order

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/dukahub/storefront/internal/domain/activity"
	"github.com/dukahub/storefront/internal/domain/coupon"
	"github.com/dukahub/storefront/internal/domain/notification"
	"github.com/dukahub/storefront/internal/domain/user"
)

// CouponLedger is the slice of the coupon ledger the checkout needs.
type CouponLedger interface {
	Resolve(ctx context.Context, code, userID string, itemsSubtotal decimal.Decimal) (*coupon.Resolution, error)
	Reserve(ctx context.Context, code, userID string) error
}

// Notifier delivers an out-of-band message to a customer (SMS, email).
type Notifier interface {
	Send(ctx context.Context, phone, message string) error
}

// Broadcaster pushes order events to connected admin observers.
type Broadcaster interface {
	OrderPlaced(o *Order)
	NotificationCreated(userID string, n *notification.Notification)
}

// SideEffects groups the best-effort collaborators triggered after an order
// is persisted. Any field may be nil; a missing collaborator is skipped.
// None of them can fail or delay the checkout response.
type SideEffects struct {
	Notifier      Notifier
	Activity      activity.Sink
	Notifications notification.Repository
	Broadcast     Broadcaster
}

// PlaceOrderRequest holds the input for one checkout.
type PlaceOrderRequest struct {
	UserID          string
	Items           []LineItem
	ShippingAddress ShippingAddress
	PaymentMethod   string
	ItemsPrice      decimal.Decimal
	ShippingPrice   decimal.Decimal
	CouponCode      string
	ClientIP        string
}

// Service coordinates the checkout transaction:
// validate → resolve coupon → reserve coupon → persist → side effects.
// Validation and coupon failures reject the whole order before anything is
// written; a reserve failure after a successful resolve is authoritative
// (the concurrent-redemption race lost) and also rejects the order.
type Service struct {
	ledger CouponLedger
	orders Repository
	users  user.Repository
	fx     SideEffects
	now    func() time.Time
}

// NewService creates an order Service with the required collaborators.
func NewService(ledger CouponLedger, orders Repository, users user.Repository, fx SideEffects) *Service {
	return &Service{
		ledger: ledger,
		orders: orders,
		users:  users,
		fx:     fx,
		now:    time.Now,
	}
}

// PlaceOrder runs the checkout transaction and returns the persisted order.
// Side effects are dispatched after the order is written and never surface
// in the returned error.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Order, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// Resolve first so every business-rule rejection happens before any
	// state changes; reserve immediately before persisting so the window
	// between ledger write and order write stays as small as possible.
	discount := decimal.Zero
	couponCode := ""
	if req.CouponCode != "" {
		res, err := s.ledger.Resolve(ctx, req.CouponCode, req.UserID, req.ItemsPrice)
		if err != nil {
			return nil, err
		}
		if err := s.ledger.Reserve(ctx, res.Coupon.Code, req.UserID); err != nil {
			return nil, err
		}
		discount = res.DiscountAmount
		couponCode = res.Coupon.Code
	}

	totals := ComputeTotals(req.ItemsPrice, req.ShippingPrice, discount)

	o := &Order{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		Items:           req.Items,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		ItemsPrice:      totals.ItemsPrice,
		ShippingPrice:   totals.ShippingPrice,
		TotalPrice:      totals.TotalPrice,
		CouponCode:      couponCode,
		CreatedAt:       s.now(),
	}
	if err := s.orders.Create(ctx, o); err != nil {
		if couponCode != "" {
			// The redemption slot is consumed but the order is gone. There is
			// no multi-entity transaction here; surface the inconsistency for
			// manual reconciliation.
			zctx.From(ctx).Warn("coupon reserved but order not persisted",
				zap.String("coupon_code", couponCode),
				zap.String("user_id", req.UserID),
				zap.Error(err),
			)
		}
		return nil, errors.Wrap(err, "create order")
	}

	s.dispatchSideEffects(ctx, o, req.ClientIP)

	return o, nil
}

// dispatchSideEffects fires the post-checkout actions without blocking the
// caller. Each effect runs on a context detached from the request so a client
// disconnect does not unwind work for an already-persisted order.
func (s *Service) dispatchSideEffects(ctx context.Context, o *Order, clientIP string) {
	bg := context.WithoutCancel(ctx)
	lg := zctx.From(ctx)

	go s.notifyPurchaser(bg, lg, o)
	go s.recordActivity(bg, lg, o, clientIP)
	go func() {
		if s.fx.Broadcast != nil {
			s.fx.Broadcast.OrderPlaced(o)
		}
	}()
}

func (s *Service) notifyPurchaser(ctx context.Context, lg *zap.Logger, o *Order) {
	u, err := s.users.GetByID(ctx, o.UserID)
	if err != nil {
		lg.Warn("purchaser lookup failed", zap.String("order_id", o.ID), zap.Error(err))
		return
	}

	message := fmt.Sprintf("Hello %s, your order %s has been received! We'll keep you updated.", u.Name, o.ID)

	if s.fx.Notifier != nil && u.Phone != "" {
		if err := s.fx.Notifier.Send(ctx, u.Phone, message); err != nil {
			lg.Warn("order sms failed", zap.String("order_id", o.ID), zap.Error(err))
		}
	}

	if s.fx.Notifications == nil {
		return
	}
	n := &notification.Notification{
		ID:        uuid.New().String(),
		UserID:    o.UserID,
		Message:   message,
		Kind:      "order",
		CreatedAt: s.now(),
	}
	if err := s.fx.Notifications.Create(ctx, n); err != nil {
		lg.Warn("order notification write failed", zap.String("order_id", o.ID), zap.Error(err))
		return
	}
	if s.fx.Broadcast != nil {
		s.fx.Broadcast.NotificationCreated(o.UserID, n)
	}
}

func (s *Service) recordActivity(ctx context.Context, lg *zap.Logger, o *Order, clientIP string) {
	if s.fx.Activity == nil {
		return
	}
	entry := &activity.Entry{
		ID:          uuid.New().String(),
		Action:      "Created Order",
		Description: fmt.Sprintf("Order %s placed", o.ID),
		ActorID:     o.UserID,
		IP:          clientIP,
		Meta:        map[string]string{"orderId": o.ID},
		CreatedAt:   s.now(),
	}
	if err := s.fx.Activity.Record(ctx, entry); err != nil {
		lg.Warn("activity log failed", zap.String("order_id", o.ID), zap.Error(err))
	}
}

func validate(req PlaceOrderRequest) error {
	if len(req.Items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range req.Items {
		if item.Quantity < 1 {
			return &InvalidQuantityError{ProductID: item.ProductID}
		}
	}
	if req.ItemsPrice.IsNegative() {
		return &InvalidAmountError{Field: "itemsPrice"}
	}
	if req.ShippingPrice.IsNegative() {
		return &InvalidAmountError{Field: "shippingPrice"}
	}
	return nil
}
