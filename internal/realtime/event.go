package realtime

import (
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/dukahub/storefront/internal/domain/notification"
	"github.com/dukahub/storefront/internal/domain/order"
)

// Named events delivered over the broadcast channel.
const (
	EventNewOrder        = "newOrder"
	EventRealtimeMetrics = "realtimeMetrics"
	EventActiveAdmins    = "activeAdmins"
	EventAdminAlert      = "adminAlert"
	EventNewNotification = "newNotification"
)

// encodeEvent frames a named event as {"event": name, "data": payload}.
// The payload is marshaled once; the envelope is assembled with jx so a
// broadcast to N sessions encodes exactly one buffer.
func encodeEvent(name string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "marshal %s payload", name)
	}

	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("event")
	e.Str(name)
	e.FieldStart("data")
	e.Raw(data)
	e.ObjEnd()
	return e.Bytes(), nil
}

// orderPayload is the wire shape of a newOrder event.
type orderPayload struct {
	ID            string             `json:"id"`
	UserID        string             `json:"user"`
	Items         []orderItemPayload `json:"orderItems"`
	ItemsPrice    float64            `json:"itemsPrice"`
	ShippingPrice float64            `json:"shippingPrice"`
	TotalPrice    float64            `json:"totalPrice"`
	CouponCode    *string            `json:"couponCode"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type orderItemPayload struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Quantity  int     `json:"qty"`
	Price     float64 `json:"price"`
}

func newOrderPayload(o *order.Order) orderPayload {
	items := make([]orderItemPayload, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemPayload{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.UnitPrice.InexactFloat64(),
		}
	}
	var code *string
	if o.CouponCode != "" {
		code = &o.CouponCode
	}
	return orderPayload{
		ID:            o.ID,
		UserID:        o.UserID,
		Items:         items,
		ItemsPrice:    o.ItemsPrice.InexactFloat64(),
		ShippingPrice: o.ShippingPrice.InexactFloat64(),
		TotalPrice:    o.TotalPrice.InexactFloat64(),
		CouponCode:    code,
		CreatedAt:     o.CreatedAt,
	}
}

type notificationPayload struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      string    `json:"type"`
	CreatedAt time.Time `json:"createdAt"`
}

func newNotificationPayload(n *notification.Notification) notificationPayload {
	return notificationPayload{
		ID:        n.ID,
		Message:   n.Message,
		Kind:      n.Kind,
		CreatedAt: n.CreatedAt,
	}
}

// Metrics is the aggregate snapshot carried by a realtimeMetrics event.
type Metrics struct {
	Orders       int     `json:"orders"`
	Revenue      float64 `json:"revenue"`
	Users        int     `json:"users"`
	ActiveAdmins int     `json:"activeUsers"`
}
