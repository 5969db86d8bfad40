package handler

import (
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/dukahub/storefront/internal/domain/order"
)

type orderItemRequest struct {
	ProductID string          `json:"product" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Quantity  int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
}

type shippingAddressRequest struct {
	Address string `json:"address" validate:"required"`
	City    string `json:"city" validate:"required"`
	Phone   string `json:"phone"`
}

type placeOrderRequest struct {
	Items           []orderItemRequest     `json:"orderItems" validate:"dive"`
	ShippingAddress shippingAddressRequest `json:"shippingAddress"`
	PaymentMethod   string                 `json:"paymentMethod" validate:"required"`
	ItemsPrice      decimal.Decimal        `json:"itemsPrice"`
	ShippingPrice   decimal.Decimal        `json:"shippingPrice"`
	CouponCode      string                 `json:"couponCode"`
}

type orderItemResponse struct {
	ProductID string  `json:"product"`
	Name      string  `json:"name"`
	Quantity  int     `json:"qty"`
	UnitPrice float64 `json:"price"`
	Image     string  `json:"image,omitempty"`
}

type shippingAddressResponse struct {
	Address string `json:"address"`
	City    string `json:"city"`
	Phone   string `json:"phone,omitempty"`
}

type orderResponse struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user"`
	Items           []orderItemResponse     `json:"orderItems"`
	ShippingAddress shippingAddressResponse `json:"shippingAddress"`
	PaymentMethod   string                  `json:"paymentMethod"`
	ItemsPrice      float64                 `json:"itemsPrice"`
	ShippingPrice   float64                 `json:"shippingPrice"`
	TotalPrice      float64                 `json:"totalPrice"`
	CouponCode      string                  `json:"couponCode,omitempty"`
	IsPaid          bool                    `json:"isPaid"`
	PaidAt          *time.Time              `json:"paidAt,omitempty"`
	IsDelivered     bool                    `json:"isDelivered"`
	DeliveredAt     *time.Time              `json:"deliveredAt,omitempty"`
	CreatedAt       time.Time               `json:"createdAt"`
}

func toOrderResponse(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.InexactFloat64(),
			Image:     it.Image,
		}
	}
	return orderResponse{
		ID:     o.ID,
		UserID: o.UserID,
		Items:  items,
		ShippingAddress: shippingAddressResponse{
			Address: o.ShippingAddress.Address,
			City:    o.ShippingAddress.City,
			Phone:   o.ShippingAddress.Phone,
		},
		PaymentMethod: o.PaymentMethod,
		ItemsPrice:    o.ItemsPrice.InexactFloat64(),
		ShippingPrice: o.ShippingPrice.InexactFloat64(),
		TotalPrice:    o.TotalPrice.InexactFloat64(),
		CouponCode:    o.CouponCode,
		IsPaid:        o.IsPaid,
		PaidAt:        o.PaidAt,
		IsDelivered:   o.IsDelivered,
		DeliveredAt:   o.DeliveredAt,
		CreatedAt:     o.CreatedAt,
	}
}

func toOrderResponses(orders []order.Order) []orderResponse {
	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrderResponse(&orders[i])
	}
	return out
}

// placeOrder handles POST /api/orders: the checkout transaction.
func (h *Handler) placeOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req placeOrderRequest
	if err := decodeBody(r, &req); err != nil {
		respondErrorMsg(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, err)
		return
	}

	items := make([]order.LineItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.LineItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice,
			Image:     it.Image,
		}
	}

	o, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID: id.UserID,
		Items:  items,
		ShippingAddress: order.ShippingAddress{
			Address: req.ShippingAddress.Address,
			City:    req.ShippingAddress.City,
			Phone:   req.ShippingAddress.Phone,
		},
		PaymentMethod: req.PaymentMethod,
		ItemsPrice:    req.ItemsPrice,
		ShippingPrice: req.ShippingPrice,
		CouponCode:    req.CouponCode,
		ClientIP:      clientIP(r),
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, toOrderResponse(o))
}

// myOrders handles GET /api/orders/mine.
func (h *Handler) myOrders(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	orders, err := h.orderRepo.ListByUser(r.Context(), id.UserID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponses(orders))
}

// getOrder handles GET /api/orders/{id}. Owners see their own orders; admins
// see any.
func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	o, err := h.orderRepo.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	if !id.Admin && o.UserID != id.UserID {
		respondErrorMsg(w, http.StatusForbidden, "not your order")
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// listOrders handles GET /api/orders (admin): paginated listing.
func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", 20)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	p, err := h.orderRepo.ListPage(r.Context(), page, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"orders": toOrderResponses(p.Orders),
		"page":   p.Page,
		"pages":  p.Pages,
		"total":  p.Total,
	})
}

// orderStats handles GET /api/orders/stats (admin).
func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orderRepo.Stats(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"totalOrders": stats.TotalOrders,
		"paidOrders":  stats.PaidOrders,
		"revenue":     stats.Revenue.InexactFloat64(),
	})
}

// markPaid handles PUT /api/orders/{id}/pay (admin).
func (h *Handler) markPaid(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderRepo.MarkPaid(r.Context(), chi.URLParam(r, "id"), h.now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

// markDelivered handles PUT /api/orders/{id}/deliver (admin).
func (h *Handler) markDelivered(w http.ResponseWriter, r *http.Request) {
	o, err := h.orderRepo.MarkDelivered(r.Context(), chi.URLParam(r, "id"), h.now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toOrderResponse(o))
}

func queryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

// clientIP resolves the originating client address, honouring proxies.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
