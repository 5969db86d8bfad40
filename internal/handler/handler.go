// Package handler exposes the storefront checkout core over HTTP: the
// checkout endpoint, order reads and admin mutations, coupon validation and
// administration, and the realtime websocket handshake.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"

	"github.com/dukahub/storefront/internal/domain/activity"
	"github.com/dukahub/storefront/internal/domain/auth"
	"github.com/dukahub/storefront/internal/domain/coupon"
	"github.com/dukahub/storefront/internal/domain/notification"
	"github.com/dukahub/storefront/internal/domain/order"
	"github.com/dukahub/storefront/internal/realtime"
)

// ActivityLog combines the audit write and read surfaces the API uses:
// admin mutations record entries, the admin dashboard lists them.
type ActivityLog interface {
	activity.Sink
	activity.List
}

// Handler routes API requests to the domain services.
type Handler struct {
	orders        *order.Service
	orderRepo     order.Repository
	coupons       *coupon.Ledger
	couponRepo    coupon.Repository
	audit         ActivityLog
	notifications notification.Repository
	verifier      *auth.Verifier
	hub           *realtime.Hub

	validate *validator.Validate
	upgrader websocket.Upgrader
	now      func() time.Time
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	orders *order.Service,
	orderRepo order.Repository,
	coupons *coupon.Ledger,
	couponRepo coupon.Repository,
	audit ActivityLog,
	notifications notification.Repository,
	verifier *auth.Verifier,
	hub *realtime.Hub,
) *Handler {
	return &Handler{
		orders:        orders,
		orderRepo:     orderRepo,
		coupons:       coupons,
		couponRepo:    couponRepo,
		audit:         audit,
		notifications: notifications,
		verifier:      verifier,
		hub:           hub,
		validate:   validator.New(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1 << 10,
			WriteBufferSize: 1 << 10,
			// Browser clients connect from the storefront origin; CORS policy
			// is enforced on the REST surface, not the websocket handshake.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		now: time.Now,
	}
}

// Routes builds the API router. Health endpoints are mounted separately by
// the application.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.requireAuth)

			r.Post("/orders", h.placeOrder)
			r.Get("/orders/mine", h.myOrders)
			r.Get("/orders/{id}", h.getOrder)
			r.Post("/coupons/validate", h.validateCoupon)
			r.Get("/notifications", h.myNotifications)
			r.Put("/notifications/{id}/read", h.markNotificationRead)

			r.Group(func(r chi.Router) {
				r.Use(h.requireAdmin)

				r.Get("/orders", h.listOrders)
				r.Get("/orders/stats", h.orderStats)
				r.Put("/orders/{id}/pay", h.markPaid)
				r.Put("/orders/{id}/deliver", h.markDelivered)

				r.Post("/coupons", h.createCoupon)
				r.Get("/coupons", h.listCoupons)
				r.Get("/coupons/active", h.listActiveCoupons)
				r.Get("/coupons/analytics", h.couponAnalytics)
				r.Delete("/coupons/{id}", h.deleteCoupon)
				r.Patch("/coupons/{id}/toggle", h.toggleCoupon)

				r.Get("/activity", h.listActivity)
				r.Post("/alerts", h.broadcastAlert)
			})
		})
	})

	r.Get("/realtime", h.realtime)

	return r
}
