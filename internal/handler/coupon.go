package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dukahub/storefront/internal/domain/coupon"
)

type validateCouponRequest struct {
	Code       string          `json:"code" validate:"required"`
	ItemsPrice decimal.Decimal `json:"itemsPrice"`
}

type validateCouponResponse struct {
	Success        bool    `json:"success"`
	Code           string  `json:"code"`
	Discount       float64 `json:"discount"`
	DiscountAmount float64 `json:"discountAmount"`
}

// validateCoupon handles POST /api/coupons/validate: a dry-run resolve that
// never consumes a redemption slot.
func (h *Handler) validateCoupon(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	var req validateCouponRequest
	if err := decodeBody(r, &req); err != nil {
		respondErrorMsg(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, err)
		return
	}

	res, err := h.coupons.Resolve(r.Context(), req.Code, id.UserID, req.ItemsPrice)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, validateCouponResponse{
		Success:        true,
		Code:           res.Coupon.Code,
		Discount:       res.Coupon.Discount.InexactFloat64(),
		DiscountAmount: res.DiscountAmount.InexactFloat64(),
	})
}

type createCouponRequest struct {
	Code       string    `json:"code" validate:"required"`
	Discount   float64   `json:"discount" validate:"required,gt=0,lte=100"`
	ExpiresAt  time.Time `json:"expiresAt" validate:"required"`
	UsageLimit int       `json:"usageLimit" validate:"gte=0"`
	Active     *bool     `json:"active"`
}

type couponResponse struct {
	ID         string    `json:"id"`
	Code       string    `json:"code"`
	Discount   float64   `json:"discount"`
	ExpiresAt  time.Time `json:"expiresAt"`
	Active     bool      `json:"isActive"`
	UsageLimit int       `json:"usageLimit"`
	UsedCount  int       `json:"usedCount"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toCouponResponse(c *coupon.Coupon) couponResponse {
	return couponResponse{
		ID:         c.ID,
		Code:       c.Code,
		Discount:   c.Discount.InexactFloat64(),
		ExpiresAt:  c.ExpiresAt,
		Active:     c.Active,
		UsageLimit: c.UsageLimit,
		UsedCount:  c.UsedCount,
		CreatedAt:  c.CreatedAt,
	}
}

func toCouponResponses(coupons []coupon.Coupon) []couponResponse {
	out := make([]couponResponse, len(coupons))
	for i := range coupons {
		out[i] = toCouponResponse(&coupons[i])
	}
	return out
}

// createCoupon handles POST /api/coupons (admin).
func (h *Handler) createCoupon(w http.ResponseWriter, r *http.Request) {
	var req createCouponRequest
	if err := decodeBody(r, &req); err != nil {
		respondErrorMsg(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, err)
		return
	}

	active := true
	if req.Active != nil {
		active = *req.Active
	}
	c := &coupon.Coupon{
		ID:         uuid.New().String(),
		Code:       coupon.NormalizeCode(req.Code),
		Discount:   decimal.NewFromFloat(req.Discount).Round(2),
		ExpiresAt:  req.ExpiresAt,
		Active:     active,
		UsageLimit: req.UsageLimit,
		CreatedAt:  h.now(),
	}
	if err := h.couponRepo.Create(r.Context(), c); err != nil {
		respondError(w, r, err)
		return
	}

	h.recordAdminAction(r, "Created Coupon",
		fmt.Sprintf("Coupon %s created (%s%% off)", c.Code, c.Discount),
		map[string]string{"couponId": c.ID, "code": c.Code})

	respondJSON(w, http.StatusCreated, toCouponResponse(c))
}

// listCoupons handles GET /api/coupons (admin).
func (h *Handler) listCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.couponRepo.List(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCouponResponses(coupons))
}

// listActiveCoupons handles GET /api/coupons/active (admin): only coupons
// currently usable by at least one new redeemer.
func (h *Handler) listActiveCoupons(w http.ResponseWriter, r *http.Request) {
	coupons, err := h.couponRepo.ListActive(r.Context(), h.now())
	if err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, toCouponResponses(coupons))
}

type couponAnalyticsResponse struct {
	Code             string  `json:"code"`
	Discount         float64 `json:"discount"`
	Active           bool    `json:"isActive"`
	UsageLimit       int     `json:"usageLimit"`
	UsedCount        int     `json:"usedCount"`
	TimesUsed        int     `json:"timesUsed"`
	RevenueGenerated float64 `json:"revenueGenerated"`
}

// couponAnalytics handles GET /api/coupons/analytics (admin): per-coupon
// redemption counts and the revenue of orders that carried each code.
func (h *Handler) couponAnalytics(w http.ResponseWriter, r *http.Request) {
	rows, err := h.couponRepo.Analytics(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]couponAnalyticsResponse, len(rows))
	for i, a := range rows {
		out[i] = couponAnalyticsResponse{
			Code:             a.Code,
			Discount:         a.Discount.InexactFloat64(),
			Active:           a.Active,
			UsageLimit:       a.UsageLimit,
			UsedCount:        a.UsedCount,
			TimesUsed:        a.TimesUsed,
			RevenueGenerated: a.RevenueGenerated.InexactFloat64(),
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// deleteCoupon handles DELETE /api/coupons/{id} (admin).
func (h *Handler) deleteCoupon(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.couponRepo.Delete(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}

	h.recordAdminAction(r, "Deleted Coupon",
		fmt.Sprintf("Coupon %s deleted", id),
		map[string]string{"couponId": id})

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}

// toggleCoupon handles PATCH /api/coupons/{id}/toggle (admin): flips the
// active flag.
func (h *Handler) toggleCoupon(w http.ResponseWriter, r *http.Request) {
	updated, err := h.couponRepo.Toggle(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}

	state := "disabled"
	if updated.Active {
		state = "enabled"
	}
	h.recordAdminAction(r, "Toggled Coupon",
		fmt.Sprintf("Coupon %s %s", updated.Code, state),
		map[string]string{"couponId": updated.ID, "code": updated.Code})

	respondJSON(w, http.StatusOK, toCouponResponse(updated))
}
