package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/dukahub/storefront/internal/domain/auth"
	"github.com/dukahub/storefront/internal/domain/coupon"
	"github.com/dukahub/storefront/internal/domain/notification"
	"github.com/dukahub/storefront/internal/domain/order"
	"github.com/dukahub/storefront/internal/domain/user"
)

// errorResponse is the wire shape of every API error.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondErrorMsg(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Code: status, Message: message})
}

// respondError maps a domain error onto the API error taxonomy. Unrecognized
// errors become an opaque 500 and are logged with their full chain.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		invalidAmount   *order.InvalidAmountError
		invalidQuantity *order.InvalidQuantityError
		validation      validator.ValidationErrors
	)
	switch {
	case errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, coupon.ErrCouponExpired),
		errors.Is(err, coupon.ErrCouponExhausted),
		errors.Is(err, coupon.ErrAlreadyRedeemed),
		errors.As(err, &invalidAmount),
		errors.As(err, &invalidQuantity),
		errors.As(err, &validation):
		respondErrorMsg(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrInvalidToken):
		respondErrorMsg(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, order.ErrNotFound),
		errors.Is(err, coupon.ErrNotFound),
		errors.Is(err, notification.ErrNotFound),
		errors.Is(err, user.ErrNotFound):
		respondErrorMsg(w, http.StatusNotFound, err.Error())
	case errors.Is(err, coupon.ErrCodeExists):
		respondErrorMsg(w, http.StatusConflict, err.Error())
	default:
		zctx.From(r.Context()).Error("request failed", zap.Error(err))
		respondErrorMsg(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody decodes a JSON request body into dst, rejecting unknown fields.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return errors.Wrap(err, "decode request body")
	}
	return nil
}
