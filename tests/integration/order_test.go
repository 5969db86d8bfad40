//go:build integration

package integration

import (
	"net/http"
	"regexp"
	"testing"
)

var uuidPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestPlaceOrder_NoToken(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", "", checkoutBody(""))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_GarbageToken(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", "not-a-jwt", checkoutBody(""))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_EmptyCart(t *testing.T) {
	body := checkoutBody("")
	body["orderItems"] = []map[string]any{}

	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), body)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestPlaceOrder_NoCoupon(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody(""))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if !uuidPattern.MatchString(order.ID) {
		t.Errorf("order ID %q is not a valid UUID", order.ID)
	}
	if order.UserID != customerID {
		t.Errorf("user: got %q, want %q", order.UserID, customerID)
	}
	// 1000 + 150 shipping.
	if order.TotalPrice != 1150 {
		t.Errorf("total: got %v, want 1150", order.TotalPrice)
	}
}

func TestPlaceOrder_WithCoupon(t *testing.T) {
	// WELCOME10 has no usage limit; 10% off 1000 = 100.
	resp := doRequest(t, http.MethodPost, "/api/orders", adminToken(t), checkoutBody("WELCOME10"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	order := decodeJSON[orderResponse](t, resp)
	if order.CouponCode != "WELCOME10" {
		t.Errorf("coupon: got %q, want WELCOME10", order.CouponCode)
	}
	if order.TotalPrice != 1050 {
		t.Errorf("total: got %v, want 1050", order.TotalPrice)
	}
}

func TestPlaceOrder_CouponOncePerUser(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody("FLASH25"))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("first redemption: expected 201, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody("FLASH25"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("second redemption: expected 400, got %d", resp.StatusCode)
	}

	apiErr := decodeJSON[errorResponse](t, resp)
	if apiErr.Message == "" {
		t.Error("expected a human-readable error message")
	}
}

func TestPlaceOrder_InvalidCoupon(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody("NONEXISTENT"))
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestValidateCoupon(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/coupons/validate", customerToken(t), map[string]any{
		"code":       "welcome10",
		"itemsPrice": 2000,
	})
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := decodeJSON[validateCouponResponse](t, resp)
	if !body.Success {
		t.Error("expected success")
	}
	if body.Code != "WELCOME10" {
		t.Errorf("code: got %q, want WELCOME10", body.Code)
	}
	if body.DiscountAmount != 200 {
		t.Errorf("discountAmount: got %v, want 200", body.DiscountAmount)
	}
}

func TestMyOrders(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody(""))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/orders/mine", customerToken(t), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	orders := decodeJSON[[]orderResponse](t, resp)
	if len(orders) == 0 {
		t.Fatal("expected at least one order")
	}
	for _, o := range orders {
		if o.UserID != customerID {
			t.Errorf("listing leaked order for user %q", o.UserID)
		}
	}
}

func TestGetOrder_OwnershipEnforced(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody(""))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	orderID := decodeJSON[orderResponse](t, resp).ID
	resp.Body.Close()

	// A different non-admin user is rejected.
	stranger := issueToken(t, "9f000000-0000-0000-0000-000000000009", false)
	resp = doRequest(t, http.MethodGet, "/api/orders/"+orderID, stranger, nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("stranger: expected 403, got %d", resp.StatusCode)
	}

	// Admin can read any order.
	resp = doRequest(t, http.MethodGet, "/api/orders/"+orderID, adminToken(t), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("admin: expected 200, got %d", resp.StatusCode)
	}
}

func TestAdminRoutes_ForbiddenForCustomers(t *testing.T) {
	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/orders"},
		{http.MethodGet, "/api/orders/stats"},
		{http.MethodGet, "/api/coupons"},
		{http.MethodGet, "/api/coupons/analytics"},
		{http.MethodGet, "/api/activity"},
		{http.MethodPost, "/api/alerts"},
	}
	for _, p := range paths {
		resp := doRequest(t, p.method, p.path, customerToken(t), nil)
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Errorf("%s %s: expected 403, got %d", p.method, p.path, resp.StatusCode)
		}
	}
}

func TestMarkPaidAndDelivered(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody(""))
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}
	orderID := decodeJSON[orderResponse](t, resp).ID
	resp.Body.Close()

	resp = doRequest(t, http.MethodPut, "/api/orders/"+orderID+"/pay", adminToken(t), nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("pay: expected 200, got %d", resp.StatusCode)
	}
	if o := decodeJSON[orderResponse](t, resp); !o.IsPaid {
		t.Error("order should be paid")
	}
	resp.Body.Close()

	resp = doRequest(t, http.MethodPut, "/api/orders/"+orderID+"/deliver", adminToken(t), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("deliver: expected 200, got %d", resp.StatusCode)
	}
	if o := decodeJSON[orderResponse](t, resp); !o.IsDelivered {
		t.Error("order should be delivered")
	}
}

func TestCouponAdminLifecycle(t *testing.T) {
	// Create.
	resp := doRequest(t, http.MethodPost, "/api/coupons", adminToken(t), map[string]any{
		"code":       "LIFECYCLE20",
		"discount":   20,
		"expiresAt":  "2030-01-01T00:00:00Z",
		"usageLimit": 10,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: expected 201, got %d", resp.StatusCode)
	}
	created := decodeJSON[map[string]any](t, resp)
	resp.Body.Close()
	couponID, _ := created["id"].(string)
	if couponID == "" {
		t.Fatal("created coupon has no id")
	}

	// Duplicate code conflicts.
	resp = doRequest(t, http.MethodPost, "/api/coupons", adminToken(t), map[string]any{
		"code":      "LIFECYCLE20",
		"discount":  20,
		"expiresAt": "2030-01-01T00:00:00Z",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", resp.StatusCode)
	}

	// Toggle off: validation should now reject it.
	resp = doRequest(t, http.MethodPatch, "/api/coupons/"+couponID+"/toggle", adminToken(t), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodPost, "/api/coupons/validate", customerToken(t), map[string]any{
		"code": "LIFECYCLE20",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("validate disabled: expected 400, got %d", resp.StatusCode)
	}

	// Delete.
	resp = doRequest(t, http.MethodDelete, "/api/coupons/"+couponID, adminToken(t), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodDelete, "/api/coupons/"+couponID, adminToken(t), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("delete again: expected 404, got %d", resp.StatusCode)
	}
}

func TestOrderStats(t *testing.T) {
	resp := doRequest(t, http.MethodGet, "/api/orders/stats", adminToken(t), nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	stats := decodeJSON[map[string]any](t, resp)
	if _, ok := stats["totalOrders"]; !ok {
		t.Error("missing totalOrders")
	}
	if _, ok := stats["revenue"]; !ok {
		t.Error("missing revenue")
	}
}
