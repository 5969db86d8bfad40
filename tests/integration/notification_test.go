//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

type notificationItem struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Kind    string `json:"type"`
	Read    bool   `json:"read"`
}

func TestNotificationsAfterCheckout(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody(""))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	// The notification is written by a post-checkout side effect; poll until
	// it lands.
	var items []notificationItem
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		resp := doRequest(t, http.MethodGet, "/api/notifications", customerToken(t), nil)
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			t.Fatalf("list notifications: expected 200, got %d", resp.StatusCode)
		}
		if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
			resp.Body.Close()
			t.Fatalf("decode notifications: %v", err)
		}
		resp.Body.Close()
		if len(items) > 0 {
			break
		}
		time.Sleep(200 * time.Millisecond)
	}
	if len(items) == 0 {
		t.Fatal("no notification arrived after checkout")
	}
	if items[0].Kind != "order" {
		t.Errorf("kind: got %q, want order", items[0].Kind)
	}

	resp = doRequest(t, http.MethodPut, "/api/notifications/"+items[0].ID+"/read", customerToken(t), nil)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("mark read: expected 200, got %d", resp.StatusCode)
	}

	// Another user cannot touch the record.
	stranger := issueToken(t, "9f000000-0000-0000-0000-000000000009", false)
	resp = doRequest(t, http.MethodPut, "/api/notifications/"+items[0].ID+"/read", stranger, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("stranger mark read: expected 404, got %d", resp.StatusCode)
	}
}

func TestActivityLogRecordsAdminActions(t *testing.T) {
	resp := doRequest(t, http.MethodPost, "/api/coupons", adminToken(t), map[string]any{
		"code":      "AUDITTRAIL5",
		"discount":  5,
		"expiresAt": "2030-01-01T00:00:00Z",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create coupon: expected 201, got %d", resp.StatusCode)
	}

	resp = doRequest(t, http.MethodGet, "/api/activity", adminToken(t), nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list activity: expected 200, got %d", resp.StatusCode)
	}

	var entries []struct {
		Action string `json:"action"`
		Actor  string `json:"actor"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		t.Fatalf("decode activity: %v", err)
	}
	for _, e := range entries {
		if e.Action == "Created Coupon" && e.Actor == adminID {
			return
		}
	}
	t.Error("no audit entry for the coupon creation")
}
