//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type wsEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func wsURL() string {
	return strings.Replace(baseURL, "http://", "ws://", 1) + "/realtime"
}

func dialRealtime(t *testing.T, token string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL()+"?token="+token, nil)
	if err != nil {
		t.Fatalf("dial realtime: %v", err)
	}
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readEvent blocks until the named event arrives or the deadline passes.
// Other events received in the meantime are discarded.
func readEvent(t *testing.T, conn *websocket.Conn, name string, timeout time.Duration) wsEvent {
	t.Helper()

	deadline := time.Now().Add(timeout)
	_ = conn.SetReadDeadline(deadline)
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("waiting for %s: %v", name, err)
		}
		var ev wsEvent
		if err := json.Unmarshal(frame, &ev); err != nil {
			t.Fatalf("decode frame %q: %v", frame, err)
		}
		if ev.Event == name {
			return ev
		}
	}
}

func TestRealtime_RejectsWithoutToken(t *testing.T) {
	_, resp, err := websocket.DefaultDialer.Dial(wsURL(), nil)
	if err == nil {
		t.Fatal("expected handshake to fail without a token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 handshake response, got %+v", resp)
	}
	resp.Body.Close()
}

func TestRealtime_ActiveAdminsOnConnect(t *testing.T) {
	conn := dialRealtime(t, adminToken(t))

	ev := readEvent(t, conn, "activeAdmins", 5*time.Second)
	var count int
	if err := json.Unmarshal(ev.Data, &count); err != nil {
		t.Fatalf("decode activeAdmins payload: %v", err)
	}
	if count < 1 {
		t.Errorf("activeAdmins: got %d, want >= 1", count)
	}
}

func TestRealtime_NewOrderBroadcast(t *testing.T) {
	conn := dialRealtime(t, adminToken(t))
	readEvent(t, conn, "activeAdmins", 5*time.Second)

	resp := doRequest(t, http.MethodPost, "/api/orders", customerToken(t), checkoutBody(""))
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("checkout: expected 201, got %d", resp.StatusCode)
	}

	ev := readEvent(t, conn, "newOrder", 5*time.Second)

	var payload struct {
		ID         string  `json:"id"`
		UserID     string  `json:"user"`
		TotalPrice float64 `json:"totalPrice"`
	}
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("decode newOrder payload: %v", err)
	}
	if payload.UserID != customerID {
		t.Errorf("user: got %q, want %q", payload.UserID, customerID)
	}
	if payload.TotalPrice != 1150 {
		t.Errorf("totalPrice: got %v, want 1150", payload.TotalPrice)
	}
}

func TestRealtime_MetricsSampled(t *testing.T) {
	conn := dialRealtime(t, adminToken(t))

	// The compose environment samples every second; one tick with a
	// connected session must produce a metrics event.
	ev := readEvent(t, conn, "realtimeMetrics", 10*time.Second)

	var metrics struct {
		Orders      int     `json:"orders"`
		Revenue     float64 `json:"revenue"`
		Users       int     `json:"users"`
		ActiveUsers int     `json:"activeUsers"`
	}
	if err := json.Unmarshal(ev.Data, &metrics); err != nil {
		t.Fatalf("decode metrics payload: %v", err)
	}
	if metrics.Users < 2 {
		t.Errorf("users: got %d, want >= 2 (seeded accounts)", metrics.Users)
	}
	if metrics.ActiveUsers < 1 {
		t.Errorf("activeUsers: got %d, want >= 1", metrics.ActiveUsers)
	}
}

func TestRealtime_AdminAlertBroadcast(t *testing.T) {
	conn := dialRealtime(t, adminToken(t))
	readEvent(t, conn, "activeAdmins", 5*time.Second)

	resp := doRequest(t, http.MethodPost, "/api/alerts", adminToken(t), map[string]any{
		"message": "flash sale goes live in 10 minutes",
	})
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("send alert: expected 200, got %d", resp.StatusCode)
	}

	ev := readEvent(t, conn, "adminAlert", 5*time.Second)
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		t.Fatalf("decode adminAlert payload: %v", err)
	}
	if payload.Message != "flash sale goes live in 10 minutes" {
		t.Errorf("message: got %q", payload.Message)
	}
}

func TestRealtime_SecondConnectionReplacesFirst(t *testing.T) {
	first := dialRealtime(t, adminToken(t))
	readEvent(t, first, "activeAdmins", 5*time.Second)

	second := dialRealtime(t, adminToken(t))
	readEvent(t, second, "activeAdmins", 5*time.Second)

	// The first connection is closed by the server.
	_ = first.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		if _, _, err := first.ReadMessage(); err != nil {
			return
		}
	}
}
