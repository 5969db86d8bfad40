// Package realtime implements the authenticated broadcast channel that pushes
// order events and aggregate metrics to connected admin sessions. Delivery is
// fan-out without persistence or replay: a disconnected observer misses
// events until it reconnects. Messages to a single session preserve emission
// order; no ordering holds between sessions.
package realtime

import (
	"sync"

	"go.uber.org/zap"

	"github.com/dukahub/storefront/internal/domain/notification"
	"github.com/dukahub/storefront/internal/domain/order"
)

// Hub is the registry of connected admin sessions. It owns the identity →
// session mapping; sessions attach on handshake and detach on disconnect,
// and both transitions rebroadcast the active-admin count.
type Hub struct {
	lg *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewHub creates an empty Hub.
func NewHub(lg *zap.Logger) *Hub {
	return &Hub{
		lg:       lg.Named("realtime"),
		sessions: make(map[string]*Session),
	}
}

// attach registers a session under its identity. An identity owns at most
// one subscription: a previous session for the same user is closed first.
func (h *Hub) attach(s *Session) {
	h.mu.Lock()
	prev := h.sessions[s.identity.UserID]
	h.sessions[s.identity.UserID] = s
	h.mu.Unlock()

	if prev != nil {
		prev.close()
	}

	h.lg.Info("admin connected", zap.String("user_id", s.identity.UserID))
	h.Broadcast(EventActiveAdmins, h.ActiveAdmins())
}

// detach removes the session from the registry if it is still the one mapped
// for its identity, then rebroadcasts the active-admin count.
func (h *Hub) detach(s *Session) {
	h.mu.Lock()
	current, ok := h.sessions[s.identity.UserID]
	if ok && current == s {
		delete(h.sessions, s.identity.UserID)
	}
	h.mu.Unlock()
	if !ok || current != s {
		return
	}

	h.lg.Info("admin disconnected", zap.String("user_id", s.identity.UserID))
	h.Broadcast(EventActiveAdmins, h.ActiveAdmins())
}

// ActiveAdmins returns the number of currently connected identities.
func (h *Hub) ActiveAdmins() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// Broadcast fans a named event out to every connected session. Sessions that
// cannot keep up have the frame dropped rather than blocking the sender.
func (h *Hub) Broadcast(event string, payload any) {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.lg.Error("encode broadcast event", zap.String("event", event), zap.Error(err))
		return
	}

	h.mu.RLock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.mu.RUnlock()

	for _, s := range targets {
		s.enqueue(frame)
	}
}

// EmitTo delivers a named event to a single identity, if connected.
func (h *Hub) EmitTo(userID, event string, payload any) {
	h.mu.RLock()
	s, ok := h.sessions[userID]
	h.mu.RUnlock()
	if !ok {
		return
	}

	frame, err := encodeEvent(event, payload)
	if err != nil {
		h.lg.Error("encode event", zap.String("event", event), zap.Error(err))
		return
	}
	s.enqueue(frame)
}

// OrderPlaced implements order.Broadcaster: pushes the new order to all
// connected admin sessions.
func (h *Hub) OrderPlaced(o *order.Order) {
	h.Broadcast(EventNewOrder, newOrderPayload(o))
}

// NotificationCreated implements order.Broadcaster: pushes a notification to
// its addressee, if connected.
func (h *Hub) NotificationCreated(userID string, n *notification.Notification) {
	h.EmitTo(userID, EventNewNotification, newNotificationPayload(n))
}

// AdminAlert broadcasts an ad hoc message to all connected admin sessions.
func (h *Hub) AdminAlert(message string) {
	h.Broadcast(EventAdminAlert, map[string]string{"message": message})
}

// Shutdown closes every connected session.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	targets := make([]*Session, 0, len(h.sessions))
	for _, s := range h.sessions {
		targets = append(targets, s)
	}
	h.sessions = make(map[string]*Session)
	h.mu.Unlock()

	for _, s := range targets {
		s.close()
	}
}

var _ order.Broadcaster = (*Hub)(nil)
