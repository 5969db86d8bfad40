package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

type notificationResponse struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Kind      string    `json:"type"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

// myNotifications handles GET /api/notifications: the caller's newest
// notifications.
func (h *Handler) myNotifications(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	limit := queryInt(r, "limit", 20)
	if limit < 1 || limit > 100 {
		limit = 20
	}

	items, err := h.notifications.ListByUser(r.Context(), id.UserID, limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]notificationResponse, len(items))
	for i, n := range items {
		out[i] = notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			Kind:      n.Kind,
			Read:      n.Read,
			CreatedAt: n.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// markNotificationRead handles PUT /api/notifications/{id}/read. The write is
// scoped to the caller, so another user's notification reports 404.
func (h *Handler) markNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, _ := identityFrom(r.Context())

	if err := h.notifications.MarkRead(r.Context(), chi.URLParam(r, "id"), id.UserID); err != nil {
		respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
