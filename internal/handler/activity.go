package handler

import (
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dukahub/storefront/internal/domain/activity"
)

type activityResponse struct {
	ID          string            `json:"id"`
	Action      string            `json:"action"`
	Description string            `json:"description"`
	ActorID     string            `json:"actor,omitempty"`
	ActorName   string            `json:"actorName,omitempty"`
	IP          string            `json:"ip,omitempty"`
	Meta        map[string]string `json:"meta,omitempty"`
	CreatedAt   time.Time         `json:"createdAt"`
}

// listActivity handles GET /api/activity (admin): the newest audit entries.
func (h *Handler) listActivity(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 50)
	if limit < 1 || limit > 500 {
		limit = 50
	}

	entries, err := h.audit.ListRecent(r.Context(), limit)
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]activityResponse, len(entries))
	for i, e := range entries {
		out[i] = activityResponse{
			ID:          e.ID,
			Action:      e.Action,
			Description: e.Description,
			ActorID:     e.ActorID,
			ActorName:   e.ActorName,
			IP:          e.IP,
			Meta:        e.Meta,
			CreatedAt:   e.CreatedAt,
		}
	}
	respondJSON(w, http.StatusOK, out)
}

// recordAdminAction writes one audit entry for an admin mutation. The write
// is best-effort: a failure is logged and the request proceeds.
func (h *Handler) recordAdminAction(r *http.Request, action, description string, meta map[string]string) {
	if h.audit == nil {
		return
	}
	id, _ := identityFrom(r.Context())

	entry := &activity.Entry{
		ID:          uuid.New().String(),
		Action:      action,
		Description: description,
		ActorID:     id.UserID,
		IP:          clientIP(r),
		Meta:        meta,
		CreatedAt:   h.now(),
	}
	if err := h.audit.Record(r.Context(), entry); err != nil {
		zctx.From(r.Context()).Warn("audit write failed",
			zap.String("action", action), zap.Error(err))
	}
}
