package handler

import (
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// realtime handles GET /realtime: the websocket handshake for the broadcast
// channel. The token is verified before the upgrade, so a rejected identity
// is never admitted and never counts as a subscriber.
func (h *Handler) realtime(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		respondErrorMsg(w, http.StatusUnauthorized, "missing bearer token")
		return
	}
	id, err := h.verifier.Verify(token)
	if err != nil {
		respondErrorMsg(w, http.StatusUnauthorized, "invalid or expired token")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		zctx.From(r.Context()).Warn("websocket upgrade failed",
			zap.String("user_id", id.UserID), zap.Error(err))
		return
	}

	h.hub.Join(conn, *id)
}

type alertRequest struct {
	Message string `json:"message" validate:"required"`
}

// broadcastAlert handles POST /api/alerts (admin): pushes an adminAlert to
// every connected session.
func (h *Handler) broadcastAlert(w http.ResponseWriter, r *http.Request) {
	var req alertRequest
	if err := decodeBody(r, &req); err != nil {
		respondErrorMsg(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, r, err)
		return
	}

	h.hub.AdminAlert(req.Message)
	h.recordAdminAction(r, "Sent Alert", req.Message, nil)

	respondJSON(w, http.StatusOK, map[string]any{"success": true})
}
