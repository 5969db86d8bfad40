package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/dukahub/storefront/internal/domain/auth"
)

// identityKey is the context key for the verified request identity.
type identityKey struct{}

// identityFrom extracts the verified identity stored by requireAuth.
func identityFrom(ctx context.Context) (auth.Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(auth.Identity)
	return id, ok
}

// bearerToken extracts the token from the Authorization header, falling back
// to the `token` query parameter for clients that cannot set headers (the
// websocket handshake from browsers).
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return token
		}
		return ""
	}
	return r.URL.Query().Get("token")
}

// requireAuth verifies the bearer token and stores the identity in the
// request context. Requests without a valid token get 401.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
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
		ctx := context.WithValue(r.Context(), identityKey{}, *id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin rejects authenticated non-admin identities with 403. It must
// run after requireAuth.
func (h *Handler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := identityFrom(r.Context())
		if !ok {
			respondErrorMsg(w, http.StatusUnauthorized, "missing bearer token")
			return
		}
		if !id.Admin {
			respondErrorMsg(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
