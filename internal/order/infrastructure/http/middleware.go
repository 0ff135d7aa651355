package http

import (
	"context"
	"net/http"

	"github.com/dmehra2102/restaurant-pos/internal/access"
	auditdomain "github.com/dmehra2102/restaurant-pos/internal/audit/domain"
)

// ActorHeader names the staff member making the request. Authenticating it
// belongs to whatever sits in front of this service.
const ActorHeader = "X-Actor-ID"

type Gate interface {
	Check(ctx context.Context, actorID string, p access.Permission) bool
}

func withActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := r.Header.Get(ActorHeader); id != "" {
			r = r.WithContext(auditdomain.WithActor(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) require(p access.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := r.Header.Get(ActorHeader)
			if actor == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing " + ActorHeader})
				return
			}
			if !h.gate.Check(r.Context(), actor, p) {
				h.log.Info("permission denied", "actor_id", actor, "permission", p, "path", r.URL.Path)
				writeJSON(w, http.StatusForbidden, map[string]string{"error": "permission denied: " + string(p)})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
