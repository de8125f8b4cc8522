// Package admin gates route groups on the actor's rank. RequireAuth must run
// earlier in the chain.
package admin

import (
	"log/slog"
	"net/http"

	"acredita/pkg/requestcontext"
)

func RequireAdmin(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			actor := requestcontext.Actor(ctx)
			if actor.IsZero() || !actor.Role.IsAdmin() {
				logger.WarnContext(ctx, "admin route denied",
					"uid", actor.UID,
					"role", string(actor.Role),
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				_, _ = w.Write([]byte(`{"error":"forbidden","error_description":"admin role required"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
