// Package httptransport assembles the HTTP surface. Handlers live with their
// domains; this package only mounts them behind the shared middleware chain.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"acredita/pkg/platform/httputil"
	"acredita/pkg/platform/middleware/admin"
	"acredita/pkg/platform/middleware/auth"
	"acredita/pkg/platform/middleware/device"
	"acredita/pkg/platform/middleware/metadata"
	"acredita/pkg/platform/middleware/requestid"
	"acredita/pkg/platform/middleware/requesttime"
)

// Registrar is implemented by every domain handler.
type Registrar interface {
	Register(r chi.Router)
}

// HealthChecker reports the readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything the router mounts.
type Deps struct {
	Logger *slog.Logger

	// Resolver turns bearer tokens into actors for the auth middleware.
	Resolver auth.ActorResolver

	// Public routes skip authentication: login and invitation acceptance.
	Identity interface {
		Registrar
		RegisterPublic(r chi.Router)
	}
	Invitations interface {
		Registrar
		RegisterPublic(r chi.Router)
	}

	// Scan is reachable by any authenticated operator, including controllers.
	Scan Registrar

	// Admin-gated route groups.
	Events       Registrar
	Participants Registrar
	AccessLog    Registrar

	// Health is consulted by /healthz; nil entries are skipped.
	Health map[string]HealthChecker
}

// NewRouter wires all endpoints.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(requestid.Middleware)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/healthz", healthHandler(d.Health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	d.Identity.RegisterPublic(r)
	d.Invitations.RegisterPublic(r)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Resolver, d.Logger))
		d.Scan.Register(r)
		d.Identity.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(admin.RequireAdmin(d.Logger))
			d.Events.Register(r)
			d.Participants.Register(r)
			d.AccessLog.Register(r)
			d.Invitations.Register(r)
		})
	})

	return r
}

// healthHandler pings each backing dependency with a short deadline. Any
// failure flips the response to 503 so the orchestration layer stops routing
// traffic here.
func healthHandler(checks map[string]HealthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := http.StatusOK
		body := map[string]string{"status": "ok"}
		for name, check := range checks {
			if check == nil {
				continue
			}
			if err := check.Health(ctx); err != nil {
				status = http.StatusServiceUnavailable
				body["status"] = "degraded"
				body[name] = err.Error()
			} else {
				body[name] = "ok"
			}
		}
		httputil.WriteJSON(w, status, body)
	}
}
