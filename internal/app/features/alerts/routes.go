// internal/app/features/alerts/routes.go
package alerts

import (
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for alert endpoints; mounted under /alerts.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.Feed)
	r.Get("/{id}", h.Get)
	r.With(auth.RequireRole(models.RoleWard)).Post("/sos", h.SOS)
	r.With(auth.RequireRole(models.RoleGuardian)).Post("/{id}/ack", h.Acknowledge)

	return r
}
