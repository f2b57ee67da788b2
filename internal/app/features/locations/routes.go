// internal/app/features/locations/routes.go
package locations

import (
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for location endpoints; mounted under
// /locations. Ingest is ward-only; reads are consent-gated per ward in the
// handlers.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.With(auth.RequireRole(models.RoleWard)).Post("/", h.Ingest)
	r.Get("/latest", h.Latest)
	r.Get("/history", h.History)

	return r
}
