// internal/app/features/consents/routes.go
package consents

import (
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for consent endpoints; mounted under /consents.
// Mutations are ward-only; guardians get a read-only view of what they hold.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleWard))
		r.Get("/{guardianID}", h.ListForGuardian)
		r.Post("/{guardianID}/grant", h.Grant)
		r.Post("/{guardianID}/revoke", h.Revoke)
	})

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireRole(models.RoleGuardian))
		r.Get("/from/{wardID}", h.GrantedFromWard)
	})

	return r
}
