// internal/app/features/connections/routes.go
package connections

import (
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for connection endpoints; mounted under
// /connections. All routes require a signed-in ward or guardian.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.List)
	r.Post("/", h.Request)
	r.Post("/{id}/accept", h.Accept)
	r.Post("/{id}/reject", h.Reject)
	r.Post("/{id}/revoke", h.Revoke)

	return r
}
