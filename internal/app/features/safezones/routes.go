// internal/app/features/safezones/routes.go
package safezones

import (
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes returns a subrouter for safe-zone endpoints; mounted under
// /safezones. Per-ward authorization happens in the handlers because a
// guardian's right depends on consent, not just role.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireSignedIn)

	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Post("/{id}/activate", h.SetActive(true))
	r.Post("/{id}/deactivate", h.SetActive(false))
	r.Delete("/{id}", h.Delete)

	return r
}
