// internal/app/features/session/routes.go
package session

import "github.com/go-chi/chi/v5"

// Routes returns a subrouter for session endpoints; mounted under /session.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Post("/exchange", h.Exchange)
	r.Post("/logout", h.Logout)
	r.Get("/", h.Current)
	return r
}
