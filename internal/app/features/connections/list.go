// internal/app/features/connections/list.go
package connections

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type listResponse struct {
	Connections []carenet.Connection `json:"connections"`
}

// List handles GET /connections?status=active|pending (default active).
// Each row is decorated with the counterpart's public profile.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}

	status := r.URL.Query().Get("status")
	if status == "" {
		status = models.RelationshipActive
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list connections")
	defer cancel()

	var conns []carenet.Connection
	switch status {
	case models.RelationshipActive:
		conns, err = h.Network.ListActive(ctx, userID, user.Role)
	case models.RelationshipPending:
		conns, err = h.Network.ListPending(ctx, userID, user.Role)
	default:
		shared.Error(w, http.StatusBadRequest, "status must be active or pending")
		return
	}
	if err != nil {
		shared.ServerError(w, h.Log, "list connections", err)
		return
	}

	if conns == nil {
		conns = []carenet.Connection{}
	}
	shared.WriteJSON(w, http.StatusOK, listResponse{Connections: conns})
}
