// internal/app/features/connections/request.go
package connections

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	relationshipstore "github.com/caresphere/caresphere/internal/app/store/relationships"
	userstore "github.com/caresphere/caresphere/internal/app/store/users"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/sanitize"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type requestBody struct {
	TargetID string `json:"target_id"`
	Type     string `json:"type,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// Request handles POST /connections: create a pending connection request.
// Either side may initiate; the target must hold the opposite role.
func (h *Handler) Request(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var body requestBody
	if !shared.DecodeBody(w, r, &body) {
		return
	}
	targetID, err := primitive.ObjectIDFromHex(body.TargetID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid target_id")
		return
	}
	initiatorID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}
	if targetID == initiatorID {
		shared.Error(w, http.StatusUnprocessableEntity, "cannot connect to yourself")
		return
	}

	relType := sanitize.TextMax(body.Type, 64)
	detail := sanitize.TextMax(body.Detail, 500)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "request connection")
	defer cancel()

	rel, err := h.Network.RequestConnection(ctx, initiatorID, user.Role, targetID, relType, detail)
	if err != nil {
		shared.MapError(w, h.Log, "request connection", err,
			shared.ErrStatus{Err: relationshipstore.ErrAlreadyConnected, Status: http.StatusConflict, Message: "already connected"},
			shared.ErrStatus{Err: relationshipstore.ErrRequestPending, Status: http.StatusConflict, Message: "a request is already pending"},
			shared.ErrStatus{Err: userstore.ErrNotFound, Status: http.StatusNotFound, Message: "target user not found"},
			shared.ErrStatus{Err: carenet.ErrSameRole, Status: http.StatusUnprocessableEntity, Message: "a connection pairs a ward with a guardian"},
		)
		return
	}

	h.Audit.ConnectionRequested(ctx, r, initiatorID, rel.WardID, rel.GuardianID, rel.RelationshipType)
	shared.WriteJSON(w, http.StatusCreated, rel)
}
