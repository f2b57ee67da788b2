// internal/app/features/connections/transitions.go
package connections

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	relationshipstore "github.com/caresphere/caresphere/internal/app/store/relationships"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/sanitize"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

var transitionErrs = []shared.ErrStatus{
	{Err: relationshipstore.ErrNotFound, Status: http.StatusNotFound, Message: "connection not found"},
	{Err: relationshipstore.ErrNotPending, Status: http.StatusConflict, Message: "connection is not pending"},
	{Err: carenet.ErrNotAuthorized, Status: http.StatusForbidden, Message: "not a permitted party for this action"},
}

// Accept handles POST /connections/{id}/accept. Only the non-initiating
// party may accept; repeating the call is a no-op success.
func (h *Handler) Accept(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	relID, actorID, ok := h.pathIDs(w, r, user.ID)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "accept connection")
	defer cancel()

	rel, err := h.Network.Accept(ctx, relID, actorID)
	if err != nil {
		shared.MapError(w, h.Log, "accept connection", err, transitionErrs...)
		return
	}

	h.Audit.ConnectionAccepted(ctx, r, actorID, rel.WardID, rel.GuardianID)
	shared.WriteJSON(w, http.StatusOK, rel)
}

// Reject handles POST /connections/{id}/reject. Only the non-initiating
// party may reject, and only while the request is still pending.
func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	relID, actorID, ok := h.pathIDs(w, r, user.ID)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "reject connection")
	defer cancel()

	rel, err := h.Network.Reject(ctx, relID, actorID)
	if err != nil {
		shared.MapError(w, h.Log, "reject connection", err, transitionErrs...)
		return
	}

	h.Audit.ConnectionRejected(ctx, r, actorID, rel.WardID, rel.GuardianID)
	shared.WriteJSON(w, http.StatusOK, rel)
}

type revokeBody struct {
	Reason string `json:"reason,omitempty"`
}

// Revoke handles POST /connections/{id}/revoke. Either party may revoke a
// pending or active connection; every consent for the pair is withdrawn.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	relID, actorID, ok := h.pathIDs(w, r, user.ID)
	if !ok {
		return
	}

	var body revokeBody
	if r.ContentLength > 0 && !shared.DecodeBody(w, r, &body) {
		return
	}
	reason := sanitize.TextMax(body.Reason, 500)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "revoke connection")
	defer cancel()

	rel, err := h.Network.Revoke(ctx, relID, actorID, reason)
	if err != nil {
		shared.MapError(w, h.Log, "revoke connection", err, transitionErrs...)
		return
	}

	h.Audit.ConnectionRevoked(ctx, r, actorID, rel.WardID, rel.GuardianID, rel.RevokeReason)
	shared.WriteJSON(w, http.StatusOK, rel)
}

// pathIDs parses the relationship id from the URL and the actor id from the
// session. Writes the error response itself when either is malformed.
func (h *Handler) pathIDs(w http.ResponseWriter, r *http.Request, sessionID string) (relID, actorID primitive.ObjectID, ok bool) {
	relID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid connection id")
		return relID, actorID, false
	}
	actorID, err = primitive.ObjectIDFromHex(sessionID)
	if err != nil {
		h.Log.Error("session carries malformed user id", zap.String("user_id", sessionID))
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return relID, actorID, false
	}
	return relID, actorID, true
}
