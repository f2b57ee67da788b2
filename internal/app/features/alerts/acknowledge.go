// internal/app/features/alerts/acknowledge.go
package alerts

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	alertstore "github.com/caresphere/caresphere/internal/app/store/alerts"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Acknowledge handles POST /alerts/{id}/ack. Guardian only. The first
// acknowledger flips the alert to acknowledged; later calls (or retries)
// only append the guardian to the responder list. Always returns the
// current alert, so repeated calls are safe.
func (h *Handler) Acknowledge(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	guardianID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}
	alertID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "acknowledge alert")
	defer cancel()

	alert, err := h.Dispatcher.Acknowledge(ctx, alertID, guardianID)
	if err != nil {
		shared.MapError(w, h.Log, "acknowledge alert", err,
			shared.ErrStatus{Err: alertstore.ErrNotFound, Status: http.StatusNotFound, Message: "alert not found"},
			shared.ErrStatus{Err: carenet.ErrNotAuthorized, Status: http.StatusForbidden, Message: "not connected to this ward"},
		)
		return
	}

	h.Audit.AlertAcknowledged(ctx, r, guardianID, alert.WardID, alert.ID)
	shared.WriteJSON(w, http.StatusOK, alert)
}
