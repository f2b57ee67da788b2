// internal/app/features/alerts/sos.go
package alerts

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/sanitize"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sosBody struct {
	Lat    *float64 `json:"lat,omitempty"`
	Lon    *float64 `json:"lon,omitempty"`
	Reason string   `json:"reason,omitempty"`
}

type sosResponse struct {
	Alert       models.Alert `json:"alert"`
	Notified    int          `json:"notified"`
	NoGuardians bool         `json:"no_guardians"`
}

// SOS handles POST /alerts/sos. Ward only; no rate limiting and no consent
// gating. The call succeeds as long as the alert is persisted, even when
// nobody could be notified; no_guardians tells the client to surface that.
func (h *Handler) SOS(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	wardID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}

	var body sosBody
	if r.ContentLength > 0 && !shared.DecodeBody(w, r, &body) {
		return
	}

	var loc *models.GeoPoint
	if body.Lat != nil && body.Lon != nil {
		if *body.Lat < -90 || *body.Lat > 90 || *body.Lon < -180 || *body.Lon > 180 {
			shared.Error(w, http.StatusUnprocessableEntity, "invalid coordinates")
			return
		}
		loc = &models.GeoPoint{Lat: *body.Lat, Lon: *body.Lon}
	}
	reason := sanitize.TextMax(body.Reason, 500)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "raise sos")
	defer cancel()

	res, err := h.Dispatcher.RaiseSOS(ctx, wardID, user.Name, loc, reason)
	if err != nil {
		shared.ServerError(w, h.Log, "raise sos", err)
		return
	}

	shared.WriteJSON(w, http.StatusCreated, sosResponse{
		Alert:       res.Alert,
		Notified:    res.Notified,
		NoGuardians: res.NoGuardians,
	})
}
