// internal/app/features/locations/ingest.go
package locations

import (
	"net/http"
	"time"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type sampleBody struct {
	Lat            float64    `json:"lat"`
	Lon            float64    `json:"lon"`
	AccuracyMeters float64    `json:"accuracy_meters,omitempty"`
	CapturedAt     *time.Time `json:"captured_at,omitempty"`
}

type ingestResponse struct {
	Sample    models.LocationSample `json:"sample"`
	Inside    bool                  `json:"inside"`
	ZeroZones bool                  `json:"zero_zones,omitempty"`
	Breached  bool                  `json:"breached"`
	AlertID   string                `json:"alert_id,omitempty"`
}

// Ingest handles POST /locations: a ward (or their device, on a ward
// session) reports a position sample. The sample is recorded, evaluated
// against the ward's safe zones, and a breach raises the geofence alert
// before the response is written.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	wardID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}

	if allowed, reason := h.Limiter.Check(r, user.ID); !allowed {
		shared.Error(w, http.StatusTooManyRequests, reason)
		return
	}

	var body sampleBody
	if !shared.DecodeBody(w, r, &body) {
		return
	}
	if body.Lat < -90 || body.Lat > 90 || body.Lon < -180 || body.Lon > 180 {
		shared.Error(w, http.StatusUnprocessableEntity, "invalid coordinates")
		return
	}

	capturedAt := time.Now().UTC()
	if body.CapturedAt != nil {
		capturedAt = body.CapturedAt.UTC()
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "ingest location sample")
	defer cancel()

	obs, err := h.Evaluator.Observe(ctx, models.LocationSample{
		WardID:         wardID,
		Lat:            body.Lat,
		Lon:            body.Lon,
		AccuracyMeters: body.AccuracyMeters,
		CapturedAt:     capturedAt,
	})
	if err != nil {
		shared.ServerError(w, h.Log, "ingest location sample", err)
		return
	}

	resp := ingestResponse{
		Sample:    obs.Sample,
		Inside:    obs.Evaluation.Inside,
		ZeroZones: obs.Evaluation.ZeroZones,
		Breached:  obs.Breached,
	}
	if obs.Alert != nil {
		resp.AlertID = obs.Alert.ID.Hex()
	}
	shared.WriteJSON(w, http.StatusAccepted, resp)
}
