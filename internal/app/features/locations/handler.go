// Package locations ingests ward position samples and serves location
// reads to consent-holding guardians.
//
// Ingest is the trigger for geofence evaluation: every accepted sample runs
// through the evaluator, and a sample that moves the ward outside their
// safe zones raises the breach alert inline.
package locations

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	locationstore "github.com/caresphere/caresphere/internal/app/store/locations"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/geofence"
	"github.com/caresphere/caresphere/internal/app/system/ratelimit"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler holds dependencies for the location endpoints.
type Handler struct {
	Locations *locationstore.Store
	Evaluator *geofence.Evaluator
	Network   *carenet.Manager
	Limiter   *ratelimit.IngestLimiter
	Log       *zap.Logger
}

func NewHandler(locations *locationstore.Store, evaluator *geofence.Evaluator, network *carenet.Manager, limiter *ratelimit.IngestLimiter, logger *zap.Logger) *Handler {
	return &Handler{
		Locations: locations,
		Evaluator: evaluator,
		Network:   network,
		Limiter:   limiter,
		Log:       logger,
	}
}

// resolveReadTarget decides whose location the caller may read. Wards read
// themselves; guardians need location_tracking consent for the target ward.
func (h *Handler) resolveReadTarget(w http.ResponseWriter, r *http.Request, user *auth.SessionUser) (primitive.ObjectID, bool) {
	actorID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return primitive.NilObjectID, false
	}

	wardParam := r.URL.Query().Get("ward_id")
	if user.Role == models.RoleWard {
		if wardParam != "" && wardParam != user.ID {
			shared.Error(w, http.StatusForbidden, "wards read only their own location")
			return primitive.NilObjectID, false
		}
		return actorID, true
	}

	if wardParam == "" {
		shared.Error(w, http.StatusBadRequest, "ward_id is required")
		return primitive.NilObjectID, false
	}
	wardID, err := primitive.ObjectIDFromHex(wardParam)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid ward_id")
		return primitive.NilObjectID, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "location consent check")
	defer cancel()

	allowed, err := h.Network.HasConsent(ctx, wardID, actorID, models.ConsentLocationTracking)
	if err != nil {
		shared.ServerError(w, h.Log, "location consent check", err)
		return primitive.NilObjectID, false
	}
	if !allowed {
		shared.Error(w, http.StatusForbidden, "location_tracking consent required")
		return primitive.NilObjectID, false
	}
	return wardID, true
}
