// Package safezones exposes CRUD for a ward's safe zones.
//
// A zone may be managed by the ward themself or by a guardian holding
// manage_safe_zones consent. Deactivation is preferred over deletion so
// past alerts keep their zone context.
package safezones

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	safezonestore "github.com/caresphere/caresphere/internal/app/store/safezones"
	"github.com/caresphere/caresphere/internal/app/system/auditlog"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler holds dependencies for the safe-zone endpoints.
type Handler struct {
	Zones   *safezonestore.Store
	Network *carenet.Manager
	Audit   *auditlog.Logger
	Log     *zap.Logger
}

func NewHandler(zones *safezonestore.Store, network *carenet.Manager, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{Zones: zones, Network: network, Audit: audit, Log: logger}
}

// resolveWard decides which ward's zones the actor is operating on and
// whether they may. Wards act on themselves; guardians need
// manage_safe_zones consent for the target ward. Writes the error response
// itself on denial.
func (h *Handler) resolveWard(w http.ResponseWriter, r *http.Request, user *auth.SessionUser, wardParam string) (wardID, actorID primitive.ObjectID, ok bool) {
	actorID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return wardID, actorID, false
	}

	if user.Role == models.RoleWard {
		if wardParam != "" && wardParam != user.ID {
			shared.Error(w, http.StatusForbidden, "wards manage only their own zones")
			return wardID, actorID, false
		}
		return actorID, actorID, true
	}

	// Guardian path: ward_id is required.
	if wardParam == "" {
		shared.Error(w, http.StatusBadRequest, "ward_id is required")
		return wardID, actorID, false
	}
	wardID, err = primitive.ObjectIDFromHex(wardParam)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid ward_id")
		return wardID, actorID, false
	}

	allowed, err := h.Network.HasConsent(r.Context(), wardID, actorID, models.ConsentManageSafeZones)
	if err != nil {
		shared.ServerError(w, h.Log, "safe-zone consent check", err)
		return wardID, actorID, false
	}
	if !allowed {
		shared.Error(w, http.StatusForbidden, "manage_safe_zones consent required")
		return wardID, actorID, false
	}
	return wardID, actorID, true
}
