// internal/app/features/safezones/crud.go
package safezones

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	safezonestore "github.com/caresphere/caresphere/internal/app/store/safezones"
	"github.com/caresphere/caresphere/internal/app/store/audit"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/sanitize"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type zoneBody struct {
	WardID       string  `json:"ward_id,omitempty"`
	Name         string  `json:"name"`
	Lat          float64 `json:"lat"`
	Lon          float64 `json:"lon"`
	RadiusMeters float64 `json:"radius_meters"`
}

func validCoords(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// List handles GET /safezones?ward_id=&all=1. By default only active zones
// are returned; all=1 includes deactivated ones.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	wardID, _, ok := h.resolveWard(w, r, user, r.URL.Query().Get("ward_id"))
	if !ok {
		return
	}

	activeOnly := r.URL.Query().Get("all") == ""

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list safe zones")
	defer cancel()

	zones, err := h.Zones.ListByWard(ctx, wardID, activeOnly)
	if err != nil {
		shared.ServerError(w, h.Log, "list safe zones", err)
		return
	}
	if zones == nil {
		zones = []models.SafeZone{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"zones": zones})
}

// Create handles POST /safezones.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)

	var body zoneBody
	if !shared.DecodeBody(w, r, &body) {
		return
	}
	wardID, actorID, ok := h.resolveWard(w, r, user, body.WardID)
	if !ok {
		return
	}

	name := sanitize.TextMax(body.Name, 120)
	if name == "" {
		shared.Error(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if !validCoords(body.Lat, body.Lon) {
		shared.Error(w, http.StatusUnprocessableEntity, "invalid coordinates")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "create safe zone")
	defer cancel()

	zone, err := h.Zones.Create(ctx, wardID, actorID, name,
		models.GeoPoint{Lat: body.Lat, Lon: body.Lon}, body.RadiusMeters)
	if err != nil {
		shared.MapError(w, h.Log, "create safe zone", err,
			shared.ErrStatus{Err: safezonestore.ErrInvalidRadius, Status: http.StatusUnprocessableEntity, Message: "radius must be positive"},
			shared.ErrStatus{Err: safezonestore.ErrDuplicateName, Status: http.StatusConflict, Message: "an active zone with this name already exists"},
		)
		return
	}

	h.Audit.SafeZoneChanged(ctx, r, audit.EventSafeZoneCreated, actorID, wardID, zone.ID, zone.Name)
	shared.WriteJSON(w, http.StatusCreated, zone)
}

// Update handles PUT /safezones/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	zone, actorID, ok := h.loadAuthorizedZone(w, r, user)
	if !ok {
		return
	}

	var body zoneBody
	if !shared.DecodeBody(w, r, &body) {
		return
	}
	name := sanitize.TextMax(body.Name, 120)
	if name == "" {
		shared.Error(w, http.StatusUnprocessableEntity, "name is required")
		return
	}
	if !validCoords(body.Lat, body.Lon) {
		shared.Error(w, http.StatusUnprocessableEntity, "invalid coordinates")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "update safe zone")
	defer cancel()

	updated, err := h.Zones.Update(ctx, zone.ID, name,
		models.GeoPoint{Lat: body.Lat, Lon: body.Lon}, body.RadiusMeters)
	if err != nil {
		shared.MapError(w, h.Log, "update safe zone", err,
			shared.ErrStatus{Err: safezonestore.ErrNotFound, Status: http.StatusNotFound, Message: "zone not found"},
			shared.ErrStatus{Err: safezonestore.ErrInvalidRadius, Status: http.StatusUnprocessableEntity, Message: "radius must be positive"},
			shared.ErrStatus{Err: safezonestore.ErrDuplicateName, Status: http.StatusConflict, Message: "an active zone with this name already exists"},
		)
		return
	}

	h.Audit.SafeZoneChanged(ctx, r, audit.EventSafeZoneUpdated, actorID, updated.WardID, updated.ID, updated.Name)
	shared.WriteJSON(w, http.StatusOK, updated)
}

// SetActive handles POST /safezones/{id}/activate and /deactivate.
func (h *Handler) SetActive(active bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, _ := auth.CurrentUser(r)
		zone, actorID, ok := h.loadAuthorizedZone(w, r, user)
		if !ok {
			return
		}

		ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "toggle safe zone")
		defer cancel()

		if err := h.Zones.SetActive(ctx, zone.ID, active); err != nil {
			shared.MapError(w, h.Log, "toggle safe zone", err,
				shared.ErrStatus{Err: safezonestore.ErrNotFound, Status: http.StatusNotFound, Message: "zone not found"},
				shared.ErrStatus{Err: safezonestore.ErrDuplicateName, Status: http.StatusConflict, Message: "an active zone with this name already exists"},
			)
			return
		}

		event := audit.EventSafeZoneUpdated
		if !active {
			event = audit.EventSafeZoneDeactivated
		}
		h.Audit.SafeZoneChanged(ctx, r, event, actorID, zone.WardID, zone.ID, zone.Name)
		shared.WriteJSON(w, http.StatusOK, map[string]any{"id": zone.ID.Hex(), "active": active})
	}
}

// Delete handles DELETE /safezones/{id}. Hard delete; intended for zones
// created by mistake. Deactivation is the normal retirement path.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	zone, actorID, ok := h.loadAuthorizedZone(w, r, user)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "delete safe zone")
	defer cancel()

	if err := h.Zones.Delete(ctx, zone.ID); err != nil {
		shared.MapError(w, h.Log, "delete safe zone", err,
			shared.ErrStatus{Err: safezonestore.ErrNotFound, Status: http.StatusNotFound, Message: "zone not found"},
		)
		return
	}

	h.Audit.SafeZoneChanged(ctx, r, audit.EventSafeZoneDeleted, actorID, zone.WardID, zone.ID, zone.Name)
	w.WriteHeader(http.StatusNoContent)
}

// loadAuthorizedZone fetches the zone in the URL and checks the actor may
// manage its ward's zones.
func (h *Handler) loadAuthorizedZone(w http.ResponseWriter, r *http.Request, user *auth.SessionUser) (models.SafeZone, primitive.ObjectID, bool) {
	zoneID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid zone id")
		return models.SafeZone{}, primitive.NilObjectID, false
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "load safe zone")
	defer cancel()

	zone, err := h.Zones.Get(ctx, zoneID)
	if err != nil {
		shared.MapError(w, h.Log, "load safe zone", err,
			shared.ErrStatus{Err: safezonestore.ErrNotFound, Status: http.StatusNotFound, Message: "zone not found"},
		)
		return models.SafeZone{}, primitive.NilObjectID, false
	}

	_, actorID, ok := h.resolveWard(w, r, user, zone.WardID.Hex())
	if !ok {
		return models.SafeZone{}, primitive.NilObjectID, false
	}
	return zone, actorID, true
}
