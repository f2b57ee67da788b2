// internal/app/features/locations/read.go
package locations

import (
	"net/http"
	"strconv"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	locationstore "github.com/caresphere/caresphere/internal/app/store/locations"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/caresphere/caresphere/internal/domain/models"
)

type latestResponse struct {
	Sample models.LocationSample `json:"sample"`
	// Inside is nil until at least one sample has been evaluated.
	Inside *bool `json:"inside"`
}

// Latest handles GET /locations/latest?ward_id=.
func (h *Handler) Latest(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	wardID, ok := h.resolveReadTarget(w, r, user)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "latest location")
	defer cancel()

	sample, err := h.Locations.Latest(ctx, wardID)
	if err != nil {
		shared.MapError(w, h.Log, "latest location", err,
			shared.ErrStatus{Err: locationstore.ErrNoSamples, Status: http.StatusNotFound, Message: "no location reported yet"},
		)
		return
	}

	resp := latestResponse{Sample: sample}
	st, found, err := h.Evaluator.Containment(ctx, wardID)
	if err != nil {
		shared.ServerError(w, h.Log, "latest location", err)
		return
	}
	if found {
		resp.Inside = &st.CurrentlyInside
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// History handles GET /locations/history?ward_id=&limit=.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	wardID, ok := h.resolveReadTarget(w, r, user)
	if !ok {
		return
	}

	limit := int64(50)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "location history")
	defer cancel()

	samples, err := h.Locations.History(ctx, wardID, limit)
	if err != nil {
		shared.ServerError(w, h.Log, "location history", err)
		return
	}
	if samples == nil {
		samples = []models.LocationSample{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"samples": samples})
}
