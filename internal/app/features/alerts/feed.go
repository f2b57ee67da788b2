// internal/app/features/alerts/feed.go
package alerts

import (
	"context"
	"net/http"
	"strconv"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	alertstore "github.com/caresphere/caresphere/internal/app/store/alerts"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/caresphere/caresphere/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type feedResponse struct {
	Alerts     []models.Alert `json:"alerts"`
	NextCursor string         `json:"next_cursor,omitempty"`
}

// Feed handles GET /alerts?limit=&before=. Guardians see the newest alerts
// across every ward they are actively connected to; wards see their own.
// before is an opaque cursor from a previous page's next_cursor.
func (h *Handler) Feed(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}

	limit := int64(25)
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	beforeKey := ""
	if before := r.URL.Query().Get("before"); before != "" {
		c, ok := wafflemongo.DecodeCursor(before)
		if !ok {
			shared.Error(w, http.StatusBadRequest, "invalid cursor")
			return
		}
		beforeKey = c.CI
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "alert feed")
	defer cancel()

	var list []models.Alert
	if user.Role == models.RoleWard {
		list, err = h.Alerts.ListByWards(ctx, []primitive.ObjectID{userID}, limit, beforeKey)
	} else {
		list, err = h.Dispatcher.ListRecent(ctx, userID, limit, beforeKey)
	}
	if err != nil {
		shared.ServerError(w, h.Log, "alert feed", err)
		return
	}

	resp := feedResponse{Alerts: list}
	if resp.Alerts == nil {
		resp.Alerts = []models.Alert{}
	}
	if int64(len(list)) == limit && len(list) > 0 {
		last := list[len(list)-1]
		resp.NextCursor = wafflemongo.EncodeCursor(last.CreatedKey, last.ID)
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}

// Get handles GET /alerts/{id}. Visible to the alert's ward, to guardians
// actively connected to that ward, and to anyone already on the responder
// list.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}
	alertID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid alert id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "get alert")
	defer cancel()

	alert, err := h.Alerts.Get(ctx, alertID)
	if err != nil {
		shared.MapError(w, h.Log, "get alert", err,
			shared.ErrStatus{Err: alertstore.ErrNotFound, Status: http.StatusNotFound, Message: "alert not found"},
		)
		return
	}

	if !h.mayView(ctx, alert, userID, user.Role) {
		shared.Error(w, http.StatusForbidden, "not connected to this ward")
		return
	}
	shared.WriteJSON(w, http.StatusOK, alert)
}

// mayView reports whether userID may read the alert.
func (h *Handler) mayView(ctx context.Context, alert models.Alert, userID primitive.ObjectID, role string) bool {
	if role == models.RoleWard {
		return alert.WardID == userID
	}

	for _, resp := range alert.Responders {
		if resp.GuardianID == userID {
			return true
		}
	}

	wardIDs, err := h.Network.ActiveWardIDs(ctx, userID)
	if err != nil {
		h.Log.Error("ward resolution failed during alert read", zap.Error(err))
		return false
	}
	for _, wid := range wardIDs {
		if wid == alert.WardID {
			return true
		}
	}
	return false
}
