// internal/app/features/consents/list.go
package consents

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/caresphere/caresphere/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListForGuardian handles GET /consents/{guardianID}: the ward's full view
// of one guardian's records, history included.
func (h *Handler) ListForGuardian(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	wardID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}
	guardianID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "guardianID"))
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid guardian id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list consent records")
	defer cancel()

	records, err := h.Records.ListForPair(ctx, wardID, guardianID)
	if err != nil {
		shared.ServerError(w, h.Log, "list consent records", err)
		return
	}
	if records == nil {
		records = []models.ConsentRecord{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"records": records})
}

// GrantedFromWard handles GET /consents/from/{wardID}: a guardian's
// read-only view of which consent types a ward has granted them.
func (h *Handler) GrantedFromWard(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.CurrentUser(r)
	guardianID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return
	}
	wardID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "wardID"))
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid ward id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "list granted consents")
	defer cancel()

	granted, err := h.Records.ListGranted(ctx, wardID, guardianID)
	if err != nil {
		shared.ServerError(w, h.Log, "list granted consents", err)
		return
	}
	if granted == nil {
		granted = []string{}
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{"granted": granted})
}
