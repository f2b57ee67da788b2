// internal/app/features/consents/grantrevoke.go
package consents

import (
	"net/http"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type consentBody struct {
	ConsentType string `json:"consent_type"`
}

// Grant handles POST /consents/{guardianID}/grant. Ward only.
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	wardID, guardianID, consentType, ok := h.parseConsentCall(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "grant consent")
	defer cancel()

	if err := h.Network.GrantConsent(ctx, wardID, guardianID, consentType); err != nil {
		shared.MapError(w, h.Log, "grant consent", err,
			shared.ErrStatus{Err: carenet.ErrNotConnected, Status: http.StatusConflict, Message: "no active connection with this guardian"},
		)
		return
	}

	h.Audit.ConsentGranted(ctx, r, wardID, wardID, guardianID, consentType)
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"consent_type": consentType,
		"status":       "granted",
	})
}

// Revoke handles POST /consents/{guardianID}/revoke. Ward only. Revoking a
// consent that was never granted is a no-op success.
func (h *Handler) Revoke(w http.ResponseWriter, r *http.Request) {
	wardID, guardianID, consentType, ok := h.parseConsentCall(w, r)
	if !ok {
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Medium(), h.Log, "revoke consent")
	defer cancel()

	if err := h.Network.RevokeConsent(ctx, wardID, guardianID, consentType); err != nil {
		shared.ServerError(w, h.Log, "revoke consent", err)
		return
	}

	h.Audit.ConsentRevoked(ctx, r, wardID, wardID, guardianID, consentType)
	shared.WriteJSON(w, http.StatusOK, map[string]string{
		"consent_type": consentType,
		"status":       "revoked",
	})
}

func (h *Handler) parseConsentCall(w http.ResponseWriter, r *http.Request) (wardID, guardianID primitive.ObjectID, consentType string, ok bool) {
	user, _ := auth.CurrentUser(r)
	wardID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid session user id")
		return wardID, guardianID, "", false
	}
	guardianID, err = primitive.ObjectIDFromHex(chi.URLParam(r, "guardianID"))
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid guardian id")
		return wardID, guardianID, "", false
	}

	var body consentBody
	if !shared.DecodeBody(w, r, &body) {
		return wardID, guardianID, "", false
	}
	if _, known := knownConsentTypes[body.ConsentType]; !known {
		shared.Error(w, http.StatusUnprocessableEntity, "unknown consent type")
		return wardID, guardianID, "", false
	}

	return wardID, guardianID, body.ConsentType, true
}
