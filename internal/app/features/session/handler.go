// Package session implements the session-exchange surface.
//
// Credentials never reach this service. The external identity service
// authenticates the user, then calls POST /session/exchange with the shared
// exchange secret and the user's id; we verify the user exists with a
// recognized role and establish the signed cookie every other endpoint
// trusts.
package session

import (
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/caresphere/caresphere/internal/app/features/shared"
	userstore "github.com/caresphere/caresphere/internal/app/store/users"
	"github.com/caresphere/caresphere/internal/app/system/auth"
	"github.com/caresphere/caresphere/internal/app/system/ratelimit"
	"github.com/caresphere/caresphere/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const exchangeHeader = "X-Exchange-Token"

// Handler serves session establishment and teardown.
type Handler struct {
	Sessions       *auth.SessionManager
	Users          *userstore.Store
	ExchangeSecret string
	Limiter        *ratelimit.Limiter
	Log            *zap.Logger
}

func NewHandler(sessions *auth.SessionManager, users *userstore.Store, exchangeSecret string, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions:       sessions,
		Users:          users,
		ExchangeSecret: exchangeSecret,
		// Exchange is machine-to-machine; a tight limit per caller IP is
		// plenty and blunts secret guessing.
		Limiter: ratelimit.New(30, time.Minute),
		Log:     logger,
	}
}

type exchangeRequest struct {
	UserID string `json:"user_id"`
}

type userResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Exchange handles POST /session/exchange.
func (h *Handler) Exchange(w http.ResponseWriter, r *http.Request) {
	if !h.Limiter.Allow(ratelimit.ClientIP(r)) {
		shared.Error(w, http.StatusTooManyRequests, "too many exchange attempts")
		return
	}

	token := r.Header.Get(exchangeHeader)
	if h.ExchangeSecret == "" ||
		subtle.ConstantTimeCompare([]byte(token), []byte(h.ExchangeSecret)) != 1 {
		h.Log.Warn("session exchange with bad token", zap.String("ip", ratelimit.ClientIP(r)))
		shared.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req exchangeRequest
	if !shared.DecodeBody(w, r, &req) {
		return
	}
	uid, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		shared.Error(w, http.StatusBadRequest, "invalid user_id")
		return
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "session exchange")
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		shared.Error(w, http.StatusNotFound, "unknown user")
		return
	}
	if u.Role != "ward" && u.Role != "guardian" {
		shared.Error(w, http.StatusForbidden, "unrecognized role")
		return
	}

	if err := h.Sessions.Establish(w, r, uid.Hex()); err != nil {
		shared.ServerError(w, h.Log, "establish session", err)
		return
	}

	shared.WriteJSON(w, http.StatusOK, userResponse{
		ID:    u.ID.Hex(),
		Name:  u.DisplayName,
		Email: u.Email,
		Role:  u.Role,
	})
}

// Logout handles POST /session/logout.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.Clear(w, r); err != nil {
		shared.ServerError(w, h.Log, "clear session", err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]bool{"signed_out": true})
}

// Current handles GET /session. Unauthenticated callers get
// {"is_authenticated": false} rather than a 401 so clients can probe.
func (h *Handler) Current(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		shared.WriteJSON(w, http.StatusOK, map[string]any{"is_authenticated": false})
		return
	}
	shared.WriteJSON(w, http.StatusOK, map[string]any{
		"is_authenticated": true,
		"user": userResponse{
			ID:    u.ID,
			Name:  u.Name,
			Email: u.Email,
			Role:  u.Role,
		},
	})
}
