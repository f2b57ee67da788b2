// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	alertsfeature "github.com/caresphere/caresphere/internal/app/features/alerts"
	connectionsfeature "github.com/caresphere/caresphere/internal/app/features/connections"
	consentsfeature "github.com/caresphere/caresphere/internal/app/features/consents"
	healthfeature "github.com/caresphere/caresphere/internal/app/features/health"
	locationsfeature "github.com/caresphere/caresphere/internal/app/features/locations"
	safezonesfeature "github.com/caresphere/caresphere/internal/app/features/safezones"
	sessionfeature "github.com/caresphere/caresphere/internal/app/features/session"
	userstore "github.com/caresphere/caresphere/internal/app/store/users"
	"github.com/caresphere/caresphere/internal/app/system/auth"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed. At this point you have access to:
//   - coreCfg: WAFFLE core configuration (ports, env, timeouts, etc.)
//   - appCfg: app-specific configuration defined in AppConfig
//   - deps: the stores and engine layers bundled in DBDeps
//   - logger: the fully configured zap.Logger for this app
//
// CareSphere applies session middleware globally and mounts the JSON API:
// session exchange, connections (relationship lifecycle), consents, safe
// zones, location ingest, and the alert feed, plus health and Prometheus
// metrics endpoints.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Create the session manager using app config.
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Set up the UserFetcher so LoadSessionUser fetches fresh user data on each
	// request. Role changes and disabled accounts take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.DB))

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if signed in.
	// This makes the current user available to all handlers via auth.CurrentUser(r).
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.BaseURL, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus metrics (alert counts, notification outcomes, geofence evaluations)
	r.Handle("/metrics", promhttp.Handler())

	// Session exchange and teardown
	sessionHandler := sessionfeature.NewHandler(sessionMgr, deps.Users, appCfg.ExchangeSecret, logger)
	r.Mount("/session", sessionfeature.Routes(sessionHandler))

	// Relationship lifecycle: request, accept, reject, revoke
	connectionsHandler := connectionsfeature.NewHandler(deps.Network, deps.Audit, logger)
	r.Mount("/connections", connectionsfeature.Routes(connectionsHandler))

	// Consent ledger
	consentsHandler := consentsfeature.NewHandler(deps.Network, deps.Consents, deps.Audit, logger)
	r.Mount("/consents", consentsfeature.Routes(consentsHandler))

	// Safe zone management
	safezonesHandler := safezonesfeature.NewHandler(deps.SafeZones, deps.Network, deps.Audit, logger)
	r.Mount("/safezones", safezonesfeature.Routes(safezonesHandler))

	// Location ingest and reads (ingest drives geofence evaluation)
	locationsHandler := locationsfeature.NewHandler(deps.Locations, deps.Evaluator, deps.Network, deps.IngestLimiter, logger)
	r.Mount("/locations", locationsfeature.Routes(locationsHandler))

	// Alert feed, SOS, and acknowledgement
	alertsHandler := alertsfeature.NewHandler(deps.Dispatcher, deps.Alerts, deps.Network, deps.Audit, logger)
	r.Mount("/alerts", alertsfeature.Routes(alertsHandler))

	return r, nil
}
