// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for CareSphere.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: CARESPHERE_MONGO_URI, CARESPHERE_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "caresphere", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "caresphere-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},

	// Session exchange (mobile backend hands off authenticated users)
	{Name: "exchange_secret", Default: "", Desc: "Shared secret for the session exchange endpoint (empty disables it)"},

	// Base URL of this deployment
	{Name: "base_url", Default: "http://localhost:3000", Desc: "Base URL of this deployment"},

	// Notification transport
	{Name: "amqp_url", Default: "", Desc: "AMQP broker URL for push notification fan-out (blank logs instead)"},
	{Name: "notify_queue", Default: "caresphere.notifications", Desc: "AMQP queue name for notifications"},

	// Safety engine tunables
	{Name: "escalation_window", Default: "5m", Desc: "How long a critical alert may sit unacknowledged before escalation (e.g., 5m, 90s)"},
	{Name: "location_retention", Default: "720h", Desc: "Retention for raw location samples (e.g., 720h for 30 days; 0 keeps forever)"},

	// Location ingest rate limits
	{Name: "ingest_limit_ip", Default: 120, Desc: "Location ingest requests allowed per IP per minute"},
	{Name: "ingest_limit_ward", Default: 60, Desc: "Location ingest requests allowed per ward per minute"},

	// Audit logging settings
	{Name: "audit_log_network", Default: "all", Desc: "Relationship/consent event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_safety", Default: "all", Desc: "Safe-zone/alert event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// DB timeout overrides (zero/blank keeps defaults)
	{Name: "timeout_short", Default: "", Desc: "Override for short DB operations (e.g., 5s)"},
	{Name: "timeout_medium", Default: "", Desc: "Override for medium DB operations (e.g., 10s)"},
	{Name: "timeout_long", Default: "", Desc: "Override for long DB operations (e.g., 30s)"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// It is called early in startup so that both WAFFLE and the app have
// access to configuration before any backends or handlers are built.
// CoreConfig comes from the shared WAFFLE layer; AppConfig is specific
// to this app and can be extended as the app grows.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, CARESPHERE_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "CARESPHERE", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),

		ExchangeSecret: appValues.String("exchange_secret"),
		BaseURL:        appValues.String("base_url"),

		// Notification transport
		AMQPURL:     appValues.String("amqp_url"),
		NotifyQueue: appValues.String("notify_queue"),

		// Safety engine
		EscalationWindow:  appValues.Duration("escalation_window", 5*time.Minute),
		LocationRetention: appValues.Duration("location_retention", 720*time.Hour),

		// Ingest rate limits
		IngestLimitIP:   appValues.Int("ingest_limit_ip"),
		IngestLimitWard: appValues.Int("ingest_limit_ward"),

		// Audit logging
		AuditLogNetwork: appValues.String("audit_log_network"),
		AuditLogSafety:  appValues.String("audit_log_safety"),

		// Timeout overrides (zero means keep defaults)
		TimeoutShort:  appValues.Duration("timeout_short", 0),
		TimeoutMedium: appValues.Duration("timeout_medium", 0),
		TimeoutLong:   appValues.Duration("timeout_long", 0),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// This is the right place to enforce required fields or invariants that
// involve both the core and app configs.
//
// CareSphere validates the MongoDB URI format to catch configuration
// errors early, before attempting to connect, and rejects nonsensical
// safety tunables that would silently disable escalation.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	if appCfg.EscalationWindow <= 0 {
		return fmt.Errorf("escalation_window must be positive, got %s", appCfg.EscalationWindow)
	}
	if appCfg.LocationRetention < 0 {
		return fmt.Errorf("location_retention must not be negative, got %s", appCfg.LocationRetention)
	}
	if appCfg.IngestLimitIP <= 0 || appCfg.IngestLimitWard <= 0 {
		return fmt.Errorf("ingest rate limits must be positive (ip=%d, ward=%d)", appCfg.IngestLimitIP, appCfg.IngestLimitWard)
	}

	// Production deployments must not run with the dev session key or an
	// open session exchange.
	if coreCfg.Env == "prod" {
		if appCfg.SessionKey == "dev-only-change-me-please-0123456789ABCDEF" {
			return fmt.Errorf("session_key must be changed from the development default in prod")
		}
		if appCfg.ExchangeSecret == "" {
			logger.Warn("exchange_secret is empty; the session exchange endpoint is disabled")
		}
	}

	return nil
}
