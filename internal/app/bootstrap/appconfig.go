// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). They represent *app-level*
// configuration, not WAFFLE core configuration.
//
// WAFFLE's CoreConfig handles framework-level settings like:
//   - HTTP/HTTPS ports and TLS configuration
//   - Logging level and format
//   - CORS settings
//   - Request body size limits
//   - Database connection timeouts
//
// AppConfig is where everything specific to CareSphere lives: the MongoDB
// connection, the session exchange, the notification transport, and the
// safety-engine tunables (escalation window, location retention, ingest
// rate limits).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Max connection pool size
	MongoMinPoolSize uint64 // Min connection pool size

	// Session management configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: caresphere-session)
	SessionDomain string // Cookie domain (blank means current host)

	// Session exchange: the mobile backend trades a user id for a cookie
	// session by presenting this shared secret. Empty disables the exchange.
	ExchangeSecret string

	// Base URL of this deployment; the health endpoint uses it to inspect
	// the TLS certificate the service is actually serving.
	BaseURL string

	// Notification transport. When AMQPURL is set, alerts fan out through a
	// RabbitMQ queue; when blank, notifications go to the log (dev mode).
	AMQPURL     string
	NotifyQueue string

	// Safety engine tunables
	EscalationWindow  time.Duration // how long a critical alert may sit unacknowledged
	LocationRetention time.Duration // TTL for raw location samples (0 keeps forever)

	// Location ingest rate limits (requests per minute)
	IngestLimitIP   int
	IngestLimitWard int

	// Audit logging settings
	AuditLogNetwork string // relationship/consent events: 'all' (db+log), 'db', 'log', or 'off'
	AuditLogSafety  string // safe-zone/alert events: 'all' (db+log), 'db', 'log', or 'off'

	// Optional DB timeout overrides (zero keeps the built-in defaults)
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}
