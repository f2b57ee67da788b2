// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"go.mongodb.org/mongo-driver/mongo"

	alertstore "github.com/caresphere/caresphere/internal/app/store/alerts"
	auditstore "github.com/caresphere/caresphere/internal/app/store/audit"
	consentstore "github.com/caresphere/caresphere/internal/app/store/consents"
	statestore "github.com/caresphere/caresphere/internal/app/store/geofencestate"
	locationstore "github.com/caresphere/caresphere/internal/app/store/locations"
	relationshipstore "github.com/caresphere/caresphere/internal/app/store/relationships"
	safezonestore "github.com/caresphere/caresphere/internal/app/store/safezones"
	userstore "github.com/caresphere/caresphere/internal/app/store/users"
	"github.com/caresphere/caresphere/internal/app/system/auditlog"
	"github.com/caresphere/caresphere/internal/app/system/carenet"
	"github.com/caresphere/caresphere/internal/app/system/dispatch"
	"github.com/caresphere/caresphere/internal/app/system/geofence"
	"github.com/caresphere/caresphere/internal/app/system/notify"
	"github.com/caresphere/caresphere/internal/app/system/ratelimit"
	"github.com/caresphere/caresphere/internal/app/system/tasks"
)

// DBDeps holds database and engine dependencies for the app.
//
// Everything here is constructed once in ConnectDB and shared for the life
// of the process: the Mongo client, the per-collection stores, and the
// safety engine built on top of them (care network manager, alert
// dispatcher, geofence evaluator, background task runner).
type DBDeps struct {
	MongoClient *mongo.Client
	DB          *mongo.Database

	// Per-collection stores
	Users         *userstore.Store
	Relationships *relationshipstore.Store
	Consents      *consentstore.Store
	SafeZones     *safezonestore.Store
	Locations     *locationstore.Store
	GeofenceState *statestore.Store
	Alerts        *alertstore.Store
	AuditEvents   *auditstore.Store

	// Engine layers
	Network    *carenet.Manager
	Audit      *auditlog.Logger
	Notifier   notify.Notifier
	Dispatcher *dispatch.Dispatcher
	Evaluator  *geofence.Evaluator

	// Request-path infrastructure
	IngestLimiter *ratelimit.IngestLimiter

	// Background jobs (escalation sweep, location pruning)
	Runner *tasks.Runner
}
