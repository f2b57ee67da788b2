// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

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
	"github.com/caresphere/caresphere/internal/app/system/indexes"
	"github.com/caresphere/caresphere/internal/app/system/notify"
	"github.com/caresphere/caresphere/internal/app/system/ratelimit"
	"github.com/caresphere/caresphere/internal/app/system/tasks"
)

// ConnectDB establishes the MongoDB connection and builds the full
// dependency graph on top of it: stores, the care network manager, the
// notification transport, the alert dispatcher, the geofence evaluator,
// and the background task runner. The runner is constructed here but not
// started; Startup starts it once schema setup has completed.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	db := client.Database(appCfg.MongoDatabase)
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))

	deps := DBDeps{
		MongoClient: client,
		DB:          db,

		Users:         userstore.New(db),
		Relationships: relationshipstore.New(db),
		Consents:      consentstore.New(db),
		SafeZones:     safezonestore.New(db),
		Locations:     locationstore.New(db),
		GeofenceState: statestore.New(db),
		Alerts:        alertstore.New(db),
		AuditEvents:   auditstore.New(db),
	}

	deps.Network = carenet.New(deps.Relationships, deps.Consents, deps.Users, logger)
	deps.Audit = auditlog.New(deps.AuditEvents, logger, auditlog.Config{
		Network: appCfg.AuditLogNetwork,
		Safety:  appCfg.AuditLogSafety,
	})

	// Notification transport: AMQP when a broker is configured, the log
	// otherwise. Dispatcher fan-out treats both the same.
	if appCfg.AMQPURL != "" {
		notifier, err := notify.NewAMQPNotifier(appCfg.AMQPURL, appCfg.NotifyQueue, logger)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("amqp notifier: %w", err)
		}
		deps.Notifier = notifier
	} else {
		logger.Info("no AMQP URL configured; notifications will be written to the log")
		deps.Notifier = &notify.LogNotifier{Log: logger}
	}

	deps.Dispatcher = dispatch.New(deps.Alerts, deps.Network, deps.Consents, deps.Notifier, deps.Audit, logger)
	deps.Evaluator = geofence.New(deps.SafeZones, deps.Locations, deps.GeofenceState, deps.Users, deps.Dispatcher, logger)

	deps.IngestLimiter = ratelimit.NewIngestLimiterWithConfig(
		appCfg.IngestLimitIP, time.Minute,
		appCfg.IngestLimitWard, time.Minute)

	deps.Runner = tasks.NewRunner(logger,
		tasks.AlertEscalationJob(deps.Dispatcher, logger, appCfg.EscalationWindow),
		tasks.LocationPruneJob(deps.Locations, logger, appCfg.LocationRetention),
	)

	return deps, nil
}

// EnsureSchema creates the indexes the engine depends on: the live-pair
// uniqueness guard on relationships, the consent pair key, the geofence
// state key, the alert feed keys, and the location TTL.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if err := indexes.EnsureAll(ctx, deps.DB, appCfg.LocationRetention); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	logger.Info("indexes ensured")
	return nil
}
