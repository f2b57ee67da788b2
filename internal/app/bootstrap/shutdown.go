// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown cleanly tears down background jobs, the notification transport,
// and the MongoDB connection. Jobs stop first so nothing dispatches through
// a closed notifier.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Runner != nil {
		logger.Info("stopping background jobs")
		deps.Runner.Stop()
	}
	if deps.Notifier != nil {
		if err := deps.Notifier.Close(); err != nil {
			logger.Warn("notifier close failed", zap.Error(err))
		}
	}
	if deps.MongoClient != nil {
		logger.Info("disconnecting MongoDB client")
		if err := deps.MongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
