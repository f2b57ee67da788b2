// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"

	"github.com/caresphere/caresphere/internal/app/system/timeouts"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It applies
// any configured timeout overrides and starts the background task runner
// (escalation sweep and location pruning).
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	deps.Runner.Start()
	logger.Info("background jobs started",
		zap.Duration("escalation_window", appCfg.EscalationWindow),
		zap.Duration("location_retention", appCfg.LocationRetention))
	return nil
}
