// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	locationstore "github.com/caresphere/caresphere/internal/app/store/locations"
	"github.com/caresphere/caresphere/internal/app/system/dispatch"
	"go.uber.org/zap"
)

// AlertEscalationJob creates a job that runs the unacknowledged-alert policy
// for critical alerts older than window. Each alert escalates at most once
// across all processes; the store's compare-and-set picks the winner.
func AlertEscalationJob(d *dispatch.Dispatcher, logger *zap.Logger, window time.Duration) Job {
	return Job{
		Name:     "alert-escalation",
		Interval: 1 * time.Minute,
		Run: func(ctx context.Context) error {
			count, err := d.EscalateUnacknowledged(ctx, window, 100)
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Warn("escalated unacknowledged critical alerts",
					zap.Int("count", count),
					zap.Duration("window", window))
			}
			return nil
		},
	}
}

// LocationPruneJob creates a job that removes location samples older than
// the retention period. This is a backup for when MongoDB's TTL index
// cleanup is delayed.
func LocationPruneJob(locations *locationstore.Store, logger *zap.Logger, retention time.Duration) Job {
	return Job{
		Name:     "location-prune",
		Interval: 1 * time.Hour,
		Run: func(ctx context.Context) error {
			count, err := locations.PruneOlderThan(ctx, time.Now().UTC().Add(-retention))
			if err != nil {
				return err
			}
			if count > 0 {
				logger.Debug("pruned expired location samples", zap.Int64("count", count))
			}
			return nil
		},
	}
}
