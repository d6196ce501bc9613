package utils

import (
	"context"
	"time"

	"amap/services"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// InitializeStatusScheduler runs SyncStatuses on the given cron schedule.
// The persisted status is an audit trail, so this job only keeps it fresh
// for reporting; eligibility never depends on it. An empty schedule
// disables the job and returns a nil scheduler.
func InitializeStatusScheduler(schedule string, subscriptions *services.SubscriptionService, clock services.Clock, logger *zap.Logger) (*cron.Cron, error) {
	if schedule == "" {
		logger.Info("status sync scheduler disabled")
		return nil, nil
	}

	c := cron.New(cron.WithLocation(clock.Location))
	_, err := c.AddFunc(schedule, func() {
		RunStatusSync(context.Background(), subscriptions, clock, logger)
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logger.Info("status sync scheduler started", zap.String("schedule", schedule))
	return c, nil
}

// RunStatusSync reconciles every open subscription as of today
func RunStatusSync(ctx context.Context, subscriptions *services.SubscriptionService, clock services.Clock, logger *zap.Logger) int {
	started := time.Now()
	today := clock.Today()

	changed, err := subscriptions.SyncStatuses(ctx, today)
	if err != nil {
		logger.Error("status sync failed",
			zap.String("asOf", today.Format(time.DateOnly)),
			zap.Int("changed", changed),
			zap.Error(err))
		return changed
	}

	logger.Info("status sync done",
		zap.String("asOf", today.Format(time.DateOnly)),
		zap.Int("changed", changed),
		zap.Duration("took", time.Since(started)))
	return changed
}
