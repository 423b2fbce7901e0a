package app

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StartSweeper schedules the timeout sweep. It returns the running scheduler
// so the caller can stop it on shutdown.
func StartSweeper(schedule string, attempts *AttemptService, log *zap.Logger) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		attempts.SweepTimeouts(ctx)
	})
	if err != nil {
		return nil, err
	}
	c.Start()
	log.Info("timeout sweeper started", zap.String("schedule", schedule))
	return c, nil
}
