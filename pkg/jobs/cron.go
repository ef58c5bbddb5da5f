package jobs

import (
	"context"
	"time"

	"github.com/referlink/backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// sweepTimeout bounds one scheduled sweep run.
const sweepTimeout = 15 * time.Minute

// CronManager schedules the daily sweep.
type CronManager struct {
	cron    *cron.Cron
	sweeper *Sweeper
	log     logger.Logger
}

// NewCronManager creates a new cron manager.
func NewCronManager(sweeper *Sweeper, log logger.Logger) *CronManager {
	if log == nil {
		log = logger.Default()
	}
	return &CronManager{
		cron:    cron.New(),
		sweeper: sweeper,
		log:     log,
	}
}

// SetupJobs registers the sweep on the given cron schedule.
func (cm *CronManager) SetupJobs(schedule string) error {
	_, err := cm.cron.AddFunc(schedule, func() {
		cm.log.Info("running scheduled sweep")

		ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
		defer cancel()

		if err := cm.sweeper.Run(ctx); err != nil {
			cm.log.Error("scheduled sweep failed", "error", err)
			return
		}
		cm.log.Info("scheduled sweep completed")
	})
	if err != nil {
		return err
	}

	cm.log.Info("cron jobs configured", "sweep_schedule", schedule)
	return nil
}

// Start starts the cron scheduler.
func (cm *CronManager) Start() {
	cm.cron.Start()
}

// Stop stops the cron scheduler and waits for running jobs.
func (cm *CronManager) Stop() {
	ctx := cm.cron.Stop()
	<-ctx.Done()
}

// Sweeper returns the underlying sweeper for manual triggers.
func (cm *CronManager) Sweeper() *Sweeper {
	return cm.sweeper
}
