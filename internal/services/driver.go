package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"tavern-bot/pkg/logger"
)

// CronSchedulerDriver ticks the message scheduler on a fixed cadence. The
// cadence is coarse: a job fires on the first tick at or after its due time.
type CronSchedulerDriver struct {
	cron      *cron.Cron
	scheduler *MessageScheduler
	interval  time.Duration
	log       logger.Logger
}

func NewCronSchedulerDriver(scheduler *MessageScheduler, interval time.Duration, log logger.Logger) *CronSchedulerDriver {
	return &CronSchedulerDriver{
		cron:      cron.New(cron.WithSeconds()),
		scheduler: scheduler,
		interval:  interval,
		log:       log,
	}
}

func (d *CronSchedulerDriver) Start(ctx context.Context) error {
	d.log.Info("Starting schedule driver", "interval", d.interval)

	spec := fmt.Sprintf("@every %s", d.interval)
	_, err := d.cron.AddFunc(spec, func() {
		d.scheduler.Tick(ctx, time.Now())
	})
	if err != nil {
		return err
	}

	d.cron.Start()
	return nil
}

func (d *CronSchedulerDriver) Stop() error {
	d.log.Info("Stopping schedule driver")
	d.cron.Stop()
	return nil
}
