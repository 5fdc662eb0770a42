package cron

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/application/use-cases"
	"github.com/agenciaspace/clinione-sub001/pkg/config"
)

const (
	defaultPendingSpec = "@every 30s"
	defaultRetriesSpec = "@every 1m"
)

type Controller struct {
	scheduler *Scheduler
	logger    *zap.SugaredLogger
}

func NewController(ctx context.Context, logger *zap.SugaredLogger) *Controller {
	return &Controller{
		scheduler: NewScheduler(ctx),
		logger:    logger,
	}
}

// RegisterSweepJobs schedules process-pending and process-retries. An empty
// schedule falls back to the default interval.
func (c *Controller) RegisterSweepJobs(usecase use_cases.UseCaser, conf config.Cron) error {
	if err := c.register(NewPendingJob(usecase, c.logger), conf.PendingSchedule, defaultPendingSpec); err != nil {
		return err
	}
	return c.register(NewRetriesJob(usecase, c.logger), conf.RetriesSchedule, defaultRetriesSpec)
}

func (c *Controller) register(job Job, spec, fallback string) error {
	if spec == "" {
		spec = fallback
		c.logger.Warnf("no schedule for %s, using %s", job.Name(), spec)
	}

	entryID, err := c.scheduler.Add(spec, job)
	if err != nil {
		return fmt.Errorf("register %s job with schedule %q: %w", job.Name(), spec, err)
	}

	c.logger.Infof("cron job %s registered, id=%d schedule=%s", job.Name(), entryID, spec)
	return nil
}

func (c *Controller) Start() {
	c.logger.Info("starting cron scheduler")
	c.scheduler.Start()
}

func (c *Controller) Stop() {
	c.logger.Info("stopping cron scheduler")
	c.scheduler.Stop()
	c.logger.Info("cron scheduler stopped")
}
