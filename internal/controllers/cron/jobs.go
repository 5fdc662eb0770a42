package cron

import (
	"context"

	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
	"github.com/agenciaspace/clinione-sub001/internal/application/use-cases"
)

// SweepJob runs one sweep per tick. A panic is logged and the next tick runs normally.
type SweepJob struct {
	name   string
	sweep  func(ctx context.Context) (entity.SweepResult, error)
	logger *zap.SugaredLogger
}

// NewPendingJob dispatches events still waiting for their first attempt.
func NewPendingJob(usecase use_cases.UseCaser, logger *zap.SugaredLogger) *SweepJob {
	return &SweepJob{name: "process-pending", sweep: usecase.ProcessPendingEvents, logger: logger}
}

// NewRetriesJob resubmits retries that are due.
func NewRetriesJob(usecase use_cases.UseCaser, logger *zap.SugaredLogger) *SweepJob {
	return &SweepJob{name: "process-retries", sweep: usecase.ProcessRetries, logger: logger}
}

func (j *SweepJob) Name() string { return j.name }

func (j *SweepJob) Run(ctx context.Context) {
	j.logger.Debugf("cron %s started", j.name)

	defer func() {
		if r := recover(); r != nil {
			j.logger.Errorf("cron %s panicked: %v", j.name, r)
		}
	}()

	res, err := j.sweep(ctx)
	if err != nil {
		j.logger.Errorf("cron %s failed: %v", j.name, err)
		return
	}
	if res.Processed > 0 {
		j.logger.Infof("cron %s: processed=%d delivered=%d failed=%d", j.name, res.Processed, res.Delivered, res.Failed)
	}
}
