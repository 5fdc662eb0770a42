package service

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/uuid"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
)

const defaultMaxAttempts = 7

var defaultSchedule = []time.Duration{30 * time.Second, 120 * time.Second, 600 * time.Second}

// RetryDelay returns the wait after the given 1-based failed attempt.
// Attempts past the end of the schedule reuse its last entry.
func RetryDelay(schedule []time.Duration, attempt int) time.Duration {
	if len(schedule) == 0 {
		schedule = defaultSchedule
	}
	idx := attempt - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(schedule) {
		idx = len(schedule) - 1
	}
	return schedule[idx]
}

// ScheduleRetry stores a pending retry for the (event, endpoint) pair. Nothing is stored once
// the event is dead-lettered. Storage errors are logged only, the event keeps its failed status.
func (s *ServiceImpl) ScheduleRetry(ctx context.Context, eventID uuid.UUID, target entity.Target, attempt int) {
	rt := &entity.Retry{
		EventID:    eventID,
		EndpointID: target.EndpointID,
		ClinicID:   target.ClinicID,
		RetryAt:    s.now().Add(RetryDelay(s.cfg.Retry.Schedule, attempt)),
		Status:     entity.RetryPending,
	}

	err := s.repo.InsertRetry(ctx, rt)
	if errors.Is(err, appers.ErrEventDeadLettered) {
		s.logger.Infof("[event: %s endpoint: %s] event is dead-lettered, no retry scheduled", eventID, target)
		return
	}
	if err != nil {
		s.logger.Errorf("[event: %s endpoint: %s] schedule retry failed: %v", eventID, target, err)
		return
	}

	if s.m != nil {
		s.m.Delivery.RetriesScheduledTotal.Inc()
	}
	s.logger.Infof("[event: %s endpoint: %s] retry %d scheduled at %s", eventID, target, attempt+1, rt.RetryAt.Format(time.RFC3339))
}

func (s *ServiceImpl) maxAttempts() int {
	if s.cfg.Retry.MaxAttempts > 0 {
		return s.cfg.Retry.MaxAttempts
	}
	return defaultMaxAttempts
}
