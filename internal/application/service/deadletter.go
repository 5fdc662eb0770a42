package service

import (
	"context"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
)

// DeadLetter archives evt once and closes the pending retries every endpoint still had
// for it. Repeated calls for the same event are no-ops, and only the first one publishes a notice.
func (s *ServiceImpl) DeadLetter(ctx context.Context, evt *entity.Event, target entity.Target, attempts int, reason string) {
	d := &entity.DeadLetter{
		EventID:      evt.ID,
		EventType:    evt.EventType,
		ClinicID:     evt.ClinicID,
		EndpointID:   target.EndpointID,
		Payload:      evt.Payload,
		Attempts:     attempts,
		LastAttempt:  evt.LastAttempt,
		ErrorMessage: reason,
	}

	inserted, err := s.repo.InsertDeadLetter(ctx, d)
	if err != nil {
		s.logger.Errorf("[event: %s endpoint: %s] dead letter not stored: %v", evt.ID, target, err)
		return
	}
	if !inserted {
		return
	}

	if s.m != nil {
		s.m.Delivery.DeadLettersTotal.Inc()
	}
	s.logger.Errorf("[event: %s endpoint: %s] dead-lettered after %d attempts: %s", evt.ID, target, attempts, reason)

	if s.notifier == nil {
		return
	}
	notice := entity.DeadLetterNotice{
		EventID:      evt.ID,
		EventType:    evt.EventType,
		ClinicID:     evt.ClinicID,
		Attempts:     attempts,
		ErrorMessage: reason,
	}
	if err := s.notifier.PublishDeadLetter(ctx, notice); err != nil {
		s.logger.Warnf("[event: %s] dead letter notice not published: %v", evt.ID, err)
	}
}
