package use_cases

import (
	"context"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
	"github.com/agenciaspace/clinione-sub001/internal/application/service"
)

type UseCaser interface {
	TriggerWebhook(ctx context.Context, trigger entity.Trigger, deliverNow bool) (uuid.UUID, error)
	ProcessPendingEvents(ctx context.Context) (entity.SweepResult, error)
	ProcessRetries(ctx context.Context) (entity.SweepResult, error)
	ProcessEvent(ctx context.Context, eventID uuid.UUID, endpointID *uuid.UUID) (entity.DeliveryResult, error)

	GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	ListDeliveries(ctx context.Context, eventID uuid.UUID) ([]entity.DeliveryLog, error)
	ListDeadLetters(ctx context.Context, clinicID *uuid.UUID, limit uint64) ([]entity.DeadLetter, error)

	HealthCheck(ctx context.Context) entity.Health
}

type UseCase struct {
	service service.Service
	logger  *zap.SugaredLogger
}

func NewUseCase(service service.Service, logger *zap.SugaredLogger) *UseCase {
	return &UseCase{
		service: service,
		logger:  logger,
	}
}

func (u *UseCase) HealthCheck(ctx context.Context) entity.Health {
	return u.service.HealthCheck(ctx)
}

// TriggerWebhook enqueues the event. With deliverNow the first attempt is made
// right away; its outcome is logged and never fails the trigger.
func (u *UseCase) TriggerWebhook(ctx context.Context, trigger entity.Trigger, deliverNow bool) (uuid.UUID, error) {
	u.logger.Debugf("[clinic: %s] TriggerWebhook %s started", trigger.ClinicID, trigger.EventType)

	id, err := u.service.TriggerWebhook(ctx, trigger)
	if err != nil {
		return uuid.Nil, err
	}
	if !deliverNow {
		return id, nil
	}

	res, err := u.service.ProcessEvent(ctx, id, nil)
	switch {
	case err != nil:
		u.logger.Warnf("[event: %s] immediate delivery failed: %v", id, err)
	case !res.Delivered:
		u.logger.Infof("[event: %s] immediate delivery not completed, left to retries", id)
	}
	return id, nil
}

func (u *UseCase) ProcessPendingEvents(ctx context.Context) (entity.SweepResult, error) {
	u.logger.Debug("ProcessPendingEvents started")
	return u.service.ProcessPendingEvents(ctx)
}

func (u *UseCase) ProcessRetries(ctx context.Context) (entity.SweepResult, error) {
	u.logger.Debug("ProcessRetries started")
	return u.service.ProcessRetries(ctx)
}

func (u *UseCase) ProcessEvent(ctx context.Context, eventID uuid.UUID, endpointID *uuid.UUID) (entity.DeliveryResult, error) {
	u.logger.Debugf("[event: %s] ProcessEvent started", eventID)
	return u.service.ProcessEvent(ctx, eventID, endpointID)
}

func (u *UseCase) GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	return u.service.GetEvent(ctx, id)
}

func (u *UseCase) ListDeliveries(ctx context.Context, eventID uuid.UUID) ([]entity.DeliveryLog, error) {
	return u.service.ListDeliveries(ctx, eventID)
}

func (u *UseCase) ListDeadLetters(ctx context.Context, clinicID *uuid.UUID, limit uint64) ([]entity.DeadLetter, error) {
	return u.service.ListDeadLetters(ctx, entity.DeadLetterFilter{ClinicID: clinicID, Limit: limit})
}
