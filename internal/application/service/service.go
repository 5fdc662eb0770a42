package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
	"github.com/agenciaspace/clinione-sub001/internal/application/repo"
	"github.com/agenciaspace/clinione-sub001/internal/transport/producer"
	"github.com/agenciaspace/clinione-sub001/pkg/config"
	"github.com/agenciaspace/clinione-sub001/pkg/httpclient"
	"github.com/agenciaspace/clinione-sub001/pkg/metrics"
)

type Service interface {
	TriggerWebhook(ctx context.Context, trigger entity.Trigger) (uuid.UUID, error)
	ProcessPendingEvents(ctx context.Context) (entity.SweepResult, error)
	ProcessRetries(ctx context.Context) (entity.SweepResult, error)
	ProcessEvent(ctx context.Context, eventID uuid.UUID, endpointID *uuid.UUID) (entity.DeliveryResult, error)

	GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	ListDeliveries(ctx context.Context, eventID uuid.UUID) ([]entity.DeliveryLog, error)
	ListDeadLetters(ctx context.Context, f entity.DeadLetterFilter) ([]entity.DeadLetter, error)

	HealthCheck(ctx context.Context) entity.Health
}

// Signer signs the exact outbound body. An empty signature means "send unsigned".
type Signer interface {
	Sign(body []byte, secret string) (string, error)
}

type Settings struct {
	Delivery config.Delivery
	Retry    config.Retry
	Sweeper  config.Sweeper
}

func SettingsFromConfig(conf *config.Config) Settings {
	return Settings{Delivery: conf.Delivery, Retry: conf.Retry, Sweeper: conf.Sweeper}
}

type ServiceImpl struct {
	repo         repo.Repo
	transactions repo.Transactions
	client       httpclient.HTTPClient
	signer       Signer
	notifier     producer.Producer
	logger       *zap.SugaredLogger
	cfg          Settings
	m            *metrics.Metrics
	now          func() time.Time
}

func NewService(
	repo repo.Repo,
	transactions repo.Transactions,
	client httpclient.HTTPClient,
	signer Signer,
	notifier producer.Producer,
	logger *zap.SugaredLogger,
	cfg Settings,
	m *metrics.Metrics) *ServiceImpl {
	return &ServiceImpl{
		repo:         repo,
		transactions: transactions,
		client:       client,
		signer:       signer,
		notifier:     notifier,
		logger:       logger,
		cfg:          cfg,
		m:            m,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// HealthCheck reports database and kafka availability. Kafka is reported healthy when disabled.
func (s *ServiceImpl) HealthCheck(ctx context.Context) entity.Health {
	h := entity.Health{Database: s.repo.HealthCheck(ctx) == nil}

	if s.notifier == nil || !s.notifier.Enabled() {
		h.Kafka = true
		return h
	}
	h.KafkaEnabled = true
	h.Kafka = s.notifier.HealthCheck(ctx) == nil
	return h
}

// TriggerWebhook stores a pending event and returns its id. Delivery happens later.
func (s *ServiceImpl) TriggerWebhook(ctx context.Context, trigger entity.Trigger) (uuid.UUID, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return uuid.Nil, fmt.Errorf("new event id: %w", err)
	}

	payload := trigger.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("{}")
	}

	evt := &entity.Event{
		ID:            id,
		ClinicID:      trigger.ClinicID,
		EventType:     trigger.EventType,
		EventVersion:  s.cfg.Delivery.EventVersion,
		Payload:       payload,
		TriggerSource: trigger.TriggerSource,
		Timestamp:     s.now(),
		Status:        entity.EventPending,
	}
	s.logger.Debugf("[event: %s clinic: %s] TriggerWebhook %s started", evt.ID, evt.ClinicID, evt.EventType)

	if _, err := s.repo.InsertEvent(ctx, evt); err != nil {
		return uuid.Nil, err
	}

	if s.m != nil {
		s.m.Delivery.EventsTriggeredTotal.WithLabelValues(string(evt.EventType), string(evt.TriggerSource)).Inc()
	}
	s.logger.Infof("[event: %s clinic: %s] %s enqueued", evt.ID, evt.ClinicID, evt.EventType)

	return evt.ID, nil
}

func (s *ServiceImpl) GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	return s.repo.GetEvent(ctx, id)
}

func (s *ServiceImpl) ListDeliveries(ctx context.Context, eventID uuid.UUID) ([]entity.DeliveryLog, error) {
	if _, err := s.repo.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.repo.ListDeliveryLogs(ctx, entity.DeliveryLogFilter{EventID: &eventID})
}

func (s *ServiceImpl) ListDeadLetters(ctx context.Context, f entity.DeadLetterFilter) ([]entity.DeadLetter, error) {
	return s.repo.ListDeadLetters(ctx, f)
}
