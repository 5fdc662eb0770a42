package listener

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
	"github.com/agenciaspace/clinione-sub001/internal/application/use-cases"
	"github.com/agenciaspace/clinione-sub001/pkg/metrics"
)

const (
	resultTriggered = "triggered"
	resultSkipped   = "skipped"
	resultInvalid   = "invalid"
	resultError     = "error"

	handleTimeout = 10 * time.Second
)

var errInactiveClinic = errors.New("clinic is not subscribed")

// KafkaBrokerConsumer turns clinic change messages into pending webhook events.
type KafkaBrokerConsumer struct {
	usecase       use_cases.UseCaser
	subscriptions Subscriptions
	logger        *zap.SugaredLogger
	m             *metrics.Metrics
}

func NewKafkaBrokerConsumer(usecase use_cases.UseCaser, subscriptions Subscriptions, logger *zap.SugaredLogger, m *metrics.Metrics) *KafkaBrokerConsumer {
	return &KafkaBrokerConsumer{
		usecase:       usecase,
		subscriptions: subscriptions,
		logger:        logger,
		m:             m,
	}
}

func (k *KafkaBrokerConsumer) Setup(session sarama.ConsumerGroupSession) error {
	k.logger.Infof("kafka consumer setup, member: %s", session.MemberID())
	if k.m != nil {
		k.m.Kafka.ConsumerRebalancesTotal.WithLabelValues("setup").Inc()
	}
	return nil
}

func (k *KafkaBrokerConsumer) Cleanup(session sarama.ConsumerGroupSession) error {
	k.logger.Infof("kafka consumer cleanup, member: %s", session.MemberID())
	if k.m != nil {
		k.m.Kafka.ConsumerRebalancesTotal.WithLabelValues("cleanup").Inc()
	}
	return nil
}

// ConsumeClaim marks every message once handled. Invalid messages are logged and
// skipped, they would fail the same way on redelivery.
func (k *KafkaBrokerConsumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	topic := claim.Topic()

	for msg := range claim.Messages() {
		if k.m != nil {
			k.m.Kafka.ConsumerInFlight.WithLabelValues(topic).Inc()
		}
		start := time.Now()
		k.logger.Debugf("message topic:%q partition:%d offset:%d", msg.Topic, msg.Partition, msg.Offset)

		result := k.handle(session.Context(), msg.Value)
		if k.m != nil {
			k.m.Kafka.ConsumerMessagesTotal.WithLabelValues(topic, result).Inc()
			k.m.Kafka.ConsumerProcessDuration.WithLabelValues(topic).Observe(time.Since(start).Seconds())
			k.m.Kafka.ConsumerInFlight.WithLabelValues(topic).Dec()
		}

		session.MarkMessage(msg, "")
	}

	return nil
}

func (k *KafkaBrokerConsumer) handle(ctx context.Context, value []byte) string {
	trigger, err := k.decode(value)
	switch {
	case errors.Is(err, errInactiveClinic):
		k.logger.Debugf("[clinic: %s] change skipped: %v", trigger.ClinicID, err)
		return resultSkipped
	case err != nil:
		k.logger.Warnf("change message rejected: %v", err)
		return resultInvalid
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	id, err := k.usecase.TriggerWebhook(ctx, trigger, false)
	if err != nil {
		k.logger.Errorf("[clinic: %s] trigger %s failed: %v", trigger.ClinicID, trigger.EventType, err)
		return resultError
	}

	k.logger.Debugf("[event: %s clinic: %s] %s triggered from change stream", id, trigger.ClinicID, trigger.EventType)
	return resultTriggered
}

func (k *KafkaBrokerConsumer) decode(value []byte) (entity.Trigger, error) {
	var req entity.TriggerRequest
	if err := json.Unmarshal(value, &req); err != nil {
		return entity.Trigger{}, err
	}

	trigger, err := req.ToTrigger()
	if err != nil {
		return entity.Trigger{}, err
	}
	if !k.subscriptions.Active(trigger.ClinicID) {
		return trigger, errInactiveClinic
	}
	return trigger, nil
}
