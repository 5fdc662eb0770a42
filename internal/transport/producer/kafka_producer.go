package producer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
	"github.com/agenciaspace/clinione-sub001/pkg/metrics"
)

var ErrKafkaDisabled = errors.New("kafka is disabled")

type Producer interface {
	PublishDeadLetter(ctx context.Context, notice entity.DeadLetterNotice) error
	HealthCheck(ctx context.Context) error
	Enabled() bool
}

// Broker is the part of broker.KafkaBroker the producer needs.
type Broker interface {
	HealthCheck(ctx context.Context) error
}

type KafkaProducer struct {
	producer    sarama.SyncProducer
	broker      Broker
	topic       string
	logger      *zap.SugaredLogger
	maxAttempts int
	m           *metrics.Metrics
	newBackOff  func() backoff.BackOff
}

// NewProducer returns a no-op producer when syncProducer is nil (kafka disabled).
func NewProducer(syncProducer sarama.SyncProducer, broker Broker, topic string, logger *zap.SugaredLogger, maxAttempts int, m *metrics.Metrics) *KafkaProducer {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &KafkaProducer{
		producer:    syncProducer,
		broker:      broker,
		topic:       topic,
		logger:      logger,
		maxAttempts: maxAttempts,
		m:           m,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 10 * time.Second
			b.MaxElapsedTime = time.Minute
			b.RandomizationFactor = 0.5
			return b
		},
	}
}

func (p *KafkaProducer) Enabled() bool {
	return p.producer != nil
}

func (p *KafkaProducer) HealthCheck(ctx context.Context) error {
	if !p.Enabled() || p.broker == nil {
		return ErrKafkaDisabled
	}
	return p.broker.HealthCheck(ctx)
}

// PublishDeadLetter sends the notice keyed by event id. Retryable errors are retried
// with exponential backoff, permanent kafka errors stop right away.
func (p *KafkaProducer) PublishDeadLetter(ctx context.Context, notice entity.DeadLetterNotice) error {
	if !p.Enabled() {
		p.logger.Debugf("[event: %s] kafka disabled, dead letter notice not published", notice.EventID)
		return nil
	}

	value, err := json.Marshal(notice)
	if err != nil {
		return fmt.Errorf("marshal dead letter notice: %w", err)
	}

	return p.produce(ctx, notice.EventID.String(), value)
}

func (p *KafkaProducer) produce(ctx context.Context, key string, value []byte) error {
	topic := p.topic
	attempt := 0

	operation := func() error {
		attempt++
		msg := &sarama.ProducerMessage{
			Topic:     topic,
			Key:       sarama.StringEncoder(key),
			Value:     sarama.ByteEncoder(value),
			Timestamp: time.Now(),
		}

		t0 := time.Now()
		part, off, err := p.producer.SendMessage(msg)
		rt := time.Since(t0)

		if p.m != nil {
			res := "ok"
			if err != nil {
				res = "error"
			}
			p.m.Kafka.ProducerAttemptLatencySeconds.WithLabelValues(topic, res).Observe(rt.Seconds())
		}

		if err == nil {
			p.logger.Infof("[key %s] sent topic=%s partition=%d offset=%d attempt=%d rt=%s", key, topic, part, off, attempt, rt)
			return nil
		}

		var kerr sarama.KError
		if errors.As(err, &kerr) && isPermanent(kerr) {
			p.logger.Errorf("[key %s] permanent kafka error attempt=%d rt=%s kafka_error=%s code=%d", key, attempt, rt, kerr.Error(), int16(kerr))
			return backoff.Permanent(fmt.Errorf("permanent kafka error: %w", kerr))
		}

		p.logger.Warnf("[key %s] retryable kafka error attempt=%d rt=%s reason=%s err=%v", key, attempt, rt, ClassifyRetry(err), err)
		return err
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), uint64(p.maxAttempts-1)), ctx)
	err := backoff.Retry(operation, b)

	if p.m != nil {
		p.m.Kafka.ProducerOperationsTotal.WithLabelValues(topic, produceResult(err)).Inc()
	}
	if err != nil {
		p.logger.Errorf("[key %s] produce failed after %d attempts: %v", key, attempt, err)
		return fmt.Errorf("produce failed after %d attempts: %w", attempt, err)
	}
	return nil
}

func produceResult(err error) string {
	var kerr sarama.KError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	case errors.As(err, &kerr) && isPermanent(kerr):
		return "permanent"
	default:
		return "failed"
	}
}

func isPermanent(k sarama.KError) bool {
	switch k {
	case sarama.ErrTopicAuthorizationFailed,
		sarama.ErrClusterAuthorizationFailed,
		sarama.ErrInvalidRequest,
		sarama.ErrInvalidMessage,
		sarama.ErrMessageSizeTooLarge,
		sarama.ErrSASLAuthenticationFailed:
		return true
	default:
		return false
	}
}

func ClassifyRetry(err error) string {
	var k sarama.KError
	if errors.As(err, &k) {
		switch k {
		case sarama.ErrLeaderNotAvailable:
			return "leader_not_available"
		case sarama.ErrRequestTimedOut:
			return "broker_timeout"
		case sarama.ErrNotEnoughReplicas, sarama.ErrNotEnoughReplicasAfterAppend:
			return "not_enough_replicas"
		default:
			return k.Error()
		}
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return "net_timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return "client_deadline"
	}
	return "other"
}
