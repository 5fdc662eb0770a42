package producer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/cenkalti/backoff/v4"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
)

func newTestProducer(t *testing.T, sp sarama.SyncProducer, maxAttempts int) *KafkaProducer {
	t.Helper()
	p := NewProducer(sp, nil, "webhooks.dead-letters", zap.NewNop().Sugar(), maxAttempts, nil)
	p.newBackOff = func() backoff.BackOff { return &backoff.ZeroBackOff{} }
	return p
}

func testNotice() entity.DeadLetterNotice {
	return entity.DeadLetterNotice{
		EventID:      uuid.Must(uuid.NewV4()),
		EventType:    entity.PatientCreated,
		ClinicID:     uuid.Must(uuid.NewV4()),
		Attempts:     7,
		ErrorMessage: "HTTP 500",
	}
}

func TestPublishDeadLetter_Success(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	notice := testNotice()

	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got entity.DeadLetterNotice
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got.EventID != notice.EventID || got.Attempts != 7 {
			return errors.New("unexpected notice")
		}
		return nil
	})

	p := newTestProducer(t, sp, 3)
	require.NoError(t, p.PublishDeadLetter(context.Background(), notice))
	require.NoError(t, sp.Close())
}

func TestPublishDeadLetter_RetriesTransientErrors(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrLeaderNotAvailable)
	sp.ExpectSendMessageAndSucceed()

	p := newTestProducer(t, sp, 3)
	require.NoError(t, p.PublishDeadLetter(context.Background(), testNotice()))
	require.NoError(t, sp.Close())
}

func TestPublishDeadLetter_PermanentErrorStops(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrTopicAuthorizationFailed)

	p := newTestProducer(t, sp, 5)
	err := p.PublishDeadLetter(context.Background(), testNotice())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrTopicAuthorizationFailed)
	require.NoError(t, sp.Close())
}

func TestPublishDeadLetter_GivesUpAfterMaxAttempts(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrRequestTimedOut)
	sp.ExpectSendMessageAndFail(sarama.ErrRequestTimedOut)

	p := newTestProducer(t, sp, 2)
	err := p.PublishDeadLetter(context.Background(), testNotice())
	assert.ErrorIs(t, err, sarama.ErrRequestTimedOut)
	require.NoError(t, sp.Close())
}

func TestDisabledProducer(t *testing.T) {
	p := NewProducer(nil, nil, "", zap.NewNop().Sugar(), 3, nil)

	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishDeadLetter(context.Background(), testNotice()))
	assert.ErrorIs(t, p.HealthCheck(context.Background()), ErrKafkaDisabled)
}

func TestClassifyRetry(t *testing.T) {
	assert.Equal(t, "leader_not_available", ClassifyRetry(sarama.ErrLeaderNotAvailable))
	assert.Equal(t, "broker_timeout", ClassifyRetry(sarama.ErrRequestTimedOut))
	assert.Equal(t, "client_deadline", ClassifyRetry(context.Canceled))
	assert.Equal(t, "net_timeout", ClassifyRetry(context.DeadlineExceeded))
	assert.Equal(t, "other", ClassifyRetry(errors.New("boom")))
}
