package repo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
)

// Transactions groups the writes that must land together.
type Transactions interface {
	ClaimPendingEvents(ctx context.Context, limit int, staleBefore, now time.Time) ([]entity.Event, error)
	ClaimDueRetries(ctx context.Context, limit int, now time.Time) ([]entity.Retry, error)
	StartAttempt(ctx context.Context, target entity.Target, evt *entity.Event, at time.Time) (entity.Attempt, error)
	FinishAttempt(ctx context.Context, out entity.AttemptOutcome) error
}

type TransactionsImpl struct {
	repo   *RepoImpl
	logger *zap.SugaredLogger
}

func NewTransactions(repo *RepoImpl, logger *zap.SugaredLogger) *TransactionsImpl {
	return &TransactionsImpl{repo: repo, logger: logger}
}

func (t *TransactionsImpl) ClaimPendingEvents(ctx context.Context, limit int, staleBefore, now time.Time) ([]entity.Event, error) {
	t.logger.Debugf("[limit: %d, staleBefore: %s] ClaimPendingEvents started", limit, staleBefore)

	var events []entity.Event
	err := t.repo.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		rows, err := t.repo.db.Query(txCtx, claimPendingEvents, limit, staleBefore, now)
		if err != nil {
			return fmt.Errorf("claim pending events: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			evt, err := scanEvent(rows)
			if err != nil {
				return fmt.Errorf("scan claimed event: %w", err)
			}
			events = append(events, *evt)
		}
		return rows.Err()
	})
	if err != nil {
		t.logger.Errorw("claim pending events failed", "err", err)
		return nil, err
	}

	sort.Slice(events, func(i, j int) bool { return events[i].Timestamp.Before(events[j].Timestamp) })
	return events, nil
}

func (t *TransactionsImpl) ClaimDueRetries(ctx context.Context, limit int, now time.Time) ([]entity.Retry, error) {
	t.logger.Debugf("[limit: %d] ClaimDueRetries started", limit)

	var retries []entity.Retry
	err := t.repo.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		rows, err := t.repo.db.Query(txCtx, claimDueRetries, limit, now)
		if err != nil {
			return fmt.Errorf("claim due retries: %w", err)
		}
		defer rows.Close()

		for rows.Next() {
			var (
				rt     entity.Retry
				status string
			)
			if err := rows.Scan(&rt.ID, &rt.EventID, &rt.EndpointID, &rt.ClinicID, &rt.RetryAt, &status, &rt.CreatedAt); err != nil {
				return fmt.Errorf("scan claimed retry: %w", err)
			}
			rt.Status = entity.RetryStatus(status)
			retries = append(retries, rt)
		}
		return rows.Err()
	})
	if err != nil {
		t.logger.Errorw("claim due retries failed", "err", err)
		return nil, err
	}

	sort.Slice(retries, func(i, j int) bool { return retries[i].RetryAt.Before(retries[j].RetryAt) })
	return retries, nil
}

// StartAttempt bumps the event's attempts and upserts the (event, endpoint) log row.
// Calling it twice for the same pair increments retry_count instead of adding a row.
func (t *TransactionsImpl) StartAttempt(ctx context.Context, target entity.Target, evt *entity.Event, at time.Time) (entity.Attempt, error) {
	attempt := entity.Attempt{StartedAt: at}

	err := t.repo.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		err := t.repo.db.QueryRow(txCtx, startEventAttempt, evt.ID, target.ClinicID, at).Scan(&attempt.EventAttempts)
		if errors.Is(err, pgx.ErrNoRows) {
			return appers.ErrEventNotFound
		}
		if err != nil {
			return fmt.Errorf("start event attempt: %w", err)
		}

		var retryCount int
		if err := t.repo.db.QueryRow(txCtx, upsertDeliveryLog, evt.ID, target.EndpointID, target.ClinicID, at).Scan(&retryCount); err != nil {
			return fmt.Errorf("upsert delivery log: %w", err)
		}
		attempt.EndpointAttempt = retryCount + 1
		return nil
	})
	if err != nil {
		t.logger.Errorf("[event: %s endpoint: %s] start attempt failed: %v", evt.ID, target, err)
		return attempt, err
	}

	return attempt, nil
}

func (t *TransactionsImpl) FinishAttempt(ctx context.Context, out entity.AttemptOutcome) error {
	eventStatus, logStatus := entity.EventFailed, entity.DeliveryFailed
	if out.Delivered {
		eventStatus, logStatus = entity.EventDelivered, entity.DeliveryDelivered
	}

	err := t.repo.db.WithinTransaction(ctx, func(txCtx context.Context) error {
		if _, err := t.repo.db.Exec(txCtx, finishEventAttempt,
			out.EventID, out.ClinicID, string(eventStatus), out.HTTPStatus, out.Response); err != nil {
			return fmt.Errorf("finish event attempt: %w", err)
		}
		if _, err := t.repo.db.Exec(txCtx, finishDeliveryLog,
			out.EventID, out.ClinicID, out.EndpointID, string(logStatus), out.HTTPStatus, out.Response); err != nil {
			return fmt.Errorf("finish delivery log: %w", err)
		}
		return nil
	})
	if err != nil {
		t.logger.Errorf("[event: %s] finish attempt failed: %v", out.EventID, err)
		return err
	}

	return nil
}
