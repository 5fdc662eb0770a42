package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/agenciaspace/clinione-sub001/internal/appers"
	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
	"github.com/agenciaspace/clinione-sub001/pkg/db"
)

const defaultListLimit = 100

type Repo interface {
	InsertEvent(ctx context.Context, evt *entity.Event) (bool, error)
	GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	MarkEventFailed(ctx context.Context, clinicID, eventID uuid.UUID, httpStatus int, response string) error

	ListActiveEndpoints(ctx context.Context, clinicID uuid.UUID) ([]entity.Endpoint, error)
	GetEndpoint(ctx context.Context, clinicID, endpointID uuid.UUID) (*entity.Endpoint, error)
	GetLegacyWebhook(ctx context.Context, clinicID uuid.UUID) (entity.LegacyWebhook, error)

	ListDeliveryLogs(ctx context.Context, f entity.DeliveryLogFilter) ([]entity.DeliveryLog, error)

	InsertRetry(ctx context.Context, r *entity.Retry) error
	CompleteRetry(ctx context.Context, id int64) error

	InsertDeadLetter(ctx context.Context, d *entity.DeadLetter) (bool, error)
	IsDeadLettered(ctx context.Context, eventID uuid.UUID) (bool, error)
	ListDeadLetters(ctx context.Context, f entity.DeadLetterFilter) ([]entity.DeadLetter, error)

	HealthCheck(ctx context.Context) error
}

type RepoImpl struct {
	db     db.DB
	logger *zap.SugaredLogger
	psql   sq.StatementBuilderType
}

func NewRepo(db db.DB, logger *zap.SugaredLogger) *RepoImpl {
	return &RepoImpl{
		db:     db,
		logger: logger,
		psql:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *RepoImpl) HealthCheck(ctx context.Context) error {
	var result int
	err := r.db.QueryRow(ctx, "SELECT 1").Scan(&result)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}

func (r *RepoImpl) InsertEvent(ctx context.Context, evt *entity.Event) (bool, error) {
	r.logger.Debugf("[event: %s] start inserting into DB", evt.ID)

	var insertedID uuid.UUID
	err := r.db.QueryRow(ctx, insertEvent,
		evt.ID, evt.ClinicID, string(evt.EventType), evt.EventVersion, []byte(evt.Payload),
		string(evt.TriggerSource), evt.Timestamp).Scan(&insertedID)

	switch {
	case err == nil:
		r.logger.Debugf("[event: %s] inserted into DB successfully", evt.ID)
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		r.logger.Warnf("[event: %s] inserting event: already exists (conflict)", evt.ID)
		return false, nil
	default:
		r.logger.Errorf("[event: %s] error inserting into DB: %v", evt.ID, err)
		return false, fmt.Errorf("insert webhook_event: %w", err)
	}
}

func (r *RepoImpl) GetEvent(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	evt, err := scanEvent(r.db.QueryRow(ctx, getEvent, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, appers.ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook_event: %w", err)
	}
	return evt, nil
}

func (r *RepoImpl) MarkEventFailed(ctx context.Context, clinicID, eventID uuid.UUID, httpStatus int, response string) error {
	r.logger.Debugf("[event: %s] MarkEventFailed: %s", eventID, response)

	res, err := r.db.Exec(ctx, markEventFailed, eventID, clinicID, httpStatus, response)
	if err != nil {
		return fmt.Errorf("mark webhook_event failed: %w", err)
	}
	if res.RowsAffected() == 0 {
		return appers.ErrEventNotFound
	}
	return nil
}

func (r *RepoImpl) ListActiveEndpoints(ctx context.Context, clinicID uuid.UUID) ([]entity.Endpoint, error) {
	rows, err := r.db.Query(ctx, listActiveEndpoints, clinicID)
	if err != nil {
		return nil, fmt.Errorf("list webhook_endpoints: %w", err)
	}
	defer rows.Close()

	endpoints := make([]entity.Endpoint, 0)
	for rows.Next() {
		ep, err := scanEndpoint(rows)
		if err != nil {
			return nil, fmt.Errorf("scan webhook_endpoint: %w", err)
		}
		endpoints = append(endpoints, *ep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("endpoint rows err: %w", err)
	}

	return endpoints, nil
}

func (r *RepoImpl) GetEndpoint(ctx context.Context, clinicID, endpointID uuid.UUID) (*entity.Endpoint, error) {
	ep, err := scanEndpoint(r.db.QueryRow(ctx, getEndpoint, endpointID, clinicID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, appers.ErrEndpointNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get webhook_endpoint: %w", err)
	}
	return ep, nil
}

func (r *RepoImpl) GetLegacyWebhook(ctx context.Context, clinicID uuid.UUID) (entity.LegacyWebhook, error) {
	legacy := entity.LegacyWebhook{ClinicID: clinicID}
	err := r.db.QueryRow(ctx, getLegacyWebhook, clinicID).Scan(&legacy.URL, &legacy.Secret)
	switch {
	case err == nil, errors.Is(err, pgx.ErrNoRows):
		return legacy, nil
	default:
		return legacy, fmt.Errorf("get clinic webhook: %w", err)
	}
}

func (r *RepoImpl) InsertRetry(ctx context.Context, rt *entity.Retry) error {
	r.logger.Debugf("[event: %s endpoint: %v] InsertRetry at %s", rt.EventID, rt.EndpointID, rt.RetryAt)

	err := r.db.QueryRow(ctx, insertRetry, rt.EventID, rt.EndpointID, rt.ClinicID, rt.RetryAt).Scan(&rt.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		return appers.ErrEventDeadLettered
	}
	if err != nil {
		return fmt.Errorf("insert webhook_retry: %w", err)
	}
	rt.Status = entity.RetryPending
	return nil
}

func (r *RepoImpl) CompleteRetry(ctx context.Context, id int64) error {
	if _, err := r.db.Exec(ctx, completeRetry, id); err != nil {
		return fmt.Errorf("complete webhook_retry %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*entity.Event, error) {
	var evt entity.Event
	var eventType, source, status string
	err := row.Scan(&evt.ID, &evt.ClinicID, &eventType, &evt.EventVersion, &evt.Payload, &source,
		&evt.Timestamp, &status, &evt.Attempts, &evt.LastAttempt, &evt.LastResponse, &evt.HTTPStatus)
	if err != nil {
		return nil, err
	}
	evt.EventType = entity.EventType(eventType)
	evt.TriggerSource = entity.TriggerSource(source)
	evt.Status = entity.EventStatus(status)
	evt.Timestamp = evt.Timestamp.UTC()
	evt.LastAttempt = utcPtr(evt.LastAttempt)
	return &evt, nil
}

func scanEndpoint(row rowScanner) (*entity.Endpoint, error) {
	var ep entity.Endpoint
	err := row.Scan(&ep.ID, &ep.ClinicID, &ep.URL, &ep.Secret, &ep.IsActive, &ep.EventTypes, &ep.Description)
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func limitOrDefault(limit uint64) uint64 {
	if limit == 0 || limit > 1000 {
		return defaultListLimit
	}
	return limit
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
