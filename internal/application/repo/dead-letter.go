package repo

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
)

// InsertDeadLetter archives d once. A second call for the same event is a no-op and returns false.
func (r *RepoImpl) InsertDeadLetter(ctx context.Context, d *entity.DeadLetter) (bool, error) {
	r.logger.Debugf("[event: %s] InsertDeadLetter started", d.EventID)

	err := r.db.QueryRow(ctx, insertDeadLetter,
		d.EventID, string(d.EventType), d.ClinicID, d.EndpointID, []byte(d.Payload),
		d.Attempts, d.LastAttempt, d.ErrorMessage,
	).Scan(&d.ID)

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, pgx.ErrNoRows):
		r.logger.Infof("[event: %s] dead letter already exists", d.EventID)
		return false, nil
	default:
		return false, fmt.Errorf("insert webhook_dead_letter: %w", err)
	}
}

func (r *RepoImpl) IsDeadLettered(ctx context.Context, eventID uuid.UUID) (bool, error) {
	var exists bool
	if err := r.db.QueryRow(ctx, isDeadLettered, eventID).Scan(&exists); err != nil {
		return false, fmt.Errorf("check webhook_dead_letter: %w", err)
	}
	return exists, nil
}

func (r *RepoImpl) ListDeadLetters(ctx context.Context, f entity.DeadLetterFilter) ([]entity.DeadLetter, error) {
	q := r.psql.Select(deadLetterColumns).
		From("webhook_dead_letters").
		OrderBy("created_at DESC", "id DESC").
		Limit(limitOrDefault(f.Limit))

	if f.ClinicID != nil {
		q = q.Where(sq.Eq{"clinic_id": f.ClinicID.String()})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list dead letters sql: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list webhook_dead_letters: %w", err)
	}
	defer rows.Close()

	out := make([]entity.DeadLetter, 0)
	for rows.Next() {
		var (
			d         entity.DeadLetter
			eventType string
		)
		if err := rows.Scan(&d.ID, &d.EventID, &eventType, &d.ClinicID, &d.EndpointID, &d.Payload,
			&d.Attempts, &d.LastAttempt, &d.ErrorMessage, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook_dead_letter: %w", err)
		}
		d.EventType = entity.EventType(eventType)
		d.LastAttempt = utcPtr(d.LastAttempt)
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dead letter rows err: %w", err)
	}

	return out, nil
}
