package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/agenciaspace/clinione-sub001/internal/application/entity"
)

func (r *RepoImpl) ListDeliveryLogs(ctx context.Context, f entity.DeliveryLogFilter) ([]entity.DeliveryLog, error) {
	q := r.psql.Select(deliveryLogColumns).
		From("webhook_delivery_logs").
		OrderBy("id").
		Limit(limitOrDefault(f.Limit))

	if f.EventID != nil {
		q = q.Where(sq.Eq{"event_id": f.EventID.String()})
	}
	if f.ClinicID != nil {
		q = q.Where(sq.Eq{"clinic_id": f.ClinicID.String()})
	}
	if f.Status != "" {
		q = q.Where(sq.Eq{"status": string(f.Status)})
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list delivery logs sql: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list webhook_delivery_logs: %w", err)
	}
	defer rows.Close()

	logs := make([]entity.DeliveryLog, 0)
	for rows.Next() {
		var (
			l      entity.DeliveryLog
			status string
		)
		if err := rows.Scan(&l.ID, &l.EventID, &l.EndpointID, &l.ClinicID, &status, &l.ResponseCode,
			&l.ResponseBody, &l.RetryCount, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan webhook_delivery_log: %w", err)
		}
		l.Status = entity.DeliveryStatus(status)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("delivery log rows err: %w", err)
	}

	return logs, nil
}
