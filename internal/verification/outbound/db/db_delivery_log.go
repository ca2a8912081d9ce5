package db

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"github.com/jackc/pgx/v5"
)

func (s *DB) CreateDeliveryLog(ctx context.Context, dl entity.DeliveryLog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDeliveryLog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
INSERT INTO email_logs (id, recipient, subject, template, status, provider, message_id, error_message, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		dl.ID, dl.Recipient, dl.Subject, dl.Template, dl.Status.String(), dl.Provider,
		dl.MessageID, dl.ErrorMessage, dl.CreatedAt, dl.UpdatedAt,
	)
	return s.mapError(err)
}

func (s *DB) UpdateDeliveryLog(ctx context.Context, up entity.UpdateDeliveryLog) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateDeliveryLog")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `
UPDATE email_logs
SET status = $2, message_id = $3, error_message = $4, updated_at = $5
WHERE id = $1`, up.ID, up.Status.String(), up.MessageID, up.ErrorMessage, up.UpdatedAt)
	if err != nil {
		return s.mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return goerror.ErrNotFound
	}

	return nil
}

// ListDeliveryLogs returns the newest logs first. An empty recipient matches all.
func (s *DB) ListDeliveryLogs(ctx context.Context, recipient string, limit int32) (_ []entity.DeliveryLog, err error) {
	ctx, span := s.startSpan(ctx, "ListDeliveryLogs")
	defer func() { s.endSpan(span, err) }()

	rows, err := s.conn.Query(ctx, `
SELECT id, recipient, subject, template, status, provider, message_id, error_message, created_at, updated_at
FROM email_logs
WHERE ($1 = '' OR recipient = $1)
ORDER BY created_at DESC, id DESC
LIMIT $2`, recipient, limit)
	if err != nil {
		return nil, s.mapError(err)
	}

	logs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.DeliveryLog, error) {
		var (
			dl     entity.DeliveryLog
			status string
		)
		err := row.Scan(&dl.ID, &dl.Recipient, &dl.Subject, &dl.Template, &status, &dl.Provider,
			&dl.MessageID, &dl.ErrorMessage, &dl.CreatedAt, &dl.UpdatedAt)
		dl.Status = entity.DeliveryStatus(status)
		dl.CreatedAt = dl.CreatedAt.UTC()
		dl.UpdatedAt = dl.UpdatedAt.UTC()
		return dl, err
	})
	if err != nil {
		return nil, s.mapError(err)
	}

	return logs, nil
}
