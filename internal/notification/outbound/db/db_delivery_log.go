package db

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/entity"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
)

func (s *DB) CreateDeliveryLog(ctx context.Context, dl entity.DeliveryLog) (err error) {
	ctx, span := s.startSpan(ctx, "CreateDeliveryLog")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
INSERT INTO email_logs (id, recipient, subject, template, status, provider, metadata, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)`,
		dl.ID, dl.Recipient, dl.Subject, dl.Template, dl.Status.String(), dl.Provider, dl.Metadata, dl.CreatedAt,
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

// HasSentDeliveryLog reports whether a template was already delivered for the
// verification request stored in the log metadata.
func (s *DB) HasSentDeliveryLog(ctx context.Context, recipient, template, requestID string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "HasSentDeliveryLog")
	defer func() { s.endSpan(span, err) }()

	var exists bool
	err = s.conn.QueryRow(ctx, `
SELECT EXISTS (
    SELECT 1 FROM email_logs
    WHERE recipient = $1 AND template = $2 AND status = $3 AND metadata ->> $4 = $5
)`, recipient, template, entity.DeliveryStatusSent.String(), entity.MetaRequestID, requestID).Scan(&exists)
	if err != nil {
		return false, s.mapError(err)
	}

	return exists, nil
}
