package db

import (
	"context"
	"errors"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"github.com/jackc/pgx/v5"
)

const selectRequest = `
SELECT id, recipient, code_hash, issued_at, expires_at, remaining_attempts
FROM verification_requests
WHERE recipient = $1`

func (s *DB) Put(ctx context.Context, req entity.VerificationRequest) (err error) {
	ctx, span := s.startSpan(ctx, "Put")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
INSERT INTO verification_requests (recipient, id, code_hash, issued_at, expires_at, remaining_attempts)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (recipient) DO UPDATE SET
    id = EXCLUDED.id,
    code_hash = EXCLUDED.code_hash,
    issued_at = EXCLUDED.issued_at,
    expires_at = EXCLUDED.expires_at,
    remaining_attempts = EXCLUDED.remaining_attempts`,
		req.Recipient, req.ID, req.CodeHash, req.IssuedAt, req.ExpiresAt, req.RemainingAttempts,
	)
	return s.mapError(err)
}

// Get returns the pending request. An expired request is removed and reported
// as entity.ErrRequestExpired.
func (s *DB) Get(ctx context.Context, recipient string) (_ *entity.VerificationRequest, err error) {
	ctx, span := s.startSpan(ctx, "Get")
	defer func() { s.endSpan(span, err) }()

	req, err := s.read(ctx, recipient)
	if err != nil {
		return nil, err
	}

	if req.Expired(s.clock.Now()) {
		if _, err := s.conn.Exec(ctx, `DELETE FROM verification_requests WHERE recipient = $1 AND id = $2`, recipient, req.ID); err != nil {
			return nil, s.mapError(err)
		}
		return nil, entity.ErrRequestExpired
	}

	return req, nil
}

func (s *DB) Peek(ctx context.Context, recipient string) (_ *entity.VerificationRequest, err error) {
	ctx, span := s.startSpan(ctx, "Peek")
	defer func() { s.endSpan(span, err) }()

	return s.read(ctx, recipient)
}

func (s *DB) Consume(ctx context.Context, recipient, id string) (_ bool, err error) {
	ctx, span := s.startSpan(ctx, "Consume")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM verification_requests WHERE recipient = $1 AND id = $2`, recipient, id)
	if err != nil {
		return false, s.mapError(err)
	}

	return tag.RowsAffected() == 1, nil
}

func (s *DB) DecrementAttempts(ctx context.Context, recipient, id string) (_ int, err error) {
	ctx, span := s.startSpan(ctx, "DecrementAttempts")
	defer func() { s.endSpan(span, err) }()

	var remaining int
	err = s.conn.QueryRow(ctx, `
UPDATE verification_requests
SET remaining_attempts = GREATEST(remaining_attempts - 1, 0)
WHERE recipient = $1 AND id = $2
RETURNING remaining_attempts`, recipient, id).Scan(&remaining)
	if err != nil {
		return 0, s.mapError(err)
	}

	return remaining, nil
}

// PurgeExpired deletes requests that expired before the given time.
func (s *DB) PurgeExpired(ctx context.Context, before time.Time) (_ int64, err error) {
	ctx, span := s.startSpan(ctx, "PurgeExpired")
	defer func() { s.endSpan(span, err) }()

	tag, err := s.conn.Exec(ctx, `DELETE FROM verification_requests WHERE expires_at < $1`, before)
	if err != nil {
		return 0, s.mapError(err)
	}

	return tag.RowsAffected(), nil
}

func (s *DB) read(ctx context.Context, recipient string) (*entity.VerificationRequest, error) {
	var req entity.VerificationRequest
	err := s.conn.QueryRow(ctx, selectRequest, recipient).Scan(
		&req.ID,
		&req.Recipient,
		&req.CodeHash,
		&req.IssuedAt,
		&req.ExpiresAt,
		&req.RemainingAttempts,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, goerror.ErrNotFound
	}
	if err != nil {
		return nil, s.mapError(err)
	}

	req.IssuedAt = req.IssuedAt.UTC()
	req.ExpiresAt = req.ExpiresAt.UTC()

	return &req, nil
}
