package db

import (
	"context"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
)

// MarkRecipientVerified flags the profile as verified. A profile that is
// already verified keeps its original verification time.
func (s *DB) MarkRecipientVerified(ctx context.Context, recipient string, at time.Time) (err error) {
	ctx, span := s.startSpan(ctx, "MarkRecipientVerified")
	defer func() { s.endSpan(span, err) }()

	_, err = s.conn.Exec(ctx, `
INSERT INTO profiles (email, email_verified, email_verified_at, created_at, updated_at)
VALUES ($1, TRUE, $2, $2, $2)
ON CONFLICT (email) DO UPDATE SET
    email_verified = TRUE,
    email_verified_at = COALESCE(profiles.email_verified_at, EXCLUDED.email_verified_at),
    updated_at = EXCLUDED.updated_at
WHERE profiles.email_verified = FALSE`, recipient, at)
	return s.mapError(err)
}

func (s *DB) GetRecipientStatus(ctx context.Context, recipient string) (_ *entity.RecipientStatus, err error) {
	ctx, span := s.startSpan(ctx, "GetRecipientStatus")
	defer func() { s.endSpan(span, err) }()

	out := entity.RecipientStatus{Recipient: recipient}
	err = s.conn.QueryRow(ctx, `
SELECT email_verified, email_verified_at
FROM profiles
WHERE email = $1`, recipient).Scan(&out.Verified, &out.VerifiedAt)
	if err != nil {
		return nil, s.mapError(err)
	}

	if out.VerifiedAt != nil {
		at := out.VerifiedAt.UTC()
		out.VerifiedAt = &at
	}

	return &out, nil
}
