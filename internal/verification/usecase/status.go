package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/constant"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
)

type StatusInput struct {
	Email string `validate:"required,email,mailbox"`
}

type PendingRequest struct {
	RequestID         string
	IssuedAt          time.Time
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
	RemainingAttempts int
	Expired           bool
}

type StatusOutput struct {
	Recipient  string
	Verified   bool
	VerifiedAt *time.Time
	Pending    *PendingRequest
}

func (s *Usecase) Status(ctx context.Context, in StatusInput) (*StatusOutput, error) {
	ctx, span := s.startSpan(ctx, "Status")
	defer span.End()

	if _, err := s.authenticatedAndAuthorized(ctx, constant.ObjectVerification, constant.ActionRead); err != nil {
		return nil, err
	}

	in.Email = entity.NormalizeRecipient(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	out := &StatusOutput{Recipient: in.Email}

	rs, err := s.repoDB.GetRecipientStatus(ctx, in.Email)
	if err != nil && !errors.Is(err, goerror.ErrNotFound) {
		slog.ErrorContext(ctx, "failed to repo get recipient status", "recipient", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}
	if rs != nil {
		out.Verified = rs.Verified
		out.VerifiedAt = rs.VerifiedAt
	}

	st := s.settings()
	storeCtx, cancel := context.WithTimeout(ctx, st.storeTimeout)
	defer cancel()

	req, err := s.repoStore.Peek(storeCtx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return out, nil
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo peek verification request", "recipient", in.Email, "error", err)
		return nil, toError(entity.NewStorageUnavailable(err))
	}

	out.Pending = &PendingRequest{
		RequestID:         req.ID,
		IssuedAt:          req.IssuedAt,
		ExpiresAt:         req.ExpiresAt,
		ResendAvailableAt: req.IssuedAt.Add(st.cooldown),
		RemainingAttempts: req.RemainingAttempts,
		Expired:           req.Expired(s.clock.Now()),
	}

	return out, nil
}
