package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/constant"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
)

type InvalidateInput struct {
	Email string `validate:"required,email,mailbox"`
}

// Invalidate discards the pending request of a recipient on behalf of an administrator.
func (s *Usecase) Invalidate(ctx context.Context, in InvalidateInput) error {
	ctx, span := s.startSpan(ctx, "Invalidate")
	defer span.End()

	clm, err := s.authenticatedAndAuthorized(ctx, constant.ObjectVerification, constant.ActionDelete)
	if err != nil {
		return err
	}

	in.Email = entity.NormalizeRecipient(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return goerror.NewInvalidInput(err)
	}

	st := s.settings()
	storeCtx, cancel := context.WithTimeout(ctx, st.storeTimeout)
	defer cancel()

	req, err := s.repoStore.Peek(storeCtx, in.Email)
	if errors.Is(err, goerror.ErrNotFound) {
		return toError(entity.ErrNoPendingRequest)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo peek verification request", "recipient", in.Email, "error", err)
		return toError(entity.NewStorageUnavailable(err))
	}

	won, err := s.repoStore.Consume(storeCtx, in.Email, req.ID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume verification request", "recipient", in.Email, "request_id", req.ID, "error", err)
		return toError(entity.NewStorageUnavailable(err))
	}
	if !won {
		return toError(entity.ErrNoPendingRequest)
	}

	slog.InfoContext(ctx, "verification request invalidated", "recipient", in.Email, "request_id", req.ID, "by", clm.Operator())

	return nil
}
