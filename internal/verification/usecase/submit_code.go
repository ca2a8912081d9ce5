package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"github.com/sethvargo/go-retry"
)

type SubmitCodeInput struct {
	Email string `validate:"required,email,mailbox"`
	Code  string `validate:"required,otpcode"`
}

type SubmitCodeOutput struct {
	Recipient  string
	Verified   bool
	VerifiedAt time.Time
}

func (s *Usecase) SubmitCode(ctx context.Context, in SubmitCodeInput) (out *SubmitCodeOutput, err error) {
	ctx, span := s.startSpan(ctx, "SubmitCode")
	defer span.End()
	defer func() { s.count(ctx, s.submittedCounter, resultOf(err)) }()

	in.Email = entity.NormalizeRecipient(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	st := s.settings()

	req, err := s.getPending(ctx, in.Email, st)
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "code submitted without pending request", "recipient", in.Email)
		return nil, toError(entity.ErrNoPendingRequest)
	}
	if errors.Is(err, entity.ErrRequestExpired) {
		slog.WarnContext(ctx, "code submitted for expired request", "recipient", in.Email)
		return nil, toError(entity.ErrExpired)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo get verification request", "recipient", in.Email, "error", err)
		return nil, toError(entity.NewStorageUnavailable(err))
	}

	now := s.clock.Now()

	if req.Expired(now) {
		if _, err := s.consume(ctx, req, st); err != nil {
			slog.ErrorContext(ctx, "failed to repo consume expired request", "recipient", in.Email, "request_id", req.ID, "error", err)
		}
		return nil, toError(entity.ErrExpired)
	}

	if req.Exhausted() {
		return nil, s.exhaust(ctx, req, st)
	}

	if !s.hmac.Verify(req.CodeHash, in.Code) {
		return nil, s.rejectAttempt(ctx, req, st)
	}

	// The verified flag is set before consuming so a failed write leaves the
	// request in place for a retry. Only the consume winner reports success.
	if err := s.repoDB.MarkRecipientVerified(ctx, in.Email, now); err != nil {
		slog.ErrorContext(ctx, "failed to repo mark recipient verified", "recipient", in.Email, "error", err)
		return nil, toError(entity.NewStorageUnavailable(err))
	}

	won, err := s.consume(ctx, req, st)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume verified request", "recipient", in.Email, "request_id", req.ID, "error", err)
		return nil, toError(entity.NewStorageUnavailable(err))
	}
	if !won {
		slog.WarnContext(ctx, "verification request consumed concurrently", "recipient", in.Email, "request_id", req.ID)
		return nil, toError(entity.ErrNoPendingRequest)
	}

	if err := s.repoMessaging.PublishRecipientVerified(ctx, RecipientVerifiedEvent{
		Recipient:  in.Email,
		RequestID:  req.ID,
		VerifiedAt: now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to publish recipient verified", "recipient", in.Email, "error", err)
	}

	slog.InfoContext(ctx, "recipient verified", "recipient", in.Email, "request_id", req.ID)

	return &SubmitCodeOutput{Recipient: in.Email, Verified: true, VerifiedAt: now}, nil
}

// getPending reads the request, retrying transient store failures. Reads are
// the only store calls that are retried.
func (s *Usecase) getPending(ctx context.Context, recipient string, st settings) (*entity.VerificationRequest, error) {
	var req *entity.VerificationRequest

	backoff := retry.WithMaxRetries(2, retry.NewFibonacci(50*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		storeCtx, cancel := context.WithTimeout(ctx, st.storeTimeout)
		defer cancel()

		got, err := s.repoStore.Get(storeCtx, recipient)
		if err == nil {
			req = got
			return nil
		}
		if errors.Is(err, goerror.ErrNotFound) || errors.Is(err, entity.ErrRequestExpired) {
			return err
		}
		slog.WarnContext(ctx, "retrying verification request read", "recipient", recipient, "error", err)
		return retry.RetryableError(err)
	})

	return req, err
}

func (s *Usecase) consume(ctx context.Context, req *entity.VerificationRequest, st settings) (bool, error) {
	storeCtx, cancel := context.WithTimeout(ctx, st.storeTimeout)
	defer cancel()

	return s.repoStore.Consume(storeCtx, req.Recipient, req.ID)
}

func (s *Usecase) rejectAttempt(ctx context.Context, req *entity.VerificationRequest, st settings) error {
	storeCtx, cancel := context.WithTimeout(ctx, st.storeTimeout)
	remaining, err := s.repoStore.DecrementAttempts(storeCtx, req.Recipient, req.ID)
	cancel()
	if errors.Is(err, goerror.ErrNotFound) {
		slog.WarnContext(ctx, "verification request gone before decrement", "recipient", req.Recipient, "request_id", req.ID)
		return toError(entity.ErrNoPendingRequest)
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo decrement attempts", "recipient", req.Recipient, "request_id", req.ID, "error", err)
		return toError(entity.NewStorageUnavailable(err))
	}

	if remaining <= 0 {
		return s.exhaust(ctx, req, st)
	}

	slog.WarnContext(ctx, "invalid verification code", "recipient", req.Recipient, "attempts_remaining", remaining)
	return toError(entity.NewInvalidCode(remaining))
}

// exhaust consumes a request with no attempts left. Only the caller whose
// consume removed the request reports AttemptsExhausted.
func (s *Usecase) exhaust(ctx context.Context, req *entity.VerificationRequest, st settings) error {
	won, err := s.consume(ctx, req, st)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo consume exhausted request", "recipient", req.Recipient, "request_id", req.ID, "error", err)
		return toError(entity.NewStorageUnavailable(err))
	}
	if !won {
		return toError(entity.ErrNoPendingRequest)
	}

	slog.WarnContext(ctx, "verification attempts exhausted", "recipient", req.Recipient, "request_id", req.ID)
	return toError(entity.ErrAttemptsExhausted)
}
