package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/keylock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
)

type RequestCodeInput struct {
	Email string `validate:"required,email,mailbox"`
}

type RequestCodeOutput struct {
	RequestID         string
	Recipient         string
	ExpiresAt         time.Time
	ResendAvailableAt time.Time
	MaxAttempts       int
}

func (s *Usecase) RequestCode(ctx context.Context, in RequestCodeInput) (out *RequestCodeOutput, err error) {
	ctx, span := s.startSpan(ctx, "RequestCode")
	defer span.End()
	defer func() { s.count(ctx, s.requestedCounter, resultOf(err)) }()

	in.Email = entity.NormalizeRecipient(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	st := s.settings()

	release, err := s.locker.Acquire(ctx, "verification:issue:"+in.Email, st.lockTTL)
	if errors.Is(err, keylock.ErrLocked) {
		slog.WarnContext(ctx, "verification code issuance already in progress", "recipient", in.Email)
		return nil, toError(entity.NewCooldownActive(ceilSeconds(st.cooldown)))
	}
	if err != nil {
		slog.ErrorContext(ctx, "failed to acquire issuance lock", "recipient", in.Email, "error", err)
		return nil, toError(entity.NewStorageUnavailable(err))
	}
	defer func() {
		if errRelease := release(context.WithoutCancel(ctx)); errRelease != nil {
			slog.WarnContext(ctx, "failed to release issuance lock", "recipient", in.Email, "error", errRelease)
		}
	}()

	if err := s.checkCooldown(ctx, in.Email, st); err != nil {
		return nil, err
	}

	code, err := s.generator.Generate()
	if err != nil {
		slog.ErrorContext(ctx, "failed to generate verification code", "error", err)
		return nil, goerror.NewServer(err)
	}

	codeHash, err := s.hmac.Hash(code)
	if err != nil {
		slog.ErrorContext(ctx, "failed to hash verification code", "error", err)
		return nil, goerror.NewServer(err)
	}

	now := s.clock.Now()
	req := entity.VerificationRequest{
		ID:                s.uuid.Generate(),
		Recipient:         in.Email,
		CodeHash:          string(codeHash),
		IssuedAt:          now,
		ExpiresAt:         now.Add(st.ttl),
		RemainingAttempts: st.maxAttempts,
	}

	storeCtx, cancel := context.WithTimeout(ctx, st.storeTimeout)
	err = s.repoStore.Put(storeCtx, req)
	cancel()
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo put verification request", "recipient", in.Email, "error", err)
		return nil, toError(entity.NewStorageUnavailable(err))
	}

	if err := s.deliverCode(ctx, req, code, st); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "verification code issued", "recipient", in.Email, "request_id", req.ID, "expires_at", req.ExpiresAt)

	return &RequestCodeOutput{
		RequestID:         req.ID,
		Recipient:         req.Recipient,
		ExpiresAt:         req.ExpiresAt,
		ResendAvailableAt: req.IssuedAt.Add(st.cooldown),
		MaxAttempts:       req.RemainingAttempts,
	}, nil
}

// deliverCode renders and sends the code, tracking the attempt in the delivery
// log. The stored request is kept when sending fails so the caller may retry
// after the cooldown.
func (s *Usecase) deliverCode(ctx context.Context, req entity.VerificationRequest, code string, st settings) error {
	rendered, err := s.templates.Render(emailtemplate.VerificationCode, map[string]any{
		"code":               code,
		"expires_in_minutes": int(st.ttl.Minutes()),
		"max_attempts":       st.maxAttempts,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to render verification email", "recipient", req.Recipient, "error", err)
		return toError(entity.NewDeliveryFailed(err))
	}

	now := s.clock.Now()
	dl := entity.DeliveryLog{
		ID:        s.uid.Generate(),
		Recipient: req.Recipient,
		Subject:   rendered.Subject,
		Template:  rendered.Template.String(),
		Status:    entity.DeliveryStatusQueued,
		Provider:  s.repoGateway.Provider(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	logged := true
	if err := s.repoDB.CreateDeliveryLog(ctx, dl); err != nil {
		logged = false
		slog.ErrorContext(ctx, "failed to repo create delivery log", "recipient", req.Recipient, "error", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, st.gatewayTimeout)
	messageID, sendErr := s.repoGateway.Send(sendCtx, entity.Email{
		Recipient: req.Recipient,
		Template:  rendered.Template.String(),
		Subject:   rendered.Subject,
		HTMLBody:  rendered.HTML,
		TextBody:  rendered.Text,
	})
	cancel()

	up := entity.UpdateDeliveryLog{
		ID:        dl.ID,
		Status:    entity.DeliveryStatusSent,
		MessageID: messageID,
		UpdatedAt: s.clock.Now(),
	}
	if sendErr != nil {
		up.Status = entity.DeliveryStatusFailed
		up.ErrorMessage = sendErr.Error()
	}
	if logged {
		if err := s.repoDB.UpdateDeliveryLog(ctx, up); err != nil {
			slog.ErrorContext(ctx, "failed to repo update delivery log", "log_id", dl.ID, "status", up.Status.String(), "error", err)
		}
	}

	if sendErr != nil {
		slog.ErrorContext(ctx, "failed to send verification email", "recipient", req.Recipient, "request_id", req.ID, "error", sendErr)
		return toError(entity.NewDeliveryFailed(sendErr))
	}

	return nil
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	var verr *entity.Error
	if errors.As(err, &verr) {
		return verr.Kind.String()
	}
	var gerr *goerror.Error
	if errors.As(err, &gerr) {
		return gerr.Code().String()
	}
	return "error"
}
