package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/entity"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/valueobject"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/event"
)

type ConsumeRecipientVerifiedInput struct {
	Email      string `validate:"required,email"`
	RequestID  string `validate:"required"`
	VerifiedAt time.Time
}

// ConsumeRecipientVerified sends the welcome email for a freshly verified recipient.
// Invalid payloads are dropped; a failed send is returned so the broker redelivers.
func (s *Usecase) ConsumeRecipientVerified(ctx context.Context, in ConsumeRecipientVerifiedInput) error {
	ctx, span := s.startSpan(ctx, "ConsumeRecipientVerified")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		slog.ErrorContext(ctx, "Validation failed", "error", err)
		return nil
	}

	sent, err := s.repoDB.HasSentDeliveryLog(ctx, in.Email, emailtemplate.Welcome.String(), in.RequestID)
	if err != nil {
		slog.WarnContext(ctx, "failed to repo check welcome delivery", "email", in.Email, "request_id", in.RequestID, "error", err)
	}
	if sent {
		slog.InfoContext(ctx, "welcome email already sent", "email", in.Email, "request_id", in.RequestID)
		return nil
	}

	data := map[string]any{"email": in.Email}
	if !in.VerifiedAt.IsZero() {
		data["verified_at"] = in.VerifiedAt.UTC().Format(time.RFC1123)
	}

	out, err := s.templates.Render(emailtemplate.Welcome, data)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render welcome email", "email", in.Email, "error", err)
		return nil
	}

	now := s.clock.Now()
	logID := s.uid.Generate()
	if err := s.repoDB.CreateDeliveryLog(ctx, entity.DeliveryLog{
		ID:        logID,
		Recipient: in.Email,
		Subject:   out.Subject,
		Template:  out.Template.String(),
		Status:    entity.DeliveryStatusQueued,
		Provider:  s.repoMail.Provider(),
		Metadata: valueobject.JSONMap{
			entity.MetaEvent:     event.RecipientVerifiedDestination,
			entity.MetaRequestID: in.RequestID,
		},
		CreatedAt: now,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to repo create delivery log", "email", in.Email, "error", err)
		logID = 0
	}

	messageID, mailErr := s.repoMail.Send(ctx, mail.Message{
		To:       []string{in.Email},
		Subject:  out.Subject,
		TextBody: out.Text,
		HTMLBody: out.HTML,
	})

	up := entity.UpdateDeliveryLog{
		ID:        logID,
		Status:    entity.DeliveryStatusSent,
		MessageID: messageID,
		UpdatedAt: s.clock.Now(),
	}
	if mailErr != nil {
		up.Status = entity.DeliveryStatusFailed
		up.ErrorMessage = mailErr.Error()
	}
	if logID != 0 {
		if err := s.repoDB.UpdateDeliveryLog(ctx, up); err != nil {
			slog.ErrorContext(ctx, "failed to repo update delivery log", "log_id", logID, "status", up.Status.String(), "error", err)
		}
	}

	if mailErr != nil {
		slog.ErrorContext(ctx, "failed to send welcome email", "log_id", logID, "email", in.Email, "error", mailErr)
		return mailErr
	}

	return nil
}
