package inbound

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/usecase"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/messaging"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/event"
)

const keyOfCorrelationID string = "cID"

type MQHandler struct {
	uc   uc
	uuid uid.StringID
	ins  instrument.Instrumentation
}

func (h *MQHandler) ensureCorrelationID(ctx context.Context, headers []messaging.Header) context.Context {
	if cID, ok := messaging.HeaderValue(headers, keyOfCorrelationID); ok && cID != "" {
		return instrument.SetCorrelationID(ctx, cID)
	}
	return instrument.SetCorrelationID(ctx, h.uuid.Generate())
}

func (h *MQHandler) RecipientVerifiedNotification(ctx context.Context, msg messaging.Message) error {
	ctx = h.ensureCorrelationID(ctx, msg.Headers())

	ctx, span := h.ins.Tracer("notification.inbound.mq").Start(ctx, "RecipientVerifiedNotification")
	defer span.End()

	body := msg.Body()
	slog.InfoContext(ctx, "consume: recipient verified notification", "message_id", msg.ID(), "attempt", msg.Attempt(), "msg_body", string(body))

	var payload event.RecipientVerifiedMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		slog.ErrorContext(ctx, "failed to parse message body of recipient verified notification", "msg_body", string(body), "error", err)
		return nil
	}

	if err := h.uc.ConsumeRecipientVerified(ctx, usecase.ConsumeRecipientVerifiedInput{
		Email:      payload.Recipient,
		RequestID:  payload.RequestID,
		VerifiedAt: payload.VerifiedAt,
	}); err != nil {
		slog.ErrorContext(ctx, "failed to consume recipient verified", "msg_body", string(body), "error", err)
		return err
	}

	return nil
}
