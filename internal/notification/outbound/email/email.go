package email

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Mail struct {
	client   mail.Mail
	provider string
	ins      instrument.Instrumentation
}

func New(client mail.Mail, provider string, ins instrument.Instrumentation) *Mail {
	return &Mail{client: client, provider: provider, ins: ins}
}

func (m *Mail) Provider() string {
	return m.provider
}

func (m *Mail) Send(ctx context.Context, msg mail.Message) (string, error) {
	ctx, span := m.ins.Tracer("notification.outbound.email").Start(ctx, "Send")
	defer span.End()

	span.SetAttributes(attribute.String("mail.provider", m.provider))

	id, err := m.client.Send(ctx, msg)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return id, nil
}
