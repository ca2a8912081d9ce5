package email

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Gateway delivers verification emails through a mail provider.
type Gateway struct {
	mail     mail.Mail
	provider string
	ins      instrument.Instrumentation
}

func NewGateway(m mail.Mail, provider string, ins instrument.Instrumentation) *Gateway {
	return &Gateway{mail: m, provider: provider, ins: ins}
}

func (g *Gateway) Provider() string {
	return g.provider
}

func (g *Gateway) Send(ctx context.Context, email entity.Email) (string, error) {
	ctx, span := g.ins.Tracer("verification.outbound.email").Start(ctx, "Send")
	defer span.End()

	span.SetAttributes(
		attribute.String("mail.provider", g.provider),
		attribute.String("mail.template", email.Template),
	)

	id, err := g.mail.Send(ctx, mail.Message{
		To:       []string{email.Recipient},
		Subject:  email.Subject,
		TextBody: email.TextBody,
		HTMLBody: email.HTMLBody,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}

	return id, nil
}
