package usecase

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/entity"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/validator"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateDeliveryLog(ctx context.Context, dl entity.DeliveryLog) error
	UpdateDeliveryLog(ctx context.Context, up entity.UpdateDeliveryLog) error
	HasSentDeliveryLog(ctx context.Context, recipient, template, requestID string) (bool, error)
}

type repoMail interface {
	Provider() string
	Send(ctx context.Context, msg mail.Message) (string, error)
}

type renderer interface {
	Render(name emailtemplate.Name, data map[string]any) (emailtemplate.Rendered, error)
}

type Usecase struct {
	repoDB    repoDB
	repoMail  repoMail
	templates renderer
	uid       uid.NumberID
	clock     clock.Clocker
	validator validator.Validator
	ins       instrument.Instrumentation
}

type Dependency struct {
	RepoDB     repoDB
	RepoMail   repoMail
	Templates  renderer
	UID        uid.NumberID
	Clock      clock.Clocker
	Validator  validator.Validator
	Instrument instrument.Instrumentation
}

func NewNotification(dep Dependency) *Usecase {
	return &Usecase{
		repoDB:    dep.RepoDB,
		repoMail:  dep.RepoMail,
		templates: dep.Templates,
		uid:       dep.UID,
		clock:     dep.Clock,
		validator: dep.Validator,
		ins:       dep.Instrument,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}
