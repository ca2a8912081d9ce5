package notification

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/inbound"
	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/outbound/db"
	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/outbound/email"
	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/usecase"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goroutine"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/messaging"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/validator"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependency struct {
	Ctx        context.Context
	DBConn     *pgxpool.Pool              `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Templates  *emailtemplate.Registry    `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	provider := string(mail.ParseDriver(dep.Config.GetString("mail.driver")))

	uc := usecase.NewNotification(usecase.Dependency{
		RepoDB:     db.NewDB(dep.DBConn, dep.Instrument),
		RepoMail:   email.New(dep.Mail, provider, dep.Instrument),
		Templates:  dep.Templates,
		UID:        dep.UID,
		Clock:      dep.Clock,
		Validator:  dep.Validator,
		Instrument: dep.Instrument,
	})

	if dep.Ctx != nil {
		inbound.RegisterMQConsumer(dep.Ctx, dep.Config, dep.Goroutine, dep.Messaging, dep.UUID, uc, dep.Instrument)
	}

	return nil
}
