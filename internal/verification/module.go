package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goroutine"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/hash"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/keylock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/messaging"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/router"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/validator"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/inbound"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/outbound/cache"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/outbound/db"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/outbound/email"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/outbound/memory"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/outbound/mq"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/usecase"
	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const (
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

var (
	ErrUnknownStoreDriver = errors.New("verification: unknown store driver")
	ErrCacheRequired      = errors.New("verification: redis connection is required for the redis store")
	ErrDBRequired         = errors.New("verification: database connection is required for the postgres store")
)

type Dependency struct {
	Ctx        context.Context
	DBConn     *pgxpool.Pool
	CacheConn  redis.UniversalClient
	Goroutine  *goroutine.Manager         `validate:"required"`
	Enforcer   *casbin.Enforcer           `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Mail       mail.Mail                  `validate:"required"`
	Templates  *emailtemplate.Registry    `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	HMAC       hash.Hash                  `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

type requestStore interface {
	Put(ctx context.Context, req entity.VerificationRequest) error
	Get(ctx context.Context, recipient string) (*entity.VerificationRequest, error)
	Peek(ctx context.Context, recipient string) (*entity.VerificationRequest, error)
	Consume(ctx context.Context, recipient, id string) (bool, error)
	DecrementAttempts(ctx context.Context, recipient, id string) (int, error)
}

type recipientDB interface {
	MarkRecipientVerified(ctx context.Context, recipient string, at time.Time) error
	GetRecipientStatus(ctx context.Context, recipient string) (*entity.RecipientStatus, error)
	CreateDeliveryLog(ctx context.Context, dl entity.DeliveryLog) error
	UpdateDeliveryLog(ctx context.Context, up entity.UpdateDeliveryLog) error
	ListDeliveryLogs(ctx context.Context, recipient string, limit int32) ([]entity.DeliveryLog, error)
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	ctx := dep.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	var (
		dbVerif *db.DB
		mem     *memory.Store
	)
	if dep.DBConn != nil {
		dbVerif = db.NewDB(dep.DBConn, dep.Clock, dep.Instrument)
		if dep.Config.GetBool("database.auto_migrate") {
			if err := dbVerif.Migrate(ctx); err != nil {
				return fmt.Errorf("verification: migrate schema: %w", err)
			}
		}
	}

	retention := dep.Config.GetHour("modules.verification.store.expired_retention_hours")
	driver := dep.Config.GetString("modules.verification.store.driver")

	var repoStore requestStore
	switch driver {
	case StoreDriverRedis, "":
		if dep.CacheConn == nil {
			return ErrCacheRequired
		}
		repoStore = cache.NewStore(dep.CacheConn, dep.Clock, dep.Instrument, retention)
	case StoreDriverPostgres:
		if dbVerif == nil {
			return ErrDBRequired
		}
		repoStore = dbVerif
		runSweeper(ctx, dep, dbVerif, retention)
	case StoreDriverMemory:
		mem = memory.NewStore(dep.Clock)
		repoStore = mem
	default:
		return fmt.Errorf("%w: %s", ErrUnknownStoreDriver, driver)
	}

	var repoDB recipientDB
	if dbVerif != nil {
		repoDB = dbVerif
	} else {
		if mem == nil {
			mem = memory.NewStore(dep.Clock)
		}
		repoDB = mem
		slog.WarnContext(ctx, "verification profiles and delivery logs are kept in memory", "store", driver)
	}

	var locker keylock.Locker = keylock.NewMemory(dep.Clock)
	if dep.CacheConn != nil {
		locker = keylock.NewRedis(dep.CacheConn, "verification:lock:")
	}

	provider := string(mail.ParseDriver(dep.Config.GetString("mail.driver")))

	uc := usecase.New(usecase.Dependency{
		RepoStore:     repoStore,
		RepoDB:        repoDB,
		RepoGateway:   email.NewGateway(dep.Mail, provider, dep.Instrument),
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		Templates:     dep.Templates,
		Locker:        locker,
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		UID:           dep.UID,
		UUID:          uid.NewUUID(uid.WithPrefix("vr_")),
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Enforcer:      dep.Enforcer,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}

// runSweeper periodically deletes expired rows from the postgres store.
// Rows are kept for the retention window so late submissions still report
// an expired code instead of a missing one.
func runSweeper(ctx context.Context, dep Dependency, d *db.DB, retention time.Duration) {
	interval := dep.Config.GetMinute("modules.verification.store.sweep_interval_minutes")
	if interval <= 0 {
		return
	}

	dep.Goroutine.Go(ctx, "verification.sweeper", func(ctx context.Context) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				n, err := d.PurgeExpired(ctx, dep.Clock.Now().Add(-retention))
				if err != nil {
					slog.ErrorContext(ctx, "failed to purge expired verification requests", "error", err)
					continue
				}
				if n > 0 {
					slog.InfoContext(ctx, "purged expired verification requests", "count", n)
				}
			}
		}
	})
}
