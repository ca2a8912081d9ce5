package app

import (
	"context"
	"net/http"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/clock"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goroutine"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/hash"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/jwt"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/mail"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/messaging"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/router"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/storage"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/validator"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/emailtemplate"
	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// App owns every process-wide resource of the verification service.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	config config.Config
	ins    instrument.Instrumentation

	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	hmac      hash.Hash
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.JWT
	templates *emailtemplate.Registry

	// dbConn, cacheConn and storage stay nil when not configured.
	dbConn    *pgxpool.Pool
	cacheConn redis.UniversalClient
	mail      mail.Mail
	messaging messaging.Messaging
	storage   storage.Storage
	casbin    *casbin.Enforcer

	router     *router.Router
	httpServer *http.Server

	// closers run in reverse registration order on Stop.
	closers []closer
}

type closer struct {
	name string
	fn   func(context.Context) error
}

func (a *App) onClose(name string, fn func(context.Context) error) {
	a.closers = append(a.closers, closer{name: name, fn: fn})
}

// New builds the application. Any failing step logs and exits the process.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{ctx: ctx, cancel: cancel}

	for _, step := range []func(){
		a.initConfig,
		a.initInstrument,
		a.initLibraries,
		a.initJWT,
		a.initDatabase,
		a.initCache,
		a.initMail,
		a.initStorage,
		a.initTemplates,
		a.initMessaging,
		a.initCasbin,
		a.initHTTPServer,
		a.initModules,
	} {
		step()
	}

	return a
}
