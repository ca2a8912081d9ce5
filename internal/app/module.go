package app

import (
	"log/slog"

	"github.com/actg5grafindo/admin-pro-v005v/internal/notification"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification"
)

// initModules wires the feature modules enabled under modules.*.
func (a *App) initModules() {
	if a.config.GetBool("modules.verification.enabled") {
		must(verification.New(verification.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			CacheConn:  a.cacheConn,
			Goroutine:  a.goroutine,
			Enforcer:   a.casbin,
			Router:     a.router,
			Messaging:  a.messaging,
			Mail:       a.mail,
			Templates:  a.templates,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			HMAC:       a.hmac,
			Clock:      a.clock,
			Validator:  a.validator,
		}), "failed to init module", "module", "verification")
	}

	if a.config.GetBool("modules.notification.enabled") {
		if a.dbConn == nil {
			slog.Warn("module notification disabled, database is not configured")
			return
		}

		must(notification.New(notification.Dependency{
			Ctx:        a.ctx,
			DBConn:     a.dbConn,
			Messaging:  a.messaging,
			Mail:       a.mail,
			Templates:  a.templates,
			Goroutine:  a.goroutine,
			Config:     a.config,
			Instrument: a.ins,
			UID:        a.uid,
			UUID:       a.uuid,
			Clock:      a.clock,
			Validator:  a.validator,
		}), "failed to init module", "module", "notification")
	}
}
