package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/router"
)

const (
	healthUp       = "up"
	healthDown     = "down"
	healthDisabled = "disabled"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Redis    string `json:"redis"`
}

func (a *App) health(r *router.Request) (any, error) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: healthUp, Database: healthDisabled, Redis: healthDisabled}

	if a.dbConn != nil {
		resp.Database = healthUp
		if err := a.dbConn.Ping(ctx); err != nil {
			slog.WarnContext(ctx, "health check failed", "name", "database", "error", err)
			resp.Database = healthDown
			resp.Status = healthDown
		}
	}

	if a.cacheConn != nil {
		resp.Redis = healthUp
		if err := a.cacheConn.Ping(ctx).Err(); err != nil {
			slog.WarnContext(ctx, "health check failed", "name", "redis", "error", err)
			resp.Redis = healthDown
			resp.Status = healthDown
		}
	}

	if resp.Status == healthDown {
		return nil, goerror.NewBusiness("Service is unhealthy", goerror.CodeUnavailable)
	}

	return resp, nil
}
