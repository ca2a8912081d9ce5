package inbound

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/router"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/usecase"
)

type uc interface {
	RequestCode(ctx context.Context, in usecase.RequestCodeInput) (*usecase.RequestCodeOutput, error)
	SubmitCode(ctx context.Context, in usecase.SubmitCodeInput) (*usecase.SubmitCodeOutput, error)

	Status(ctx context.Context, in usecase.StatusInput) (*usecase.StatusOutput, error)
	Invalidate(ctx context.Context, in usecase.InvalidateInput) error
	DeliveryLogs(ctx context.Context, in usecase.DeliveryLogsInput) (*usecase.DeliveryLogsOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	r.POST("/api/v1/verification/code", end.RequestCode, router.Public())
	r.POST("/api/v1/verification/verify", end.SubmitCode, router.Public())

	// Administration, authorized per role in the use case.
	r.GET("/api/v1/verification/status", end.Status)
	r.POST("/api/v1/verification/invalidate", end.Invalidate)
	r.GET("/api/v1/verification/delivery-logs", end.DeliveryLogs)
}
