package usecase

import (
	"context"
	"log/slog"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/constant"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
)

const defaultDeliveryLogLimit int32 = 20

type DeliveryLogsInput struct {
	Email string `validate:"omitempty,email,mailbox"`
	Limit int32  `validate:"omitempty,min=1,max=100"`
}

type DeliveryLogsOutput struct {
	Logs []entity.DeliveryLog
}

func (s *Usecase) DeliveryLogs(ctx context.Context, in DeliveryLogsInput) (*DeliveryLogsOutput, error) {
	ctx, span := s.startSpan(ctx, "DeliveryLogs")
	defer span.End()

	if _, err := s.authenticatedAndAuthorized(ctx, constant.ObjectVerification, constant.ActionRead); err != nil {
		return nil, err
	}

	in.Email = entity.NormalizeRecipient(in.Email)

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if in.Limit == 0 {
		in.Limit = defaultDeliveryLogLimit
	}

	logs, err := s.repoDB.ListDeliveryLogs(ctx, in.Email, in.Limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo list delivery logs", "recipient", in.Email, "error", err)
		return nil, goerror.NewServer(err)
	}

	return &DeliveryLogsOutput{Logs: logs}, nil
}
