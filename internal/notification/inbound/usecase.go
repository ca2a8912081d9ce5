package inbound

import (
	"context"

	"github.com/actg5grafindo/admin-pro-v005v/internal/notification/usecase"
)

type uc interface {
	ConsumeRecipientVerified(ctx context.Context, in usecase.ConsumeRecipientVerifiedInput) error
}
