package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goerror"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/entity"
)

// canIssue allows issuance when the recipient has no request or the last one
// was issued at least one cooldown ago. It never mutates the store.
func (s *Usecase) canIssue(ctx context.Context, recipient string, st settings) (bool, time.Duration, error) {
	storeCtx, cancel := context.WithTimeout(ctx, st.storeTimeout)
	defer cancel()

	req, err := s.repoStore.Peek(storeCtx, recipient)
	if errors.Is(err, goerror.ErrNotFound) {
		return true, 0, nil
	}
	if err != nil {
		return false, 0, err
	}

	elapsed := s.clock.Now().Sub(req.IssuedAt)
	if elapsed >= st.cooldown {
		return true, 0, nil
	}

	return false, min(st.cooldown-elapsed, st.cooldown), nil
}

func (s *Usecase) checkCooldown(ctx context.Context, recipient string, st settings) error {
	allowed, retryAfter, err := s.canIssue(ctx, recipient, st)
	if err != nil {
		slog.ErrorContext(ctx, "failed to repo peek verification request", "recipient", recipient, "error", err)
		return toError(entity.NewStorageUnavailable(err))
	}
	if allowed {
		return nil
	}

	slog.WarnContext(ctx, "verification code requested during cooldown", "recipient", recipient, "seconds_remaining", ceilSeconds(retryAfter))
	return toError(entity.NewCooldownActive(ceilSeconds(retryAfter)))
}
