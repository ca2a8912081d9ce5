package messaging

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/stacktrace"
)

// responder makes Ack and Nack take effect once per delivery.
type responder struct {
	done atomic.Bool
}

func (r *responder) claim() bool     { return !r.done.Swap(true) }
func (r *responder) responded() bool { return r.done.Load() }

type delivery interface {
	Message
	responded() bool
}

// deliver runs handler and settles msg when autoAck is set. It returns the
// settle error only; handler failures are logged and left to redelivery.
func deliver(ctx context.Context, driver string, msg delivery, handler Handler, autoAck bool) error {
	herr := callHandler(ctx, driver, msg, handler)
	if herr != nil {
		slog.WarnContext(ctx, "message handler failed",
			"driver", driver,
			"source", msg.Source(),
			"message_id", msg.ID(),
			"attempt", msg.Attempt(),
			"error", herr,
		)
	}

	if !autoAck || msg.responded() {
		return nil
	}
	if herr != nil {
		return msg.Nack(ctx)
	}
	return msg.Ack(ctx)
}

func callHandler(ctx context.Context, driver string, msg Message, handler Handler) (err error) {
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "panic in message handler", "driver", driver, "panic", rvr, "stack", stacktrace.Stack())
			err = fmt.Errorf("messaging: panic in %s handler: %v", driver, rvr)
		}
	}()

	return handler(ctx, msg)
}
