package inbound

import (
	"context"
	"errors"
	"log/slog"
	"slices"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/config"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/goroutine"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/messaging"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/uid"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/event"
)

func RegisterMQConsumer(
	ctx context.Context,
	cfg config.Config,
	routine *goroutine.Manager,
	messenger messaging.Messaging,
	uuid uid.StringID,
	uc uc,
	ins instrument.Instrumentation,
) {
	mqHandler := &MQHandler{uc: uc, uuid: uuid, ins: ins}

	enableConsumerNames := cfg.GetArray("modules.notification.consumer_names")
	concurrency := cfg.GetInt("modules.notification.consumer_concurrency")
	if concurrency <= 0 {
		concurrency = 10
	}

	var consumers = []struct {
		name    string // consumer group: nsq channel, nats queue group, kafka group or pubsub subscription
		topic   string // destination where publisher sent message
		handler messaging.Handler
	}{
		{
			name:    event.RecipientVerifiedConsumerNotification,
			topic:   event.RecipientVerifiedDestination,
			handler: mqHandler.RecipientVerifiedNotification,
		},
	}

	for _, consumer := range consumers {
		if len(enableConsumerNames) == 0 || slices.Contains(enableConsumerNames, consumer.name) {
			routine.Go(ctx, consumer.name, func(pCtx context.Context) error {
				slog.InfoContext(ctx, "Running job for handling consumer", "consumer", consumer.name)
				err := messenger.Consume(pCtx,
					consumer.topic,
					consumer.handler,
					messaging.WithGroup(consumer.name),
					messaging.WithAutoAck(true),
					messaging.WithConcurrency(concurrency),
					messaging.WithMaxInFlight(concurrency),
				)
				if errors.Is(err, context.Canceled) || errors.Is(err, messaging.ErrClosed) {
					return nil
				}
				return err
			})
		}
	}
}
