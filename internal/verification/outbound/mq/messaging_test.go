package mq

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/instrument"
	"github.com/actg5grafindo/admin-pro-v005v/internal/pkg/messaging"
	"github.com/actg5grafindo/admin-pro-v005v/internal/shared/event"
	"github.com/actg5grafindo/admin-pro-v005v/internal/verification/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingBroker struct {
	messaging.Messaging
	dest string
	msg  messaging.OutgoingMessage
	err  error
}

func (b *recordingBroker) Publish(_ context.Context, destination string, msg messaging.OutgoingMessage) (messaging.PublishResult, error) {
	b.dest, b.msg = destination, msg
	return messaging.PublishResult{MessageID: "1"}, b.err
}

func TestMessaging_PublishRecipientVerified(t *testing.T) {
	at := time.Date(2026, 10, 15, 9, 0, 0, 0, time.UTC)
	ctx := instrument.SetCorrelationID(context.Background(), "cid-1")

	t.Run("Success", func(t *testing.T) {
		b := &recordingBroker{}
		m := NewMessaging(b, instrument.NewNoop())

		err := m.PublishRecipientVerified(ctx, usecase.RecipientVerifiedEvent{
			Recipient:  "user@example.com",
			RequestID:  "req-1",
			VerifiedAt: at,
		})
		require.NoError(t, err)

		assert.Equal(t, event.RecipientVerifiedDestination, b.dest)
		assert.Equal(t, "user@example.com", string(b.msg.Key))
		require.Len(t, b.msg.Headers, 1)
		assert.Equal(t, "cid-1", string(b.msg.Headers[0].Value))

		var got event.RecipientVerifiedMessage
		require.NoError(t, json.Unmarshal(b.msg.Body, &got))
		assert.Equal(t, "user@example.com", got.Recipient)
		assert.Equal(t, "req-1", got.RequestID)
		assert.True(t, got.VerifiedAt.Equal(at))
	})

	t.Run("BrokerError", func(t *testing.T) {
		b := &recordingBroker{err: errors.New("broker down")}
		m := NewMessaging(b, instrument.NewNoop())

		err := m.PublishRecipientVerified(ctx, usecase.RecipientVerifiedEvent{Recipient: "user@example.com"})
		assert.EqualError(t, err, "broker down")
	})

	t.Run("MemoryBroker", func(t *testing.T) {
		broker := messaging.NewMemory(4)
		t.Cleanup(func() { _ = broker.Close() })

		// No consumer yet: the publish succeeds and the event is dropped.
		m := NewMessaging(broker, instrument.NewNoop())
		assert.NoError(t, m.PublishRecipientVerified(ctx, usecase.RecipientVerifiedEvent{Recipient: "user@example.com"}))
	})
}
