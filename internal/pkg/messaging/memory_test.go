package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitSubscribed(t *testing.T, m *Memory, source string, groups int) {
	t.Helper()
	require.Eventually(t, func() bool {
		m.mu.RLock()
		defer m.mu.RUnlock()
		return len(m.groups[source]) == groups
	}, time.Second, 5*time.Millisecond)
}

func TestMemory_PublishConsume(t *testing.T) {
	m := NewMemory(8)
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan Message, 4)
	done := make(chan error, 1)
	go func() {
		done <- m.Consume(ctx, "recipient_verified", func(_ context.Context, msg Message) error {
			got <- msg
			return nil
		}, WithGroup("notification"), WithAutoAck(true))
	}()
	waitSubscribed(t, m, "recipient_verified", 1)

	res, err := m.Publish(ctx, "recipient_verified", OutgoingMessage{
		Key:     []byte("a@b.com"),
		Body:    []byte(`{"recipient":"a@b.com"}`),
		Headers: []Header{{Key: "cID", Value: []byte("cid-1")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "1", res.MessageID)
	assert.Equal(t, "recipient_verified", res.Destination)

	select {
	case msg := <-got:
		assert.Equal(t, `{"recipient":"a@b.com"}`, string(msg.Body()))
		assert.Equal(t, "a@b.com", string(msg.Key()))
		assert.Equal(t, "recipient_verified", msg.Source())
		assert.Equal(t, 1, msg.Attempt())
		cid, ok := HeaderValue(msg.Headers(), "cID")
		assert.True(t, ok)
		assert.Equal(t, "cid-1", cid)
	case <-time.After(time.Second):
		t.Fatal("message not delivered")
	}

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestMemory_GroupsReceiveEachMessage(t *testing.T) {
	m := NewMemory(8)
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	seen := map[string]int{}
	for _, group := range []string{"notification", "audit"} {
		go func() {
			_ = m.Consume(ctx, "topic", func(context.Context, Message) error {
				mu.Lock()
				defer mu.Unlock()
				seen[group]++
				return nil
			}, WithGroup(group))
		}()
	}
	waitSubscribed(t, m, "topic", 2)

	_, err := m.Publish(ctx, "topic", OutgoingMessage{Body: []byte("x")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return seen["notification"] == 1 && seen["audit"] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestMemory_RedeliversOnceOnError(t *testing.T) {
	m := NewMemory(8)
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var attempts []int
	go func() {
		_ = m.Consume(ctx, "topic", func(_ context.Context, msg Message) error {
			mu.Lock()
			defer mu.Unlock()
			attempts = append(attempts, msg.Attempt())
			return errors.New("smtp down")
		}, WithAutoAck(true))
	}()
	waitSubscribed(t, m, "topic", 1)

	_, err := m.Publish(ctx, "topic", OutgoingMessage{Body: []byte("x")})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(attempts) == 2
	}, time.Second, 5*time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	mu.Lock()
	assert.Equal(t, []int{1, 2}, attempts)
	mu.Unlock()
}

func TestMemory_PanicIsRecovered(t *testing.T) {
	m := NewMemory(8)
	t.Cleanup(func() { _ = m.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	calls := 0
	go func() {
		_ = m.Consume(ctx, "topic", func(context.Context, Message) error {
			mu.Lock()
			calls++
			mu.Unlock()
			panic("boom")
		})
	}()
	waitSubscribed(t, m, "topic", 1)

	for range 2 {
		_, err := m.Publish(ctx, "topic", OutgoingMessage{Body: []byte("x")})
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls == 2
	}, time.Second, 5*time.Millisecond)
}

func TestMemory_Validation(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()

	_, err := m.Publish(ctx, "", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrDestinationRequired)

	assert.ErrorIs(t, m.Consume(ctx, "topic", nil), ErrHandlerRequired)
	assert.ErrorIs(t, m.Consume(ctx, "", func(context.Context, Message) error { return nil }), ErrDestinationRequired)

	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	_, err = m.Publish(ctx, "topic", OutgoingMessage{})
	assert.ErrorIs(t, err, ErrClosed)
}

func TestNewFromDriver(t *testing.T) {
	ctx := context.Background()

	client, err := NewFromDriver(ctx, DriverMemory, FactoryOptions{})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, client)

	_, err = NewFromDriver(ctx, "rabbitmq", FactoryOptions{})
	assert.ErrorIs(t, err, ErrUnknownDriver)

	_, err = NewFromDriver(ctx, DriverKafka, FactoryOptions{})
	assert.ErrorIs(t, err, ErrKafkaBrokersRequired)

	_, err = NewFromDriver(ctx, DriverNATS, FactoryOptions{})
	assert.ErrorIs(t, err, ErrNATSURLRequired)

	_, err = NewFromDriver(ctx, DriverGooglePubSub, FactoryOptions{})
	assert.ErrorIs(t, err, ErrPubSubProjectIDRequired)
}
