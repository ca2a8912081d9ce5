package messaging

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.uber.org/atomic"
)

const (
	defaultMemoryBuffer = 64
	defaultMemoryGroup  = "default"
	// memoryMaxAttempts bounds deliveries of a failing message.
	memoryMaxAttempts = 2
)

// Memory is an in-process broker for a single instance. Every consumer group
// of a destination receives each message once; messages published while a
// group has no consumer are dropped for that group.
type Memory struct {
	closed atomic.Bool
	seq    atomic.Uint64

	mu     sync.RWMutex
	groups map[string]map[string]chan *memoryMessage
	buffer int
	done   chan struct{}
}

// NewMemory constructs an in-process broker. buffer bounds the queued
// messages per consumer group.
func NewMemory(buffer int) *Memory {
	if buffer <= 0 {
		buffer = defaultMemoryBuffer
	}
	return &Memory{
		groups: make(map[string]map[string]chan *memoryMessage),
		buffer: buffer,
		done:   make(chan struct{}),
	}
}

// Close stops every consumer.
func (m *Memory) Close() error {
	if m.closed.Swap(true) {
		return nil
	}
	close(m.done)
	return nil
}

// Publish fans msg out to every consumer group of destination. It blocks
// while a group's buffer is full.
func (m *Memory) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if m.closed.Load() {
		return PublishResult{}, ErrClosed
	}

	id := strconv.FormatUint(m.seq.Inc(), 10)
	now := time.Now()

	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, ch := range m.groups[destination] {
		mm := &memoryMessage{
			id:        id,
			topic:     destination,
			body:      append([]byte(nil), msg.Body...),
			key:       append([]byte(nil), msg.Key...),
			headers:   cloneHeaders(msg.Headers),
			timestamp: now,
			queue:     ch,
		}
		mm.attempt.Store(1)

		select {
		case ch <- mm:
		case <-ctx.Done():
			return PublishResult{}, ctx.Err()
		case <-m.done:
			return PublishResult{}, ErrClosed
		}
	}

	return PublishResult{MessageID: id, Destination: destination, Timestamp: now}, nil
}

// Consume blocks until ctx is done or the broker is closed. A nacked message
// is queued again until it has been delivered twice.
func (m *Memory) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, source, handler); err != nil {
		return err
	}
	if m.closed.Load() {
		return ErrClosed
	}

	co := newConsumeOptions(opts...)
	group := co.group
	if group == "" {
		group = defaultMemoryGroup
	}
	ch := m.subscribe(source, group)

	var wg sync.WaitGroup
	for range co.concurrency {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case <-m.done:
					return
				case msg := <-ch:
					//nolint:errcheck // memory settle does not fail
					_ = deliver(ctx, DriverMemory, msg, handler, co.autoAck)
				}
			}
		})
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	return ErrClosed
}

func (m *Memory) subscribe(source, group string) chan *memoryMessage {
	m.mu.Lock()
	defer m.mu.Unlock()

	groups, ok := m.groups[source]
	if !ok {
		groups = make(map[string]chan *memoryMessage)
		m.groups[source] = groups
	}
	ch, ok := groups[group]
	if !ok {
		ch = make(chan *memoryMessage, m.buffer)
		groups[group] = ch
	}
	return ch
}

type memoryMessage struct {
	responder

	id        string
	topic     string
	body      []byte
	key       []byte
	headers   []Header
	timestamp time.Time
	attempt   atomic.Int32

	queue chan *memoryMessage
}

func (m *memoryMessage) ID() string           { return m.id }
func (m *memoryMessage) Source() string       { return m.topic }
func (m *memoryMessage) Body() []byte         { return m.body }
func (m *memoryMessage) Key() []byte          { return m.key }
func (m *memoryMessage) Headers() []Header    { return m.headers }
func (m *memoryMessage) Attempt() int         { return int(m.attempt.Load()) }
func (m *memoryMessage) Timestamp() time.Time { return m.timestamp }

func (m *memoryMessage) Ack(context.Context) error {
	m.claim()
	return nil
}

// Nack requeues a copy of the message when attempts remain and the queue
// has room; otherwise the message is dropped.
func (m *memoryMessage) Nack(context.Context) error {
	if !m.claim() || m.Attempt() >= memoryMaxAttempts {
		return nil
	}

	next := &memoryMessage{
		id:        m.id,
		topic:     m.topic,
		body:      m.body,
		key:       m.key,
		headers:   m.headers,
		timestamp: m.timestamp,
		queue:     m.queue,
	}
	next.attempt.Store(m.attempt.Load() + 1)

	select {
	case m.queue <- next:
	default:
	}
	return nil
}
