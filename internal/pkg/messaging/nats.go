package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// ErrNATSURLRequired is returned when the server URL is missing.
var ErrNATSURLRequired = errors.New("messaging: nats url is required")

// NATSConfig configures the NATS driver.
type NATSConfig struct {
	URL     string
	Options []nats.Option

	// Stream enables JetStream. Published subjects are stored in the stream
	// and every consumer group becomes a durable consumer with explicit acks.
	// Without it core NATS is used and messages published while no consumer
	// is subscribed are lost.
	Stream string
	// MaxDeliver bounds JetStream redeliveries; zero keeps the server default.
	MaxDeliver int
}

// NATS is the NATS driver.
type NATS struct {
	conn       *nats.Conn
	js         jetstream.JetStream
	stream     string
	maxDeliver int

	mu       sync.Mutex
	subjects map[string]struct{}
	closed   bool
}

// NewNATS connects to the server and, with a stream configured, prepares JetStream.
func NewNATS(cfg NATSConfig) (*NATS, error) {
	if cfg.URL == "" {
		return nil, ErrNATSURLRequired
	}

	conn, err := nats.Connect(cfg.URL, cfg.Options...)
	if err != nil {
		return nil, fmt.Errorf("messaging: nats connect: %w", err)
	}

	n := &NATS{
		conn:       conn,
		stream:     cfg.Stream,
		maxDeliver: cfg.MaxDeliver,
		subjects:   make(map[string]struct{}),
	}

	if cfg.Stream != "" {
		js, err := jetstream.New(conn)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("messaging: nats jetstream: %w", err)
		}
		n.js = js
	}

	return n, nil
}

// Close drains the connection, letting in-flight handlers finish.
func (n *NATS) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.mu.Unlock()

	return n.conn.Drain()
}

// Publish sends msg on subject destination. The key travels as the
// Nats-Msg-Key header.
func (n *NATS) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if n.isClosed() {
		return PublishResult{}, ErrClosed
	}

	nmsg := nats.NewMsg(destination)
	nmsg.Data = msg.Body
	for _, h := range cloneHeaders(msg.Headers) {
		nmsg.Header.Add(h.Key, string(h.Value))
	}
	if len(msg.Key) > 0 {
		nmsg.Header.Set(natsKeyHeader, string(msg.Key))
	}

	if n.js == nil {
		if err := n.conn.PublishMsg(nmsg); err != nil {
			return PublishResult{}, fmt.Errorf("messaging: nats publish: %w", err)
		}
		if err := n.conn.FlushWithContext(ctx); err != nil {
			return PublishResult{}, fmt.Errorf("messaging: nats flush: %w", err)
		}
		return PublishResult{Destination: destination, Timestamp: time.Now()}, nil
	}

	if err := n.ensureStream(ctx, destination); err != nil {
		return PublishResult{}, err
	}

	ack, err := n.js.PublishMsg(ctx, nmsg)
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nats jetstream publish: %w", err)
	}

	return PublishResult{
		MessageID:   strconv.FormatUint(ack.Sequence, 10),
		Destination: destination,
		Timestamp:   time.Now(),
	}, nil
}

// Consume subscribes to subject source. Core NATS uses a queue subscription
// named by the group; JetStream uses a durable consumer of the same name.
func (n *NATS) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, source, handler); err != nil {
		return err
	}
	if n.isClosed() {
		return ErrClosed
	}

	co := newConsumeOptions(opts...)
	if n.js != nil {
		if co.group == "" {
			return ErrGroupRequired
		}
		return n.consumeJetStream(ctx, source, handler, co)
	}
	return n.consumeCore(ctx, source, handler, co)
}

func (n *NATS) consumeCore(ctx context.Context, subject string, handler Handler, co consumeOptions) error {
	work := make(chan *nats.Msg, co.maxInFlight)

	sub, err := n.conn.QueueSubscribe(subject, co.group, func(m *nats.Msg) {
		select {
		case work <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return fmt.Errorf("messaging: nats subscribe: %w", err)
	}

	wg := runWorkers(ctx, co.concurrency, work, func(m *nats.Msg) {
		//nolint:errcheck // core nats has no acks
		_ = deliver(ctx, DriverNATS, newNATSCoreMessage(m), handler, co.autoAck)
	})

	<-ctx.Done()
	uerr := sub.Unsubscribe()
	wg.Wait()

	return errors.Join(ctx.Err(), uerr)
}

func (n *NATS) consumeJetStream(ctx context.Context, subject string, handler Handler, co consumeOptions) error {
	if err := n.ensureStream(ctx, subject); err != nil {
		return err
	}

	cons, err := n.js.CreateOrUpdateConsumer(ctx, n.stream, jetstream.ConsumerConfig{
		Durable:       co.group,
		FilterSubject: subject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		MaxAckPending: co.maxInFlight,
		MaxDeliver:    n.maxDeliver,
	})
	if err != nil {
		return fmt.Errorf("messaging: nats jetstream consumer: %w", err)
	}

	work := make(chan jetstream.Msg, co.maxInFlight)
	consumeCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := runWorkers(consumeCtx, co.concurrency, work, func(m jetstream.Msg) {
		if err := deliver(ctx, DriverNATS, newNATSStreamMessage(m), handler, co.autoAck); err != nil {
			slog.WarnContext(ctx, "failed to settle nats message", "subject", subject, "error", err)
		}
	})

	cc, err := cons.Consume(func(m jetstream.Msg) {
		select {
		case work <- m:
		case <-ctx.Done():
		}
	})
	if err != nil {
		cancel()
		wg.Wait()
		return fmt.Errorf("messaging: nats jetstream consume: %w", err)
	}

	<-ctx.Done()
	cc.Stop()
	wg.Wait()

	return ctx.Err()
}

// ensureStream adds subject to the stream once per process.
func (n *NATS) ensureStream(ctx context.Context, subject string) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if _, ok := n.subjects[subject]; ok {
		return nil
	}

	subjects := []string{subject}
	if s, err := n.js.Stream(ctx, n.stream); err == nil {
		for _, existing := range s.CachedInfo().Config.Subjects {
			if existing == subject {
				n.subjects[subject] = struct{}{}
				return nil
			}
		}
		subjects = append(s.CachedInfo().Config.Subjects, subject)
	}

	if _, err := n.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     n.stream,
		Subjects: subjects,
	}); err != nil {
		return fmt.Errorf("messaging: nats jetstream stream: %w", err)
	}

	n.subjects[subject] = struct{}{}
	return nil
}

func (n *NATS) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

// runWorkers feeds work to n goroutines until ctx is done. Items still
// queued at that point are dropped and left to broker redelivery.
func runWorkers[T any](ctx context.Context, n int, work <-chan T, fn func(T)) *sync.WaitGroup {
	var wg sync.WaitGroup
	for range n {
		wg.Go(func() {
			for {
				select {
				case <-ctx.Done():
					return
				case item := <-work:
					fn(item)
				}
			}
		})
	}
	return &wg
}

const natsKeyHeader = "Nats-Msg-Key"

func natsHeaders(h nats.Header) ([]Header, []byte) {
	var (
		out []Header
		key []byte
	)
	for k, values := range h {
		if k == natsKeyHeader {
			if len(values) > 0 {
				key = []byte(values[0])
			}
			continue
		}
		for _, v := range values {
			out = append(out, Header{Key: k, Value: []byte(v)})
		}
	}
	return out, key
}

type natsMessage struct {
	responder

	id         string
	subject    string
	body       []byte
	key        []byte
	headers    []Header
	attempt    int
	receivedAt time.Time

	ack  func() error
	nack func() error
}

func newNATSCoreMessage(m *nats.Msg) *natsMessage {
	headers, key := natsHeaders(m.Header)
	noop := func() error { return nil }
	return &natsMessage{
		subject:    m.Subject,
		body:       m.Data,
		key:        key,
		headers:    headers,
		attempt:    1,
		receivedAt: time.Now(),
		ack:        noop,
		nack:       noop,
	}
}

func newNATSStreamMessage(m jetstream.Msg) *natsMessage {
	headers, key := natsHeaders(m.Headers())
	out := &natsMessage{
		subject:    m.Subject(),
		body:       m.Data(),
		key:        key,
		headers:    headers,
		attempt:    1,
		receivedAt: time.Now(),
		ack:        m.Ack,
		nack:       m.Nak,
	}
	if md, err := m.Metadata(); err == nil {
		out.id = strconv.FormatUint(md.Sequence.Stream, 10)
		out.attempt = int(md.NumDelivered)
		out.receivedAt = md.Timestamp
	}
	return out
}

func (m *natsMessage) ID() string           { return m.id }
func (m *natsMessage) Source() string       { return m.subject }
func (m *natsMessage) Body() []byte         { return m.body }
func (m *natsMessage) Key() []byte          { return m.key }
func (m *natsMessage) Headers() []Header    { return m.headers }
func (m *natsMessage) Attempt() int         { return m.attempt }
func (m *natsMessage) Timestamp() time.Time { return m.receivedAt }

func (m *natsMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.claim() {
		return nil
	}
	return m.ack()
}

func (m *natsMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !m.claim() {
		return nil
	}
	return m.nack()
}
