package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	nsq "github.com/nsqio/go-nsq"
)

var (
	// ErrNSQProducerAddrRequired is returned when publishing without a producer address.
	ErrNSQProducerAddrRequired = errors.New("messaging: nsq producer address is required")
	// ErrNSQConsumerAddrsRequired is returned when no nsqd or lookupd address is configured.
	ErrNSQConsumerAddrsRequired = errors.New("messaging: nsq consumer nsqd/lookupd addresses are required")
)

// nsqEnvelopeVersion marks bodies wrapped by this package. Bodies without it
// are delivered as published.
const nsqEnvelopeVersion = 1

type nsqEnvelope struct {
	Version int      `json:"v"`
	Key     []byte   `json:"key,omitempty"`
	Headers []Header `json:"headers,omitempty"`
	Body    []byte   `json:"body"`
}

// NSQConfig configures the NSQ driver.
type NSQConfig struct {
	// ProducerAddr is the nsqd address used for publishing.
	ProducerAddr string

	// ConsumerNSQDAddrs lists nsqd addresses consumers connect to directly.
	ConsumerNSQDAddrs []string
	// ConsumerLookupdAddrs lists lookupd addresses; they win over ConsumerNSQDAddrs.
	ConsumerLookupdAddrs []string

	ProducerConfig *nsq.Config
	ConsumerConfig *nsq.Config
}

// NSQ is the NSQ driver. NSQ has no message headers, so the key and headers
// travel in a JSON envelope around the body.
type NSQ struct {
	producer *nsq.Producer

	nsqdAddrs    []string
	lookupdAddrs []string
	consumerCfg  *nsq.Config

	mu        sync.Mutex
	consumers []*nsq.Consumer
	closed    bool
}

// NewNSQ constructs the NSQ driver. The producer is only created when
// ProducerAddr is set.
func NewNSQ(cfg NSQConfig) (*NSQ, error) {
	n := &NSQ{
		nsqdAddrs:    append([]string(nil), cfg.ConsumerNSQDAddrs...),
		lookupdAddrs: append([]string(nil), cfg.ConsumerLookupdAddrs...),
		consumerCfg:  cfg.ConsumerConfig,
	}
	if n.consumerCfg == nil {
		n.consumerCfg = nsq.NewConfig()
	}

	if cfg.ProducerAddr != "" {
		pcfg := cfg.ProducerConfig
		if pcfg == nil {
			pcfg = nsq.NewConfig()
		}

		p, err := nsq.NewProducer(cfg.ProducerAddr, pcfg)
		if err != nil {
			return nil, fmt.Errorf("messaging: nsq new producer: %w", err)
		}
		p.SetLoggerLevel(nsq.LogLevelError)

		if err := p.Ping(); err != nil {
			p.Stop()
			return nil, fmt.Errorf("messaging: nsq ping producer: %w", err)
		}
		n.producer = p
	}

	return n, nil
}

// Close stops consumers and the producer.
func (n *NSQ) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	consumers := n.consumers
	n.consumers = nil
	n.mu.Unlock()

	for _, c := range consumers {
		stopNSQConsumer(c)
	}
	if n.producer != nil {
		n.producer.Stop()
	}
	return nil
}

// Publish wraps msg in an envelope and publishes it to topic destination.
func (n *NSQ) Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error) {
	if err := ctx.Err(); err != nil {
		return PublishResult{}, err
	}
	if destination == "" {
		return PublishResult{}, ErrDestinationRequired
	}
	if n.producer == nil {
		return PublishResult{}, ErrNSQProducerAddrRequired
	}
	if n.isClosed() {
		return PublishResult{}, ErrClosed
	}

	body, err := json.Marshal(nsqEnvelope{
		Version: nsqEnvelopeVersion,
		Key:     msg.Key,
		Headers: cloneHeaders(msg.Headers),
		Body:    msg.Body,
	})
	if err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq encode envelope: %w", err)
	}

	if err := n.producer.Publish(destination, body); err != nil {
		return PublishResult{}, fmt.Errorf("messaging: nsq publish: %w", err)
	}

	return PublishResult{Destination: destination, Timestamp: time.Now()}, nil
}

// Consume reads topic source on the channel named by the consumer group.
func (n *NSQ) Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error {
	if err := validateConsume(ctx, source, handler); err != nil {
		return err
	}
	co := newConsumeOptions(opts...)
	if co.group == "" {
		return ErrGroupRequired
	}
	if len(n.nsqdAddrs) == 0 && len(n.lookupdAddrs) == 0 {
		return ErrNSQConsumerAddrsRequired
	}

	cfg := *n.consumerCfg
	cfg.MaxInFlight = co.maxInFlight

	consumer, err := nsq.NewConsumer(source, co.group, &cfg)
	if err != nil {
		return fmt.Errorf("messaging: nsq new consumer: %w", err)
	}
	consumer.SetLoggerLevel(nsq.LogLevelError)
	consumer.AddConcurrentHandlers(nsq.HandlerFunc(func(m *nsq.Message) error {
		m.DisableAutoResponse()
		return deliver(ctx, DriverNSQ, newNSQMessage(source, m), handler, co.autoAck)
	}), co.concurrency)

	if err := n.track(consumer); err != nil {
		stopNSQConsumer(consumer)
		return err
	}

	if len(n.lookupdAddrs) > 0 {
		err = consumer.ConnectToNSQLookupds(n.lookupdAddrs)
	} else {
		err = consumer.ConnectToNSQDs(n.nsqdAddrs)
	}
	if err != nil {
		stopNSQConsumer(consumer)
		return fmt.Errorf("messaging: nsq connect: %w", err)
	}

	select {
	case <-ctx.Done():
		stopNSQConsumer(consumer)
		return ctx.Err()
	case <-consumer.StopChan:
		return nil
	}
}

func (n *NSQ) track(c *nsq.Consumer) error {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return ErrClosed
	}
	n.consumers = append(n.consumers, c)
	return nil
}

func (n *NSQ) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func stopNSQConsumer(c *nsq.Consumer) {
	c.Stop()
	<-c.StopChan
}

type nsqMessage struct {
	responder

	topic string
	msg   *nsq.Message
	env   nsqEnvelope
}

func newNSQMessage(topic string, m *nsq.Message) *nsqMessage {
	out := &nsqMessage{topic: topic, msg: m}

	var env nsqEnvelope
	if err := json.Unmarshal(m.Body, &env); err == nil && env.Version == nsqEnvelopeVersion {
		out.env = env
	} else {
		out.env = nsqEnvelope{Body: m.Body}
	}
	return out
}

func (m *nsqMessage) ID() string           { return string(m.msg.ID[:]) }
func (m *nsqMessage) Source() string       { return m.topic }
func (m *nsqMessage) Body() []byte         { return m.env.Body }
func (m *nsqMessage) Key() []byte          { return m.env.Key }
func (m *nsqMessage) Headers() []Header    { return m.env.Headers }
func (m *nsqMessage) Attempt() int         { return int(m.msg.Attempts) }
func (m *nsqMessage) Timestamp() time.Time { return time.Unix(0, m.msg.Timestamp) }

func (m *nsqMessage) Ack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.claim() {
		m.msg.Finish()
	}
	return nil
}

func (m *nsqMessage) Nack(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.claim() {
		// -1 lets nsqd apply its backoff based on attempts.
		m.msg.Requeue(-1)
	}
	return nil
}
