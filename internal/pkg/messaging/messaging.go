package messaging

import (
	"context"
	"errors"
	"io"
	"time"
)

var (
	// ErrDestinationRequired is returned when the destination or source is empty.
	ErrDestinationRequired = errors.New("messaging: destination is required")
	// ErrHandlerRequired is returned when Consume is called with a nil handler.
	ErrHandlerRequired = errors.New("messaging: handler is required")
	// ErrGroupRequired is returned when a driver needs a consumer group and none is set.
	ErrGroupRequired = errors.New("messaging: consumer group is required")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("messaging: client closed")
)

// Messaging publishes events and feeds them to consumer groups.
type Messaging interface {
	io.Closer

	Publisher
	Consumer
}

// Publisher publishes events to a destination (topic or subject).
type Publisher interface {
	Publish(ctx context.Context, destination string, msg OutgoingMessage) (PublishResult, error)
}

// Consumer consumes events of a source until ctx is done.
type Consumer interface {
	// Consume blocks while messages of source are delivered to handler.
	// Consumers sharing a group split the messages between them.
	Consume(ctx context.Context, source string, handler Handler, opts ...ConsumeOption) error
}

// Handler processes a received message. With auto-ack a nil error acks the
// message and a non-nil error asks the broker for redelivery.
type Handler func(ctx context.Context, msg Message) error

// OutgoingMessage is an event to publish.
type OutgoingMessage struct {
	// Body is the encoded event.
	Body []byte
	// Key groups related events, e.g. the Kafka partition key.
	Key []byte
	// Headers travel with the event. Brokers without native headers carry
	// them in an envelope.
	Headers []Header
}

// Header is a key/value pair attached to a message.
type Header struct {
	Key   string `json:"key"`
	Value []byte `json:"value"`
}

// PublishResult describes an accepted publish.
type PublishResult struct {
	// MessageID is the broker id when the broker assigns one.
	MessageID string
	// Destination is where the message was published.
	Destination string
	// Timestamp is when the publish was accepted.
	Timestamp time.Time
}

// Message is a received event.
type Message interface {
	// ID is the broker message id, or empty when the broker has none.
	ID() string
	// Source is the topic or subject the message came from.
	Source() string
	Body() []byte
	Key() []byte
	Headers() []Header
	// Attempt counts deliveries of this message starting at 1. Brokers
	// that do not track redeliveries always report 1.
	Attempt() int
	Timestamp() time.Time

	// Ack marks the message processed.
	Ack(ctx context.Context) error
	// Nack asks the broker to redeliver the message.
	Nack(ctx context.Context) error
}

// HeaderValue returns the first value of key in headers.
func HeaderValue(headers []Header, key string) (string, bool) {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value), true
		}
	}
	return "", false
}

func cloneHeaders(headers []Header) []Header {
	if len(headers) == 0 {
		return nil
	}
	out := make([]Header, 0, len(headers))
	for _, h := range headers {
		if h.Key == "" {
			continue
		}
		out = append(out, Header{Key: h.Key, Value: append([]byte(nil), h.Value...)})
	}
	return out
}

func validateConsume(ctx context.Context, source string, handler Handler) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if source == "" {
		return ErrDestinationRequired
	}
	if handler == nil {
		return ErrHandlerRequired
	}
	return nil
}
