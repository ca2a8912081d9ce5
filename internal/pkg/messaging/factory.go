package messaging

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	// DriverNSQ selects the NSQ backend.
	DriverNSQ = "nsq"
	// DriverNATS selects the NATS backend.
	DriverNATS = "nats"
	// DriverKafka selects the Kafka backend.
	DriverKafka = "kafka"
	// DriverGooglePubSub selects the Google Pub/Sub backend.
	DriverGooglePubSub = "google-pubsub"
	// DriverMemory selects the in-process backend.
	DriverMemory = "memory"
)

// ErrUnknownDriver indicates an unsupported messaging driver.
var ErrUnknownDriver = errors.New("messaging: unknown driver")

// FactoryOptions groups config for supported messaging backends.
type FactoryOptions struct {
	// NSQ provides configuration for the NSQ driver.
	NSQ NSQConfig
	// Kafka provides configuration for the Kafka driver.
	Kafka KafkaConfig
	// NATS provides configuration for the NATS driver.
	NATS NATSConfig
	// PubSub provides configuration for the Google Pub/Sub driver.
	PubSub PubSubConfig
	// MemoryBuffer bounds queued messages per consumer group of the memory driver.
	MemoryBuffer int

	// ConnectRetries is how many times a failed connection is retried.
	ConnectRetries uint64
	// ConnectBackoff is the first wait between connection attempts.
	ConnectBackoff time.Duration
}

// NewFromDriver constructs a Messaging implementation by driver name. Broker
// connection failures are retried with exponential backoff; configuration
// errors are returned immediately.
func NewFromDriver(ctx context.Context, driver string, opts FactoryOptions) (Messaging, error) {
	driver = strings.TrimSpace(driver)

	var build func() (Messaging, error)
	switch driver {
	case DriverNSQ:
		build = func() (Messaging, error) { return NewNSQ(opts.NSQ) }
	case DriverKafka:
		build = func() (Messaging, error) { return NewKafka(opts.Kafka) }
	case DriverNATS:
		build = func() (Messaging, error) { return NewNATS(opts.NATS) }
	case DriverGooglePubSub:
		build = func() (Messaging, error) { return NewPubSub(ctx, opts.PubSub) }
	case DriverMemory:
		return NewMemory(opts.MemoryBuffer), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	backoff := opts.ConnectBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	var client Messaging
	err := retry.Do(ctx, retry.WithMaxRetries(opts.ConnectRetries, retry.NewExponential(backoff)), func(context.Context) error {
		c, err := build()
		if err == nil {
			client = c
			return nil
		}
		if isConfigError(err) {
			return err
		}
		slog.WarnContext(ctx, "messaging connect failed, retrying", "driver", driver, "error", err)
		return retry.RetryableError(err)
	})
	if err != nil {
		return nil, err
	}

	return client, nil
}

func isConfigError(err error) bool {
	for _, target := range []error{
		ErrKafkaBrokersRequired,
		ErrNATSURLRequired,
		ErrPubSubProjectIDRequired,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
