package messaging

const defaultConcurrency = 1

type consumeOptions struct {
	// group names the consumer group. NSQ maps it to a channel, NATS to a
	// queue group, Kafka to a consumer group and Pub/Sub to a subscription.
	group string

	concurrency int
	maxInFlight int
	autoAck     bool
}

// ConsumeOption configures a consumer.
type ConsumeOption func(*consumeOptions)

func newConsumeOptions(opts ...ConsumeOption) consumeOptions {
	co := consumeOptions{concurrency: defaultConcurrency}
	for _, opt := range opts {
		if opt != nil {
			opt(&co)
		}
	}
	if co.concurrency <= 0 {
		co.concurrency = defaultConcurrency
	}
	if co.maxInFlight <= 0 {
		co.maxInFlight = co.concurrency
	}
	return co
}

// WithGroup sets the consumer group.
func WithGroup(group string) ConsumeOption {
	return func(o *consumeOptions) { o.group = group }
}

// WithConcurrency sets how many handlers run in parallel.
func WithConcurrency(n int) ConsumeOption {
	return func(o *consumeOptions) { o.concurrency = n }
}

// WithMaxInFlight limits unacknowledged messages held by the consumer.
func WithMaxInFlight(n int) ConsumeOption {
	return func(o *consumeOptions) { o.maxInFlight = n }
}

// WithAutoAck acks or nacks each message from the handler result.
func WithAutoAck(autoAck bool) ConsumeOption {
	return func(o *consumeOptions) { o.autoAck = autoAck }
}
