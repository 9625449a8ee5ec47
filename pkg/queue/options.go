package queue

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type connectionOptions struct {
	timeout        time.Duration
	reconnectDelay time.Duration
	logger         Logger
}

type connectionOption func(options *connectionOptions)

// WithLogger returns a connectionOption which sets the logger when a connection is created.
func WithLogger(l Logger) connectionOption {
	return func(o *connectionOptions) {
		o.logger = l
	}
}

// WithConnectionTimeout returns a connectionOption which sets the timeout used when establishing a connection.
func WithConnectionTimeout(timeout time.Duration) connectionOption {
	return func(o *connectionOptions) {
		o.timeout = timeout
	}
}

// WithReconnectDelay returns a connectionOption which sets the delay between reconnection attempts.
func WithReconnectDelay(delay time.Duration) connectionOption {
	return func(o *connectionOptions) {
		o.reconnectDelay = delay
	}
}

type publisherOptions struct {
	timeout   time.Duration
	priority  uint8
	delay     time.Duration
	messageID string
	headers   amqp.Table
}

type PublisherOption func(options *publisherOptions)

const (
	publishingTimeout = 3 * time.Second

	defaultConcurrency = 1
)

// WithPublishingTimeout returns a PublisherOption which sets the timeout used when
// publishing the message.
func WithPublishingTimeout(d time.Duration) PublisherOption {
	return func(o *publisherOptions) {
		o.timeout = d
	}
}

// WithPriority sets the broker priority, queues honour it up to their x-max-priority.
func WithPriority(priority uint8) PublisherOption {
	return func(o *publisherOptions) {
		o.priority = priority
	}
}

// WithDelay holds the message back for the retry tier covering d before it reaches its queue.
func WithDelay(d time.Duration) PublisherOption {
	return func(o *publisherOptions) {
		o.delay = d
	}
}

func WithMessageID(id string) PublisherOption {
	return func(o *publisherOptions) {
		o.messageID = id
	}
}

func WithHeaders(headers amqp.Table) PublisherOption {
	return func(o *publisherOptions) {
		o.headers = headers
	}
}

func defaultPublisherOptions() publisherOptions {
	return publisherOptions{
		timeout: publishingTimeout,
	}
}

type consumerOptions struct {
	errHandler  func(error)
	logger      Logger
	prefetch    int
	concurrency int
}

type consumerOption func(*consumerOptions)

// WithErrorHandler returns a consumerOption which sets a handler for errors that occur when consuming messages.
func WithErrorHandler(handler func(error)) consumerOption {
	return func(o *consumerOptions) {
		o.errHandler = handler
	}
}

// WithConsumingLogger returns a consumerOption which sets the logger when consuming messages.
func WithConsumingLogger(logger Logger) consumerOption {
	return func(o *consumerOptions) {
		o.logger = logger
	}
}

// WithPrefetch limits the unacknowledged deliveries the broker pushes to the consumer.
func WithPrefetch(count int) consumerOption {
	return func(o *consumerOptions) {
		o.prefetch = count
	}
}

// WithConcurrency sets how many handlers run in parallel for one consumer.
func WithConcurrency(n int) consumerOption {
	return func(o *consumerOptions) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func defaultConsumerOptions() consumerOptions {
	return consumerOptions{
		errHandler:  func(_ error) {},
		concurrency: defaultConcurrency,
	}
}
