package queue

import (
	"context"
	"io"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const maxResubscribeDelay = time.Minute

// channel is the subset of channel behaviour the queue and its controllers rely on.
type channel interface {
	io.Closer

	exchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	queueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	queueDeclarePassive(name string) (amqp.Queue, error)
	queueBind(name, key, exchange string, noWait bool, args amqp.Table) error

	publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	publishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) <-chan amqp.Delivery
	qos(prefetchCount, prefetchSize int, global bool) error

	cancel(consumer string, noWait bool) error
}

// amqpChannel is implemented by *amqp.Channel.
//
//nolint:interfacebloat // mirrors the amqp091 channel
type amqpChannel interface {
	io.Closer

	Cancel(consumer string, noWait bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Qos(prefetchCount, prefetchSize int, global bool) error
}

// ChannelWrapper serialises access to an amqp091 channel and keeps consuming across
// transient consumer failures.
type ChannelWrapper struct {
	amqpChan amqpChannel

	logger Logger

	mutex    *sync.Mutex
	canceled atomic.Bool
	closed   atomic.Bool

	reconnectDelay time.Duration
}

func newChannelWrapper(ch amqpChannel, logger Logger, reconnectDelay time.Duration) *ChannelWrapper {
	return &ChannelWrapper{
		amqpChan:       ch,
		logger:         logger,
		mutex:          &sync.Mutex{},
		reconnectDelay: reconnectDelay,
	}
}

// Close closes the underlying channel, a second call returns amqp.ErrClosed.
func (ch *ChannelWrapper) Close() error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	if ch.isClosed() {
		return amqp.ErrClosed
	}

	ch.closed.Store(true)

	return ch.amqpChan.Close()
}

func (ch *ChannelWrapper) cancel(consumer string, noWait bool) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	if err := ch.amqpChan.Cancel(consumer, noWait); err != nil {
		return err
	}

	ch.canceled.Store(true)

	return nil
}

// consume keeps a consumer attached to queue. Failed attempts back off from reconnectDelay,
// doubling up to maxResubscribeDelay, and the delay resets once a subscription succeeds.
//
//nolint:revive // same arguments as amqp091 Channel.Consume
func (ch *ChannelWrapper) consume(
	queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table,
) <-chan amqp.Delivery {
	deliveries := make(chan amqp.Delivery)

	go func() {
		defer close(deliveries)

		failures := 0

		for !ch.isClosed() && !ch.isCanceled() {
			ch.mutex.Lock()
			d, err := ch.amqpChan.Consume(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
			ch.mutex.Unlock()

			if err != nil {
				failures++
				delay := resubscribeDelay(ch.reconnectDelay, failures)

				if ch.logger != nil {
					ch.logger.Error().
						Err(err).
						Str("queue", queue).
						Int("attempt", failures).
						Str("retry_in", delay.String()).
						Msg("failed to consume messages")
				}

				time.Sleep(delay)

				continue
			}

			failures = 0

			for msg := range d {
				deliveries <- msg
			}

			// The closed flag may be set slightly after the delivery channel drains.
			time.Sleep(ch.reconnectDelay)
		}
	}()

	return deliveries
}

func resubscribeDelay(base time.Duration, failures int) time.Duration {
	delay := base
	for i := 1; i < failures && delay < maxResubscribeDelay; i++ {
		delay *= 2
	}

	return min(delay, maxResubscribeDelay)
}

//nolint:revive // same arguments as amqp091 Channel.ExchangeDeclare
func (ch *ChannelWrapper) exchangeDeclare(
	name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table,
) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.ExchangeDeclare(name, kind, durable, autoDelete, internal, noWait, args)
}

func (ch *ChannelWrapper) publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return ch.publishWithContext(context.Background(), exchange, key, mandatory, immediate, msg)
}

func (ch *ChannelWrapper) publishWithContext(
	ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing,
) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.PublishWithContext(ctx, exchange, key, mandatory, immediate, msg)
}

func (ch *ChannelWrapper) queueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.QueueBind(name, key, exchange, noWait, args)
}

func (ch *ChannelWrapper) queueDeclare(
	name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table,
) (amqp.Queue, error) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
}

// queueDeclarePassive only checks the queue, the broker closes the channel when it is missing.
func (ch *ChannelWrapper) queueDeclarePassive(name string) (amqp.Queue, error) {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.QueueDeclarePassive(name, true, false, false, false, nil)
}

func (ch *ChannelWrapper) qos(prefetchCount, prefetchSize int, global bool) error {
	ch.mutex.Lock()
	defer ch.mutex.Unlock()

	return ch.amqpChan.Qos(prefetchCount, prefetchSize, global)
}

func (ch *ChannelWrapper) isClosed() bool {
	return ch.closed.Load()
}

func (ch *ChannelWrapper) isCanceled() bool {
	return ch.canceled.Load()
}
