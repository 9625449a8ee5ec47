package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var ErrNotConnected = errors.New("not connected to RabbitMQ")

// Queue represents the main queue interface for publishing and consuming messages
type Queue interface {
	// Publisher operations
	Publish(ctx context.Context, exchange, routingKey string, payload any, opts ...PublisherOption) error

	// Consumer operations
	Consume(ctx context.Context, queue, consumer string, handler MessageHandler, opts ...consumerOption) error
	StartConsumer(ctx context.Context, queue, consumer string, handler MessageHandler, opts ...consumerOption) (<-chan error, error)

	// Infrastructure operations
	DeclareExchange(name, kind string, durable, autoDelete bool) error
	DeclareTopology(exchange, name string, maxPriority uint8) error
	Inspect(name string) (Stats, error)

	// Connection management
	Connect() error
	Close() error
	IsConnected() bool
}

// MessageHandler defines the function signature for message processing
type MessageHandler func(ctx context.Context, msg Message, ctrl *MsgController) error

// RabbitMQQueue implements the Queue interface using RabbitMQ
type RabbitMQQueue struct {
	config         Config
	conn           *amqp.Connection
	channel        *ChannelWrapper
	logger         Logger
	mutex          sync.RWMutex
	reconnectDelay time.Duration
	dialTimeout    time.Duration
	closed         bool
}

// NewRabbitMQQueue creates a new RabbitMQ queue implementation
func NewRabbitMQQueue(config Config, opts ...connectionOption) *RabbitMQQueue {
	options := &connectionOptions{
		reconnectDelay: 5 * time.Second,
	}

	for _, opt := range opts {
		opt(options)
	}

	return &RabbitMQQueue{
		config:         config,
		reconnectDelay: options.reconnectDelay,
		dialTimeout:    options.timeout,
		logger:         options.logger,
	}
}

// Connect establishes a connection to RabbitMQ
func (q *RabbitMQQueue) Connect() error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	if q.conn != nil && !q.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.DialConfig(q.config.URL(), q.config.dialConfig(q.dialTimeout))
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	amqpCh, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return fmt.Errorf("failed to open channel: %w", err)
	}

	q.conn = conn
	q.closed = false
	q.channel = newChannelWrapper(amqpCh, q.logger, q.reconnectDelay)

	if q.logger != nil {
		q.logger.Info().Str("host", q.config.Host).Msg("connected to RabbitMQ")
	}

	return nil
}

// Close closes the connection to RabbitMQ
func (q *RabbitMQQueue) Close() error {
	q.mutex.Lock()
	defer q.mutex.Unlock()

	q.closed = true

	if q.channel != nil {
		_ = q.channel.Close()
	}

	if q.conn != nil && !q.conn.IsClosed() {
		return q.conn.Close()
	}

	return nil
}

// IsConnected returns true if connected to RabbitMQ
func (q *RabbitMQQueue) IsConnected() bool {
	q.mutex.RLock()
	defer q.mutex.RUnlock()

	return q.conn != nil && !q.conn.IsClosed()
}

// DeclareExchange declares an exchange
func (q *RabbitMQQueue) DeclareExchange(name, kind string, durable, autoDelete bool) error {
	if !q.IsConnected() {
		return ErrNotConnected
	}

	return q.channel.exchangeDeclare(name, kind, durable, autoDelete, false, false, nil)
}

// DeclareTopology declares the main, retry and dead letter queues of name and
// binds the main queue to the exchange using name as routing key.
func (q *RabbitMQQueue) DeclareTopology(exchange, name string, maxPriority uint8) error {
	if !q.IsConnected() {
		return ErrNotConnected
	}

	return declareTopology(q.channel, exchange, name, maxPriority)
}

// Inspect reports the depth of the main, retry and dead letter queues of name.
func (q *RabbitMQQueue) Inspect(name string) (Stats, error) {
	if !q.IsConnected() {
		return Stats{}, ErrNotConnected
	}

	return inspect(q.channel, name)
}

// Publish publishes payload to an exchange. With WithDelay the message skips the exchange
// and waits in the retry tier of the queue named by routingKey.
func (q *RabbitMQQueue) Publish(ctx context.Context, exchange, routingKey string, payload any, opts ...PublisherOption) error {
	if !q.IsConnected() {
		return ErrNotConnected
	}

	options := defaultPublisherOptions()
	for _, opt := range opts {
		opt(&options)
	}

	msg := &Message{Body: payload}

	body, err := msg.marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, options.timeout)
	defer cancel()

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Priority:     options.priority,
		MessageId:    options.messageID,
		Headers:      options.headers,
		Timestamp:    time.Now(),
	}

	exchange, routingKey = publishTarget(exchange, routingKey, options.delay)

	return q.channel.publishWithContext(ctx, exchange, routingKey, false, false, publishing)
}

// publishTarget sends delayed messages straight to the retry tier of the routing key's queue.
func publishTarget(exchange, routingKey string, delay time.Duration) (string, string) {
	if delay <= 0 {
		return exchange, routingKey
	}

	return defaultExchange, RetryQueueName(routingKey, delay)
}

// Consume consumes messages from a queue (blocking)
func (q *RabbitMQQueue) Consume(ctx context.Context, queue, consumer string, handler MessageHandler, opts ...consumerOption) error {
	errChan, err := q.StartConsumer(ctx, queue, consumer, handler, opts...)
	if err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errChan:
		return err
	}
}

// StartConsumer starts consuming messages from a queue (non-blocking). Deliveries are
// dispatched to a pool of options.concurrency goroutines.
func (q *RabbitMQQueue) StartConsumer(ctx context.Context, queue, consumer string, handler MessageHandler, opts ...consumerOption) (<-chan error, error) {
	if !q.IsConnected() {
		return nil, ErrNotConnected
	}

	options := defaultConsumerOptions()
	for _, opt := range opts {
		opt(&options)
	}

	logger := options.logger
	if logger == nil {
		logger = q.logger
	}

	if options.prefetch > 0 {
		if err := q.channel.qos(options.prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set prefetch for %s: %w", queue, err)
		}
	}

	deliveries := q.channel.consume(queue, consumer, false, false, false, false, nil)
	errChan := make(chan error, 1)

	msgCtrl := &MsgController{
		ch:        q.channel,
		queueName: queue,
	}

	var wg sync.WaitGroup

	for range options.concurrency {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				select {
				case <-ctx.Done():
					return
				case delivery, ok := <-deliveries:
					if !ok {
						return
					}

					q.dispatch(ctx, delivery, handler, msgCtrl, logger, options.errHandler)
				}
			}
		}()
	}

	go func() {
		defer close(errChan)

		wg.Wait()

		if ctx.Err() != nil {
			errChan <- ctx.Err()

			return
		}

		errChan <- fmt.Errorf("delivery channel of %s closed", queue)
	}()

	return errChan, nil
}

func (q *RabbitMQQueue) dispatch(
	ctx context.Context,
	delivery amqp.Delivery,
	handler MessageHandler,
	ctrl *MsgController,
	logger Logger,
	errHandler func(error),
) {
	var msg Message
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		if logger != nil {
			logger.Error().
				Err(err).
				Str("queue", ctrl.queueName).
				Int("body_bytes", len(delivery.Body)).
				Msg("failed to unmarshal message")
		}

		errHandler(err)

		// Rejected messages are dead-lettered by the main queue arguments.
		_ = delivery.Reject(false)

		return
	}

	msg.amqpDelivery = NewAmqpDeliveryAdapter(delivery)

	if err := handler(ctx, msg, ctrl); err != nil {
		if logger != nil {
			retries, _ := msg.RetryCount()

			logger.Error().
				Err(err).
				Str("queue", ctrl.queueName).
				Str("job", msg.JobName()).
				Int("retry_count", retries).
				Msg("message handler failed")
		}

		errHandler(err)
	}
}
