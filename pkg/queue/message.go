package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	retryCountHeader       = "x-retry-count"
	deadLetterReasonHeader = "x-dead-letter-reason"
	originalQueueHeader    = "x-original-queue"

	// JobNameHeader and JobAttemptsHeader are stamped by publishers so failures can be logged without decoding the body.
	JobNameHeader     = "x-job-name"
	JobAttemptsHeader = "x-job-attempts"
)

// delivery interface for testing purposes
type delivery interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
	Reject(requeue bool) error
	GetHeaders() amqp.Table
	GetPriority() uint8
	GetMessageID() string
}

// amqpDeliveryAdapter adapts amqp.Delivery to our delivery interface
type amqpDeliveryAdapter struct {
	amqp.Delivery
}

func (a *amqpDeliveryAdapter) GetHeaders() amqp.Table {
	return a.Headers
}

func (a *amqpDeliveryAdapter) GetPriority() uint8 {
	return a.Priority
}

func (a *amqpDeliveryAdapter) GetMessageID() string {
	return a.MessageId
}

// NewAmqpDeliveryAdapter creates a new adapter for amqp.Delivery
func NewAmqpDeliveryAdapter(d amqp.Delivery) delivery {
	return &amqpDeliveryAdapter{Delivery: d}
}

// Message represents a message that can be published or consumed.
type Message struct {
	Body any `json:"body"`

	amqpDelivery delivery
}

func (m *Message) marshal() ([]byte, error) {
	content, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("could not marshal message: %w", err)
	}

	return content, nil
}

// Unmarshal parses the body field of the receiver message and stores the result in the value pointed to by target.
func (m *Message) Unmarshal(target any) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Pointer || v.IsNil() {
		return errors.New("target must be a non-nil pointer")
	}

	bodyData, err := json.Marshal(m.Body)
	if err != nil {
		return fmt.Errorf("could not marshal message body: %w", err)
	}

	if err := json.Unmarshal(bodyData, target); err != nil {
		return fmt.Errorf("could not unmarshal into target: %w", err)
	}

	return nil
}

// RetryCount returns how many times the message went through the retry queue.
func (m *Message) RetryCount() (int, error) {
	if m.amqpDelivery == nil {
		return 0, nil
	}

	val, ok := m.amqpDelivery.GetHeaders()[retryCountHeader]
	if !ok {
		return 0, nil
	}

	strVal, ok := val.(string)
	if !ok {
		return 0, fmt.Errorf("header %s does not contain a string", retryCountHeader)
	}

	intVal, err := strconv.Atoi(strVal)
	if err != nil {
		return 0, fmt.Errorf("header %s is not an integer: %w", retryCountHeader, err)
	}

	return intVal, nil
}

// JobName is the job name header, empty when the publisher did not set it.
func (m *Message) JobName() string {
	if m.amqpDelivery == nil {
		return ""
	}

	name, _ := m.amqpDelivery.GetHeaders()[JobNameHeader].(string)

	return name
}

// Priority is the broker priority the message was published with.
func (m *Message) Priority() uint8 {
	if m.amqpDelivery == nil {
		return 0
	}

	return m.amqpDelivery.GetPriority()
}

// MsgController controls the positive or negative acknowledgement of consumed messages.
type MsgController struct {
	ch        channel
	queueName string
}

// Ack is used to positively acknowledge a consumed message.
func (ctrl *MsgController) Ack(m Message) error {
	return m.amqpDelivery.Ack(false)
}

// Nack negatively acknowledges a message, the main queue dead-letters it.
func (ctrl *MsgController) Nack(m Message) error {
	return m.amqpDelivery.Nack(false, false)
}

// Reject is used to negatively acknowledge a consumed message. It will not be requeued.
func (ctrl *MsgController) Reject(m Message) error {
	return m.amqpDelivery.Reject(false)
}

// Requeue re-publishes the message to its queue immediately.
func (ctrl *MsgController) Requeue(m Message) error {
	return ctrl.republish(m, ctrl.queueName, nil)
}

// Retry parks the message in the retry tier covering delay, after which the broker
// dead-letters it back to the main queue. The body may be replaced by the caller
// before retrying, e.g. to bump an attempt counter.
func (ctrl *MsgController) Retry(m Message, delay time.Duration) error {
	return ctrl.republish(m, RetryQueueName(ctrl.queueName, delay), nil)
}

// DeadLetter moves the message to the dead letter queue with the reason attached.
func (ctrl *MsgController) DeadLetter(m Message, reason string) error {
	return ctrl.republish(m, DeadLetterQueueName(ctrl.queueName), amqp.Table{
		deadLetterReasonHeader: reason,
	})
}

func (ctrl *MsgController) republish(m Message, target string, extra amqp.Table) error {
	retryCount, err := m.RetryCount()
	if err != nil {
		return fmt.Errorf("failed to get retry count: %w", err)
	}

	body, err := m.marshal()
	if err != nil {
		return err
	}

	headers := amqp.Table{
		retryCountHeader:    strconv.Itoa(retryCount + 1),
		originalQueueHeader: ctrl.queueName,
	}

	for k, v := range extra {
		headers[k] = v
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
		Headers:      headers,
		Priority:     m.Priority(),
		MessageId:    m.amqpDelivery.GetMessageID(),
		Timestamp:    time.Now(),
	}

	if err := ctrl.ch.publish(defaultExchange, target, false, false, publishing); err != nil {
		return fmt.Errorf("failed to re-publish message to %s: %w", target, err)
	}

	if err := m.amqpDelivery.Ack(false); err != nil {
		return fmt.Errorf("failed to ack the message: %w", err)
	}

	return nil
}
