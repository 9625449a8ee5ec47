package queue

import (
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	retrySuffix      = ".retry"
	deadLetterSuffix = ".dlq"

	defaultExchange = ""
)

// Stats is the depth of a queue and its companions, read through a passive declare.
type Stats struct {
	Name        string
	Messages    int
	Consumers   int
	Retrying    int
	DeadLetters int
}

// RetryTiers are the delays a message can be parked for. Every tier is its own queue with a
// queue level TTL, so all messages in one retry queue expire in the order they arrived.
var RetryTiers = []time.Duration{
	time.Second,
	5 * time.Second,
	15 * time.Second,
	30 * time.Second,
	time.Minute,
	5 * time.Minute,
	15 * time.Minute,
	30 * time.Minute,
	time.Hour,
	3 * time.Hour,
	6 * time.Hour,
	12 * time.Hour,
	24 * time.Hour,
}

// RetryTier is the shortest tier that covers delay. Delays past the last tier wait the last tier.
func RetryTier(delay time.Duration) time.Duration {
	for _, tier := range RetryTiers {
		if delay <= tier {
			return tier
		}
	}

	return RetryTiers[len(RetryTiers)-1]
}

// RetryQueueName is the holding queue of name for delay, e.g. pdf.retry.5m. Its messages
// flow back into name once the tier TTL elapses.
func RetryQueueName(name string, delay time.Duration) string {
	return retryQueueForTier(name, RetryTier(delay))
}

func retryQueueForTier(name string, tier time.Duration) string {
	return name + retrySuffix + "." + tierLabel(tier)
}

func tierLabel(tier time.Duration) string {
	switch {
	case tier%time.Hour == 0:
		return fmt.Sprintf("%dh", tier/time.Hour)
	case tier%time.Minute == 0:
		return fmt.Sprintf("%dm", tier/time.Minute)
	default:
		return fmt.Sprintf("%ds", tier/time.Second)
	}
}

// DeadLetterQueueName is where messages of name end up once they cannot be processed.
func DeadLetterQueueName(name string) string {
	return name + deadLetterSuffix
}

func declareTopology(ch channel, exchange, name string, maxPriority uint8) error {
	if _, err := ch.queueDeclare(DeadLetterQueueName(name), true, false, false, false, nil); err != nil {
		return fmt.Errorf("failed to declare dead letter queue of %s: %w", name, err)
	}

	for _, tier := range RetryTiers {
		retryArgs := amqp.Table{
			"x-dead-letter-exchange":    defaultExchange,
			"x-dead-letter-routing-key": name,
			"x-message-ttl":             int32(tier.Milliseconds()),
		}

		if _, err := ch.queueDeclare(retryQueueForTier(name, tier), true, false, false, false, retryArgs); err != nil {
			return fmt.Errorf("failed to declare %s retry queue of %s: %w", tierLabel(tier), name, err)
		}
	}

	mainArgs := amqp.Table{
		"x-dead-letter-exchange":    defaultExchange,
		"x-dead-letter-routing-key": DeadLetterQueueName(name),
	}

	if maxPriority > 0 {
		mainArgs["x-max-priority"] = int32(maxPriority)
	}

	if _, err := ch.queueDeclare(name, true, false, false, false, mainArgs); err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", name, err)
	}

	if exchange == defaultExchange {
		return nil
	}

	if err := ch.queueBind(name, name, exchange, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue %s to %s: %w", name, exchange, err)
	}

	return nil
}

func inspect(ch channel, name string) (Stats, error) {
	main, err := ch.queueDeclarePassive(name)
	if err != nil {
		return Stats{}, fmt.Errorf("failed to inspect queue %s: %w", name, err)
	}

	stats := Stats{
		Name:      name,
		Messages:  main.Messages,
		Consumers: main.Consumers,
	}

	for _, tier := range RetryTiers {
		if retry, err := ch.queueDeclarePassive(retryQueueForTier(name, tier)); err == nil {
			stats.Retrying += retry.Messages
		}
	}

	if dlq, err := ch.queueDeclarePassive(DeadLetterQueueName(name)); err == nil {
		stats.DeadLetters = dlq.Messages
	}

	return stats, nil
}
