package queue

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
	"github.com/architeacher/svc-visa-processing/pkg/queue"
)

var (
	_ ports.JobQueue       = (*JobQueue)(nil)
	_ ports.QueueInspector = (*JobQueue)(nil)
)

// JobQueue publishes jobs to their named queue. Delayed jobs are parked in the retry
// tier covering their delay, which dead-letters them into the main queue once it expires.
type JobQueue struct {
	queue    infrastructure.Queue
	exchange string
}

func NewJobQueue(q infrastructure.Queue, exchange string) *JobQueue {
	return &JobQueue{queue: q, exchange: exchange}
}

func (q *JobQueue) Enqueue(ctx context.Context, job *domain.Job) error {
	opts := []queue.PublisherOption{
		queue.WithPriority(job.Options.Priority),
		queue.WithMessageID(job.ID),
		queue.WithHeaders(amqp.Table{
			queue.JobNameHeader:     job.Name,
			queue.JobAttemptsHeader: int32(job.AttemptsMade),
		}),
	}

	if job.Options.DelayMS > 0 {
		opts = append(opts, queue.WithDelay(time.Duration(job.Options.DelayMS)*time.Millisecond))
	}

	if err := q.queue.Publish(ctx, q.exchange, job.Queue.String(), job, opts...); err != nil {
		return fmt.Errorf("failed to publish %s job %s: %w", job.Name, job.ID, err)
	}

	return nil
}

func (q *JobQueue) Stats(_ context.Context, name domain.QueueName) (domain.QueueStats, error) {
	stats, err := q.queue.Inspect(name.String())
	if err != nil {
		return domain.QueueStats{}, err
	}

	return domain.QueueStats{
		Name:        stats.Name,
		Messages:    stats.Messages,
		Consumers:   stats.Consumers,
		Retrying:    stats.Retrying,
		DeadLetters: stats.DeadLetters,
	}, nil
}

// DeclareTopology declares the exchange and the main, retry and dead letter queue of every job queue.
func DeclareTopology(q infrastructure.Queue, exchange string, maxPriority uint8) error {
	if exchange != "" {
		if err := q.DeclareExchange(exchange, "direct", true, false); err != nil {
			return fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
		}
	}

	for _, name := range domain.AllQueues {
		if err := q.DeclareTopology(exchange, name.String(), maxPriority); err != nil {
			return err
		}
	}

	return nil
}
