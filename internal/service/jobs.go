package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/architeacher/svc-visa-processing/internal/config"
	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

// JobFactory builds jobs with the configured queue defaults and wraps them into outbox events.
type JobFactory struct {
	jobs   config.JobsConfig
	outbox config.OutboxConfig
}

func NewJobFactory(jobs config.JobsConfig, outbox config.OutboxConfig) JobFactory {
	return JobFactory{jobs: jobs, outbox: outbox}
}

// Job resolves the queue of name when queue is empty and layers the built-in queue
// options, the configured ones and override, in that order.
func (f JobFactory) Job(name string, queue domain.QueueName, payload any, override domain.JobOptions) (*domain.Job, error) {
	def, ok := domain.LookupJobDefinition(name)
	if !ok {
		return nil, fmt.Errorf("unknown job %q", name)
	}

	if queue == "" {
		queue = def.Queue
	}

	configured := f.configured(queue)

	return domain.NewJob(name, queue, payload, configured.Merge(override))
}

func (f JobFactory) configured(queue domain.QueueName) domain.JobOptions {
	defaults := f.jobs.ForQueue(queue.String())

	return domain.JobOptions{
		Attempts: defaults.Attempts,
		Backoff: domain.BackoffOptions{
			Type:  domain.BackoffType(defaults.BackoffType),
			Delay: defaults.Delay.Milliseconds(),
		},
		Priority: defaults.Priority,
	}
}

// OutboxEvent wraps job for the aggregate with the retry budget of its priority.
func (f JobFactory) OutboxEvent(aggregateType string, aggregateID uuid.UUID, job *domain.Job) *domain.OutboxEvent {
	event := domain.NewOutboxEvent(aggregateType, aggregateID, job)
	event.MaxRetries = f.outbox.GetMaxRetriesForPriority(string(event.Priority))

	return event
}

// saveJobs writes one outbox event per job inside tx.
func saveJobs(
	ctx context.Context,
	tx *sqlx.Tx,
	outboxRepo ports.OutboxRepository,
	factory JobFactory,
	aggregateType string,
	aggregateID uuid.UUID,
	jobs []*domain.Job,
) error {
	for _, job := range jobs {
		event := factory.OutboxEvent(aggregateType, aggregateID, job)
		if err := outboxRepo.SaveInTx(ctx, tx, event); err != nil {
			return fmt.Errorf("failed to save outbox event for %s: %w", job.Name, err)
		}
	}

	return nil
}

// inTx runs fn inside a transaction and commits when it returns nil.
func inTx(ctx context.Context, db ports.Transactor, logger infrastructure.Logger, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
			logger.Error().Err(rollbackErr).Msg("failed to rollback transaction")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
