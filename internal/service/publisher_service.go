package service

import (
	"context"
	"fmt"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
	"github.com/architeacher/svc-visa-processing/internal/shared/backoff"
)

type (
	// PublisherService relays committed outbox events onto the job queues.
	PublisherService interface {
		FetchBatch(ctx context.Context, kind domain.OutboxBatchKind, size int) ([]*domain.OutboxEvent, error)
		Relay(ctx context.Context, event *domain.OutboxEvent) (*domain.OutboxRelayResult, error)
	}

	publisherService struct {
		outboxRepo ports.OutboxRepository
		queue      ports.JobQueue
		retryDelay backoff.Strategy
		logger     infrastructure.Logger
		metrics    infrastructure.Metrics
	}
)

func NewPublisherService(
	outboxRepo ports.OutboxRepository,
	queue ports.JobQueue,
	retryDelay backoff.Strategy,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
) PublisherService {
	return publisherService{
		outboxRepo: outboxRepo,
		queue:      queue,
		retryDelay: retryDelay,
		logger:     logger.Component("outbox-publisher"),
		metrics:    metrics,
	}
}

func (s publisherService) FetchBatch(ctx context.Context, kind domain.OutboxBatchKind, size int) ([]*domain.OutboxEvent, error) {
	switch kind {
	case domain.OutboxBatchPending:
		return s.outboxRepo.FindPending(ctx, size)
	case domain.OutboxBatchRetryable:
		return s.outboxRepo.FindRetryable(ctx, size)
	default:
		return nil, fmt.Errorf("unknown outbox batch kind %q", kind)
	}
}

// Relay claims the event, enqueues its job and records the outcome. A lost claim or a
// broker failure is reported in the result; only bookkeeping failures are returned as errors.
func (s publisherService) Relay(ctx context.Context, event *domain.OutboxEvent) (*domain.OutboxRelayResult, error) {
	claimed, err := s.outboxRepo.ClaimForProcessing(ctx, event.ID.String())
	if err != nil {
		// Another relay got there first, or the event is no longer due.
		return notRelayed("claim", err), nil
	}

	// Once claimed, the outcome is recorded even when the relay is shutting down.
	bookkeeping := context.WithoutCancel(ctx)

	if err := s.queue.Enqueue(ctx, &claimed.Job); err != nil {
		s.metrics.RecordOutboxEvent(ctx, false, string(claimed.Priority))

		if scheduleErr := s.reschedule(bookkeeping, claimed, err); scheduleErr != nil {
			return nil, scheduleErr
		}

		return notRelayed("enqueue", err), nil
	}

	if err := s.outboxRepo.MarkPublished(bookkeeping, claimed.ID.String()); err != nil {
		return nil, fmt.Errorf("job %s was enqueued but its outbox event was not marked published: %w", claimed.Job.ID, err)
	}

	s.metrics.RecordOutboxEvent(ctx, true, string(claimed.Priority))

	s.logger.Debug().
		Str("event_id", claimed.ID.String()).
		Str("job", claimed.JobName).
		Str("queue", claimed.Queue.String()).
		Str("order_id", claimed.Job.OrderID).
		Msg("outbox event relayed")

	return &domain.OutboxRelayResult{Published: true}, nil
}

// reschedule parks a failed event until its backoff expires, or gives up once its retries are spent.
func (s publisherService) reschedule(ctx context.Context, event *domain.OutboxEvent, cause error) error {
	eventID := event.ID.String()

	if event.RetryCount >= event.MaxRetries {
		if err := s.outboxRepo.MarkPermanentlyFailed(ctx, eventID, cause.Error()); err != nil {
			return fmt.Errorf("failed to give up on outbox event %s: %w", eventID, err)
		}

		s.logger.Warn().
			Str("event_id", eventID).
			Str("job", event.JobName).
			Str("order_id", event.Job.OrderID).
			Int("retry_count", event.RetryCount).
			Msg("outbox event abandoned after max retries")

		return nil
	}

	nextRetryAt := time.Now().Add(s.retryDelay.Backoff(event.RetryCount))

	if err := s.outboxRepo.MarkFailed(ctx, eventID, cause.Error(), &nextRetryAt); err != nil {
		return fmt.Errorf("failed to reschedule outbox event %s: %w", eventID, err)
	}

	s.logger.Debug().
		Str("event_id", eventID).
		Int("retry_count", event.RetryCount+1).
		Time("next_retry_at", nextRetryAt).
		Msg("outbox event rescheduled")

	return nil
}

func notRelayed(stage string, err error) *domain.OutboxRelayResult {
	return &domain.OutboxRelayResult{Reason: fmt.Sprintf("%s: %v", stage, err)}
}
