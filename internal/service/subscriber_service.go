package service

import (
	"context"
	"fmt"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

const codeUnknownJob = "UNKNOWN_JOB"

type (
	SubscriberService interface {
		// ProcessJob runs the processor registered for the job and records the outcome.
		ProcessJob(ctx context.Context, job *domain.Job) domain.JobResult
		// ReportDeadLetter raises an ops alert for a job that will not run again.
		ReportDeadLetter(ctx context.Context, job *domain.Job, result domain.JobResult) error
	}

	subscriberService struct {
		processors map[string]ports.JobProcessor
		logRepo    ports.LogEntryRepository
		logIndex   ports.LogIndex
		queue      ports.JobQueue
		factory    JobFactory
		logger     infrastructure.Logger
		metrics    infrastructure.Metrics
	}
)

func NewSubscriberService(
	processors map[string]ports.JobProcessor,
	logRepo ports.LogEntryRepository,
	logIndex ports.LogIndex,
	queue ports.JobQueue,
	factory JobFactory,
	logger infrastructure.Logger,
	metrics infrastructure.Metrics,
) SubscriberService {
	return &subscriberService{
		processors: processors,
		logRepo:    logRepo,
		logIndex:   logIndex,
		queue:      queue,
		factory:    factory,
		logger:     logger.Component("subscriber"),
		metrics:    metrics,
	}
}

func (s *subscriberService) ProcessJob(ctx context.Context, job *domain.Job) domain.JobResult {
	started := time.Now()

	s.logger.Debug().
		Str("job_id", job.ID).
		Str("job", job.Name).
		Str("queue", job.Queue.String()).
		Int("attempt", job.Attempt()).
		Msg("processing job")

	var (
		data map[string]any
		err  error
	)

	processor, ok := s.processors[job.Name]
	if !ok {
		err = domain.PermanentJobError(codeUnknownJob, fmt.Sprintf("no processor registered for %s", job.Name), nil)
	} else {
		data, err = processor.Process(ctx, job)
	}

	elapsed := time.Since(started)

	result := domain.SucceededResult(data, elapsed)
	if err != nil {
		result = domain.FailedResult(err, elapsed)
	}

	s.metrics.RecordJob(ctx, job.Queue.String(), job.Name, outcome(job, result), elapsed)
	s.record(ctx, job, result)

	return result
}

func (s *subscriberService) ReportDeadLetter(ctx context.Context, job *domain.Job, result domain.JobResult) error {
	// Alerts about failing alerts would loop.
	if job.Name == domain.JobOpsAlert {
		s.logger.Error().
			Str("job_id", job.ID).
			Str("error", result.Error).
			Msg("ops alert dead-lettered")

		return nil
	}

	alert, err := s.factory.Job(domain.JobOpsAlert, "", domain.OpsAlertPayload{
		Subject: fmt.Sprintf("[visa-processing] %s dead-lettered", job.Name),
		Message: fmt.Sprintf(
			"Job %s (%s) on queue %s failed after %d attempt(s): %s",
			job.ID, job.Name, job.Queue, job.Attempt(), result.Error,
		),
		Queue:   job.Queue.String(),
		JobName: job.Name,
		JobID:   job.ID,
	}, domain.JobOptions{})
	if err != nil {
		return err
	}

	alert.OrderID = job.OrderID

	if err := s.queue.Enqueue(ctx, alert); err != nil {
		return fmt.Errorf("failed to queue ops alert for %s: %w", job.ID, err)
	}

	return nil
}

// record stores the outcome and indexes it, neither may fail the job. Completed jobs
// flagged remove-on-complete leave no record behind.
func (s *subscriberService) record(ctx context.Context, job *domain.Job, result domain.JobResult) {
	if result.Success && job.Options.RemoveOnComplete {
		s.logger.Debug().
			Str("job_id", job.ID).
			Str("job", job.Name).
			Str("queue", job.Queue.String()).
			Int64("duration_ms", result.DurationMS).
			Msg("job completed and removed")

		return
	}

	entry := domain.NewJobLogEntry(job, result)

	if s.logRepo != nil {
		if err := s.logRepo.Create(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to store job log entry")
		}
	}

	if s.logIndex != nil {
		if err := s.logIndex.Index(ctx, entry); err != nil {
			s.logger.Warn().Err(err).Str("job_id", job.ID).Msg("failed to index job log entry")
		}
	}

	event := s.logger.Info()
	if !result.Success {
		event = s.logger.Warn().Str("error_code", result.ErrorCode).Str("error", result.Error).Bool("retryable", result.Retryable)
	}

	event.
		Str("job_id", job.ID).
		Str("job", job.Name).
		Str("queue", job.Queue.String()).
		Int("attempt", job.Attempt()).
		Int64("duration_ms", result.DurationMS).
		Msg("job processed")
}

func outcome(job *domain.Job, result domain.JobResult) string {
	switch {
	case result.Success:
		return infrastructure.JobOutcomeCompleted
	case result.Retryable && job.CanRetry():
		return infrastructure.JobOutcomeRetried
	default:
		return infrastructure.JobOutcomeDeadLettered
	}
}
