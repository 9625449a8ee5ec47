package queue

import (
	"context"
	"time"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
	"github.com/architeacher/svc-visa-processing/internal/usecases"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
	"github.com/architeacher/svc-visa-processing/pkg/queue"
)

var _ ports.MessageHandler = (*JobWorker)(nil)

// JobWorker runs the jobs delivered on one queue and settles every delivery:
// success acks, a retryable failure with attempts left goes to the retry queue
// and anything else is dead-lettered.
type JobWorker struct {
	app    *usecases.SubscriberApplication
	logger infrastructure.Logger
}

func NewJobWorker(app *usecases.SubscriberApplication, logger infrastructure.Logger) *JobWorker {
	return &JobWorker{
		app:    app,
		logger: logger.Component("job-worker"),
	}
}

func (w *JobWorker) ProcessMessage(ctx context.Context, msg queue.Message, ctrl *queue.MsgController) error {
	var job domain.Job
	if err := msg.Unmarshal(&job); err != nil {
		w.logger.Error().Err(err).Msg("failed to unmarshal job")

		return ctrl.DeadLetter(msg, "undecodable job: "+err.Error())
	}

	queueName := job.Queue.String()

	infrastructure.WorkerJobsActive.WithLabelValues(queueName).Inc()
	defer infrastructure.WorkerJobsActive.WithLabelValues(queueName).Dec()

	started := time.Now()

	result, err := w.app.Commands.ProcessJobHandler.Handle(ctx, commands.ProcessJobCommand{Job: &job})
	if err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to process job")

		return ctrl.Requeue(msg)
	}

	infrastructure.WorkerJobDuration.WithLabelValues(queueName, job.Name).Observe(time.Since(started).Seconds())

	if result.Success {
		infrastructure.WorkerJobsCompleted.WithLabelValues(queueName, job.Name).Inc()

		return ctrl.Ack(msg)
	}

	if result.Retryable && job.CanRetry() {
		return w.retry(msg, ctrl, &job)
	}

	return w.deadLetter(ctx, msg, ctrl, &job, result)
}

func (w *JobWorker) retry(msg queue.Message, ctrl *queue.MsgController, job *domain.Job) error {
	job.AttemptsMade++
	delay := job.Options.BackoffDelay(job.AttemptsMade)

	infrastructure.WorkerJobsFailed.WithLabelValues(job.Queue.String(), job.Name, infrastructure.JobOutcomeRetried).Inc()

	w.logger.Info().
		Str("job_id", job.ID).
		Str("job", job.Name).
		Int("attempts_made", job.AttemptsMade).
		Dur("delay", delay).
		Msg("job scheduled for retry")

	msg.Body = job

	return ctrl.Retry(msg, delay)
}

func (w *JobWorker) deadLetter(
	ctx context.Context,
	msg queue.Message,
	ctrl *queue.MsgController,
	job *domain.Job,
	result domain.JobResult,
) error {
	infrastructure.WorkerJobsFailed.WithLabelValues(job.Queue.String(), job.Name, infrastructure.JobOutcomeDeadLettered).Inc()

	if _, err := w.app.Commands.ReportDeadLetterHandler.Handle(ctx, commands.ReportDeadLetterCommand{
		Job:    job,
		Result: result,
	}); err != nil {
		w.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to report dead-lettered job")
	}

	return ctrl.DeadLetter(msg, result.Error)
}
