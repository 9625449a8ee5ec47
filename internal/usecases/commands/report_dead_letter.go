package commands

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
)

type (
	ReportDeadLetterCommand struct {
		Job    *domain.Job
		Result domain.JobResult
	}

	ReportDeadLetterHandler decorator.CommandHandler[ReportDeadLetterCommand, struct{}]

	reportDeadLetterHandler struct {
		subscriberService service.SubscriberService
	}
)

func NewReportDeadLetterHandler(
	subscriberService service.SubscriberService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) ReportDeadLetterHandler {
	return decorator.ApplyCommandDecorators[ReportDeadLetterCommand, struct{}](
		reportDeadLetterHandler{subscriberService: subscriberService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h reportDeadLetterHandler) Handle(ctx context.Context, cmd ReportDeadLetterCommand) (struct{}, error) {
	return struct{}{}, h.subscriberService.ReportDeadLetter(ctx, cmd.Job, cmd.Result)
}
