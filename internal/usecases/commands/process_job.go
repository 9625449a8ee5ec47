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
	ProcessJobCommand struct {
		Job *domain.Job
	}

	ProcessJobHandler decorator.CommandHandler[ProcessJobCommand, domain.JobResult]

	processJobHandler struct {
		subscriberService service.SubscriberService
	}
)

func NewProcessJobHandler(
	subscriberService service.SubscriberService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) ProcessJobHandler {
	return decorator.ApplyCommandDecorators[ProcessJobCommand, domain.JobResult](
		processJobHandler{subscriberService: subscriberService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

// Handle never fails, a failed run is reported through the result.
func (h processJobHandler) Handle(ctx context.Context, cmd ProcessJobCommand) (domain.JobResult, error) {
	return h.subscriberService.ProcessJob(ctx, cmd.Job), nil
}
