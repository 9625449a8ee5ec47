package usecases

import (
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
)

type (
	// SubscriberApplication is the use case surface of the job workers.
	SubscriberApplication struct {
		Commands SubscriberCommands
	}

	SubscriberCommands struct {
		ProcessJobHandler       commands.ProcessJobHandler
		ReportDeadLetterHandler commands.ReportDeadLetterHandler
	}
)

func NewSubscriberApplication(
	subscriberService service.SubscriberService,
	logger infrastructure.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient decorator.MetricsClient,
) *SubscriberApplication {
	return &SubscriberApplication{
		Commands: SubscriberCommands{
			ProcessJobHandler:       commands.NewProcessJobHandler(subscriberService, logger, tracerProvider, metricsClient),
			ReportDeadLetterHandler: commands.NewReportDeadLetterHandler(subscriberService, logger, tracerProvider, metricsClient),
		},
	}
}
