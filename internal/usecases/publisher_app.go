package usecases

import (
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
	"github.com/architeacher/svc-visa-processing/internal/usecases/commands"
	"github.com/architeacher/svc-visa-processing/internal/usecases/queries"
)

type (
	// PublisherApplication is the use case surface of the outbox relay.
	PublisherApplication struct {
		Commands PublisherCommands
		Queries  PublisherQueries
	}

	PublisherCommands struct {
		RelayOutboxEvent commands.RelayOutboxEventHandler
	}

	PublisherQueries struct {
		FetchOutboxBatch queries.FetchOutboxBatchQueryHandler
	}
)

func NewPublisherApplication(
	publisherService service.PublisherService,
	logger infrastructure.Logger,
	tracerProvider otelTrace.TracerProvider,
	metricsClient decorator.MetricsClient,
) *PublisherApplication {
	return &PublisherApplication{
		Commands: PublisherCommands{
			RelayOutboxEvent: commands.NewRelayOutboxEventHandler(publisherService, logger, tracerProvider, metricsClient),
		},
		Queries: PublisherQueries{
			FetchOutboxBatch: queries.NewFetchOutboxBatchQueryHandler(publisherService, logger, tracerProvider, metricsClient),
		},
	}
}
