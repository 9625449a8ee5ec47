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
	RelayOutboxEventCommand struct {
		Event *domain.OutboxEvent
	}

	RelayOutboxEventHandler decorator.CommandHandler[RelayOutboxEventCommand, *domain.OutboxRelayResult]

	relayOutboxEventHandler struct {
		publisherService service.PublisherService
	}
)

func NewRelayOutboxEventHandler(
	publisherService service.PublisherService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) RelayOutboxEventHandler {
	return decorator.ApplyCommandDecorators[RelayOutboxEventCommand, *domain.OutboxRelayResult](
		relayOutboxEventHandler{publisherService: publisherService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h relayOutboxEventHandler) Handle(ctx context.Context, cmd RelayOutboxEventCommand) (*domain.OutboxRelayResult, error) {
	return h.publisherService.Relay(ctx, cmd.Event)
}
