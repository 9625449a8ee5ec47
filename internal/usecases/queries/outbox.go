package queries

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
)

type (
	// FetchOutboxBatchQuery asks for up to Size events of the given kind.
	FetchOutboxBatchQuery struct {
		Kind domain.OutboxBatchKind
		Size int
	}

	FetchOutboxBatchQueryHandler decorator.QueryHandler[FetchOutboxBatchQuery, []*domain.OutboxEvent]

	fetchOutboxBatchQueryHandler struct {
		publisherService service.PublisherService
	}
)

func NewFetchOutboxBatchQueryHandler(
	publisherService service.PublisherService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchOutboxBatchQueryHandler {
	return decorator.ApplyQueryDecorators[FetchOutboxBatchQuery, []*domain.OutboxEvent](
		fetchOutboxBatchQueryHandler{publisherService: publisherService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h fetchOutboxBatchQueryHandler) Execute(ctx context.Context, query FetchOutboxBatchQuery) ([]*domain.OutboxEvent, error) {
	return h.publisherService.FetchBatch(ctx, query.Kind, query.Size)
}
