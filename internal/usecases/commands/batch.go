package commands

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/service"
	"github.com/architeacher/svc-visa-processing/internal/shared/decorator"
)

type (
	BulkUpdateStatusCommand struct {
		IDs    []uuid.UUID
		Status domain.OrderStatus
	}

	BulkNotifyCommand struct {
		IDs      []uuid.UUID
		Template string
	}

	InvalidateCacheCommand struct {
		Patterns []string
	}

	BulkUpdateStatusHandler decorator.CommandHandler[BulkUpdateStatusCommand, *domain.BatchResult]
	BulkNotifyHandler       decorator.CommandHandler[BulkNotifyCommand, *domain.BatchResult]
	InvalidateCacheHandler  decorator.CommandHandler[InvalidateCacheCommand, *domain.BatchResult]

	bulkUpdateStatusHandler struct {
		batchService service.BatchOperationsService
	}

	bulkNotifyHandler struct {
		batchService service.BatchOperationsService
	}

	invalidateCacheHandler struct {
		batchService service.BatchOperationsService
	}
)

func NewBulkUpdateStatusHandler(
	batchService service.BatchOperationsService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) BulkUpdateStatusHandler {
	return decorator.ApplyCommandDecorators[BulkUpdateStatusCommand, *domain.BatchResult](
		bulkUpdateStatusHandler{batchService: batchService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h bulkUpdateStatusHandler) Handle(ctx context.Context, cmd BulkUpdateStatusCommand) (*domain.BatchResult, error) {
	return h.batchService.BulkUpdateStatus(ctx, cmd.IDs, cmd.Status)
}

func NewBulkNotifyHandler(
	batchService service.BatchOperationsService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) BulkNotifyHandler {
	return decorator.ApplyCommandDecorators[BulkNotifyCommand, *domain.BatchResult](
		bulkNotifyHandler{batchService: batchService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h bulkNotifyHandler) Handle(ctx context.Context, cmd BulkNotifyCommand) (*domain.BatchResult, error) {
	return h.batchService.BulkEnqueueNotifications(ctx, cmd.IDs, cmd.Template)
}

func NewInvalidateCacheHandler(
	batchService service.BatchOperationsService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) InvalidateCacheHandler {
	return decorator.ApplyCommandDecorators[InvalidateCacheCommand, *domain.BatchResult](
		invalidateCacheHandler{batchService: batchService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h invalidateCacheHandler) Handle(ctx context.Context, cmd InvalidateCacheCommand) (*domain.BatchResult, error) {
	return h.batchService.InvalidateCache(ctx, cmd.Patterns)
}
