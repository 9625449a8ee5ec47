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
	CreateOrderCommand struct {
		Order *domain.Order
	}

	UpdateOrderCommand struct {
		ID    uuid.UUID
		Patch domain.OrderPatch
	}

	DeleteOrderCommand struct {
		ID uuid.UUID
	}

	RequestOrderDocumentCommand struct {
		ID          uuid.UUID
		EmailClient bool
	}

	CreateOrderHandler          decorator.CommandHandler[CreateOrderCommand, *domain.Order]
	UpdateOrderHandler          decorator.CommandHandler[UpdateOrderCommand, *domain.Order]
	DeleteOrderHandler          decorator.CommandHandler[DeleteOrderCommand, struct{}]
	RequestOrderDocumentHandler decorator.CommandHandler[RequestOrderDocumentCommand, *domain.Job]

	createOrderHandler struct {
		orderService service.OrderService
	}

	updateOrderHandler struct {
		orderService service.OrderService
	}

	deleteOrderHandler struct {
		orderService service.OrderService
	}

	requestOrderDocumentHandler struct {
		orderService service.OrderService
	}
)

func NewCreateOrderHandler(
	orderService service.OrderService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) CreateOrderHandler {
	return decorator.ApplyCommandDecorators[CreateOrderCommand, *domain.Order](
		createOrderHandler{orderService: orderService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h createOrderHandler) Handle(ctx context.Context, cmd CreateOrderCommand) (*domain.Order, error) {
	return h.orderService.Create(ctx, cmd.Order)
}

func NewUpdateOrderHandler(
	orderService service.OrderService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) UpdateOrderHandler {
	return decorator.ApplyCommandDecorators[UpdateOrderCommand, *domain.Order](
		updateOrderHandler{orderService: orderService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h updateOrderHandler) Handle(ctx context.Context, cmd UpdateOrderCommand) (*domain.Order, error) {
	return h.orderService.Update(ctx, cmd.ID, cmd.Patch)
}

func NewDeleteOrderHandler(
	orderService service.OrderService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) DeleteOrderHandler {
	return decorator.ApplyCommandDecorators[DeleteOrderCommand, struct{}](
		deleteOrderHandler{orderService: orderService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h deleteOrderHandler) Handle(ctx context.Context, cmd DeleteOrderCommand) (struct{}, error) {
	return struct{}{}, h.orderService.Delete(ctx, cmd.ID)
}

func NewRequestOrderDocumentHandler(
	orderService service.OrderService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) RequestOrderDocumentHandler {
	return decorator.ApplyCommandDecorators[RequestOrderDocumentCommand, *domain.Job](
		requestOrderDocumentHandler{orderService: orderService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h requestOrderDocumentHandler) Handle(ctx context.Context, cmd RequestOrderDocumentCommand) (*domain.Job, error) {
	return h.orderService.RequestDocument(ctx, cmd.ID, cmd.EmailClient)
}
