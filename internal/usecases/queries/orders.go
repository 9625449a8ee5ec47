package queries

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
	FetchOrderQuery struct {
		ID uuid.UUID
	}

	ListOrdersQuery struct {
		Filter domain.OrderFilter
		Page   domain.PageRequest
	}

	FetchOrderQueryHandler decorator.QueryHandler[FetchOrderQuery, *domain.Order]
	ListOrdersQueryHandler decorator.QueryHandler[ListOrdersQuery, domain.Page[*domain.Order]]

	fetchOrderQueryHandler struct {
		orderService service.OrderService
	}

	listOrdersQueryHandler struct {
		orderService service.OrderService
	}
)

func NewFetchOrderQueryHandler(
	orderService service.OrderService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchOrderQueryHandler {
	return decorator.ApplyQueryDecorators[FetchOrderQuery, *domain.Order](
		fetchOrderQueryHandler{orderService: orderService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h fetchOrderQueryHandler) Execute(ctx context.Context, query FetchOrderQuery) (*domain.Order, error) {
	return h.orderService.Get(ctx, query.ID)
}

func NewListOrdersQueryHandler(
	orderService service.OrderService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) ListOrdersQueryHandler {
	return decorator.ApplyQueryDecorators[ListOrdersQuery, domain.Page[*domain.Order]](
		listOrdersQueryHandler{orderService: orderService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h listOrdersQueryHandler) Execute(ctx context.Context, query ListOrdersQuery) (domain.Page[*domain.Order], error) {
	return h.orderService.List(ctx, query.Filter, query.Page)
}
