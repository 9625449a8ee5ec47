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
	FetchWorkflowQuery struct {
		ID uuid.UUID
	}

	ListWorkflowsQuery struct {
		Page domain.PageRequest
	}

	FetchWorkflowQueryHandler decorator.QueryHandler[FetchWorkflowQuery, *domain.Workflow]
	ListWorkflowsQueryHandler decorator.QueryHandler[ListWorkflowsQuery, domain.Page[*domain.Workflow]]

	fetchWorkflowQueryHandler struct {
		workflowService service.WorkflowService
	}

	listWorkflowsQueryHandler struct {
		workflowService service.WorkflowService
	}
)

func NewFetchWorkflowQueryHandler(
	workflowService service.WorkflowService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) FetchWorkflowQueryHandler {
	return decorator.ApplyQueryDecorators[FetchWorkflowQuery, *domain.Workflow](
		fetchWorkflowQueryHandler{workflowService: workflowService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h fetchWorkflowQueryHandler) Execute(ctx context.Context, query FetchWorkflowQuery) (*domain.Workflow, error) {
	return h.workflowService.Get(ctx, query.ID)
}

func NewListWorkflowsQueryHandler(
	workflowService service.WorkflowService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) ListWorkflowsQueryHandler {
	return decorator.ApplyQueryDecorators[ListWorkflowsQuery, domain.Page[*domain.Workflow]](
		listWorkflowsQueryHandler{workflowService: workflowService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h listWorkflowsQueryHandler) Execute(ctx context.Context, query ListWorkflowsQuery) (domain.Page[*domain.Workflow], error) {
	return h.workflowService.List(ctx, query.Page)
}
