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
	CreateWorkflowCommand struct {
		Workflow *domain.Workflow
	}

	UpdateWorkflowCommand struct {
		ID    uuid.UUID
		Patch domain.WorkflowPatch
	}

	DeleteWorkflowCommand struct {
		ID uuid.UUID
	}

	CreateWorkflowHandler decorator.CommandHandler[CreateWorkflowCommand, *domain.Workflow]
	UpdateWorkflowHandler decorator.CommandHandler[UpdateWorkflowCommand, *domain.Workflow]
	DeleteWorkflowHandler decorator.CommandHandler[DeleteWorkflowCommand, struct{}]

	createWorkflowHandler struct {
		workflowService service.WorkflowService
	}

	updateWorkflowHandler struct {
		workflowService service.WorkflowService
	}

	deleteWorkflowHandler struct {
		workflowService service.WorkflowService
	}
)

func NewCreateWorkflowHandler(
	workflowService service.WorkflowService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) CreateWorkflowHandler {
	return decorator.ApplyCommandDecorators[CreateWorkflowCommand, *domain.Workflow](
		createWorkflowHandler{workflowService: workflowService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h createWorkflowHandler) Handle(ctx context.Context, cmd CreateWorkflowCommand) (*domain.Workflow, error) {
	return h.workflowService.Create(ctx, cmd.Workflow)
}

func NewUpdateWorkflowHandler(
	workflowService service.WorkflowService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) UpdateWorkflowHandler {
	return decorator.ApplyCommandDecorators[UpdateWorkflowCommand, *domain.Workflow](
		updateWorkflowHandler{workflowService: workflowService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h updateWorkflowHandler) Handle(ctx context.Context, cmd UpdateWorkflowCommand) (*domain.Workflow, error) {
	return h.workflowService.Update(ctx, cmd.ID, cmd.Patch)
}

func NewDeleteWorkflowHandler(
	workflowService service.WorkflowService,
	logger infrastructure.Logger,
	tracerProvider trace.TracerProvider,
	metricsClient decorator.MetricsClient,
) DeleteWorkflowHandler {
	return decorator.ApplyCommandDecorators[DeleteWorkflowCommand, struct{}](
		deleteWorkflowHandler{workflowService: workflowService},
		logger,
		tracerProvider,
		metricsClient,
	)
}

func (h deleteWorkflowHandler) Handle(ctx context.Context, cmd DeleteWorkflowCommand) (struct{}, error) {
	return struct{}{}, h.workflowService.Delete(ctx, cmd.ID)
}
