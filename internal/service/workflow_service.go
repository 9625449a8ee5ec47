package service

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"

	"github.com/google/uuid"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
	"github.com/architeacher/svc-visa-processing/internal/ports"
)

type (
	WorkflowService interface {
		Create(ctx context.Context, workflow *domain.Workflow) (*domain.Workflow, error)
		Get(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
		List(ctx context.Context, page domain.PageRequest) (domain.Page[*domain.Workflow], error)
		Update(ctx context.Context, id uuid.UUID, patch domain.WorkflowPatch) (*domain.Workflow, error)
		Delete(ctx context.Context, id uuid.UUID) error
		// JobsForEvent returns the jobs of every enabled workflow reacting to event.
		JobsForEvent(ctx context.Context, event domain.OrderEvent) ([]*domain.Job, error)
	}

	workflowService struct {
		workflowRepo ports.WorkflowRepository
		evaluator    ports.ConditionEvaluator
		factory      JobFactory
		logger       infrastructure.Logger
	}
)

func NewWorkflowService(
	workflowRepo ports.WorkflowRepository,
	evaluator ports.ConditionEvaluator,
	factory JobFactory,
	logger infrastructure.Logger,
) WorkflowService {
	return &workflowService{
		workflowRepo: workflowRepo,
		evaluator:    evaluator,
		factory:      factory,
		logger:       logger.Component("workflows"),
	}
}

func (s *workflowService) Create(ctx context.Context, workflow *domain.Workflow) (*domain.Workflow, error) {
	if err := s.validate(workflow); err != nil {
		return nil, err
	}

	if err := s.workflowRepo.Create(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}

	s.logger.Info().
		Str("workflow_id", workflow.ID.String()).
		Str("trigger", string(workflow.Trigger)).
		Msg("workflow created")

	return workflow, nil
}

func (s *workflowService) Get(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	return s.workflowRepo.FindByID(ctx, id)
}

func (s *workflowService) List(ctx context.Context, page domain.PageRequest) (domain.Page[*domain.Workflow], error) {
	workflows, total, err := s.workflowRepo.List(ctx, page)
	if err != nil {
		return domain.Page[*domain.Workflow]{}, fmt.Errorf("failed to list workflows: %w", err)
	}

	return domain.NewPage(workflows, page, total), nil
}

func (s *workflowService) Update(ctx context.Context, id uuid.UUID, patch domain.WorkflowPatch) (*domain.Workflow, error) {
	workflow, err := s.workflowRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow.Apply(patch)

	if err := s.validate(workflow); err != nil {
		return nil, err
	}

	if err := s.workflowRepo.Update(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}

	return workflow, nil
}

func (s *workflowService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.workflowRepo.Delete(ctx, id)
}

func (s *workflowService) validate(workflow *domain.Workflow) error {
	var fields []domain.FieldError

	if workflow.Name == "" {
		fields = append(fields, domain.FieldError{Field: "name", Message: "is required"})
	}

	if !workflow.Trigger.Valid() {
		fields = append(fields, domain.FieldError{Field: "trigger", Message: "unknown trigger " + string(workflow.Trigger)})
	}

	fields = append(fields, workflow.Config.Validate()...)

	if len(fields) > 0 {
		return domain.NewValidationError("invalid workflow", fields...)
	}

	return s.evaluator.Compile(workflow.Config.Condition)
}

// JobsForEvent skips workflows whose condition fails to evaluate or whose actions
// cannot be turned into jobs, one broken workflow never blocks the others.
func (s *workflowService) JobsForEvent(ctx context.Context, event domain.OrderEvent) ([]*domain.Job, error) {
	workflows, err := s.workflowRepo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list enabled workflows: %w", err)
	}

	var jobs []*domain.Job

	for _, workflow := range workflows {
		if !workflow.Matches(event.Type) {
			continue
		}

		matched, err := s.evaluator.Evaluate(ctx, workflow, event)
		if err != nil {
			s.logger.Warn().
				Err(err).
				Str("workflow_id", workflow.ID.String()).
				Msg("workflow condition failed, skipping")

			continue
		}

		if !matched {
			continue
		}

		for _, action := range workflow.Config.Actions {
			job, err := s.actionJob(action, &event.Order)
			if err != nil {
				s.logger.Warn().
					Err(err).
					Str("workflow_id", workflow.ID.String()).
					Str("job", action.Job).
					Msg("workflow action skipped")

				continue
			}

			jobs = append(jobs, job)
		}
	}

	return jobs, nil
}

func (s *workflowService) actionJob(action domain.WorkflowAction, order *domain.Order) (*domain.Job, error) {
	payload := orderJobDefaults(action.Job, order)

	if len(action.Params) > 0 {
		var params map[string]any
		if err := json.Unmarshal(action.Params, &params); err != nil {
			return nil, fmt.Errorf("invalid params: %w", err)
		}

		maps.Copy(payload, params)
	}

	job, err := s.factory.Job(action.Job, domain.QueueName(action.Queue), payload, domain.JobOptions{DelayMS: action.DelayMS})
	if err != nil {
		return nil, err
	}

	job.OrderID = order.OrderID

	return job, nil
}

// orderJobDefaults fills the payload fields a job of name takes from the order.
func orderJobDefaults(name string, order *domain.Order) map[string]any {
	payload := map[string]any{"order_id": order.ID.String()}

	switch name {
	case domain.JobWhatsAppSend:
		payload["phone"] = order.ClientPhone
		payload["template"] = domain.TemplateForCountry(order.Country)
	case domain.JobEmailSend:
		payload["to"] = []string{order.ClientEmail}
		payload["order_id"] = order.OrderID
	}

	return payload
}
