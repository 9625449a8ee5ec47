package conditions

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/architeacher/svc-visa-processing/internal/domain"
	"github.com/architeacher/svc-visa-processing/internal/infrastructure"
)

const defaultProgramCacheSize = 256

// CELEvaluator runs workflow conditions written in CEL against order events.
// Conditions see two variables: order (the order document) and event
// (type, previous_status, occurred_at).
type CELEvaluator struct {
	env      *cel.Env
	programs *lru.Cache[string, cel.Program]
	logger   infrastructure.Logger
}

func NewCELEvaluator(cacheSize int, logger infrastructure.Logger) (*CELEvaluator, error) {
	if cacheSize <= 0 {
		cacheSize = defaultProgramCacheSize
	}

	env, err := cel.NewEnv(
		cel.Variable("order", cel.MapType(cel.StringType, cel.DynType)),
		cel.Variable("event", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}

	programs, err := lru.New[string, cel.Program](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create program cache: %w", err)
	}

	return &CELEvaluator{
		env:      env,
		programs: programs,
		logger:   logger.Component("cel-evaluator"),
	}, nil
}

// Compile checks the expression without caching it, empty expressions always match.
func (e *CELEvaluator) Compile(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return nil
	}

	if _, err := e.compile(expression); err != nil {
		return domain.NewInvalidWorkflowError("workflow condition does not compile", err).
			WithDetails("condition", expression)
	}

	return nil
}

// Evaluate reports whether the workflow condition holds for the event. Compiled
// programs are cached per workflow id and version.
func (e *CELEvaluator) Evaluate(_ context.Context, workflow *domain.Workflow, event domain.OrderEvent) (bool, error) {
	expression := strings.TrimSpace(workflow.Config.Condition)
	if expression == "" {
		return true, nil
	}

	key := programKey(workflow)

	program, ok := e.programs.Get(key)
	if !ok {
		compiled, err := e.compile(expression)
		if err != nil {
			return false, domain.NewInvalidWorkflowError(
				fmt.Sprintf("condition of workflow %s does not compile", workflow.ID),
				err,
			)
		}

		e.programs.Add(key, compiled)
		program = compiled
	}

	activation, err := activationFor(event)
	if err != nil {
		return false, err
	}

	out, _, err := program.Eval(activation)
	if err != nil {
		e.logger.Debug().
			Err(err).
			Str("workflow_id", workflow.ID.String()).
			Msg("workflow condition evaluation failed")

		return false, fmt.Errorf("failed to evaluate condition of workflow %s: %w", workflow.ID, err)
	}

	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition of workflow %s returned %T, expected bool", workflow.ID, out.Value())
	}

	return matched, nil
}

func (e *CELEvaluator) compile(expression string) (cel.Program, error) {
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, issues.Err()
	}

	if !ast.OutputType().IsExactType(cel.BoolType) && !ast.OutputType().IsExactType(cel.DynType) {
		return nil, fmt.Errorf("condition must evaluate to bool, got %s", ast.OutputType())
	}

	return e.env.Program(ast)
}

func programKey(workflow *domain.Workflow) string {
	return workflow.ID.String() + ":" + strconv.Itoa(workflow.Version)
}

func activationFor(event domain.OrderEvent) (map[string]any, error) {
	raw, err := json.Marshal(event.Order)
	if err != nil {
		return nil, fmt.Errorf("failed to encode order for condition: %w", err)
	}

	order := map[string]any{}
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, fmt.Errorf("failed to decode order for condition: %w", err)
	}

	return map[string]any{
		"order": order,
		"event": map[string]any{
			"type":            string(event.Type),
			"previous_status": string(event.PreviousStatus),
			"occurred_at":     event.OccurredAt.UTC().Format(time.RFC3339),
		},
	}, nil
}
