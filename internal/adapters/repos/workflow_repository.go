package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

const (
	workflowsTable   = "workflows"
	workflowResource = "workflow"
)

var workflowColumns = []string{
	"id", "name", "description", "trigger", "config", "enabled", "version", "created_at", "updated_at",
}

type (
	WorkflowRepository struct {
		conn *sqlx.DB
	}

	workflowRow struct {
		ID          uuid.UUID `db:"id"`
		Name        string    `db:"name"`
		Description string    `db:"description"`
		Trigger     string    `db:"trigger"`
		Config      []byte    `db:"config"`
		Enabled     bool      `db:"enabled"`
		Version     int       `db:"version"`
		CreatedAt   time.Time `db:"created_at"`
		UpdatedAt   time.Time `db:"updated_at"`
	}
)

func NewWorkflowRepository(db *sqlx.DB) *WorkflowRepository {
	return &WorkflowRepository{
		conn: db,
	}
}

func (r *WorkflowRepository) Create(ctx context.Context, workflow *domain.Workflow) error {
	if workflow.ID == uuid.Nil {
		workflow.ID = uuid.New()
	}

	now := time.Now().UTC()
	workflow.CreatedAt, workflow.UpdatedAt = now, now
	workflow.Version = 1

	config, err := json.Marshal(workflow.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow config: %w", err)
	}

	query, args, err := psql.Insert(workflowsTable).
		Columns(workflowColumns...).
		Values(workflow.ID, workflow.Name, workflow.Description, string(workflow.Trigger), string(config),
			workflow.Enabled, workflow.Version, workflow.CreatedAt, workflow.UpdatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert workflow: %w", err)
	}

	return nil
}

func (r *WorkflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error) {
	query, args, err := psql.Select(workflowColumns...).
		From(workflowsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var row workflowRow
	if err := r.conn.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, workflowResource, id.String(), "query")
	}

	return row.toDomain()
}

func (r *WorkflowRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.Workflow, int, error) {
	var total int
	if err := r.conn.GetContext(ctx, &total, "SELECT COUNT(*) FROM "+workflowsTable); err != nil {
		return nil, 0, fmt.Errorf("failed to count workflows: %w", err)
	}

	query, args, err := psql.Select(workflowColumns...).
		From(workflowsTable).
		OrderBy("created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	workflows, err := r.selectWorkflows(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}

	return workflows, total, nil
}

func (r *WorkflowRepository) ListEnabled(ctx context.Context) ([]*domain.Workflow, error) {
	query, args, err := psql.Select(workflowColumns...).
		From(workflowsTable).
		Where(sq.Eq{"enabled": true}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	return r.selectWorkflows(ctx, query, args)
}

func (r *WorkflowRepository) selectWorkflows(ctx context.Context, query string, args []any) ([]*domain.Workflow, error) {
	var rows []workflowRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}

	workflows := make([]*domain.Workflow, 0, len(rows))
	for i := range rows {
		workflow, err := rows[i].toDomain()
		if err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	return workflows, nil
}

// Update fails with a conflict when another writer bumped the version first.
func (r *WorkflowRepository) Update(ctx context.Context, workflow *domain.Workflow) error {
	config, err := json.Marshal(workflow.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow config: %w", err)
	}

	query, args, err := psql.Update(workflowsTable).
		Set("name", workflow.Name).
		Set("description", workflow.Description).
		Set("trigger", string(workflow.Trigger)).
		Set("config", string(config)).
		Set("enabled", workflow.Enabled).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": workflow.ID, "version": workflow.Version}).
		Suffix("RETURNING version, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	var result struct {
		Version   int       `db:"version"`
		UpdatedAt time.Time `db:"updated_at"`
	}

	if err := r.conn.GetContext(ctx, &result, query, args...); err != nil {
		if isNoRows(err) {
			return domain.NewDomainError(
				domain.CodeConflict,
				fmt.Sprintf("workflow %s was modified concurrently", workflow.ID),
				http.StatusConflict,
				domain.ErrConcurrentModification,
			)
		}

		return fmt.Errorf("failed to update workflow: %w", err)
	}

	workflow.Version = result.Version
	workflow.UpdatedAt = result.UpdatedAt

	return nil
}

func (r *WorkflowRepository) SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	query, args, err := psql.Update(workflowsTable).
		Set("enabled", enabled).
		Set("version", sq.Expr("version + 1")).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to toggle workflow: %w", err)
	}

	return ensureAffected(result, workflowResource, id.String())
}

func (r *WorkflowRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := psql.Delete(workflowsTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}

	return ensureAffected(result, workflowResource, id.String())
}

func (row workflowRow) toDomain() (*domain.Workflow, error) {
	var config domain.WorkflowConfig
	if err := json.Unmarshal(row.Config, &config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config of workflow %s: %w", row.ID, err)
	}

	return &domain.Workflow{
		ID:          row.ID,
		Name:        row.Name,
		Description: row.Description,
		Trigger:     domain.WorkflowTrigger(row.Trigger),
		Config:      config,
		Enabled:     row.Enabled,
		Version:     row.Version,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}, nil
}
