package repos

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

const (
	scraperJobsTable   = "scraper_jobs"
	scraperJobResource = "scraper job"
)

var scraperJobColumns = []string{
	"id", "order_id", "target_url", "selector", "status", "attempts", "result", "error",
	"created_at", "updated_at", "completed_at",
}

type (
	ScraperJobRepository struct {
		conn *sqlx.DB
	}

	scraperJobRow struct {
		ID          uuid.UUID     `db:"id"`
		OrderID     uuid.NullUUID `db:"order_id"`
		TargetURL   string        `db:"target_url"`
		Selector    string        `db:"selector"`
		Status      string        `db:"status"`
		Attempts    int           `db:"attempts"`
		Result      []byte        `db:"result"`
		Error       string        `db:"error"`
		CreatedAt   time.Time     `db:"created_at"`
		UpdatedAt   time.Time     `db:"updated_at"`
		CompletedAt *time.Time    `db:"completed_at"`
	}
)

func NewScraperJobRepository(db *sqlx.DB) *ScraperJobRepository {
	return &ScraperJobRepository{
		conn: db,
	}
}

func (r *ScraperJobRepository) Create(ctx context.Context, job *domain.ScraperJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}

	now := time.Now().UTC()
	job.CreatedAt, job.UpdatedAt = now, now

	if job.Status == "" {
		job.Status = domain.ScraperJobPending
	}

	var orderID uuid.NullUUID
	if job.OrderID != nil {
		orderID = uuid.NullUUID{UUID: *job.OrderID, Valid: true}
	}

	query, args, err := psql.Insert(scraperJobsTable).
		Columns(scraperJobColumns...).
		Values(job.ID, orderID, job.TargetURL, job.Selector, string(job.Status), job.Attempts,
			nullableJSON(job.Result), job.Error, job.CreatedAt, job.UpdatedAt, job.CompletedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert scraper job: %w", err)
	}

	return nil
}

func (r *ScraperJobRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ScraperJob, error) {
	query, args, err := psql.Select(scraperJobColumns...).
		From(scraperJobsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var row scraperJobRow
	if err := r.conn.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, scraperJobResource, id.String(), "query")
	}

	return row.toDomain(), nil
}

func (r *ScraperJobRepository) List(ctx context.Context, status domain.ScraperJobStatus, page domain.PageRequest) ([]*domain.ScraperJob, int, error) {
	criteria := sq.And{}
	if status != "" {
		criteria = append(criteria, sq.Eq{"status": string(status)})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(scraperJobsTable).Where(criteria).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.conn.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count scraper jobs: %w", err)
	}

	query, args, err := psql.Select(scraperJobColumns...).
		From(scraperJobsTable).
		Where(criteria).
		OrderBy("created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var rows []scraperJobRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list scraper jobs: %w", err)
	}

	jobs := make([]*domain.ScraperJob, 0, len(rows))
	for i := range rows {
		jobs = append(jobs, rows[i].toDomain())
	}

	return jobs, total, nil
}

func (r *ScraperJobRepository) MarkRunning(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]any{
		"status":     string(domain.ScraperJobRunning),
		"attempts":   sq.Expr("attempts + 1"),
		"error":      "",
		"updated_at": sq.Expr("NOW()"),
	})
}

func (r *ScraperJobRepository) MarkCompleted(ctx context.Context, id uuid.UUID, result domain.ScrapeResult) error {
	body, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal scrape result: %w", err)
	}

	return r.update(ctx, id, map[string]any{
		"status":       string(domain.ScraperJobCompleted),
		"result":       string(body),
		"error":        "",
		"updated_at":   sq.Expr("NOW()"),
		"completed_at": sq.Expr("NOW()"),
	})
}

func (r *ScraperJobRepository) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	return r.update(ctx, id, map[string]any{
		"status":     string(domain.ScraperJobFailed),
		"error":      reason,
		"updated_at": sq.Expr("NOW()"),
	})
}

func (r *ScraperJobRepository) update(ctx context.Context, id uuid.UUID, values map[string]any) error {
	query, args, err := psql.Update(scraperJobsTable).
		SetMap(values).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update scraper job: %w", err)
	}

	return ensureAffected(result, scraperJobResource, id.String())
}

func (row scraperJobRow) toDomain() *domain.ScraperJob {
	job := &domain.ScraperJob{
		ID:          row.ID,
		TargetURL:   row.TargetURL,
		Selector:    row.Selector,
		Status:      domain.ScraperJobStatus(row.Status),
		Attempts:    row.Attempts,
		Result:      row.Result,
		Error:       row.Error,
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
		CompletedAt: row.CompletedAt,
	}

	if row.OrderID.Valid {
		orderID := row.OrderID.UUID
		job.OrderID = &orderID
	}

	return job
}
