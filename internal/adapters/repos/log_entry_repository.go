package repos

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

const logEntriesTable = "log_entries"

var logEntryColumns = []string{
	"id", "level", "source", "message", "queue", "job_name", "job_id", "order_id", "context", "created_at",
}

type (
	LogEntryRepository struct {
		conn *sqlx.DB
	}

	logEntryRow struct {
		ID        uuid.UUID `db:"id"`
		Level     string    `db:"level"`
		Source    string    `db:"source"`
		Message   string    `db:"message"`
		Queue     string    `db:"queue"`
		JobName   string    `db:"job_name"`
		JobID     string    `db:"job_id"`
		OrderID   string    `db:"order_id"`
		Context   []byte    `db:"context"`
		CreatedAt time.Time `db:"created_at"`
	}
)

func NewLogEntryRepository(db *sqlx.DB) *LogEntryRepository {
	return &LogEntryRepository{
		conn: db,
	}
}

func (r *LogEntryRepository) Create(ctx context.Context, entry *domain.LogEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query, args, err := psql.Insert(logEntriesTable).
		Columns(logEntryColumns...).
		Values(entry.ID, string(entry.Level), entry.Source, entry.Message, entry.Queue, entry.JobName,
			entry.JobID, entry.OrderID, nullableJSON(entry.Context), entry.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert log entry: %w", err)
	}

	return nil
}

func (r *LogEntryRepository) List(ctx context.Context, filter domain.LogFilter, page domain.PageRequest) ([]*domain.LogEntry, int, error) {
	criteria := logCriteria(filter)

	countQuery, countArgs, err := psql.Select("COUNT(*)").From(logEntriesTable).Where(criteria).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.conn.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("failed to count log entries: %w", err)
	}

	query, args, err := psql.Select(logEntryColumns...).
		From(logEntriesTable).
		Where(criteria).
		OrderBy("created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var rows []logEntryRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list log entries: %w", err)
	}

	entries := make([]*domain.LogEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.LogEntry{
			ID:        row.ID,
			Level:     domain.LogLevel(row.Level),
			Source:    row.Source,
			Message:   row.Message,
			Queue:     row.Queue,
			JobName:   row.JobName,
			JobID:     row.JobID,
			OrderID:   row.OrderID,
			Context:   row.Context,
			CreatedAt: row.CreatedAt,
		})
	}

	return entries, total, nil
}

func (r *LogEntryRepository) CountByLevelSince(ctx context.Context, level domain.LogLevel, since time.Time) (int, error) {
	query, args, err := psql.Select("COUNT(*)").
		From(logEntriesTable).
		Where(sq.And{
			sq.Eq{"level": string(level)},
			sq.GtOrEq{"created_at": since},
		}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build count query: %w", err)
	}

	var total int
	if err := r.conn.GetContext(ctx, &total, query, args...); err != nil {
		return 0, fmt.Errorf("failed to count %s log entries: %w", level, err)
	}

	return total, nil
}

func logCriteria(filter domain.LogFilter) sq.And {
	criteria := sq.And{}

	if filter.Level != "" {
		criteria = append(criteria, sq.Eq{"level": string(filter.Level)})
	}

	if filter.Source != "" {
		criteria = append(criteria, sq.Eq{"source": filter.Source})
	}

	if filter.Queue != "" {
		criteria = append(criteria, sq.Eq{"queue": filter.Queue})
	}

	if filter.OrderID != "" {
		criteria = append(criteria, sq.Eq{"order_id": filter.OrderID})
	}

	if filter.Query != "" {
		criteria = append(criteria, sq.ILike{"message": likePattern(filter.Query)})
	}

	if filter.Since != nil {
		criteria = append(criteria, sq.GtOrEq{"created_at": *filter.Since})
	}

	return criteria
}
