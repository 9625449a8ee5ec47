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
	outboxEventsTable   = "outbox_events"
	outboxEventResource = "outbox event"

	priorityRank = "CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'normal' THEN 2 ELSE 1 END DESC"
)

// OutboxNamespace is the UUID v5 namespace of outbox events created without an id.
var OutboxNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("svc-visa-processing:outbox"))

var outboxColumns = []string{
	"id", "aggregate_id", "aggregate_type", "job_name", "queue", "priority", "retry_count", "max_retries",
	"status", "payload", "error_details", "created_at", "started_at", "published_at", "next_retry_at",
}

type (
	OutboxRepository struct {
		conn         *sqlx.DB
		claimTimeout time.Duration
	}

	outboxEventRow struct {
		ID            uuid.UUID  `db:"id"`
		AggregateID   uuid.UUID  `db:"aggregate_id"`
		AggregateType string     `db:"aggregate_type"`
		JobName       string     `db:"job_name"`
		Queue         string     `db:"queue"`
		Priority      string     `db:"priority"`
		RetryCount    int        `db:"retry_count"`
		MaxRetries    int        `db:"max_retries"`
		Status        string     `db:"status"`
		Payload       []byte     `db:"payload"`
		ErrorDetails  *string    `db:"error_details"`
		CreatedAt     time.Time  `db:"created_at"`
		StartedAt     *time.Time `db:"started_at"`
		PublishedAt   *time.Time `db:"published_at"`
		NextRetryAt   *time.Time `db:"next_retry_at"`
	}
)

// NewOutboxRepository builds the repository. A processing claim older than claimTimeout
// belongs to a relay that died mid-flight and may be taken over.
func NewOutboxRepository(db *sqlx.DB, claimTimeout time.Duration) *OutboxRepository {
	return &OutboxRepository{
		conn:         db,
		claimTimeout: claimTimeout,
	}
}

func (r *OutboxRepository) staleClaim() sq.Sqlizer {
	return sq.And{
		sq.Eq{"status": string(domain.OutboxStatusProcessing)},
		sq.Lt{"started_at": time.Now().Add(-r.claimTimeout)},
	}
}

// SaveInTx stores the event in the transaction of the aggregate that produced it.
func (r *OutboxRepository) SaveInTx(ctx context.Context, tx *sqlx.Tx, event *domain.OutboxEvent) error {
	if event.ID == uuid.Nil {
		eventName := fmt.Sprintf("%s::%s::%s", event.AggregateID, event.JobName, event.Job.ID)
		event.ID = uuid.NewSHA1(OutboxNamespace, []byte(eventName))
	}

	payload, err := json.Marshal(event.Job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	query, args, err := psql.Insert(outboxEventsTable).
		Columns("id", "aggregate_id", "aggregate_type", "job_name", "queue", "priority",
			"retry_count", "max_retries", "status", "payload", "created_at").
		Values(event.ID, event.AggregateID, event.AggregateType, event.JobName, event.Queue.String(),
			string(event.Priority), event.RetryCount, event.MaxRetries, string(event.Status), string(payload),
			event.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	return nil
}

// FindPending finds pending outbox events ordered by priority and creation time.
func (r *OutboxRepository) FindPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	return r.findByCriteria(
		ctx,
		sq.Eq{"status": string(domain.OutboxStatusPending)},
		[]string{priorityRank, "created_at ASC"},
		limit,
		"pending outbox events",
	)
}

// FindRetryable finds failed events that are ready for retry and events whose processing
// claim went stale.
func (r *OutboxRepository) FindRetryable(ctx context.Context, limit int) ([]*domain.OutboxEvent, error) {
	return r.findByCriteria(
		ctx,
		sq.Or{
			sq.And{
				sq.Eq{"status": string(domain.OutboxStatusFailed)},
				sq.NotEq{"next_retry_at": nil},
				sq.Expr("next_retry_at <= NOW()"),
				sq.Expr("retry_count < max_retries"),
			},
			r.staleClaim(),
		},
		[]string{"COALESCE(next_retry_at, started_at) ASC"},
		limit,
		"retryable outbox events",
	)
}

func (r *OutboxRepository) findByCriteria(
	ctx context.Context,
	criteria sq.Sqlizer,
	orderBy []string,
	limit int,
	errorContext string,
) ([]*domain.OutboxEvent, error) {
	query, args, err := psql.Select(outboxColumns...).
		From(outboxEventsTable).
		Where(criteria).
		OrderBy(orderBy...).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var rows []outboxEventRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", errorContext, err)
	}

	events := make([]*domain.OutboxEvent, 0, len(rows))
	for _, row := range rows {
		event, err := row.toDomain()
		if err != nil {
			return nil, err
		}

		events = append(events, event)
	}

	return events, nil
}

// ClaimForProcessing atomically claims an event, a second claimer gets RES-001. A stale
// processing claim can be taken over.
func (r *OutboxRepository) ClaimForProcessing(ctx context.Context, eventID string) (*domain.OutboxEvent, error) {
	query, args, err := psql.Update(outboxEventsTable).
		Set("status", string(domain.OutboxStatusProcessing)).
		Set("started_at", sq.Expr("NOW()")).
		Where(sq.And{
			sq.Eq{"id": eventID},
			sq.Or{
				sq.Eq{"status": []string{string(domain.OutboxStatusPending), string(domain.OutboxStatusFailed)}},
				r.staleClaim(),
			},
		}).
		Suffix("RETURNING " + joinColumns(outboxColumns)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build update query: %w", err)
	}

	var row outboxEventRow
	if err := r.conn.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, outboxEventResource, eventID, "claim")
	}

	return row.toDomain()
}

// MarkPublished marks an event as successfully published.
func (r *OutboxRepository) MarkPublished(ctx context.Context, eventID string) error {
	return r.update(ctx, eventID, "mark as published", map[string]any{
		"status":       string(domain.OutboxStatusPublished),
		"published_at": sq.Expr("NOW()"),
	})
}

// MarkFailed records a failed relay attempt and when it may be retried.
func (r *OutboxRepository) MarkFailed(ctx context.Context, eventID string, errorDetails string, nextRetryAt *time.Time) error {
	return r.update(ctx, eventID, "mark as failed", map[string]any{
		"status":        string(domain.OutboxStatusFailed),
		"retry_count":   sq.Expr("retry_count + 1"),
		"error_details": errorDetails,
		"next_retry_at": nextRetryAt,
	})
}

// MarkPermanentlyFailed parks an event that exhausted its retries.
func (r *OutboxRepository) MarkPermanentlyFailed(ctx context.Context, eventID string, errorDetails string) error {
	return r.update(ctx, eventID, "mark as permanently failed", map[string]any{
		"status":        string(domain.OutboxStatusFailed),
		"error_details": errorDetails,
		"next_retry_at": nil,
	})
}

func (r *OutboxRepository) update(ctx context.Context, eventID, action string, values map[string]any) error {
	query, args, err := psql.Update(outboxEventsTable).
		SetMap(values).
		Where(sq.Eq{"id": eventID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}

	return ensureAffected(result, outboxEventResource, eventID)
}

func (row outboxEventRow) toDomain() (*domain.OutboxEvent, error) {
	var job domain.Job
	if err := json.Unmarshal(row.Payload, &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job of outbox event %s: %w", row.ID, err)
	}

	return &domain.OutboxEvent{
		ID:            row.ID,
		AggregateID:   row.AggregateID,
		AggregateType: row.AggregateType,
		JobName:       row.JobName,
		Queue:         domain.QueueName(row.Queue),
		Priority:      domain.Priority(row.Priority),
		RetryCount:    row.RetryCount,
		MaxRetries:    row.MaxRetries,
		Status:        domain.OutboxStatus(row.Status),
		Job:           job,
		ErrorDetails:  row.ErrorDetails,
		CreatedAt:     row.CreatedAt,
		StartedAt:     row.StartedAt,
		PublishedAt:   row.PublishedAt,
		NextRetryAt:   row.NextRetryAt,
	}, nil
}
