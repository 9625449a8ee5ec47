package ports

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

type (
	// Transactor starts the transactions that keep an aggregate and its outbox events together.
	Transactor interface {
		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	}

	OrderRepository interface {
		CreateInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error
		// UpsertInTx inserts the order or updates the row with the same order_id, it
		// reports whether a new row was created.
		UpsertInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) (bool, error)
		FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
		FindByOrderID(ctx context.Context, orderID string) (*domain.Order, error)
		List(ctx context.Context, filter domain.OrderFilter, page domain.PageRequest) ([]*domain.Order, int, error)
		UpdateInTx(ctx context.Context, tx *sqlx.Tx, order *domain.Order) error
		UpdateStatus(ctx context.Context, id uuid.UUID, status domain.OrderStatus) error
		BulkUpdateStatus(ctx context.Context, ids []uuid.UUID, status domain.OrderStatus) ([]uuid.UUID, error)
		SetDocumentURL(ctx context.Context, id uuid.UUID, url string) error
		MarkCompletedByOrderIDs(ctx context.Context, orderIDs []string) ([]uuid.UUID, error)
		Delete(ctx context.Context, id uuid.UUID) error
		CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
		CountByCountry(ctx context.Context) (map[string]int, error)
		CountByPaymentStatus(ctx context.Context) (map[domain.PaymentStatus]int, error)
		Revenue(ctx context.Context) (map[string]int64, error)
		CountCreatedSince(ctx context.Context, since time.Time) (int, error)
		// Evict drops cached copies of the orders, writes made inside a
		// transaction call it once the transaction committed.
		Evict(ctx context.Context, ids ...uuid.UUID)
	}

	ApiKeyRepository interface {
		Create(ctx context.Context, key *domain.ApiKey) error
		FindByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error)
		FindByPrefix(ctx context.Context, prefix string) (*domain.ApiKey, error)
		List(ctx context.Context, page domain.PageRequest) ([]*domain.ApiKey, int, error)
		Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
		TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error
	}

	WorkflowRepository interface {
		Create(ctx context.Context, workflow *domain.Workflow) error
		FindByID(ctx context.Context, id uuid.UUID) (*domain.Workflow, error)
		List(ctx context.Context, page domain.PageRequest) ([]*domain.Workflow, int, error)
		ListEnabled(ctx context.Context) ([]*domain.Workflow, error)
		// Update persists the workflow when its version still matches and bumps it.
		Update(ctx context.Context, workflow *domain.Workflow) error
		SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) error
		Delete(ctx context.Context, id uuid.UUID) error
	}

	LogEntryRepository interface {
		Create(ctx context.Context, entry *domain.LogEntry) error
		List(ctx context.Context, filter domain.LogFilter, page domain.PageRequest) ([]*domain.LogEntry, int, error)
		CountByLevelSince(ctx context.Context, level domain.LogLevel, since time.Time) (int, error)
	}

	ScraperJobRepository interface {
		Create(ctx context.Context, job *domain.ScraperJob) error
		FindByID(ctx context.Context, id uuid.UUID) (*domain.ScraperJob, error)
		List(ctx context.Context, status domain.ScraperJobStatus, page domain.PageRequest) ([]*domain.ScraperJob, int, error)
		MarkRunning(ctx context.Context, id uuid.UUID) error
		MarkCompleted(ctx context.Context, id uuid.UUID, result domain.ScrapeResult) error
		MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	}

	// OutboxRepository handles outbox events for reliable job dispatch.
	OutboxRepository interface {
		SaveInTx(ctx context.Context, tx *sqlx.Tx, event *domain.OutboxEvent) error

		// FindPending finds pending outbox events ordered by priority and creation time.
		FindPending(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)

		// FindRetryable finds failed events that are ready for retry and stale processing claims.
		FindRetryable(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)

		// ClaimForProcessing atomically claims an event for processing.
		ClaimForProcessing(ctx context.Context, eventID string) (*domain.OutboxEvent, error)

		MarkPublished(ctx context.Context, eventID string) error
		MarkFailed(ctx context.Context, eventID string, errorDetails string, nextRetryAt *time.Time) error
		MarkPermanentlyFailed(ctx context.Context, eventID string, errorDetails string) error
	}
)
