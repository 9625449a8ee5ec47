package repos

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

const (
	apiKeysTable   = "api_keys"
	apiKeyResource = "api key"
)

var apiKeyColumns = []string{
	"id", "name", "prefix", "secret_hash", "scopes", "expires_at", "revoked_at", "last_used_at", "created_at",
}

type (
	ApiKeyRepository struct {
		conn *sqlx.DB
	}

	apiKeyRow struct {
		ID         uuid.UUID      `db:"id"`
		Name       string         `db:"name"`
		Prefix     string         `db:"prefix"`
		SecretHash string         `db:"secret_hash"`
		Scopes     pq.StringArray `db:"scopes"`
		ExpiresAt  *time.Time     `db:"expires_at"`
		RevokedAt  *time.Time     `db:"revoked_at"`
		LastUsedAt *time.Time     `db:"last_used_at"`
		CreatedAt  time.Time      `db:"created_at"`
	}
)

func NewApiKeyRepository(db *sqlx.DB) *ApiKeyRepository {
	return &ApiKeyRepository{
		conn: db,
	}
}

func (r *ApiKeyRepository) Create(ctx context.Context, key *domain.ApiKey) error {
	if key.ID == uuid.Nil {
		key.ID = uuid.New()
	}

	if key.CreatedAt.IsZero() {
		key.CreatedAt = time.Now().UTC()
	}

	query, args, err := psql.Insert(apiKeysTable).
		Columns(apiKeyColumns...).
		Values(key.ID, key.Name, key.Prefix, key.SecretHash, pq.StringArray(key.Scopes),
			key.ExpiresAt, key.RevokedAt, key.LastUsedAt, key.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return domain.NewConflictError(apiKeyResource, "prefix", key.Prefix)
		}

		return fmt.Errorf("failed to insert api key: %w", err)
	}

	return nil
}

func (r *ApiKeyRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.ApiKey, error) {
	return r.findOne(ctx, sq.Eq{"id": id}, id.String())
}

func (r *ApiKeyRepository) FindByPrefix(ctx context.Context, prefix string) (*domain.ApiKey, error) {
	return r.findOne(ctx, sq.Eq{"prefix": prefix}, prefix)
}

func (r *ApiKeyRepository) findOne(ctx context.Context, criteria sq.Sqlizer, id string) (*domain.ApiKey, error) {
	query, args, err := psql.Select(apiKeyColumns...).
		From(apiKeysTable).
		Where(criteria).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	var row apiKeyRow
	if err := r.conn.GetContext(ctx, &row, query, args...); err != nil {
		return nil, notFound(err, apiKeyResource, id, "query")
	}

	return row.toDomain(), nil
}

func (r *ApiKeyRepository) List(ctx context.Context, page domain.PageRequest) ([]*domain.ApiKey, int, error) {
	var total int
	if err := r.conn.GetContext(ctx, &total, "SELECT COUNT(*) FROM "+apiKeysTable); err != nil {
		return nil, 0, fmt.Errorf("failed to count api keys: %w", err)
	}

	query, args, err := psql.Select(apiKeyColumns...).
		From(apiKeysTable).
		OrderBy("created_at DESC").
		Limit(page.Limit()).
		Offset(page.Offset()).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build select query: %w", err)
	}

	var rows []apiKeyRow
	if err := r.conn.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list api keys: %w", err)
	}

	keys := make([]*domain.ApiKey, 0, len(rows))
	for i := range rows {
		keys = append(keys, rows[i].toDomain())
	}

	return keys, total, nil
}

// Revoke is idempotent, an already revoked key keeps its original revocation time.
func (r *ApiKeyRepository) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	query, args, err := psql.Update(apiKeysTable).
		Set("revoked_at", sq.Expr("COALESCE(revoked_at, ?)", at)).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	result, err := r.conn.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to revoke api key: %w", err)
	}

	return ensureAffected(result, apiKeyResource, id.String())
}

func (r *ApiKeyRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, at time.Time) error {
	query, args, err := psql.Update(apiKeysTable).
		Set("last_used_at", at).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to touch api key: %w", err)
	}

	return nil
}

func (row apiKeyRow) toDomain() *domain.ApiKey {
	scopes := []string(row.Scopes)
	if scopes == nil {
		scopes = []string{}
	}

	return &domain.ApiKey{
		ID:         row.ID,
		Name:       row.Name,
		Prefix:     row.Prefix,
		SecretHash: row.SecretHash,
		Scopes:     scopes,
		ExpiresAt:  row.ExpiresAt,
		RevokedAt:  row.RevokedAt,
		LastUsedAt: row.LastUsedAt,
		CreatedAt:  row.CreatedAt,
	}
}
