package repos

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/architeacher/svc-visa-processing/internal/domain"
)

const uniqueViolation = "23505"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type countRow struct {
	Key   string `db:"key"`
	Count int    `db:"count"`
}

// isUniqueViolation reports whether err is a Postgres unique constraint failure.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error

	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// notFound maps sql.ErrNoRows onto RES-001 and wraps anything else.
func notFound(err error, resource, id, action string) error {
	if isNoRows(err) {
		return domain.NewNotFoundError(resource, id)
	}

	return fmt.Errorf("failed to %s %s: %w", action, resource, err)
}

func ensureAffected(result sql.Result, resource, id string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.NewNotFoundError(resource, id)
	}

	return nil
}

// likePattern escapes the LIKE wildcards of a user supplied search term.
func likePattern(term string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

	return "%" + replacer.Replace(strings.TrimSpace(term)) + "%"
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}

// nullableJSON renders a JSON document as text, lib/pq would send []byte as bytea.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}

	return string(raw)
}
