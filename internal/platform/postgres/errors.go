package postgres

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/phrazzld/taskreminder/internal/store"
)

// PostgreSQL error codes
const (
	// undefinedTableCode and undefinedColumnCode signal that the schema does not
	// match the queries, typically a missing migration.
	undefinedTableCode  = "42P01"
	undefinedColumnCode = "42703"
)

// MapError maps a database error to a store sentinel, wrapping the original
// error. Missing tables or columns additionally wrap store.ErrSchemaMismatch.
func MapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %v", store.ErrNotFound, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && (pgErr.Code == undefinedTableCode || pgErr.Code == undefinedColumnCode) {
		return fmt.Errorf("%w: %w: %v", store.ErrQueryFailed, store.ErrSchemaMismatch, err)
	}

	return fmt.Errorf("%w: %w", store.ErrQueryFailed, err)
}
