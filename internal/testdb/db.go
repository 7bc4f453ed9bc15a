package testdb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" driver
	"github.com/phrazzld/taskreminder/internal/platform/logger"
	"github.com/phrazzld/taskreminder/internal/platform/postgres"
	"github.com/phrazzld/taskreminder/internal/redact"
)

const setupTimeout = 30 * time.Second

// GetTestDBWithT opens the test database, applies the embedded migrations
// and registers cleanup. The test is skipped when no database is configured.
func GetTestDBWithT(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := GetTestDatabaseURL()
	if dbURL == "" {
		t.Skip("DATABASE_URL not set - skipping integration test")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to open test database %s: %s", redact.URL(dbURL), redact.Error(err))
	}
	t.Cleanup(func() { CleanupDB(t, db) })

	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		t.Fatalf("failed to ping test database %s: %s", redact.URL(dbURL), redact.Error(err))
	}
	if err := postgres.Migrate(ctx, db, logger.Discard(), "up"); err != nil {
		t.Fatalf("failed to apply migrations: %v", err)
	}
	return db
}

// CleanupDB closes db, reporting but not failing on errors.
func CleanupDB(t *testing.T, db *sql.DB) {
	t.Helper()
	if db == nil {
		return
	}
	if err := db.Close(); err != nil {
		t.Logf("warning: failed to close database connection: %v", err)
	}
}

// WithTx runs fn inside a transaction that is rolled back afterwards.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			t.Logf("warning: failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}
