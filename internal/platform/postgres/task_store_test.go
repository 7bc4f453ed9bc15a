package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/phrazzld/taskreminder/internal/domain"
	"github.com/phrazzld/taskreminder/internal/platform/postgres"
	"github.com/phrazzld/taskreminder/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertUser(t *testing.T, tx *sql.Tx, name, email string) int64 {
	t.Helper()
	var id int64
	err := tx.QueryRow(`INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id`, name, email).Scan(&id)
	require.NoError(t, err)
	return id
}

func insertTask(t *testing.T, tx *sql.Tx, title string, due time.Time) int64 {
	t.Helper()
	var id int64
	err := tx.QueryRow(`INSERT INTO tasks (title, due_date) VALUES ($1, $2) RETURNING id`, title, due).Scan(&id)
	require.NoError(t, err)
	return id
}

func assign(t *testing.T, tx *sql.Tx, taskID, userID int64, role domain.Role) {
	t.Helper()
	_, err := tx.Exec(`INSERT INTO task_users (task_id, user_id, role) VALUES ($1, $2, $3)`, taskID, userID, string(role))
	require.NoError(t, err)
}

// Integration tests for PostgresTaskStore
func TestPostgresTaskStore_Integration(t *testing.T) {
	if testdb.ShouldSkipDatabaseTest() {
		t.Skip("Skipping integration test - DATABASE_URL environment variable required")
	}

	db := testdb.GetTestDBWithT(t)
	now := time.Now().UTC().Truncate(time.Second)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		s := postgres.NewPostgresTaskStore(db, nil).WithTx(tx)
		ctx := context.Background()

		baseline, err := s.FindDueTasks(ctx, now)
		require.NoError(t, err)
		baselineCount, err := s.CountTasks(ctx)
		require.NoError(t, err)

		ada := insertUser(t, tx, "Ada", "ada-it@example.com")
		grace := insertUser(t, tx, "Grace", "grace-it@example.com")

		overdue := insertTask(t, tx, "Overdue report", now.Add(-time.Hour))
		assign(t, tx, overdue, ada, domain.RoleOwner)
		assign(t, tx, overdue, grace, domain.RoleWatcher)

		dueNow := insertTask(t, tx, "Due right now", now)
		assign(t, tx, dueNow, grace, domain.RoleAssignee)

		unassigned := insertTask(t, tx, "Nobody owns this", now.Add(-2*time.Hour))

		future := insertTask(t, tx, "Next week", now.Add(7*24*time.Hour))
		assign(t, tx, future, ada, domain.RoleAssignee)

		tasks, err := s.FindDueTasks(ctx, now)
		require.NoError(t, err)
		require.Len(t, tasks, len(baseline)+3)

		byID := make(map[int64]domain.Task)
		for _, task := range tasks {
			byID[task.ID] = task
		}

		require.Contains(t, byID, overdue)
		assert.Len(t, byID[overdue].Assignments, 2)
		assert.Equal(t, "Overdue report", byID[overdue].Title)
		assert.Equal(t, domain.RoleOwner, byID[overdue].Assignments[0].Role)
		assert.Equal(t, "ada-it@example.com", byID[overdue].Assignments[0].User.Email)

		require.Contains(t, byID, dueNow, "a task due exactly at the cutoff is overdue")
		assert.Len(t, byID[dueNow].Assignments, 1)

		require.Contains(t, byID, unassigned)
		assert.Empty(t, byID[unassigned].Assignments)

		assert.NotContains(t, byID, future)

		count, err := s.CountTasks(ctx)
		require.NoError(t, err)
		assert.Equal(t, baselineCount+4, count)
	})
}
