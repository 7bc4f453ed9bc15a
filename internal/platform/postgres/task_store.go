package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/phrazzld/taskreminder/internal/domain"
	"github.com/phrazzld/taskreminder/internal/store"
)

const taskEntity = "task"

// findDueTasksQuery loads due tasks with their assignments in one round trip.
// The LEFT JOINs keep tasks without assignments so callers can tell them apart
// from tasks that are not due.
const findDueTasksQuery = `
	SELECT t.id, t.title, t.due_date, u.id, u.name, u.email, tu.role
	FROM tasks t
	LEFT JOIN task_users tu ON tu.task_id = t.id
	LEFT JOIN users u ON u.id = tu.user_id
	WHERE t.due_date <= $1
	ORDER BY t.due_date ASC, t.id ASC, tu.user_id ASC
`

const countTasksQuery = `SELECT COUNT(*) FROM tasks`

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: logger.With("component", "task_store"),
	}
}

// WithTx returns a new TaskStore instance that uses the provided transaction.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// FindDueTasks returns tasks with due_date <= before, assignments included.
func (s *PostgresTaskStore) FindDueTasks(ctx context.Context, before time.Time) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, findDueTasksQuery, before.UTC())
	if err != nil {
		return nil, store.NewStoreError(taskEntity, "find_due", "failed to query due tasks", MapError(err))
	}
	defer rows.Close()

	var tasks []domain.Task
	index := make(map[int64]int)

	for rows.Next() {
		var (
			taskID   int64
			title    string
			dueDate  time.Time
			userID   sql.NullInt64
			userName sql.NullString
			email    sql.NullString
			roleName sql.NullString
		)

		if err := rows.Scan(&taskID, &title, &dueDate, &userID, &userName, &email, &roleName); err != nil {
			return nil, store.NewStoreError(taskEntity, "find_due", "failed to scan task row", MapError(err))
		}

		i, seen := index[taskID]
		if !seen {
			tasks = append(tasks, domain.Task{
				ID:          taskID,
				Title:       title,
				DueDate:     dueDate.UTC(),
				Assignments: []domain.Assignment{},
			})
			i = len(tasks) - 1
			index[taskID] = i
		}

		if !userID.Valid {
			continue
		}

		role, err := domain.ParseRole(roleName.String)
		if err != nil {
			s.logger.WarnContext(ctx, "unrecognized assignment role, keeping stored value",
				"task_id", taskID,
				"user_id", userID.Int64,
				"role", roleName.String)
			role = domain.Role(roleName.String)
		}

		tasks[i].Assignments = append(tasks[i].Assignments, domain.Assignment{
			User: domain.User{
				ID:    userID.Int64,
				Name:  userName.String,
				Email: email.String,
			},
			Role: role,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError(taskEntity, "find_due", "error iterating task rows", MapError(err))
	}

	return tasks, nil
}

// CountTasks returns the total number of tasks.
func (s *PostgresTaskStore) CountTasks(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, countTasksQuery).Scan(&count); err != nil {
		return 0, store.NewStoreError(taskEntity, "count", "failed to count tasks", MapError(err))
	}
	return count, nil
}
