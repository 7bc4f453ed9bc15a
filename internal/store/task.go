package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/phrazzld/taskreminder/internal/domain"
)

// TaskStore is the read side of task persistence consumed by the overdue scan.
type TaskStore interface {
	// FindDueTasks returns every task whose due date is at or before the given
	// instant, with its user assignments loaded. Tasks without assignments are
	// included with an empty Assignments slice.
	FindDueTasks(ctx context.Context, before time.Time) ([]domain.Task, error)

	// CountTasks returns the total number of tasks.
	CountTasks(ctx context.Context) (int, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) TaskStore
}
