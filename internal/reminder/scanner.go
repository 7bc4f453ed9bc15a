package reminder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskreminder/internal/domain"
	"github.com/phrazzld/taskreminder/internal/queue"
	"github.com/phrazzld/taskreminder/internal/redact"
	"github.com/phrazzld/taskreminder/internal/store"
)

// Publisher sends a payload to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, payload []byte, headers map[string]string) error
}

// NewCorrelationID returns a random 128-bit identifier as 32 hex characters.
func NewCorrelationID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// BuildReminders returns one reminder per (task, assignment) pair, in task
// order. Tasks without assignments produce nothing. newID is called once per
// reminder.
func BuildReminders(tasks []domain.Task, newID func() string) []domain.ReminderMessage {
	var out []domain.ReminderMessage
	for _, task := range tasks {
		for _, assignment := range task.Assignments {
			out = append(out, domain.NewReminderMessage(task, assignment, newID()))
		}
	}
	return out
}

// Scanner finds overdue tasks and publishes their reminders.
type Scanner struct {
	tasks     store.TaskStore
	publisher Publisher
	queueName string
	logger    *slog.Logger
	metrics   *Metrics
	newID     func() string
}

// NewScanner creates a Scanner publishing to queueName. A nil metrics is
// replaced by an unregistered set.
func NewScanner(
	tasks store.TaskStore,
	publisher Publisher,
	queueName string,
	logger *slog.Logger,
	metrics *Metrics,
) *Scanner {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Scanner{
		tasks:     tasks,
		publisher: publisher,
		queueName: queueName,
		logger:    logger.With("component", "overdue_scan"),
		metrics:   metrics,
		newID:     NewCorrelationID,
	}
}

// Scan publishes a reminder for every assignment of every task due at or
// before now and returns the messages that were published. Tasks and
// recipients that fail validation are logged and skipped. Publish failures
// are logged and skipped; storage failures are returned as *store.StoreError.
// Nothing is recorded between scans, so a task that stays overdue is reminded
// again on the next scan.
func (s *Scanner) Scan(ctx context.Context, now time.Time) ([]domain.ReminderMessage, error) {
	tasks, err := s.tasks.FindDueTasks(ctx, now)
	if err != nil {
		return nil, asStoreError("find_due", "loading overdue tasks", err)
	}

	if len(tasks) == 0 {
		total, err := s.tasks.CountTasks(ctx)
		if err != nil {
			return nil, asStoreError("count", "counting tasks", err)
		}
		s.logger.Info("no overdue tasks", "total_tasks", total)
		return nil, nil
	}

	usable, skipped := s.usableTasks(tasks)
	reminders := BuildReminders(usable, s.newID)
	published := make([]domain.ReminderMessage, 0, len(reminders))
	failed, disabled := 0, 0

	for _, msg := range reminders {
		err := s.publish(ctx, msg)
		switch {
		case err == nil:
			published = append(published, msg)
			s.metrics.published.Inc()
			s.logger.Info("published reminder",
				"task_id", msg.TaskID,
				"task_title", msg.TaskTitle,
				"recipient", msg.UserEmail,
				"role", msg.Role,
				"correlation_id", msg.CorrelationID)
		case errors.Is(err, queue.ErrDisabled):
			// Announced once by the queue client at startup.
			disabled++
			s.metrics.publishFailures.Inc()
		default:
			failed++
			s.metrics.publishFailures.Inc()
			s.logger.Warn("failed to publish reminder",
				"task_id", msg.TaskID,
				"correlation_id", msg.CorrelationID,
				"error", redact.Error(err))
		}
	}

	s.logger.Info("overdue scan complete",
		"overdue_tasks", len(tasks),
		"reminders", len(reminders),
		"published", len(published),
		"failed", failed,
		"skipped_disabled", disabled,
		"skipped_unusable", skipped)

	return published, nil
}

// usableTasks drops tasks and recipients that fail validation and reports
// how many reminders were skipped because of it.
func (s *Scanner) usableTasks(tasks []domain.Task) ([]domain.Task, int) {
	usable := make([]domain.Task, 0, len(tasks))
	skipped := 0

	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			skipped += len(task.Assignments)
			s.logger.Warn("skipping unusable task", "task_id", task.ID, "error", err)
			continue
		}

		assignments := make([]domain.Assignment, 0, len(task.Assignments))
		for _, a := range task.Assignments {
			if err := a.User.Validate(); err != nil {
				skipped++
				s.logger.Warn("skipping unusable recipient",
					"task_id", task.ID,
					"user_id", a.User.ID,
					"error", redact.Error(err))
				continue
			}
			assignments = append(assignments, a)
		}
		task.Assignments = assignments
		usable = append(usable, task)
	}
	return usable, skipped
}

func (s *Scanner) publish(ctx context.Context, msg domain.ReminderMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding reminder: %w", err)
	}
	headers := map[string]string{domain.CorrelationHeader: msg.CorrelationID}
	return s.publisher.Publish(ctx, s.queueName, payload, headers)
}

// asStoreError keeps an existing *store.StoreError and wraps anything else.
func asStoreError(operation, message string, err error) error {
	if _, ok := store.AsStoreError(err); ok {
		return err
	}
	return store.NewStoreError("task", operation, message, err)
}
