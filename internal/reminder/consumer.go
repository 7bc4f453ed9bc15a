package reminder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/taskreminder/internal/domain"
	"github.com/phrazzld/taskreminder/internal/platform/logger"
	"github.com/phrazzld/taskreminder/internal/queue"
)

var (
	// ErrMalformedMessage is returned for payloads that do not decode into a
	// ReminderMessage.
	ErrMalformedMessage = errors.New("malformed reminder message")

	// ErrInvalidReminder is returned for reminders that decode but cannot be
	// acted on. Redelivering them would never succeed.
	ErrInvalidReminder = errors.New("invalid reminder message")
)

// Notifier delivers a reminder to its recipient.
type Notifier interface {
	Notify(ctx context.Context, msg domain.ReminderMessage) error
}

// LogNotifier "delivers" reminders by logging them through the context
// logger. It has no side effects beyond the log line, so redeliveries are
// harmless.
type LogNotifier struct{}

// Notify implements Notifier.
func (LogNotifier) Notify(ctx context.Context, msg domain.ReminderMessage) error {
	logger.FromContext(ctx).Info("reminder delivered",
		"task_id", msg.TaskID,
		"task_title", msg.TaskTitle,
		"due_date", msg.DueDate,
		"recipient", msg.UserEmail,
		"recipient_name", msg.UserName,
		"role", msg.Role)
	return nil
}

// DecodeReminder parses a payload. JSON null and invalid JSON yield an error
// wrapping ErrMalformedMessage; a reminder that fails validation yields one
// wrapping ErrInvalidReminder.
func DecodeReminder(payload []byte) (domain.ReminderMessage, error) {
	var msg domain.ReminderMessage

	trimmed := bytes.TrimSpace(payload)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return msg, fmt.Errorf("%w: empty payload", ErrMalformedMessage)
	}
	if err := json.Unmarshal(trimmed, &msg); err != nil {
		return msg, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	if err := msg.Validate(); err != nil {
		return msg, fmt.Errorf("%w: %w", ErrInvalidReminder, err)
	}
	return msg, nil
}

// Consumer processes reminder deliveries from the queue.
type Consumer struct {
	notifier Notifier
	logger   *slog.Logger
	metrics  *Metrics
}

// NewConsumer creates a Consumer. A nil notifier defaults to LogNotifier.
func NewConsumer(notifier Notifier, logger *slog.Logger, metrics *Metrics) *Consumer {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Consumer{
		notifier: notifier,
		logger:   logger.With("component", "reminder_consumer"),
		metrics:  metrics,
	}
}

// HandleMessage implements queue.Handler. It returns true once the reminder
// has been delivered or discarded as invalid, and false for anything that
// should be redelivered, including payloads that do not decode.
func (c *Consumer) HandleMessage(ctx context.Context, msg queue.Message) (ok bool) {
	reminder, err := DecodeReminder(msg.Payload)
	if errors.Is(err, ErrInvalidReminder) {
		c.metrics.consume(consumeOutcomeDiscarded)
		c.logger.Warn("discarding invalid reminder",
			"error", err,
			"delivery", msg.Delivered,
			"correlation_id", msg.Header(domain.CorrelationHeader),
			"payload", string(msg.Payload))
		return true
	}
	if err != nil {
		c.metrics.consume(consumeOutcomeMalformed)
		c.logger.Warn("rejecting malformed reminder",
			"error", err,
			"delivery", msg.Delivered,
			"correlation_id", msg.Header(domain.CorrelationHeader),
			"payload", string(msg.Payload))
		return false
	}

	correlationID := msg.Header(domain.CorrelationHeader)
	if correlationID == "" {
		correlationID = reminder.CorrelationID
	}
	ctx, log := logger.WithCorrelationID(logger.WithLogger(ctx, c.logger), correlationID)

	defer func() {
		if r := recover(); r != nil {
			c.metrics.consume(consumeOutcomeFailed)
			log.Error("reminder processing failed",
				"panic", fmt.Sprint(r),
				"task_id", reminder.TaskID,
				"payload", string(msg.Payload))
			ok = false
		}
	}()

	if msg.Delivered > 1 {
		log.Info("processing redelivered reminder",
			"task_id", reminder.TaskID,
			"delivery", msg.Delivered)
	}

	if err := c.notifier.Notify(ctx, reminder); err != nil {
		c.metrics.consume(consumeOutcomeFailed)
		log.Error("reminder processing failed",
			"error", err,
			"task_id", reminder.TaskID,
			"payload", string(msg.Payload))
		return false
	}

	c.metrics.consume(consumeOutcomeAcked)
	return true
}
