package domain

import (
	"time"
)

// CorrelationHeader is the transport header that mirrors ReminderMessage.CorrelationID
// so the broker side can trace a message without decoding the body.
const CorrelationHeader = "X-Correlation-ID"

// ReminderMessage is the wire payload published for every (task, assignment)
// pair of an overdue task. Field names are part of the wire format.
type ReminderMessage struct {
	TaskID        int64     `json:"Id"`
	TaskTitle     string    `json:"TaskTitle"`
	DueDate       time.Time `json:"DueDate"`
	UserName      string    `json:"UserName"`
	UserEmail     string    `json:"UserEmail"`
	Role          string    `json:"Role"`
	CorrelationID string    `json:"CorrelationId"`
}

// NewReminderMessage builds the reminder for one assignment of a task.
func NewReminderMessage(task Task, assignment Assignment, correlationID string) ReminderMessage {
	return ReminderMessage{
		TaskID:        task.ID,
		TaskTitle:     task.Title,
		DueDate:       task.DueDate.UTC(),
		UserName:      assignment.User.Name,
		UserEmail:     assignment.User.Email,
		Role:          assignment.Role.String(),
		CorrelationID: correlationID,
	}
}

// Validate checks that a decoded reminder is usable.
func (m ReminderMessage) Validate() error {
	if m.TaskID <= 0 {
		return ErrInvalidID
	}
	if m.CorrelationID == "" {
		return ErrEmptyCorrelationID
	}
	return nil
}
