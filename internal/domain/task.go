package domain

import (
	"fmt"
	"strings"
	"time"
)

// Role describes how a user relates to a task.
type Role string

// Assignment roles. Reminders are sent to every assignment regardless of role.
const (
	RoleOwner    Role = "Owner"
	RoleAssignee Role = "Assignee"
	RoleWatcher  Role = "Watcher"
)

// ParseRole converts the stored textual role into a Role. Matching is
// case-insensitive; the canonical casing is returned.
func ParseRole(s string) (Role, error) {
	for _, r := range []Role{RoleOwner, RoleAssignee, RoleWatcher} {
		if strings.EqualFold(s, string(r)) {
			return r, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// String returns the textual role name used on the wire.
func (r Role) String() string {
	return string(r)
}

// Assignment relates a task to a user with a role.
type Assignment struct {
	User User `json:"user"`
	Role Role `json:"role"`
}

// Task is the read-only view of a task that the reminder pipeline works with.
type Task struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	DueDate     time.Time    `json:"due_date"`
	Assignments []Assignment `json:"assignments"`
}

// IsOverdue reports whether the task is due at or before now.
func (t Task) IsOverdue(now time.Time) bool {
	return !t.DueDate.After(now)
}

// Validate checks if the Task has valid data.
func (t Task) Validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("%w: task id %d", ErrInvalidID, t.ID)
	}
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if t.DueDate.IsZero() {
		return ErrMissingDueDate
	}
	return nil
}
