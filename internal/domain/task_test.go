package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, in := range []string{"Owner", "owner", "ASSIGNEE", "Watcher"} {
		role, err := ParseRole(in)
		require.NoError(t, err, in)
		assert.Contains(t, []Role{RoleOwner, RoleAssignee, RoleWatcher}, role)
	}

	role, err := ParseRole("owner")
	require.NoError(t, err)
	assert.Equal(t, RoleOwner, role, "canonical casing should be returned")

	_, err = ParseRole("Reviewer")
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestTask_IsOverdue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.True(t, Task{DueDate: now.Add(-time.Minute)}.IsOverdue(now), "past due date")
	assert.True(t, Task{DueDate: now}.IsOverdue(now), "due exactly now counts as overdue")
	assert.False(t, Task{DueDate: now.Add(time.Second)}.IsOverdue(now), "future due date")
}

func TestTask_Validate(t *testing.T) {
	due := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, Task{ID: 7, Title: "Ship it", DueDate: due}.Validate())
	assert.ErrorIs(t, Task{ID: 0, Title: "Ship it", DueDate: due}.Validate(), ErrInvalidID)
	assert.ErrorIs(t, Task{ID: 7, Title: "  ", DueDate: due}.Validate(), ErrEmptyTitle)
	assert.ErrorIs(t, Task{ID: 7, Title: "Ship it"}.Validate(), ErrMissingDueDate)
}
