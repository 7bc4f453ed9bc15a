package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNaming(t *testing.T) {
	assert.Equal(t, "reminders.queue.Reminder", QueueSubject("Reminder"))
	assert.Equal(t, "REMINDERS_REMINDER", StreamName("Reminder"))
	assert.Equal(t, "Reminder-worker", ConsumerName("Reminder"))
}

func TestNaming_SanitizesStreamAndConsumer(t *testing.T) {
	assert.Equal(t, "REMINDERS_TEAM_A_DUE", StreamName("team.a due"))
	assert.Equal(t, "team_a-worker", ConsumerName("team.a"))
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "disconnected", StatusDisconnected.String())
	assert.Equal(t, "connected", StatusConnected.String())
	assert.Equal(t, "retrying", StatusRetrying.String())
	assert.Equal(t, "failed", StatusFailed.String())
	assert.Equal(t, "unknown", Status(42).String())
}
