package testdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetTestDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	t.Setenv("REMINDER_TEST_DB_URL", "")
	t.Setenv("REMINDER_DATABASE_URL", "")

	assert.Empty(t, GetTestDatabaseURL())
	assert.True(t, ShouldSkipDatabaseTest())

	t.Setenv("REMINDER_DATABASE_URL", "postgres://fallback/db")
	assert.Equal(t, "postgres://fallback/db", GetTestDatabaseURL())

	t.Setenv("DATABASE_URL", "postgres://primary/db")
	assert.Equal(t, "postgres://primary/db", GetTestDatabaseURL())
	assert.True(t, IsIntegrationTestEnvironment())
}
