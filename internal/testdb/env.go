package testdb

import "os"

var databaseURLEnvVars = []string{"DATABASE_URL", "REMINDER_TEST_DB_URL", "REMINDER_DATABASE_URL"}

// GetTestDatabaseURL returns the first database URL found in the environment.
func GetTestDatabaseURL() string {
	for _, envVar := range databaseURLEnvVars {
		if v := os.Getenv(envVar); v != "" {
			return v
		}
	}
	return ""
}

// IsIntegrationTestEnvironment reports whether a test database is configured.
func IsIntegrationTestEnvironment() bool {
	return GetTestDatabaseURL() != ""
}

// ShouldSkipDatabaseTest is the negation of IsIntegrationTestEnvironment.
func ShouldSkipDatabaseTest() bool {
	return !IsIntegrationTestEnvironment()
}
