// Package testdb provides database helpers for integration tests.
//
// Tests run inside a transaction that is always rolled back, so they leave
// no data behind and can share one database:
//
//	func TestFindDueTasks(t *testing.T) {
//	    if testdb.ShouldSkipDatabaseTest() {
//	        t.Skip("DATABASE_URL not set - skipping integration test")
//	    }
//
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        tasks := postgres.NewPostgresTaskStore(db, nil).WithTx(tx)
//	        ...
//	    })
//	}
//
// The connection string is read from DATABASE_URL, REMINDER_TEST_DB_URL or
// REMINDER_DATABASE_URL, in that order.
package testdb
