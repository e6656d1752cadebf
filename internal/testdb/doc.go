//go:build integration

// Package testdb provides database helpers for integration tests.
//
// Tests obtain a migrated connection with GetTestDBWithT, which skips the test
// when no database is configured, and isolate their writes with WithTx:
//
//	func TestSomething(t *testing.T) {
//	    db := testdb.GetTestDBWithT(t)
//	    testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//	        s := postgres.NewPostgresWorksheetStore(db, logger).WithTx(tx)
//	        // ...
//	    })
//	}
//
// The connection string is read from WORKSHEETGEN_TEST_DB_URL, falling back
// to DATABASE_URL.
package testdb
