// Package testdb provides helpers for integration tests that need a real
// PostgreSQL database.
//
// Tests obtain a migrated connection with GetTestDB and isolate their writes
// with WithTx, which always rolls back:
//
//	func TestSomething(t *testing.T) {
//		db := testdb.GetTestDB(t)
//		testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
//			// use tx
//		})
//	}
//
// GetTestDB skips the test when no database URL is configured, so integration
// tests can live next to unit tests behind the "integration" build tag.
package testdb
