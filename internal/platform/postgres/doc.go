// Package postgres implements the store interfaces on PostgreSQL through the
// pgx database/sql driver.
//
// Every store takes a store.DBTX so the same code runs on a pool or inside a
// transaction (see WithTx on each store). Constraint violations are mapped to
// the store sentinel errors by MapError. Schema migrations are embedded and
// applied with goose by Migrate.
package postgres
