package testdb

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/platform/postgres"
	"github.com/phrazzld/annotator-api/internal/redact"
	"github.com/stretchr/testify/require"
)

// TestTimeout bounds connection and migration steps.
const TestTimeout = 30 * time.Second

var (
	migrateOnce sync.Once
	migrateErr  error
)

// GetTestDB opens the test database and applies all migrations once per
// process. The test is skipped when no database URL is set, except in CI
// where a missing database is a failure.
func GetTestDB(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := DatabaseURL()
	if dbURL == "" {
		if IsCI() {
			t.Fatalf("%s is not set in CI", EnvTestDBURL)
		}
		t.Skipf("%s or %s not set - skipping integration test", EnvTestDBURL, EnvDatabaseURL)
	}

	db, err := sql.Open(postgres.DriverName, dbURL)
	require.NoError(t, err, "failed to open database")
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("failed to close database: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), TestTimeout)
	defer cancel()
	require.NoError(t, db.PingContext(ctx), "database ping failed for %s", redact.String(dbURL))

	migrateOnce.Do(func() {
		log := slog.New(slog.DiscardHandler)
		migrateErr = postgres.Migrate(ctx, db, "up", log)
	})
	require.NoError(t, migrateErr, "failed to migrate test database")

	return db
}

// WithTx runs fn inside a transaction that is rolled back afterwards.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	require.NoError(t, err, "failed to begin transaction")
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("failed to roll back transaction: %v", err)
		}
	}()

	fn(t, tx)
}

// InsertUser creates a user row and returns its ID.
func InsertUser(t *testing.T, tx *sql.Tx, username, email string) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := tx.ExecContext(context.Background(),
		`INSERT INTO users (id, username, email) VALUES ($1, $2, $3)`, id, username, email)
	require.NoError(t, err, "failed to insert user")
	return id
}

// InsertProject creates a project row owned by ownerID and returns its ID.
func InsertProject(t *testing.T, tx *sql.Tx, name string, ownerID uuid.UUID, orgID uuid.NullUUID) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := tx.ExecContext(context.Background(),
		`INSERT INTO projects (id, name, owner_id, organization_id) VALUES ($1, $2, $3, $4)`,
		id, name, ownerID, orgID)
	require.NoError(t, err, "failed to insert project")
	return id
}
