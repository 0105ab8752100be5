package postgres

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pressly/goose/v3"
)

// MigrationsTable is the goose version table.
const MigrationsTable = "schema_migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// gooseLogger forwards goose output to slog. Fatalf does not exit so callers
// decide how to handle migration failures.
type gooseLogger struct {
	log *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...interface{}) {
	l.log.Info(fmt.Sprintf(format, v...))
}

func (l gooseLogger) Fatalf(format string, v ...interface{}) {
	l.log.Error(fmt.Sprintf(format, v...))
}

// Migrate runs a goose command ("up", "down", "status", "version", "redo",
// "reset") against db using the embedded migrations.
func Migrate(ctx context.Context, db *sql.DB, command string, log *slog.Logger, args ...string) error {
	if log == nil {
		log = slog.Default()
	}
	goose.SetLogger(gooseLogger{log: log.With("component", "migrations")})
	goose.SetBaseFS(migrationsFS)
	goose.SetTableName(MigrationsTable)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("failed to set migration dialect: %w", err)
	}

	if err := goose.RunContext(ctx, command, db, "migrations", args...); err != nil {
		return fmt.Errorf("migration command %q failed: %w", command, err)
	}
	return nil
}

// CreateMigration writes a new timestamped SQL migration named name into dir
// and returns the path of the created file.
func CreateMigration(dir, name string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", errors.New("migration name is required")
	}
	before, err := migrationFiles(dir)
	if err != nil {
		return "", err
	}

	goose.SetLogger(goose.NopLogger())
	if err := goose.Create(nil, dir, name, "sql"); err != nil {
		return "", fmt.Errorf("failed to create migration %q: %w", name, err)
	}

	after, err := migrationFiles(dir)
	if err != nil {
		return "", err
	}
	for file := range after {
		if _, ok := before[file]; !ok {
			return filepath.Join(dir, file), nil
		}
	}
	return "", fmt.Errorf("migration %q was not written to %s", name, dir)
}

func migrationFiles(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read migrations directory: %w", err)
	}
	files := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files[e.Name()] = struct{}{}
		}
	}
	return files, nil
}
