package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// DefaultBulkBatchSize is used by BulkCreate when no positive batch size is given.
const DefaultBulkBatchSize = 500

// taskInsertColumns is the number of bound parameters per inserted task row.
const taskInsertColumns = 8

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// ListByProject implements store.TaskStore.ListByProject. Tasks are returned
// in insertion order, which follows the seq column rather than created_at.
func (s *PostgresTaskStore) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, name, subset, owner_id, status, created_at, updated_at
		FROM tasks WHERE project_id = $1
		ORDER BY seq`, projectID)
	if err != nil {
		log.Error("failed to list project tasks",
			slog.String("project_id", projectID.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := []*domain.Task{}
	for rows.Next() {
		var (
			t     domain.Task
			owner uuid.NullUUID
		)
		if err := rows.Scan(&t.ID, &t.ProjectID, &t.Name, &t.Subset, &owner,
			&t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		t.OwnerID = owner.UUID
		tasks = append(tasks, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return tasks, nil
}

// BulkCreate implements store.TaskStore.BulkCreate. Tasks are inserted with
// one multi-row INSERT per batch of at most batchSize rows.
func (s *PostgresTaskStore) BulkCreate(ctx context.Context, tasks []*domain.Task, batchSize int) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if len(tasks) == 0 {
		return nil
	}
	if batchSize <= 0 {
		batchSize = DefaultBulkBatchSize
	}
	// PostgreSQL caps bound parameters per statement at 65535.
	if limit := 65535 / taskInsertColumns; batchSize > limit {
		batchSize = limit
	}

	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return err
		}
	}

	for start := 0; start < len(tasks); start += batchSize {
		end := min(start+batchSize, len(tasks))
		batch := tasks[start:end]

		var sb strings.Builder
		sb.WriteString(`INSERT INTO tasks (id, project_id, name, subset, owner_id, status, created_at, updated_at) VALUES `)
		args := make([]any, 0, len(batch)*taskInsertColumns)
		for i, t := range batch {
			if i > 0 {
				sb.WriteString(", ")
			}
			base := i * taskInsertColumns
			fmt.Fprintf(&sb, "($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
				base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
			owner := uuid.NullUUID{UUID: t.OwnerID, Valid: t.OwnerID != uuid.Nil}
			args = append(args, t.ID, t.ProjectID, t.Name, t.Subset, owner, t.Status, t.CreatedAt, t.UpdatedAt)
		}

		if _, err := s.db.ExecContext(ctx, sb.String(), args...); err != nil {
			log.Error("failed to insert task batch",
				slog.Int("batch_start", start),
				slog.Int("batch_size", len(batch)),
				slog.String("error", err.Error()))
			return store.NewStoreError("task", "bulk_create",
				fmt.Sprintf("batch starting at %d failed", start), MapError(err))
		}
	}

	log.Debug("tasks created", slog.Int("count", len(tasks)))
	return nil
}

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{db: tx, logger: s.logger}
}
