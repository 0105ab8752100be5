package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// PostgresAnnotationStore persists one annotation IR per task as a JSONB
// document. It implements annotation.Store.
type PostgresAnnotationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresAnnotationStore creates a new PostgreSQL annotation store.
// If logger is nil, a default logger will be used.
func NewPostgresAnnotationStore(db store.DBTX, logger *slog.Logger) *PostgresAnnotationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresAnnotationStore{
		db:     db,
		logger: logger.With(slog.String("component", "annotation_store")),
	}
}

var _ annotation.TxStore = (*PostgresAnnotationStore)(nil)

// Get implements annotation.Store.Get
func (s *PostgresAnnotationStore) Get(ctx context.Context, taskID uuid.UUID) (*annotation.IR, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM task_annotations WHERE task_id = $1`, taskID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, annotation.ErrNotFound
	}
	if err != nil {
		log.Error("failed to read task annotations",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	ir := annotation.NewIR()
	if err := json.Unmarshal(data, ir); err != nil {
		return nil, fmt.Errorf("failed to decode annotations of task %s: %w", taskID, err)
	}
	return ir, nil
}

// Put implements annotation.Store.Put. An existing IR for the task is replaced.
func (s *PostgresAnnotationStore) Put(ctx context.Context, taskID uuid.UUID, ir *annotation.IR) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	data, err := json.Marshal(ir)
	if err != nil {
		return fmt.Errorf("failed to encode annotations of task %s: %w", taskID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO task_annotations (task_id, version, data, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (task_id) DO UPDATE
		SET version = EXCLUDED.version, data = EXCLUDED.data, updated_at = EXCLUDED.updated_at`,
		taskID, ir.Version, data, time.Now().UTC(),
	)
	if err != nil {
		log.Error("failed to store task annotations",
			slog.String("task_id", taskID.String()),
			slog.String("error", err.Error()))
		if IsForeignKeyViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrTaskNotFound, err)
		}
		return MapError(err)
	}
	return nil
}

// WithTx returns a store bound to tx.
func (s *PostgresAnnotationStore) WithTx(tx *sql.Tx) annotation.Store {
	return &PostgresAnnotationStore{db: tx, logger: s.logger}
}
