package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
)

// ProjectStore reads projects.
type ProjectStore interface {
	// GetByID returns ErrProjectNotFound if the project does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) ProjectStore
}

// TaskStore persists annotation tasks.
type TaskStore interface {
	// ListByProject returns the project's tasks in creation order.
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]*domain.Task, error)

	// BulkCreate inserts tasks in batches of at most batchSize rows.
	// IMPORTANT: run inside a transaction so a failing batch leaves no partial import.
	BulkCreate(ctx context.Context, tasks []*domain.Task, batchSize int) error

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) TaskStore
}
