package annotation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned by a Store when a task has no stored annotations.
var ErrNotFound = errors.New("annotations not found")

// Store reads and writes the persisted IR of tasks.
type Store interface {
	// Get returns the IR stored for taskID, or ErrNotFound.
	Get(ctx context.Context, taskID uuid.UUID) (*IR, error)

	// Put replaces the IR stored for taskID.
	Put(ctx context.Context, taskID uuid.UUID, ir *IR) error
}

// TxStore is a Store that can be bound to a transaction.
type TxStore interface {
	Store
	WithTx(tx *sql.Tx) Store
}

// TaskAnnotation loads and holds the annotations of a single task.
type TaskAnnotation struct {
	taskID uuid.UUID
	store  Store
	ir     *IR
}

// NewTaskAnnotation creates a loader for taskID. Nothing is read until InitFromDB.
func NewTaskAnnotation(taskID uuid.UUID, store Store) *TaskAnnotation {
	return &TaskAnnotation{
		taskID: taskID,
		store:  store,
		ir:     NewIR(),
	}
}

// TaskID returns the task this loader belongs to.
func (a *TaskAnnotation) TaskID() uuid.UUID {
	return a.taskID
}

// InitFromDB loads the task's IR from the store. A task without stored
// annotations yields an empty IR.
func (a *TaskAnnotation) InitFromDB(ctx context.Context) error {
	ir, err := a.store.Get(ctx, a.taskID)
	if errors.Is(err, ErrNotFound) {
		a.ir = NewIR()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load annotations for task %s: %w", a.taskID, err)
	}
	a.ir = ir
	return nil
}

// IRData returns the loaded IR.
func (a *TaskAnnotation) IRData() *IR {
	return a.ir
}
