package domain

import (
	"time"

	"github.com/google/uuid"
)

// Task is an annotation task inside a project.
type Task struct {
	ID        uuid.UUID `json:"id"`
	ProjectID uuid.UUID `json:"project_id"`
	Name      string    `json:"name"`
	Subset    string    `json:"subset"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_date"`
	UpdatedAt time.Time `json:"updated_date"`
}

// TaskStatusAnnotation is the status given to freshly created or imported tasks.
const TaskStatusAnnotation = "annotation"

// NewTask builds a task in project projectID. The ID is assigned up front so
// callers can attach annotations before the task row is inserted.
func NewTask(projectID, ownerID uuid.UUID, name, subset string) (*Task, error) {
	now := time.Now().UTC()
	t := &Task{
		ID:        uuid.New(),
		ProjectID: projectID,
		Name:      name,
		Subset:    subset,
		OwnerID:   ownerID,
		Status:    TaskStatusAnnotation,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks if the Task has valid data.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if t.ProjectID == uuid.Nil {
		return NewValidationError("project", "cannot be empty", ErrInvalidID)
	}
	if t.Name == "" {
		return NewValidationError("name", "cannot be empty", nil)
	}
	if len(t.Name) > 256 {
		return NewValidationError("name", "is too long", nil)
	}
	return nil
}
