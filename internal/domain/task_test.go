package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewTask(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	task, err := NewTask(projectID, uuid.New(), "frames 0-100", "train")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if task.ID == uuid.Nil {
		t.Error("Expected task ID to be preassigned")
	}
	if task.ProjectID != projectID {
		t.Errorf("Expected project %s, got %s", projectID, task.ProjectID)
	}
	if task.Status != TaskStatusAnnotation {
		t.Errorf("Expected status %q, got %q", TaskStatusAnnotation, task.Status)
	}

	if _, err := NewTask(uuid.Nil, uuid.New(), "x", ""); !errors.Is(err, ErrInvalidID) {
		t.Errorf("Expected ErrInvalidID, got %v", err)
	}
	if _, err := NewTask(projectID, uuid.New(), "", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("Expected ErrValidation, got %v", err)
	}
	if _, err := NewTask(projectID, uuid.New(), strings.Repeat("n", 257), ""); err == nil {
		t.Error("Expected error for overlong name")
	}
}
