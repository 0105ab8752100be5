package job

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a job
type Status string

// Possible job status values
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Job type identifiers
const (
	TypeDatasetExport = "dataset_export"
	TypeDatasetImport = "dataset_import"
)

// Job is a unit of background work.
type Job interface {
	// ID returns the job's unique identifier
	ID() uuid.UUID

	// Type returns the job type identifier
	Type() string

	// Payload returns the job data as JSON
	Payload() []byte

	// RequestedBy returns the user who asked for the job
	RequestedBy() uuid.UUID

	// Execute runs the job logic
	Execute(ctx context.Context) error
}

// Record is the persisted state of a job.
type Record struct {
	ID           uuid.UUID       `json:"id"`
	Type         string          `json:"type"`
	Payload      json.RawMessage `json:"payload"`
	Status       Status          `json:"status"`
	ErrorMessage string          `json:"error_message,omitempty"`
	RequestedBy  uuid.UUID       `json:"requested_by"`
	CreatedAt    time.Time       `json:"created_date"`
	UpdatedAt    time.Time       `json:"updated_date"`
}

// Finished reports whether the job reached a terminal status.
func (r *Record) Finished() bool {
	return r.Status == StatusCompleted || r.Status == StatusFailed
}

// DecodePayload unmarshals the job payload into v.
func (r *Record) DecodePayload(v any) error {
	return json.Unmarshal(r.Payload, v)
}

// Store defines the interface for persisting jobs
type Store interface {
	// SaveJob persists a new job in the pending state
	SaveJob(ctx context.Context, job Job) error

	// UpdateJobStatus updates the status of a job
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status Status, errorMsg string) error

	// ClaimJob atomically moves a pending job to processing and reports
	// whether this caller won the claim.
	ClaimJob(ctx context.Context, jobID uuid.UUID) (bool, error)

	// GetJob returns the job record, or store.ErrJobNotFound
	GetJob(ctx context.Context, jobID uuid.UUID) (*Record, error)

	// GetPendingJobs retrieves all jobs with "pending" status
	GetPendingJobs(ctx context.Context) ([]*Record, error)

	// GetProcessingJobs retrieves jobs with "processing" status.
	// If olderThan is non-zero, only jobs that have been in this state
	// longer than the given duration are returned.
	GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]*Record, error)

	// WithTx returns a Store bound to the given transaction.
	WithTx(tx *sql.Tx) Store
}

// Rebuilder turns a persisted record back into an executable job.
type Rebuilder interface {
	Rebuild(rec *Record) (Job, error)
}
