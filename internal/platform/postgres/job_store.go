package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/job"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// PostgresJobStore implements the job.Store interface using PostgreSQL
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgresJobStore.
// If logger is nil, a default logger will be used.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

var _ job.Store = (*PostgresJobStore)(nil)

const jobColumns = `id, type, payload, status, error_message, requested_by, created_at, updated_at`

// SaveJob persists a job in the pending state
func (s *PostgresJobStore) SaveJob(ctx context.Context, j job.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	now := time.Now().UTC()
	requestedBy := uuid.NullUUID{UUID: j.RequestedBy(), Valid: j.RequestedBy() != uuid.Nil}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, type, payload, status, requested_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		j.ID(), j.Type(), j.Payload(), string(job.StatusPending), requestedBy, now, now,
	)
	if err != nil {
		log.Error("failed to save job",
			"job_id", j.ID(),
			"job_type", j.Type(),
			"error", err)
		return MapError(err)
	}
	return nil
}

// UpdateJobStatus updates the status of a job
func (s *PostgresJobStore) UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status job.Status, errorMsg string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4`,
		string(status), errorMsg, time.Now().UTC(), jobID,
	)
	if err != nil {
		log.Error("failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrJobNotFound)
}

// ClaimJob moves a pending job to processing. It reports false when the job
// is no longer pending, for example because another worker claimed it.
func (s *PostgresJobStore) ClaimJob(ctx context.Context, jobID uuid.UUID) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		UPDATE jobs SET status = $1, error_message = '', updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(job.StatusProcessing), time.Now().UTC(), jobID, string(job.StatusPending),
	)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to claim job",
			"job_id", jobID,
			"error", err)
		return false, MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, MapError(err)
	}
	return n == 1, nil
}

// GetJob returns the record of a job
func (s *PostgresJobStore) GetJob(ctx context.Context, jobID uuid.UUID) (*job.Record, error) {
	rec, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, jobID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrJobNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read job",
			"job_id", jobID,
			"error", err)
		return nil, MapError(err)
	}
	return rec, nil
}

// GetPendingJobs retrieves all jobs with "pending" status
func (s *PostgresJobStore) GetPendingJobs(ctx context.Context) ([]*job.Record, error) {
	return s.getJobsByStatus(ctx, job.StatusPending, 0)
}

// GetProcessingJobs retrieves jobs with "processing" status
func (s *PostgresJobStore) GetProcessingJobs(ctx context.Context, olderThan time.Duration) ([]*job.Record, error) {
	return s.getJobsByStatus(ctx, job.StatusProcessing, olderThan)
}

func (s *PostgresJobStore) getJobsByStatus(ctx context.Context, status job.Status, olderThan time.Duration) ([]*job.Record, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = $1`
	args := []any{string(status)}
	if olderThan > 0 {
		query += ` AND updated_at < $2`
		args = append(args, time.Now().UTC().Add(-olderThan))
	}
	query += ` ORDER BY created_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query jobs by status",
			"status", status,
			"error", err)
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []*job.Record
	for rows.Next() {
		rec, err := scanJob(rows)
		if err != nil {
			log.Error("failed to scan job row", "error", err)
			return nil, MapError(err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}

// WithTx returns a store bound to tx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) job.Store {
	return &PostgresJobStore{db: tx, logger: s.logger}
}

func scanJob(row rowScanner) (*job.Record, error) {
	var (
		rec         job.Record
		payload     []byte
		requestedBy uuid.NullUUID
	)
	if err := row.Scan(&rec.ID, &rec.Type, &payload, &rec.Status, &rec.ErrorMessage,
		&requestedBy, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Payload = payload
	rec.RequestedBy = requestedBy.UUID
	return &rec, nil
}
