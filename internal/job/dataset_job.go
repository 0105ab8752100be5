package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
)

// Common errors
var (
	ErrUnknownJobType = errors.New("unknown job type")
	ErrEmptyProjectID = errors.New("project ID cannot be empty")
	ErrEmptyFormat    = errors.New("format cannot be empty")
	ErrEmptyFile      = errors.New("dataset file cannot be empty")
)

// DatasetProcessor performs the work of dataset jobs.
type DatasetProcessor interface {
	ExportProject(ctx context.Context, projectID uuid.UUID, dstFile, format string, opts dataset.ExportOptions) error
	ImportProject(ctx context.Context, projectID uuid.UUID, datasetFile, format string) error
}

// DatasetPayload is the serialized request of a dataset job.
type DatasetPayload struct {
	ProjectID   uuid.UUID `json:"project_id"`
	Format      string    `json:"format"`
	File        string    `json:"file,omitempty"`
	ServerURL   string    `json:"server_url,omitempty"`
	SaveImages  bool      `json:"save_images,omitempty"`
	RequestedBy uuid.UUID `json:"requested_by"`
}

// DatasetJob exports a project to a file or imports a dataset file into a project.
type DatasetJob struct {
	id        uuid.UUID
	jobType   string
	payload   DatasetPayload
	processor DatasetProcessor
	logger    *slog.Logger
}

var _ Job = (*DatasetJob)(nil)

// NewDatasetJob creates a dataset job of jobType. For exports payload.File is
// the destination; for imports it is the uploaded dataset.
func NewDatasetJob(id uuid.UUID, jobType string, payload DatasetPayload, processor DatasetProcessor, log *slog.Logger) (*DatasetJob, error) {
	if jobType != TypeDatasetExport && jobType != TypeDatasetImport {
		return nil, fmt.Errorf("%w: %q", ErrUnknownJobType, jobType)
	}
	if payload.ProjectID == uuid.Nil {
		return nil, ErrEmptyProjectID
	}
	if payload.Format == "" {
		return nil, ErrEmptyFormat
	}
	if payload.File == "" {
		return nil, ErrEmptyFile
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	if log == nil {
		log = slog.Default()
	}

	return &DatasetJob{
		id:        id,
		jobType:   jobType,
		payload:   payload,
		processor: processor,
		logger:    log,
	}, nil
}

// ID implements Job
func (j *DatasetJob) ID() uuid.UUID { return j.id }

// Type implements Job
func (j *DatasetJob) Type() string { return j.jobType }

// RequestedBy implements Job
func (j *DatasetJob) RequestedBy() uuid.UUID { return j.payload.RequestedBy }

// DatasetPayload returns the job request.
func (j *DatasetJob) DatasetPayload() DatasetPayload { return j.payload }

// Payload implements Job
func (j *DatasetJob) Payload() []byte {
	data, err := json.Marshal(j.payload)
	if err != nil {
		j.logger.Error("failed to marshal dataset job payload", "job_id", j.id, "error", err)
		return []byte("{}")
	}
	return data
}

// Execute implements Job
func (j *DatasetJob) Execute(ctx context.Context) error {
	log := logger.FromContextOrDefault(ctx, j.logger).With(
		"project_id", j.payload.ProjectID,
		"format", j.payload.Format)

	switch j.jobType {
	case TypeDatasetExport:
		err := j.processor.ExportProject(ctx, j.payload.ProjectID, j.payload.File, j.payload.Format,
			dataset.ExportOptions{ServerURL: j.payload.ServerURL, SaveImages: j.payload.SaveImages})
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		log.Info("dataset exported")
		return nil

	case TypeDatasetImport:
		err := j.processor.ImportProject(ctx, j.payload.ProjectID, j.payload.File, j.payload.Format)
		if err != nil && ctx.Err() != nil {
			// Interrupted imports run again after a restart and need the upload.
			return fmt.Errorf("import interrupted: %w", err)
		}
		j.removeUpload(log)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		log.Info("dataset imported")
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrUnknownJobType, j.jobType)
	}
}

// removeUpload deletes the uploaded dataset file once its import has finished,
// successfully or not.
func (j *DatasetJob) removeUpload(log *slog.Logger) {
	if err := os.Remove(j.payload.File); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn("failed to remove uploaded dataset file", "error", err)
	}
}

// ExtLookup resolves the file extension of an export format.
type ExtLookup interface {
	ExportFormat(name string) (dataset.Format, error)
}

// DatasetJobFactory creates dataset jobs from requests and rebuilds them from records.
type DatasetJobFactory struct {
	processor DatasetProcessor
	formats   ExtLookup
	exportDir string
	logger    *slog.Logger
}

var _ Rebuilder = (*DatasetJobFactory)(nil)

// NewDatasetJobFactory creates a factory writing exports into exportDir.
func NewDatasetJobFactory(processor DatasetProcessor, formats ExtLookup, exportDir string, log *slog.Logger) *DatasetJobFactory {
	if log == nil {
		log = slog.Default()
	}
	return &DatasetJobFactory{
		processor: processor,
		formats:   formats,
		exportDir: exportDir,
		logger:    log.With("component", "dataset_job_factory"),
	}
}

// CreateJob creates a new job with the given ID. Export jobs without a
// destination get <exportDir>/<job id>.<format ext>.
func (f *DatasetJobFactory) CreateJob(id uuid.UUID, jobType string, payload DatasetPayload) (*DatasetJob, error) {
	if jobType == TypeDatasetExport && payload.File == "" {
		format, err := f.formats.ExportFormat(payload.Format)
		if err != nil {
			return nil, err
		}
		payload.File = filepath.Join(f.exportDir, ExportFileName(id, format.Ext))
	}
	return NewDatasetJob(id, jobType, payload, f.processor, f.logger)
}

// Rebuild implements Rebuilder
func (f *DatasetJobFactory) Rebuild(rec *Record) (Job, error) {
	var payload DatasetPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload of job %s: %w", rec.ID, err)
	}
	return NewDatasetJob(rec.ID, rec.Type, payload, f.processor, f.logger)
}

// ExportFileName is the name of the file an export job writes.
func ExportFileName(jobID uuid.UUID, ext string) string {
	if ext == "" {
		return jobID.String()
	}
	return jobID.String() + "." + ext
}
