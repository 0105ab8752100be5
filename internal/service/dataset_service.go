package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/events"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/job"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/redact"
	"github.com/phrazzld/annotator-api/internal/store"
)

// ExportRequest describes a requested project export.
type ExportRequest struct {
	Format     string
	ServerURL  string
	SaveImages bool
}

// ImportRequest describes an uploaded dataset to import into a project.
// File is the path of the upload; the import job owns it from then on.
type ImportRequest struct {
	Format string
	File   string
}

// FormatRegistry resolves dataset formats by name.
type FormatRegistry interface {
	MakeExporter(name string) (dataset.Exporter, error)
	MakeImporter(name string) (dataset.Importer, error)
	Formats() dataset.FormatList
}

// JobReader reads persisted job records.
type JobReader interface {
	GetJob(ctx context.Context, jobID uuid.UUID) (*job.Record, error)
}

// DatasetService turns dataset export and import requests into background jobs.
type DatasetService interface {
	// RequestExport queues an export of the project and returns the job.
	RequestExport(ctx context.Context, ic *iam.Context, projectID uuid.UUID, req ExportRequest) (*job.Record, error)

	// RequestImport queues an import of an uploaded dataset into the project and returns the job.
	RequestImport(ctx context.Context, ic *iam.Context, projectID uuid.UUID, req ImportRequest) (*job.Record, error)

	// GetJob returns a job requested by the caller.
	GetJob(ctx context.Context, ic *iam.Context, jobID uuid.UUID) (*job.Record, error)

	// ExportFile returns the path of the file written by a completed export job.
	ExportFile(ctx context.Context, ic *iam.Context, jobID uuid.UUID) (string, error)

	// Formats lists the registered importers and exporters.
	Formats() dataset.FormatList
}

type datasetServiceImpl struct {
	projects store.ProjectStore
	jobs     JobReader
	formats  FormatRegistry
	emitter  events.EventEmitter
	policy   *iam.Policy
	logger   *slog.Logger
}

var _ DatasetService = (*datasetServiceImpl)(nil)

// NewDatasetService creates a DatasetService. Requests are emitted as
// events.DatasetRequestEvent; a handler registered on emitter is expected to
// persist and schedule the job before EmitEvent returns.
func NewDatasetService(
	projects store.ProjectStore,
	jobs JobReader,
	formats FormatRegistry,
	emitter events.EventEmitter,
	policy *iam.Policy,
	log *slog.Logger,
) (DatasetService, error) {
	switch {
	case projects == nil:
		return nil, &ServiceError{Service: "dataset", Op: "create_service", Message: "projects cannot be nil"}
	case jobs == nil:
		return nil, &ServiceError{Service: "dataset", Op: "create_service", Message: "jobs cannot be nil"}
	case formats == nil:
		return nil, &ServiceError{Service: "dataset", Op: "create_service", Message: "formats cannot be nil"}
	case emitter == nil:
		return nil, &ServiceError{Service: "dataset", Op: "create_service", Message: "emitter cannot be nil"}
	case policy == nil:
		return nil, &ServiceError{Service: "dataset", Op: "create_service", Message: "policy cannot be nil"}
	}
	if log == nil {
		log = slog.Default()
	}

	return &datasetServiceImpl{
		projects: projects,
		jobs:     jobs,
		formats:  formats,
		emitter:  emitter,
		policy:   policy,
		logger:   log.With(slog.String("component", "dataset_service")),
	}, nil
}

func (s *datasetServiceImpl) Formats() dataset.FormatList {
	return s.formats.Formats()
}

func (s *datasetServiceImpl) RequestExport(
	ctx context.Context,
	ic *iam.Context,
	projectID uuid.UUID,
	req ExportRequest,
) (*job.Record, error) {
	if _, err := s.formats.MakeExporter(req.Format); err != nil {
		return nil, err
	}
	if err := s.authorize(ctx, ic, projectID, iam.ActionView); err != nil {
		return nil, err
	}

	return s.emit(ctx, ic, job.TypeDatasetExport, job.DatasetPayload{
		ProjectID:   projectID,
		Format:      req.Format,
		ServerURL:   req.ServerURL,
		SaveImages:  req.SaveImages,
		RequestedBy: ic.UserID(),
	})
}

func (s *datasetServiceImpl) RequestImport(
	ctx context.Context,
	ic *iam.Context,
	projectID uuid.UUID,
	req ImportRequest,
) (*job.Record, error) {
	if _, err := s.formats.MakeImporter(req.Format); err != nil {
		return nil, err
	}
	if req.File == "" {
		return nil, domain.NewValidationError("file", "cannot be empty", nil)
	}
	if err := s.authorize(ctx, ic, projectID, iam.ActionUpdate); err != nil {
		return nil, err
	}

	return s.emit(ctx, ic, job.TypeDatasetImport, job.DatasetPayload{
		ProjectID:   projectID,
		Format:      req.Format,
		File:        req.File,
		RequestedBy: ic.UserID(),
	})
}

// authorize loads the project and checks action on it. Projects the caller
// cannot see are reported as missing.
func (s *datasetServiceImpl) authorize(ctx context.Context, ic *iam.Context, projectID uuid.UUID, action iam.Action) error {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		return NewServiceError("dataset", "authorize", "failed to load project", err)
	}

	perm := s.policy.Projects(ic)
	if err := perm.Check(ctx, iam.ActionView, project); err != nil {
		return hideForbidden(err, store.ErrProjectNotFound)
	}
	if action != iam.ActionView {
		return perm.Check(ctx, action, project)
	}
	return nil
}

func (s *datasetServiceImpl) emit(ctx context.Context, ic *iam.Context, jobType string, payload job.DatasetPayload) (*job.Record, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewDatasetRequestEvent(jobType, ic.UserID(), payload)
	if err != nil {
		return nil, NewServiceError("dataset", jobType, "failed to create request event", err)
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Error("failed to emit dataset request",
			slog.String("job_type", jobType),
			slog.String("project_id", payload.ProjectID.String()),
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError("dataset", jobType, "failed to schedule job", err)
	}

	rec, err := s.jobs.GetJob(ctx, event.ID)
	if err != nil {
		return nil, NewServiceError("dataset", jobType, "failed to load scheduled job", err)
	}

	log.Info("dataset job scheduled",
		slog.String("job_id", rec.ID.String()),
		slog.String("job_type", jobType),
		slog.String("project_id", payload.ProjectID.String()),
		slog.String("format", payload.Format))
	return rec, nil
}

func (s *datasetServiceImpl) GetJob(ctx context.Context, ic *iam.Context, jobID uuid.UUID) (*job.Record, error) {
	rec, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, NewServiceError("dataset", "get_job", "failed to load job", err)
	}
	if !ic.IsAdmin() && rec.RequestedBy != ic.UserID() {
		return nil, store.ErrJobNotFound
	}
	return rec, nil
}

func (s *datasetServiceImpl) ExportFile(ctx context.Context, ic *iam.Context, jobID uuid.UUID) (string, error) {
	rec, err := s.GetJob(ctx, ic, jobID)
	if err != nil {
		return "", err
	}
	if rec.Type != job.TypeDatasetExport {
		return "", ErrNotExportJob
	}
	if rec.Status != job.StatusCompleted {
		return "", fmt.Errorf("%w: status is %s", ErrJobNotFinished, rec.Status)
	}

	var payload job.DatasetPayload
	if err := rec.DecodePayload(&payload); err != nil {
		return "", NewServiceError("dataset", "export_file", "failed to decode job payload", err)
	}
	if payload.File == "" {
		return "", NewServiceError("dataset", "export_file", "job has no file", errors.New("empty file path"))
	}
	return payload.File, nil
}
