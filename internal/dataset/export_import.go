package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// ExportOptions control a project export.
type ExportOptions struct {
	// ServerURL is recorded in the export as the origin of the data.
	ServerURL string
	// SaveImages asks the exporter to include media.
	SaveImages bool
}

// Deps are the collaborators of ExportProject and ImportDatasetAsProject.
type Deps struct {
	DB          store.TxBeginner
	Projects    store.ProjectStore
	Tasks       store.TaskStore
	Annotations annotation.TxStore
	Registry    *Registry

	// BatchSize bounds the rows per INSERT when imported tasks are created.
	BatchSize int
}

func (d Deps) reposForTx(tx *sql.Tx) Repos {
	return Repos{
		Projects:    d.Projects.WithTx(tx),
		Tasks:       d.Tasks.WithTx(tx),
		Annotations: d.Annotations.WithTx(tx),
		BatchSize:   d.BatchSize,
	}
}

// ExportProject writes the annotations of project projectID to dstFile in the
// named format. Data is read inside a read-only snapshot transaction that is
// closed before the exporter runs. The file is written under a temporary name
// and renamed into place, so readers never observe a partial file.
func ExportProject(
	ctx context.Context,
	deps Deps,
	projectID uuid.UUID,
	dstFile, formatName string,
	opts ExportOptions,
) error {
	log := logger.FromContext(ctx).With(
		slog.String("project_id", projectID.String()),
		slog.String("format", formatName))

	exporter, err := deps.Registry.MakeExporter(formatName)
	if err != nil {
		return err
	}

	var project *ProjectAnnotationAndData
	err = store.RunInTransactionWithOptions(ctx, deps.DB, store.ReadOnlySnapshot,
		func(ctx context.Context, tx *sql.Tx) error {
			p, err := NewProjectAnnotationAndData(ctx, deps.reposForTx(tx), projectID)
			if err != nil {
				return err
			}
			if err := p.InitFromDB(ctx); err != nil {
				return err
			}
			project = p
			return nil
		})
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(dstFile), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dstFile), "."+filepath.Base(dstFile)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary export file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	exportErr := project.Export(tmp, exporter, opts.ServerURL, Options{SaveImages: opts.SaveImages})
	closeErr := tmp.Close()
	if exportErr != nil {
		return fmt.Errorf("failed to export project %s: %w", projectID, exportErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to write export file: %w", closeErr)
	}

	if err := os.Rename(tmpName, dstFile); err != nil {
		return fmt.Errorf("failed to move export into place: %w", err)
	}

	log.Info("project exported", slog.Int("task_count", len(project.Tasks())))
	return nil
}

// ImportDatasetAsProject imports datasetFile into project projectID. Loading
// the project, running the importer and inserting the new tasks happen in a
// single transaction.
func ImportDatasetAsProject(
	ctx context.Context,
	deps Deps,
	projectID uuid.UUID,
	datasetFile, formatName string,
) error {
	log := logger.FromContext(ctx).With(
		slog.String("project_id", projectID.String()),
		slog.String("format", formatName))

	importer, err := deps.Registry.MakeImporter(formatName)
	if err != nil {
		return err
	}

	f, err := os.Open(datasetFile)
	if err != nil {
		return fmt.Errorf("failed to open dataset file: %w", err)
	}
	defer func() { _ = f.Close() }()

	var created int
	err = store.RunInTransaction(ctx, deps.DB, func(ctx context.Context, tx *sql.Tx) error {
		project, err := NewProjectAnnotationAndData(ctx, deps.reposForTx(tx), projectID)
		if err != nil {
			return err
		}
		if err := project.InitFromDB(ctx); err != nil {
			return err
		}
		before := len(project.Tasks())
		if err := project.ImportDataset(ctx, f, importer); err != nil {
			return err
		}
		created = len(project.Tasks()) - before
		return nil
	})
	if err != nil {
		return err
	}

	log.Info("dataset imported", slog.Int("created_tasks", created))
	return nil
}

// Service binds Deps for callers that run many exports and imports.
type Service struct {
	deps Deps
}

// NewService creates a Service.
func NewService(deps Deps) *Service {
	return &Service{deps: deps}
}

// Registry returns the format registry the service uses.
func (s *Service) Registry() *Registry {
	return s.deps.Registry
}

// ExportProject calls the package-level ExportProject with the bound deps.
func (s *Service) ExportProject(ctx context.Context, projectID uuid.UUID, dstFile, formatName string, opts ExportOptions) error {
	return ExportProject(ctx, s.deps, projectID, dstFile, formatName, opts)
}

// ImportProject calls ImportDatasetAsProject with the bound deps.
func (s *Service) ImportProject(ctx context.Context, projectID uuid.UUID, datasetFile, formatName string) error {
	return ImportDatasetAsProject(ctx, s.deps, projectID, datasetFile, formatName)
}
