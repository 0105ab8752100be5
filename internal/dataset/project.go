package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// ErrNotImplemented is returned by the project-level annotation mutators.
// Project annotations are edited through their tasks.
var ErrNotImplemented = errors.New("not implemented for project annotations")

// Repos are the stores a ProjectAnnotationAndData reads and writes.
type Repos struct {
	Projects    store.ProjectStore
	Tasks       store.TaskStore
	Annotations annotation.Store

	// BatchSize bounds the rows per INSERT when new tasks are created.
	BatchSize int
}

// ProjectAnnotationAndData is the project-wide view over the annotations of
// all tasks of a project.
type ProjectAnnotationAndData struct {
	repos   Repos
	project *domain.Project
	tasks   []*domain.Task

	taskAnnotations map[uuid.UUID]*annotation.TaskAnnotation
	annotationIRs   map[uuid.UUID]*annotation.IR

	tasksToAdd []*domain.Task
}

// NewProjectAnnotationAndData loads the project and its tasks in creation
// order. It returns store.ErrProjectNotFound when the project does not exist.
func NewProjectAnnotationAndData(ctx context.Context, repos Repos, projectID uuid.UUID) (*ProjectAnnotationAndData, error) {
	project, err := repos.Projects.GetByID(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project %s: %w", projectID, err)
	}

	tasks, err := repos.Tasks.ListByProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks of project %s: %w", projectID, err)
	}

	return &ProjectAnnotationAndData{
		repos:           repos,
		project:         project,
		tasks:           tasks,
		taskAnnotations: make(map[uuid.UUID]*annotation.TaskAnnotation),
		annotationIRs:   make(map[uuid.UUID]*annotation.IR),
	}, nil
}

// Project returns the loaded project.
func (p *ProjectAnnotationAndData) Project() *domain.Project {
	return p.project
}

// Tasks returns the project's tasks in creation order.
func (p *ProjectAnnotationAndData) Tasks() []*domain.Task {
	return p.tasks
}

// IR returns the annotations held for taskID.
func (p *ProjectAnnotationAndData) IR(taskID uuid.UUID) (*annotation.IR, bool) {
	ir, ok := p.annotationIRs[taskID]
	return ir, ok
}

// PendingTasks returns the tasks added since the last import.
func (p *ProjectAnnotationAndData) PendingTasks() []*domain.Task {
	return p.tasksToAdd
}

// Reset empties every held IR.
func (p *ProjectAnnotationAndData) Reset() {
	for _, ir := range p.annotationIRs {
		ir.Reset()
	}
}

// Put is not supported on project annotations.
func (p *ProjectAnnotationAndData) Put(*annotation.IR) error { return ErrNotImplemented }

// Create is not supported on project annotations.
func (p *ProjectAnnotationAndData) Create(*annotation.IR) error { return ErrNotImplemented }

// Update is not supported on project annotations.
func (p *ProjectAnnotationAndData) Update(*annotation.IR) error { return ErrNotImplemented }

// Delete is not supported on project annotations.
func (p *ProjectAnnotationAndData) Delete(*annotation.IR) error { return ErrNotImplemented }

// Data is not supported on project annotations.
func (p *ProjectAnnotationAndData) Data() (*annotation.IR, error) { return nil, ErrNotImplemented }

// AddTask queues task for creation by the next ImportDataset.
func (p *ProjectAnnotationAndData) AddTask(task *domain.Task) {
	p.tasksToAdd = append(p.tasksToAdd, task)
}

// InitFromDB resets the held annotations and loads the IR of every task.
func (p *ProjectAnnotationAndData) InitFromDB(ctx context.Context) error {
	p.Reset()

	for _, task := range p.tasks {
		ta := annotation.NewTaskAnnotation(task.ID, p.repos.Annotations)
		if err := ta.InitFromDB(ctx); err != nil {
			return err
		}
		p.taskAnnotations[task.ID] = ta
		p.annotationIRs[task.ID] = ta.IRData()
	}
	return nil
}

// Export runs exporter over the held annotations.
func (p *ProjectAnnotationAndData) Export(w io.Writer, exporter Exporter, host string, opts Options) error {
	data := NewProjectData(p.project, p.tasks, p.annotationIRs, host)
	return exporter(w, data, opts)
}

// LoadDatasetData creates one pending task per imported task and keeps its
// annotations until the import is persisted. It is handed to importers.
func (p *ProjectAnnotationAndData) LoadDatasetData(ctx context.Context, ds *Dataset) error {
	log := logger.FromContext(ctx)
	data := NewProjectData(p.project, p.tasks, p.annotationIRs, "")

	// Imported tasks get strictly increasing creation times at the
	// microsecond precision the database keeps.
	created := time.Now().UTC().Truncate(time.Microsecond)
	for i, imported := range ds.Tasks {
		ir := imported.Annotations
		if ir == nil {
			ir = annotation.NewIR()
		}
		if err := data.CheckLabels(ir); err != nil {
			return fmt.Errorf("task %d (%q): %w", i, imported.Name, err)
		}

		task, err := domain.NewTask(p.project.ID, p.project.OwnerID, imported.Name, imported.Subset)
		if err != nil {
			return fmt.Errorf("task %d (%q): %w", i, imported.Name, err)
		}
		task.CreatedAt = created.Add(time.Duration(i) * time.Microsecond)
		task.UpdatedAt = task.CreatedAt
		p.AddTask(task)
		p.annotationIRs[task.ID] = ir
	}

	log.Debug("dataset loaded",
		slog.String("project_id", p.project.ID.String()),
		slog.Int("task_count", len(ds.Tasks)))
	return nil
}

// ImportDataset runs importer over r, inserts the tasks it produced and
// stores their annotations. The pending task list is empty on return.
func (p *ProjectAnnotationAndData) ImportDataset(ctx context.Context, r io.Reader, importer Importer) error {
	defer func() {
		// Annotations of tasks that were never created must not leak into exports.
		for _, t := range p.tasksToAdd {
			delete(p.annotationIRs, t.ID)
		}
		p.tasksToAdd = nil
	}()

	data := NewProjectData(p.project, p.tasks, p.annotationIRs, "")
	if err := importer(ctx, r, data, p.LoadDatasetData); err != nil {
		return fmt.Errorf("failed to import dataset: %w", err)
	}

	created := p.tasksToAdd
	if err := p.repos.Tasks.BulkCreate(ctx, created, p.repos.BatchSize); err != nil {
		return fmt.Errorf("failed to create imported tasks: %w", err)
	}
	p.tasksToAdd = nil
	p.tasks = append(p.tasks, created...)

	for _, task := range created {
		ir := p.annotationIRs[task.ID]
		if err := p.repos.Annotations.Put(ctx, task.ID, ir); err != nil {
			return fmt.Errorf("failed to store annotations of task %s: %w", task.ID, err)
		}
		p.taskAnnotations[task.ID] = annotation.NewTaskAnnotation(task.ID, p.repos.Annotations)
	}
	return nil
}
