package dataset

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/domain"
)

// ErrUnknownLabel is returned when imported annotations use a label the
// project does not define.
var ErrUnknownLabel = errors.New("label is not defined in the project")

// TaskData is one task together with its annotations.
type TaskData struct {
	Task        *domain.Task
	Annotations *annotation.IR
}

// ProjectData binds a project, its tasks, and their annotation IRs for
// exporters and importers. Host is empty for imports.
type ProjectData struct {
	project *domain.Project
	tasks   []*domain.Task
	irs     map[uuid.UUID]*annotation.IR
	host    string
}

// NewProjectData builds the binder. irs is keyed by task ID; tasks without an
// entry are treated as having no annotations.
func NewProjectData(project *domain.Project, tasks []*domain.Task, irs map[uuid.UUID]*annotation.IR, host string) *ProjectData {
	return &ProjectData{
		project: project,
		tasks:   tasks,
		irs:     irs,
		host:    host,
	}
}

// Project returns the bound project.
func (d *ProjectData) Project() *domain.Project {
	return d.project
}

// Host returns the server URL exports should reference.
func (d *ProjectData) Host() string {
	return d.host
}

// Tasks returns the project's tasks in creation order with their annotations.
func (d *ProjectData) Tasks() []TaskData {
	out := make([]TaskData, 0, len(d.tasks))
	for _, t := range d.tasks {
		ir, ok := d.irs[t.ID]
		if !ok {
			ir = annotation.NewIR()
		}
		out = append(out, TaskData{Task: t, Annotations: ir})
	}
	return out
}

// Subsets returns the distinct task subsets in first-seen order.
func (d *ProjectData) Subsets() []string {
	seen := make(map[string]bool)
	var subsets []string
	for _, t := range d.tasks {
		if !seen[t.Subset] {
			seen[t.Subset] = true
			subsets = append(subsets, t.Subset)
		}
	}
	return subsets
}

// CheckLabels verifies that ir only uses labels of the project. Projects
// without labels accept any label.
func (d *ProjectData) CheckLabels(ir *annotation.IR) error {
	if d.project == nil || len(d.project.Labels) == 0 {
		return nil
	}
	for _, name := range ir.Labels() {
		if _, ok := d.project.LabelByName(name); !ok {
			return fmt.Errorf("%w: %q", ErrUnknownLabel, name)
		}
	}
	return nil
}
