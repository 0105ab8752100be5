package dataset

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/store"
)

type fakeProjects struct {
	projects map[uuid.UUID]*domain.Project
}

func (f *fakeProjects) GetByID(_ context.Context, id uuid.UUID) (*domain.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, store.ErrProjectNotFound
	}
	return p, nil
}

func (f *fakeProjects) WithTx(*sql.Tx) store.ProjectStore { return f }

type fakeTasks struct {
	tasks        []*domain.Task
	bulkCalls    int
	lastBatch    int
	bulkCreateFn func(tasks []*domain.Task) error
}

func (f *fakeTasks) ListByProject(_ context.Context, projectID uuid.UUID) ([]*domain.Task, error) {
	var out []*domain.Task
	for _, t := range f.tasks {
		if t.ProjectID == projectID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTasks) BulkCreate(_ context.Context, tasks []*domain.Task, batchSize int) error {
	f.bulkCalls++
	f.lastBatch = batchSize
	if f.bulkCreateFn != nil {
		if err := f.bulkCreateFn(tasks); err != nil {
			return err
		}
	}
	f.tasks = append(f.tasks, tasks...)
	return nil
}

func (f *fakeTasks) WithTx(*sql.Tx) store.TaskStore { return f }

type fakeAnnotations struct {
	mu  sync.Mutex
	irs map[uuid.UUID]*annotation.IR
	err error
}

func newFakeAnnotations() *fakeAnnotations {
	return &fakeAnnotations{irs: make(map[uuid.UUID]*annotation.IR)}
}

func (f *fakeAnnotations) Get(_ context.Context, taskID uuid.UUID) (*annotation.IR, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	ir, ok := f.irs[taskID]
	if !ok {
		return nil, annotation.ErrNotFound
	}
	return ir.Clone(), nil
}

func (f *fakeAnnotations) Put(_ context.Context, taskID uuid.UUID, ir *annotation.IR) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.irs[taskID] = ir.Clone()
	return nil
}

func (f *fakeAnnotations) WithTx(*sql.Tx) annotation.Store { return f }

// fixture is a project with two tasks, the first of which has annotations.
type fixture struct {
	project     *domain.Project
	tasks       *fakeTasks
	annotations *fakeAnnotations
	repos       Repos
}

func newFixture() *fixture {
	owner := uuid.New()
	project := &domain.Project{
		ID:      uuid.New(),
		Name:    "street scenes",
		OwnerID: owner,
		Labels:  []domain.Label{{Name: "car"}, {Name: "person"}},
	}

	first, _ := domain.NewTask(project.ID, owner, "day", "train")
	second, _ := domain.NewTask(project.ID, owner, "night", "val")
	other, _ := domain.NewTask(uuid.New(), owner, "elsewhere", "")

	tasks := &fakeTasks{tasks: []*domain.Task{first, second, other}}
	anns := newFakeAnnotations()
	ir := annotation.NewIR()
	ir.Shapes = append(ir.Shapes, annotation.Shape{
		Type: annotation.ShapeRectangle, Label: "car", Points: []float64{1, 2, 3, 4},
	})
	anns.irs[first.ID] = ir

	return &fixture{
		project:     project,
		tasks:       tasks,
		annotations: anns,
		repos: Repos{
			Projects:    &fakeProjects{projects: map[uuid.UUID]*domain.Project{project.ID: project}},
			Tasks:       tasks,
			Annotations: anns,
			BatchSize:   2,
		},
	}
}

// txCounter is a database/sql connector whose transactions only count how
// they ended. It lets ExportProject and ImportDatasetAsProject run their
// transactions over the fake stores.
type txCounter struct {
	begins    atomic.Int32
	commits   atomic.Int32
	rollbacks atomic.Int32
	readOnly  atomic.Bool
}

func newTxDB(t *testing.T) (*sql.DB, *txCounter) {
	t.Helper()
	c := &txCounter{}
	db := sql.OpenDB(c)
	t.Cleanup(func() { _ = db.Close() })
	return db, c
}

func (c *txCounter) Connect(context.Context) (driver.Conn, error) { return &counterConn{c: c}, nil }
func (c *txCounter) Driver() driver.Driver                        { return counterDriver{c: c} }

type counterDriver struct{ c *txCounter }

func (d counterDriver) Open(string) (driver.Conn, error) { return &counterConn{c: d.c}, nil }

type counterConn struct{ c *txCounter }

func (cn *counterConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements are not supported")
}

func (cn *counterConn) Close() error { return nil }

func (cn *counterConn) Begin() (driver.Tx, error) {
	return cn.BeginTx(context.Background(), driver.TxOptions{})
}

func (cn *counterConn) BeginTx(_ context.Context, opts driver.TxOptions) (driver.Tx, error) {
	cn.c.begins.Add(1)
	cn.c.readOnly.Store(opts.ReadOnly)
	return counterTx{c: cn.c}, nil
}

type counterTx struct{ c *txCounter }

func (tx counterTx) Commit() error {
	tx.c.commits.Add(1)
	return nil
}

func (tx counterTx) Rollback() error {
	tx.c.rollbacks.Add(1)
	return nil
}
