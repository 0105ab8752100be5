package dataset

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func depsFor(t *testing.T, f *fixture, reg *Registry) (Deps, *txCounter) {
	t.Helper()
	db, counter := newTxDB(t)
	return Deps{
		DB:          db,
		Projects:    f.repos.Projects,
		Tasks:       f.tasks,
		Annotations: f.annotations,
		Registry:    reg,
		BatchSize:   f.repos.BatchSize,
	}, counter
}

func registryWith(t *testing.T, exporter Exporter, importer Importer) *Registry {
	t.Helper()
	reg := NewRegistry()
	if exporter != nil {
		require.NoError(t, reg.RegisterExporter("Test 1.0", "txt", "1.0", exporter))
	}
	if importer != nil {
		require.NoError(t, reg.RegisterImporter("Test 1.0", "txt", "1.0", importer))
	}
	return reg
}

// leftovers returns the names in dir other than keep.
func leftovers(t *testing.T, dir string, keep ...string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	var out []string
	for _, e := range entries {
		skip := false
		for _, k := range keep {
			if e.Name() == k {
				skip = true
			}
		}
		if !skip {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestExportProject(t *testing.T) {
	ctx := context.Background()

	t.Run("reads in a committed read-only transaction before exporting", func(t *testing.T) {
		f := newFixture()
		var counter *txCounter
		var commitsAtExport, rollbacksAtExport int32
		exporter := func(w io.Writer, data *ProjectData, _ Options) error {
			commitsAtExport = counter.commits.Load()
			rollbacksAtExport = counter.rollbacks.Load()
			_, err := io.WriteString(w, data.Host())
			return err
		}
		deps, c := depsFor(t, f, registryWith(t, exporter, nil))
		counter = c

		dst := filepath.Join(t.TempDir(), "out", "project.txt")
		err := ExportProject(ctx, deps, f.project.ID, dst, "Test 1.0",
			ExportOptions{ServerURL: "https://annotator.example.com"})
		require.NoError(t, err)

		assert.Equal(t, int32(1), commitsAtExport, "transaction must be committed when the exporter runs")
		assert.Equal(t, int32(0), rollbacksAtExport)
		assert.Equal(t, int32(1), counter.begins.Load())
		assert.True(t, counter.readOnly.Load())

		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "https://annotator.example.com", string(got))
		assert.Empty(t, leftovers(t, filepath.Dir(dst), "project.txt"), "temporary file must be renamed away")
	})

	t.Run("failed exporter leaves no partial file", func(t *testing.T) {
		f := newFixture()
		exporter := func(w io.Writer, _ *ProjectData, _ Options) error {
			if _, err := io.WriteString(w, "half a file"); err != nil {
				return err
			}
			return errors.New("disk quota exceeded")
		}
		deps, _ := depsFor(t, f, registryWith(t, exporter, nil))

		dir := t.TempDir()
		dst := filepath.Join(dir, "project.txt")
		err := ExportProject(ctx, deps, f.project.ID, dst, "Test 1.0", ExportOptions{})
		require.ErrorContains(t, err, "disk quota exceeded")

		_, statErr := os.Stat(dst)
		assert.True(t, os.IsNotExist(statErr), "destination must not exist")
		assert.Empty(t, leftovers(t, dir))
	})

	t.Run("failed export keeps an earlier file intact", func(t *testing.T) {
		f := newFixture()
		exporter := func(io.Writer, *ProjectData, Options) error {
			return errors.New("boom")
		}
		deps, _ := depsFor(t, f, registryWith(t, exporter, nil))

		dir := t.TempDir()
		dst := filepath.Join(dir, "project.txt")
		require.NoError(t, os.WriteFile(dst, []byte("previous export"), 0o644))

		require.Error(t, ExportProject(ctx, deps, f.project.ID, dst, "Test 1.0", ExportOptions{}))

		got, err := os.ReadFile(dst)
		require.NoError(t, err)
		assert.Equal(t, "previous export", string(got))
		assert.Empty(t, leftovers(t, dir, "project.txt"))
	})

	t.Run("unknown format", func(t *testing.T) {
		f := newFixture()
		deps, counter := depsFor(t, f, NewRegistry())

		dst := filepath.Join(t.TempDir(), "project.txt")
		err := ExportProject(ctx, deps, f.project.ID, dst, "Nope 9.9", ExportOptions{})
		require.ErrorIs(t, err, ErrUnknownFormat)

		assert.Equal(t, int32(0), counter.begins.Load(), "no transaction for an unknown format")
		_, statErr := os.Stat(dst)
		assert.True(t, os.IsNotExist(statErr))
	})

	t.Run("missing project", func(t *testing.T) {
		f := newFixture()
		deps, counter := depsFor(t, f, registryWith(t, func(io.Writer, *ProjectData, Options) error {
			t.Fatal("exporter must not run")
			return nil
		}, nil))
		f.repos.Projects.(*fakeProjects).projects = nil

		dir := t.TempDir()
		err := ExportProject(ctx, deps, f.project.ID, filepath.Join(dir, "p.txt"), "Test 1.0", ExportOptions{})
		require.ErrorIs(t, err, store.ErrProjectNotFound)
		assert.Equal(t, int32(1), counter.rollbacks.Load())
		assert.Empty(t, leftovers(t, dir))
	})
}

func writeDataset(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.txt")
	require.NoError(t, os.WriteFile(path, []byte("dataset"), 0o644))
	return path
}

func TestImportDatasetAsProject(t *testing.T) {
	ctx := context.Background()

	t.Run("imports in one committed transaction", func(t *testing.T) {
		f := newFixture()
		importer := importTasks(
			ImportedTask{Name: "dawn", Subset: "train"},
			ImportedTask{Name: "dusk", Subset: "val"},
		)
		deps, counter := depsFor(t, f, registryWith(t, nil, importer))

		err := ImportDatasetAsProject(ctx, deps, f.project.ID, writeDataset(t), "Test 1.0")
		require.NoError(t, err)

		assert.Equal(t, int32(1), counter.begins.Load())
		assert.Equal(t, int32(1), counter.commits.Load())
		assert.Equal(t, int32(0), counter.rollbacks.Load())
		assert.False(t, counter.readOnly.Load())
		assert.Equal(t, 1, f.tasks.bulkCalls)

		listed, err := f.tasks.ListByProject(ctx, f.project.ID)
		require.NoError(t, err)
		assert.Len(t, listed, 4)
	})

	t.Run("failed task insert rolls back", func(t *testing.T) {
		f := newFixture()
		f.tasks.bulkCreateFn = func([]*domain.Task) error {
			return errors.New("duplicate key value")
		}
		importer := importTasks(ImportedTask{Name: "dawn"}, ImportedTask{Name: "dusk"})
		deps, counter := depsFor(t, f, registryWith(t, nil, importer))

		err := ImportDatasetAsProject(ctx, deps, f.project.ID, writeDataset(t), "Test 1.0")
		require.ErrorContains(t, err, "duplicate key value")

		assert.Equal(t, int32(0), counter.commits.Load())
		assert.Equal(t, int32(1), counter.rollbacks.Load())
	})

	t.Run("failed importer rolls back", func(t *testing.T) {
		f := newFixture()
		errTruncated := errors.New("unexpected end of archive")
		importer := func(_ context.Context, r io.Reader, _ *ProjectData, _ LoadFunc) error {
			body, err := io.ReadAll(r)
			require.NoError(t, err)
			assert.Equal(t, "dataset", string(body))
			return errTruncated
		}
		deps, counter := depsFor(t, f, registryWith(t, nil, importer))

		err := ImportDatasetAsProject(ctx, deps, f.project.ID, writeDataset(t), "Test 1.0")
		require.ErrorIs(t, err, errTruncated)

		assert.Equal(t, int32(0), counter.commits.Load())
		assert.Equal(t, int32(1), counter.rollbacks.Load())
		assert.Zero(t, f.tasks.bulkCalls)
	})

	t.Run("unknown format", func(t *testing.T) {
		f := newFixture()
		deps, counter := depsFor(t, f, NewRegistry())

		err := ImportDatasetAsProject(ctx, deps, f.project.ID, writeDataset(t), "Nope 9.9")
		require.ErrorIs(t, err, ErrUnknownFormat)
		assert.Equal(t, int32(0), counter.begins.Load())
	})

	t.Run("missing dataset file", func(t *testing.T) {
		f := newFixture()
		deps, counter := depsFor(t, f, registryWith(t, nil, importTasks()))

		err := ImportDatasetAsProject(ctx, deps, f.project.ID,
			filepath.Join(t.TempDir(), "absent.zip"), "Test 1.0")
		require.ErrorIs(t, err, os.ErrNotExist)
		assert.Equal(t, int32(0), counter.begins.Load())
	})
}
