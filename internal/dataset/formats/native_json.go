package formats

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/tidwall/gjson"
)

const manifestName = "manifest.json"

type manifest struct {
	Format     string          `json:"format"`
	Version    string          `json:"version"`
	IRVersion  int             `json:"ir_version"`
	ExportedAt time.Time       `json:"exported_at"`
	ServerURL  string          `json:"server_url,omitempty"`
	SaveImages bool            `json:"save_images"`
	Project    projectInfo     `json:"project"`
	Tasks      []manifestEntry `json:"tasks"`
}

type manifestEntry struct {
	Name   string `json:"name"`
	Subset string `json:"subset"`
	File   string `json:"file"`
}

// ExportNativeJSON writes a zip archive with manifest.json and one
// annotations/<task id>.json document per task.
func ExportNativeJSON(w io.Writer, data *dataset.ProjectData, opts dataset.Options) error {
	zw := zip.NewWriter(w)

	m := manifest{
		Format:     "Native JSON",
		Version:    formatVersion,
		IRVersion:  annotation.CurrentVersion,
		ExportedAt: time.Now().UTC(),
		ServerURL:  data.Host(),
		SaveImages: opts.SaveImages,
		Project:    newProjectInfo(data.Project()),
		Tasks:      []manifestEntry{},
	}

	for _, td := range data.Tasks() {
		name := path.Join("annotations", td.Task.ID.String()+".json")
		f, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", name, err)
		}
		if err := json.NewEncoder(f).Encode(td.Annotations); err != nil {
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		m.Tasks = append(m.Tasks, manifestEntry{Name: td.Task.Name, Subset: td.Task.Subset, File: name})
	}

	f, err := zw.Create(manifestName)
	if err != nil {
		return fmt.Errorf("failed to add manifest: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	return zw.Close()
}

// ImportNativeJSON reads an archive written by ExportNativeJSON, limiting each
// entry to DefaultMaxEntryBytes.
func ImportNativeJSON(ctx context.Context, r io.Reader, data *dataset.ProjectData, load dataset.LoadFunc) error {
	return NativeJSONImporter(DefaultMaxEntryBytes)(ctx, r, data, load)
}

// NativeJSONImporter returns an importer for archives written by
// ExportNativeJSON that rejects entries decompressing to more than
// maxEntryBytes with ErrMalformedDataset.
func NativeJSONImporter(maxEntryBytes int64) dataset.Importer {
	if maxEntryBytes <= 0 {
		maxEntryBytes = DefaultMaxEntryBytes
	}
	return func(ctx context.Context, r io.Reader, _ *dataset.ProjectData, load dataset.LoadFunc) error {
		return importNativeJSON(ctx, r, load, maxEntryBytes)
	}
}

func importNativeJSON(ctx context.Context, r io.Reader, load dataset.LoadFunc, maxEntryBytes int64) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read dataset: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedDataset, err)
	}

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	mf, ok := files[manifestName]
	if !ok {
		return fmt.Errorf("%w: %s is missing", ErrMalformedDataset, manifestName)
	}
	manifestData, err := readZipFile(mf, maxEntryBytes)
	if err != nil {
		return err
	}
	if !gjson.ValidBytes(manifestData) {
		return fmt.Errorf("%w: %s is not valid JSON", ErrMalformedDataset, manifestName)
	}

	if v := gjson.GetBytes(manifestData, "version").String(); v != formatVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, v)
	}

	ds := &dataset.Dataset{}
	for _, entry := range gjson.GetBytes(manifestData, "tasks").Array() {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := entry.Get("name").String()
		file := entry.Get("file").String()
		zf, ok := files[file]
		if !ok {
			return fmt.Errorf("%w: annotations of task %q (%s) are missing", ErrMalformedDataset, name, file)
		}
		body, err := readZipFile(zf, maxEntryBytes)
		if err != nil {
			return err
		}

		ir := annotation.NewIR()
		if err := json.Unmarshal(body, ir); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrMalformedDataset, file, err)
		}
		if err := normalizeIR(ir); err != nil {
			return err
		}

		ds.Tasks = append(ds.Tasks, dataset.ImportedTask{
			Name:        name,
			Subset:      entry.Get("subset").String(),
			Annotations: ir,
		})
	}

	return load(ctx, ds)
}

// readZipFile reads f, failing once more than limit bytes come out of the
// decompressor. The size in the entry header is only trusted to fail early.
func readZipFile(f *zip.File, limit int64) ([]byte, error) {
	if f.UncompressedSize64 > uint64(limit) {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformedDataset, f.Name, limit)
	}

	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDataset, f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(io.LimitReader(rc, limit+1))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedDataset, f.Name, err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", ErrMalformedDataset, f.Name, limit)
	}
	return data, nil
}
