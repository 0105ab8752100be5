package formats

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"gopkg.in/yaml.v3"
)

type yamlDocument struct {
	Format    string      `yaml:"format"`
	Version   string      `yaml:"version"`
	ServerURL string      `yaml:"server_url,omitempty"`
	Project   projectInfo `yaml:"project"`
	Tasks     []yamlTask  `yaml:"tasks"`
}

type yamlTask struct {
	Name        string         `yaml:"name"`
	Subset      string         `yaml:"subset,omitempty"`
	Annotations *annotation.IR `yaml:"annotations"`
}

// ExportNativeYAML writes the project as one YAML document.
func ExportNativeYAML(w io.Writer, data *dataset.ProjectData, _ dataset.Options) error {
	doc := yamlDocument{
		Format:    "Native YAML",
		Version:   formatVersion,
		ServerURL: data.Host(),
		Project:   newProjectInfo(data.Project()),
		Tasks:     []yamlTask{},
	}
	for _, td := range data.Tasks() {
		doc.Tasks = append(doc.Tasks, yamlTask{
			Name:        td.Task.Name,
			Subset:      td.Task.Subset,
			Annotations: td.Annotations,
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("failed to write YAML dataset: %w", err)
	}
	return enc.Close()
}

// ImportNativeYAML reads a document written by ExportNativeYAML.
func ImportNativeYAML(ctx context.Context, r io.Reader, _ *dataset.ProjectData, load dataset.LoadFunc) error {
	var doc yamlDocument
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty document", ErrMalformedDataset)
		}
		return fmt.Errorf("%w: %v", ErrMalformedDataset, err)
	}
	if doc.Version != formatVersion {
		return fmt.Errorf("%w: %q", ErrUnsupportedVersion, doc.Version)
	}

	ds := &dataset.Dataset{}
	for _, t := range doc.Tasks {
		ir := t.Annotations
		if ir == nil {
			ir = annotation.NewIR()
		}
		if err := normalizeIR(ir); err != nil {
			return err
		}
		ds.Tasks = append(ds.Tasks, dataset.ImportedTask{Name: t.Name, Subset: t.Subset, Annotations: ir})
	}
	return load(ctx, ds)
}
