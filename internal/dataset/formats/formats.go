package formats

import (
	"errors"
	"fmt"

	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/domain"
)

// Names of the built-in formats.
const (
	NativeJSON = "Native JSON 1.0"
	NativeYAML = "Native YAML 1.0"
)

const formatVersion = "1.0"

// DefaultMaxEntryBytes bounds the decompressed size of one archive entry when
// no other limit is configured.
const DefaultMaxEntryBytes int64 = 256 << 20

var (
	// ErrMalformedDataset is returned when a dataset file cannot be parsed.
	ErrMalformedDataset = errors.New("malformed dataset file")

	// ErrUnsupportedVersion is returned for dataset files of another format version.
	ErrUnsupportedVersion = errors.New("unsupported dataset format version")
)

// Register adds the built-in exporters and importers to reg. Importers refuse
// archive entries that decompress to more than maxEntryBytes; a non-positive
// value selects DefaultMaxEntryBytes.
func Register(reg *dataset.Registry, maxEntryBytes int64) error {
	return errors.Join(
		reg.RegisterExporter(NativeJSON, "zip", formatVersion, ExportNativeJSON),
		reg.RegisterImporter(NativeJSON, "zip", formatVersion, NativeJSONImporter(maxEntryBytes)),
		reg.RegisterExporter(NativeYAML, "yaml", formatVersion, ExportNativeYAML),
		reg.RegisterImporter(NativeYAML, "yaml", formatVersion, ImportNativeYAML),
	)
}

// NewDefaultRegistry returns a registry holding the built-in formats with the
// default archive entry limit.
func NewDefaultRegistry() *dataset.Registry {
	return NewRegistry(DefaultMaxEntryBytes)
}

// NewRegistry returns a registry holding the built-in formats.
func NewRegistry(maxEntryBytes int64) *dataset.Registry {
	reg := dataset.NewRegistry()
	if err := Register(reg, maxEntryBytes); err != nil {
		panic(fmt.Sprintf("registering built-in dataset formats: %v", err))
	}
	return reg
}

// projectInfo is the project header written by both native formats.
type projectInfo struct {
	ID     string         `json:"id" yaml:"id"`
	Name   string         `json:"name" yaml:"name"`
	Labels []domain.Label `json:"labels" yaml:"labels"`
}

func newProjectInfo(p *domain.Project) projectInfo {
	labels := p.Labels
	if labels == nil {
		labels = []domain.Label{}
	}
	return projectInfo{ID: p.ID.String(), Name: p.Name, Labels: labels}
}

// normalizeIR rejects IRs newer than this service understands and replaces
// missing collections with empty ones.
func normalizeIR(ir *annotation.IR) error {
	if ir.Version > annotation.CurrentVersion {
		return fmt.Errorf("%w: annotation version %d", ErrUnsupportedVersion, ir.Version)
	}
	if ir.Version == 0 {
		ir.Version = annotation.CurrentVersion
	}
	if ir.Tags == nil {
		ir.Tags = []annotation.Tag{}
	}
	if ir.Shapes == nil {
		ir.Shapes = []annotation.Shape{}
	}
	if ir.Tracks == nil {
		ir.Tracks = []annotation.Track{}
	}
	return nil
}
