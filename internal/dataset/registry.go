package dataset

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

var (
	// ErrUnknownFormat is returned when no exporter or importer is registered under a name.
	ErrUnknownFormat = errors.New("unknown dataset format")

	// ErrDuplicateFormat is returned when a name is registered twice.
	ErrDuplicateFormat = errors.New("dataset format already registered")
)

// Options are passed to exporters.
type Options struct {
	// SaveImages asks the exporter to include media alongside annotations.
	SaveImages bool
}

// Exporter writes the project data to w.
type Exporter func(w io.Writer, data *ProjectData, opts Options) error

// LoadFunc receives the dataset an importer parsed.
type LoadFunc func(ctx context.Context, ds *Dataset) error

// Importer parses r and calls load with the result.
type Importer func(ctx context.Context, r io.Reader, data *ProjectData, load LoadFunc) error

// Format describes a registered exporter or importer.
type Format struct {
	Name    string `json:"name"`
	Ext     string `json:"ext"`
	Version string `json:"version"`
}

// FormatList is the set of formats a registry serves.
type FormatList struct {
	Importers []Format `json:"importers"`
	Exporters []Format `json:"exporters"`
}

type exporterEntry struct {
	Format
	fn Exporter
}

type importerEntry struct {
	Format
	fn Importer
}

// Registry maps format names to exporters and importers. It is safe for
// concurrent use.
type Registry struct {
	mu        sync.RWMutex
	exporters map[string]exporterEntry
	importers map[string]importerEntry
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		exporters: make(map[string]exporterEntry),
		importers: make(map[string]importerEntry),
	}
}

// RegisterExporter adds fn under name.
func (r *Registry) RegisterExporter(name, ext, version string, fn Exporter) error {
	if name == "" || fn == nil {
		return fmt.Errorf("exporter needs a name and a function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.exporters[name]; ok {
		return fmt.Errorf("%w: exporter %q", ErrDuplicateFormat, name)
	}
	r.exporters[name] = exporterEntry{Format: Format{Name: name, Ext: ext, Version: version}, fn: fn}
	return nil
}

// RegisterImporter adds fn under name.
func (r *Registry) RegisterImporter(name, ext, version string, fn Importer) error {
	if name == "" || fn == nil {
		return fmt.Errorf("importer needs a name and a function")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.importers[name]; ok {
		return fmt.Errorf("%w: importer %q", ErrDuplicateFormat, name)
	}
	r.importers[name] = importerEntry{Format: Format{Name: name, Ext: ext, Version: version}, fn: fn}
	return nil
}

// MakeExporter returns the exporter registered under name.
func (r *Registry) MakeExporter(name string) (Exporter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.exporters[name]
	if !ok {
		return nil, fmt.Errorf("%w: exporter %q", ErrUnknownFormat, name)
	}
	return e.fn, nil
}

// MakeImporter returns the importer registered under name.
func (r *Registry) MakeImporter(name string) (Importer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.importers[name]
	if !ok {
		return nil, fmt.Errorf("%w: importer %q", ErrUnknownFormat, name)
	}
	return i.fn, nil
}

// ExportFormat returns the description of the exporter registered under name.
func (r *Registry) ExportFormat(name string) (Format, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.exporters[name]
	if !ok {
		return Format{}, fmt.Errorf("%w: exporter %q", ErrUnknownFormat, name)
	}
	return e.Format, nil
}

// Formats lists the registered importers and exporters sorted by name.
func (r *Registry) Formats() FormatList {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := FormatList{
		Importers: make([]Format, 0, len(r.importers)),
		Exporters: make([]Format, 0, len(r.exporters)),
	}
	for _, i := range r.importers {
		list.Importers = append(list.Importers, i.Format)
	}
	for _, e := range r.exporters {
		list.Exporters = append(list.Exporters, e.Format)
	}
	sort.Slice(list.Importers, func(a, b int) bool { return list.Importers[a].Name < list.Importers[b].Name })
	sort.Slice(list.Exporters, func(a, b int) bool { return list.Exporters[a].Name < list.Exporters[b].Name })
	return list
}
