package dataset

import "github.com/phrazzld/annotator-api/internal/annotation"

// ImportedTask is one task read from a dataset file.
type ImportedTask struct {
	Name        string
	Subset      string
	Annotations *annotation.IR
}

// Dataset is what an importer extracted from a dataset file.
type Dataset struct {
	Tasks []ImportedTask
}
