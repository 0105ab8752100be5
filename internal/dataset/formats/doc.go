// Package formats provides the dataset formats built into the service.
//
// Both formats dump the annotation IR without loss: "Native JSON 1.0" is a
// zip archive with a manifest and one JSON document per task, and
// "Native YAML 1.0" is a single YAML document. Third-party formats are
// registered on the same dataset.Registry by their own packages.
package formats
