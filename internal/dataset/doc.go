// Package dataset aggregates the annotations of every task in a project and
// moves them in and out of dataset files.
//
// ProjectAnnotationAndData is the project-wide view: it loads the project's
// tasks in creation order, collects each task's annotation IR, and hands the
// result to an Exporter, or runs an Importer that creates new tasks from a
// dataset file. Exporters and importers are looked up by name in a Registry.
package dataset
