// Package annotation holds the intermediate representation (IR) of a task's
// annotations and the per-task loader that reads it from storage.
package annotation
