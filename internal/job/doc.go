// Package job runs dataset export and import requests in the background.
//
// Jobs are persisted before they are queued so that a restart can recover
// work that was pending or interrupted. The Runner owns a bounded in-memory
// Queue and a fixed set of workers; a monitor goroutine resets jobs that stay
// in the processing state for too long.
package job
