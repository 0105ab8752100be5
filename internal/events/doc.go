// Package events decouples request handlers from the components that act on
// their requests.
//
// HTTP handlers emit a DatasetRequestEvent when a client asks for a dataset
// export or import; the job package registers a handler that turns those
// events into persisted background jobs. Neither side imports the other.
package events
