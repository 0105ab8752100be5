// Package api handles incoming HTTP requests for organizations, memberships,
// invitations and dataset jobs. Handlers decode and validate requests, take
// the caller's IAM context from the request, call the services and map their
// errors to status codes.
package api
