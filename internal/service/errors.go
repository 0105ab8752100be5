package service

import (
	"errors"
	"fmt"

	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/store"
)

// Common service errors - sentinel errors used across service implementations.
// The API layer maps them to HTTP status codes.
var (
	// ErrOrganizationRequired is returned when an operation needs an
	// organization in the IAM context and none was selected.
	// API layer should map this to HTTP 400 Bad Request.
	ErrOrganizationRequired = errors.New("an organization must be selected")

	// ErrInviteeNotFound is returned when no user has the invited email address.
	// API layer should map this to HTTP 400 Bad Request.
	ErrInviteeNotFound = errors.New("no user with this email address")

	// ErrJobNotFinished is returned when the file of a job that has not
	// completed is requested.
	// API layer should map this to HTTP 409 Conflict.
	ErrJobNotFinished = errors.New("job has not completed")

	// ErrNotExportJob is returned when the file of an import job is requested.
	ErrNotExportJob = errors.New("job does not produce a file")
)

// ServiceError wraps unexpected errors with the service and operation that failed.
type ServiceError struct {
	Service string
	Op      string
	Message string
	Err     error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	msg := fmt.Sprintf("%s service %s operation failed", e.Service, e.Op)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError wraps err for the given service and operation.
// It returns known sentinel errors directly without wrapping.
func NewServiceError(service, op, message string, err error) error {
	if err == nil {
		return nil
	}
	if isExpected(err) {
		return err
	}
	return &ServiceError{
		Service: service,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// isExpected reports whether err is a condition callers handle explicitly.
func isExpected(err error) bool {
	return store.IsNotFoundError(err) ||
		store.IsDuplicateError(err) ||
		domain.IsValidationError(err) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrUnauthorized) ||
		errors.Is(err, dataset.ErrUnknownFormat) ||
		errors.Is(err, ErrOrganizationRequired) ||
		errors.Is(err, ErrInviteeNotFound) ||
		errors.Is(err, ErrJobNotFinished) ||
		errors.Is(err, ErrNotExportJob)
}

// hideForbidden reports a denied view as notFound.
func hideForbidden(err, notFound error) error {
	if errors.Is(err, domain.ErrForbidden) {
		return notFound
	}
	return err
}
