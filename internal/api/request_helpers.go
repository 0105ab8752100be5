package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// Query parameters understood by list endpoints.
const (
	pageParam     = "page"
	pageSizeParam = "page_size"
)

// getIAMContext returns the IAM context placed on the request by the IAM
// middleware. It writes a 401 and returns false when none is present.
func getIAMContext(w http.ResponseWriter, r *http.Request, log *slog.Logger) (*iam.Context, bool) {
	ic, ok := iam.FromContext(r.Context())
	if !ok || ic.User == nil {
		log.Warn("IAM context not found in request context")
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return nil, false
	}
	return ic, true
}

// getPathUUID extracts a UUID from the URL path parameters.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, domain.NewValidationError(paramName, "is required", domain.ErrValidation)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, domain.NewValidationError(paramName, "has invalid format", domain.ErrInvalidID)
	}

	return id, nil
}

// handleIAMAndPathUUID extracts both the IAM context and a UUID path
// parameter, writing an error response if either is missing.
func handleIAMAndPathUUID(
	w http.ResponseWriter,
	r *http.Request,
	paramName string,
	log *slog.Logger,
) (*iam.Context, uuid.UUID, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	ic, ok := getIAMContext(w, r, log)
	if !ok {
		return nil, uuid.Nil, false
	}

	id, err := getPathUUID(r, paramName)
	if err != nil {
		log.Warn("invalid "+paramName, slog.String("value", chi.URLParam(r, paramName)))
		HandleAPIError(w, r, err, "")
		return nil, uuid.Nil, false
	}

	return ic, id, true
}

// parseListOptions reads the page and page_size query parameters. Both are
// optional; a missing page leaves the list unpaginated only for endpoints
// that pass paginate=false.
func parseListOptions(r *http.Request, paginate bool) (store.ListOptions, error) {
	var opts store.ListOptions
	q := r.URL.Query()

	page, err := positiveIntParam(q.Get(pageParam), pageParam)
	if err != nil {
		return opts, err
	}
	size, err := positiveIntParam(q.Get(pageSizeParam), pageSizeParam)
	if err != nil {
		return opts, err
	}

	if paginate && page == 0 {
		page = 1
	}
	opts.Page = page
	opts.PageSize = size
	return opts, nil
}

func positiveIntParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, domain.NewValidationError(name, "must be a positive integer", domain.ErrValidation)
	}
	return n, nil
}

// parseBoolParam accepts the usual spellings of a boolean query parameter.
func parseBoolParam(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// AllowMethods answers OPTIONS requests for a resource with its Allow header.
func AllowMethods(methods ...string) http.HandlerFunc {
	allow := strings.Join(methods, ", ")
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Allow", allow)
		w.WriteHeader(http.StatusNoContent)
	}
}
