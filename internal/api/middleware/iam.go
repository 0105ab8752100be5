package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/api/shared"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/redact"
	"github.com/phrazzld/annotator-api/internal/store"
)

// ContextResolver builds the IAM context of a request.
type ContextResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID, orgSlug string) (*iam.Context, error)
}

// IAMMiddleware attaches the caller's IAM context to authenticated requests.
type IAMMiddleware struct {
	resolver ContextResolver
}

// NewIAMMiddleware creates a new IAMMiddleware.
func NewIAMMiddleware(resolver ContextResolver) *IAMMiddleware {
	return &IAMMiddleware{resolver: resolver}
}

// organizationSlug returns the organization selected by the request: the
// org query parameter wins over the X-Organization header.
func organizationSlug(r *http.Request) string {
	if slug := r.URL.Query().Get(iam.OrganizationQueryParam); slug != "" {
		return strings.TrimSpace(slug)
	}
	return strings.TrimSpace(r.Header.Get(iam.OrganizationHeader))
}

// Resolve must run after Authenticate.
func (m *IAMMiddleware) Resolve(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := shared.UserIDFromContext(r.Context())
		if !ok {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}

		slug := organizationSlug(r)
		ic, err := m.resolver.Resolve(r.Context(), userID, slug)
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrUnauthorized):
				shared.RespondWithErrorAndLog(w, r, http.StatusUnauthorized, "Unknown user", err,
					shared.WithElevatedLogLevel())
			case errors.Is(err, store.ErrOrganizationNotFound):
				shared.RespondWithErrorAndLog(w, r, http.StatusNotFound, "Organization not found", err)
			default:
				logger.FromContextOrDefault(r.Context(), slog.Default()).
					Error("failed to resolve IAM context", "error", redact.Error(err))
				shared.RespondWithError(w, r, http.StatusInternalServerError, "Authentication error")
			}
			return
		}

		next.ServeHTTP(w, r.WithContext(iam.WithContext(r.Context(), ic)))
	})
}
