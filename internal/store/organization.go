package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
)

// OrganizationStore defines the interface for organization persistence.
type OrganizationStore interface {
	// Create inserts a new organization.
	// Returns ErrSlugExists if the slug is taken.
	Create(ctx context.Context, org *domain.Organization) error

	// GetByID returns ErrOrganizationNotFound if the organization does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error)

	// GetBySlug returns ErrOrganizationNotFound if no organization has the slug.
	GetBySlug(ctx context.Context, slug string) (*domain.Organization, error)

	// List returns organizations newest first. Pagination in opts is ignored.
	List(ctx context.Context, opts ListOptions) ([]*domain.Organization, error)

	// Update saves slug, name, description and contact of an existing organization.
	Update(ctx context.Context, org *domain.Organization) error

	// Delete removes the organization; memberships and invitations cascade.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) OrganizationStore
}
