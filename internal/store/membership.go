package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
)

// MembershipStore defines the interface for membership persistence.
type MembershipStore interface {
	// Create inserts a membership.
	// Returns ErrMembershipExists if the user already belongs to the organization.
	Create(ctx context.Context, m *domain.Membership) error

	// GetByID returns ErrMembershipNotFound if the membership does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Membership, error)

	// GetByUserAndOrganization returns ErrMembershipNotFound if the user has no
	// membership (active or not) in the organization.
	GetByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (*domain.Membership, error)

	// List returns memberships newest first.
	List(ctx context.Context, opts ListOptions) (Page[*domain.Membership], error)

	// Update saves role, is_active and joined_date.
	Update(ctx context.Context, m *domain.Membership) error

	// Delete removes the membership and any invitation pointing at it.
	Delete(ctx context.Context, id uuid.UUID) error

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) MembershipStore
}
