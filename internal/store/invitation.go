package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/annotator-api/internal/domain"
)

// InvitationStore defines the interface for invitation persistence.
// Invitations returned by reads carry their Membership.
type InvitationStore interface {
	// Create inserts the invitation. The membership must already exist.
	Create(ctx context.Context, inv *domain.Invitation) error

	// GetByKey returns ErrInvitationNotFound if no invitation has the key.
	GetByKey(ctx context.Context, key string) (*domain.Invitation, error)

	// List returns invitations ordered by created_date descending.
	List(ctx context.Context, opts ListOptions) (Page[*domain.Invitation], error)

	// Delete removes the invitation and its membership if still inactive.
	Delete(ctx context.Context, key string) error

	// WithTx returns a store bound to tx.
	WithTx(tx *sql.Tx) InvitationStore
}
