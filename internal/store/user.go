package store

import (
	"context"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
)

// UserStore reads user accounts. Accounts are managed by the identity layer.
type UserStore interface {
	// GetByID returns ErrUserNotFound if the user does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)

	// GetByEmail looks a user up by case-insensitive email.
	// Returns ErrUserNotFound if no user has this email.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}
