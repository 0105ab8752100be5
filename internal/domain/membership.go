package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role is a user's role inside an organization.
type Role string

// Membership roles, highest privilege first.
const (
	RoleOwner      Role = "owner"
	RoleMaintainer Role = "maintainer"
	RoleSupervisor Role = "supervisor"
	RoleWorker     Role = "worker"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleMaintainer, RoleSupervisor, RoleWorker:
		return true
	default:
		return false
	}
}

// Membership links a user to an organization. Memberships created from an
// invitation stay inactive until the invitation is accepted.
type Membership struct {
	ID             uuid.UUID  `json:"id"`
	UserID         uuid.UUID  `json:"user_id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	IsActive       bool       `json:"is_active"`
	JoinedAt       *time.Time `json:"joined_date"`
	Role           Role       `json:"role"`
	CreatedAt      time.Time  `json:"-"`
}

// NewOwnerMembership creates the active owner membership of a fresh organization.
func NewOwnerMembership(org *Organization) *Membership {
	now := time.Now().UTC()
	return &Membership{
		ID:             uuid.New(),
		UserID:         org.OwnerID,
		OrganizationID: org.ID,
		IsActive:       true,
		JoinedAt:       &now,
		Role:           RoleOwner,
		CreatedAt:      now,
	}
}

// NewPendingMembership creates an inactive membership waiting for an invitation to be accepted.
func NewPendingMembership(userID, orgID uuid.UUID, role Role) (*Membership, error) {
	m := &Membership{
		ID:             uuid.New(),
		UserID:         userID,
		OrganizationID: orgID,
		IsActive:       false,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks if the Membership has valid data.
func (m *Membership) Validate() error {
	if m.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}
	if m.UserID == uuid.Nil {
		return NewValidationError("user", "cannot be empty", ErrInvalidID)
	}
	if m.OrganizationID == uuid.Nil {
		return NewValidationError("organization", "cannot be empty", ErrInvalidID)
	}
	if !m.Role.Valid() {
		return NewValidationError("role", "is not a valid role", ErrInvalidRole)
	}
	return nil
}

// Activate marks the membership as joined.
func (m *Membership) Activate() {
	now := time.Now().UTC()
	m.IsActive = true
	m.JoinedAt = &now
}
