package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// MembershipService provides membership-related operations. Memberships are
// created by organizations and invitations, never directly.
type MembershipService interface {
	// ListMemberships returns one page of the memberships the caller can see,
	// restricted to the organization of the IAM context when one is selected.
	ListMemberships(ctx context.Context, ic *iam.Context, opts store.ListOptions) (store.Page[*domain.Membership], error)

	// GetMembership returns one membership.
	GetMembership(ctx context.Context, ic *iam.Context, id uuid.UUID) (*domain.Membership, error)

	// UpdateMembershipRole changes the role of a membership.
	UpdateMembershipRole(ctx context.Context, ic *iam.Context, id uuid.UUID, role domain.Role) (*domain.Membership, error)

	// DeleteMembership removes a member from an organization.
	DeleteMembership(ctx context.Context, ic *iam.Context, id uuid.UUID) error
}

type membershipServiceImpl struct {
	memberships store.MembershipStore
	policy      *iam.Policy
	logger      *slog.Logger
}

var _ MembershipService = (*membershipServiceImpl)(nil)

// NewMembershipService creates a MembershipService.
func NewMembershipService(memberships store.MembershipStore, policy *iam.Policy, log *slog.Logger) (MembershipService, error) {
	if memberships == nil {
		return nil, &ServiceError{Service: "membership", Op: "create_service", Message: "memberships cannot be nil"}
	}
	if policy == nil {
		return nil, &ServiceError{Service: "membership", Op: "create_service", Message: "policy cannot be nil"}
	}
	if log == nil {
		log = slog.Default()
	}

	return &membershipServiceImpl{
		memberships: memberships,
		policy:      policy,
		logger:      log.With(slog.String("component", "membership_service")),
	}, nil
}

func (s *membershipServiceImpl) ListMemberships(
	ctx context.Context,
	ic *iam.Context,
	opts store.ListOptions,
) (store.Page[*domain.Membership], error) {
	page, err := s.memberships.List(ctx, s.policy.Memberships(ic).Filter(opts))
	if err != nil {
		return store.Page[*domain.Membership]{}, NewServiceError("membership", "list", "failed to list memberships", err)
	}
	return page, nil
}

func (s *membershipServiceImpl) GetMembership(ctx context.Context, ic *iam.Context, id uuid.UUID) (*domain.Membership, error) {
	m, err := s.memberships.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("membership", "get", "failed to load membership", err)
	}
	if err := s.policy.Memberships(ic).Check(ctx, iam.ActionView, m); err != nil {
		return nil, hideForbidden(err, store.ErrMembershipNotFound)
	}
	return m, nil
}

func (s *membershipServiceImpl) UpdateMembershipRole(
	ctx context.Context,
	ic *iam.Context,
	id uuid.UUID,
	role domain.Role,
) (*domain.Membership, error) {
	if !role.Valid() {
		return nil, domain.NewValidationError("role", "is not a valid role", domain.ErrInvalidRole)
	}

	m, err := s.GetMembership(ctx, ic, id)
	if err != nil {
		return nil, err
	}
	if m.Role == role {
		return m, nil
	}
	if err := s.policy.Memberships(ic).CheckRoleChange(ctx, m, role); err != nil {
		return nil, err
	}

	previous := m.Role
	m.Role = role
	if err := s.memberships.Update(ctx, m); err != nil {
		return nil, NewServiceError("membership", "update", "failed to save membership", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("membership role changed",
		slog.String("membership_id", m.ID.String()),
		slog.String("from", string(previous)),
		slog.String("to", string(role)))
	return m, nil
}

func (s *membershipServiceImpl) DeleteMembership(ctx context.Context, ic *iam.Context, id uuid.UUID) error {
	m, err := s.GetMembership(ctx, ic, id)
	if err != nil {
		return err
	}
	if err := s.policy.Memberships(ic).Check(ctx, iam.ActionDelete, m); err != nil {
		return err
	}

	if err := s.memberships.Delete(ctx, m.ID); err != nil {
		return NewServiceError("membership", "delete", "failed to delete membership", err)
	}
	return nil
}
