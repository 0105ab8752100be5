package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/redact"
	"github.com/phrazzld/annotator-api/internal/store"
)

// CreateOrganizationInput carries the writable fields of a new organization.
type CreateOrganizationInput struct {
	Slug        string
	Name        string
	Description string
	Contact     map[string]string
}

// OrganizationService provides organization-related operations.
type OrganizationService interface {
	// ListOrganizations returns the organizations the caller can see, newest first.
	ListOrganizations(ctx context.Context, ic *iam.Context) ([]*domain.Organization, error)

	// GetOrganization returns one organization.
	GetOrganization(ctx context.Context, ic *iam.Context, id uuid.UUID) (*domain.Organization, error)

	// CreateOrganization creates an organization owned by the caller together
	// with the caller's owner membership.
	CreateOrganization(ctx context.Context, ic *iam.Context, input CreateOrganizationInput) (*domain.Organization, error)

	// UpdateOrganization applies a partial update.
	UpdateOrganization(ctx context.Context, ic *iam.Context, id uuid.UUID, patch domain.OrganizationPatch) (*domain.Organization, error)

	// DeleteOrganization removes the organization with its memberships and invitations.
	DeleteOrganization(ctx context.Context, ic *iam.Context, id uuid.UUID) error
}

type organizationServiceImpl struct {
	db            store.TxBeginner
	organizations store.OrganizationStore
	memberships   store.MembershipStore
	policy        *iam.Policy
	logger        *slog.Logger
}

var _ OrganizationService = (*organizationServiceImpl)(nil)

// NewOrganizationService creates an OrganizationService.
// It returns an error if any of the required dependencies are nil.
func NewOrganizationService(
	db store.TxBeginner,
	organizations store.OrganizationStore,
	memberships store.MembershipStore,
	policy *iam.Policy,
	log *slog.Logger,
) (OrganizationService, error) {
	switch {
	case db == nil:
		return nil, &ServiceError{Service: "organization", Op: "create_service", Message: "db cannot be nil"}
	case organizations == nil:
		return nil, &ServiceError{Service: "organization", Op: "create_service", Message: "organizations cannot be nil"}
	case memberships == nil:
		return nil, &ServiceError{Service: "organization", Op: "create_service", Message: "memberships cannot be nil"}
	case policy == nil:
		return nil, &ServiceError{Service: "organization", Op: "create_service", Message: "policy cannot be nil"}
	}
	if log == nil {
		log = slog.Default()
	}

	return &organizationServiceImpl{
		db:            db,
		organizations: organizations,
		memberships:   memberships,
		policy:        policy,
		logger:        log.With(slog.String("component", "organization_service")),
	}, nil
}

func (s *organizationServiceImpl) ListOrganizations(ctx context.Context, ic *iam.Context) ([]*domain.Organization, error) {
	opts := s.policy.Organizations(ic).Filter(store.ListOptions{})
	orgs, err := s.organizations.List(ctx, opts)
	if err != nil {
		return nil, NewServiceError("organization", "list", "failed to list organizations", err)
	}
	return orgs, nil
}

func (s *organizationServiceImpl) GetOrganization(ctx context.Context, ic *iam.Context, id uuid.UUID) (*domain.Organization, error) {
	return s.load(ctx, ic, id, iam.ActionView)
}

// load fetches the organization and authorizes action on it.
func (s *organizationServiceImpl) load(ctx context.Context, ic *iam.Context, id uuid.UUID, action iam.Action) (*domain.Organization, error) {
	org, err := s.organizations.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("organization", "get", "failed to load organization", err)
	}

	perm := s.policy.Organizations(ic)
	if err := perm.Check(ctx, iam.ActionView, org); err != nil {
		return nil, hideForbidden(err, store.ErrOrganizationNotFound)
	}
	if action != iam.ActionView {
		if err := perm.Check(ctx, action, org); err != nil {
			return nil, err
		}
	}
	return org, nil
}

func (s *organizationServiceImpl) CreateOrganization(
	ctx context.Context,
	ic *iam.Context,
	input CreateOrganizationInput,
) (*domain.Organization, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.policy.Organizations(ic).Check(ctx, iam.ActionCreate, nil); err != nil {
		return nil, err
	}

	org, err := domain.NewOrganization(ic.UserID(), input.Slug, input.Name, input.Description, input.Contact)
	if err != nil {
		return nil, err
	}
	owner := domain.NewOwnerMembership(org)

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.organizations.WithTx(tx).Create(ctx, org); err != nil {
			return err
		}
		return s.memberships.WithTx(tx).Create(ctx, owner)
	})
	if err != nil {
		log.Error("failed to create organization",
			slog.String("slug", org.Slug),
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError("organization", "create", "failed to save organization", err)
	}

	log.Info("organization created",
		slog.String("organization_id", org.ID.String()),
		slog.String("slug", org.Slug))
	return org, nil
}

func (s *organizationServiceImpl) UpdateOrganization(
	ctx context.Context,
	ic *iam.Context,
	id uuid.UUID,
	patch domain.OrganizationPatch,
) (*domain.Organization, error) {
	org, err := s.load(ctx, ic, id, iam.ActionUpdate)
	if err != nil {
		return nil, err
	}

	if err := patch.Apply(org); err != nil {
		return nil, err
	}
	if err := s.organizations.Update(ctx, org); err != nil {
		return nil, NewServiceError("organization", "update", "failed to save organization", err)
	}
	return org, nil
}

func (s *organizationServiceImpl) DeleteOrganization(ctx context.Context, ic *iam.Context, id uuid.UUID) error {
	org, err := s.load(ctx, ic, id, iam.ActionDelete)
	if err != nil {
		return err
	}

	if err := s.organizations.Delete(ctx, org.ID); err != nil {
		return NewServiceError("organization", "delete", "failed to delete organization", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("organization deleted",
		slog.String("organization_id", org.ID.String()))
	return nil
}
