package service

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/redact"
	"github.com/phrazzld/annotator-api/internal/store"
)

// CreateInvitationInput names the invited user and the role offered.
type CreateInvitationInput struct {
	Email string
	Role  domain.Role
}

// InvitationService provides invitation-related operations.
type InvitationService interface {
	// ListInvitations returns one page of the invitations the caller can see,
	// newest first.
	ListInvitations(ctx context.Context, ic *iam.Context, opts store.ListOptions) (store.Page[*domain.Invitation], error)

	// GetInvitation returns one invitation by key.
	GetInvitation(ctx context.Context, ic *iam.Context, key string) (*domain.Invitation, error)

	// CreateInvitation invites the user with the given email into the
	// organization of the IAM context. The invited membership stays inactive
	// until the invitation is accepted.
	CreateInvitation(ctx context.Context, ic *iam.Context, input CreateInvitationInput) (*domain.Invitation, error)

	// AcceptInvitation activates the invited membership. Accepting twice is a no-op.
	AcceptInvitation(ctx context.Context, ic *iam.Context, key string) (*domain.Invitation, error)

	// DeleteInvitation withdraws an invitation. A membership that was never
	// activated goes with it.
	DeleteInvitation(ctx context.Context, ic *iam.Context, key string) error
}

type invitationServiceImpl struct {
	db          store.TxBeginner
	users       store.UserStore
	memberships store.MembershipStore
	invitations store.InvitationStore
	policy      *iam.Policy
	logger      *slog.Logger
}

var _ InvitationService = (*invitationServiceImpl)(nil)

// NewInvitationService creates an InvitationService.
func NewInvitationService(
	db store.TxBeginner,
	users store.UserStore,
	memberships store.MembershipStore,
	invitations store.InvitationStore,
	policy *iam.Policy,
	log *slog.Logger,
) (InvitationService, error) {
	switch {
	case db == nil:
		return nil, &ServiceError{Service: "invitation", Op: "create_service", Message: "db cannot be nil"}
	case users == nil:
		return nil, &ServiceError{Service: "invitation", Op: "create_service", Message: "users cannot be nil"}
	case memberships == nil:
		return nil, &ServiceError{Service: "invitation", Op: "create_service", Message: "memberships cannot be nil"}
	case invitations == nil:
		return nil, &ServiceError{Service: "invitation", Op: "create_service", Message: "invitations cannot be nil"}
	case policy == nil:
		return nil, &ServiceError{Service: "invitation", Op: "create_service", Message: "policy cannot be nil"}
	}
	if log == nil {
		log = slog.Default()
	}

	return &invitationServiceImpl{
		db:          db,
		users:       users,
		memberships: memberships,
		invitations: invitations,
		policy:      policy,
		logger:      log.With(slog.String("component", "invitation_service")),
	}, nil
}

func (s *invitationServiceImpl) ListInvitations(
	ctx context.Context,
	ic *iam.Context,
	opts store.ListOptions,
) (store.Page[*domain.Invitation], error) {
	page, err := s.invitations.List(ctx, s.policy.Invitations(ic).Filter(opts))
	if err != nil {
		return store.Page[*domain.Invitation]{}, NewServiceError("invitation", "list", "failed to list invitations", err)
	}
	return page, nil
}

func (s *invitationServiceImpl) GetInvitation(ctx context.Context, ic *iam.Context, key string) (*domain.Invitation, error) {
	inv, err := s.invitations.GetByKey(ctx, key)
	if err != nil {
		return nil, NewServiceError("invitation", "get", "failed to load invitation", err)
	}
	if err := s.policy.Invitations(ic).Check(ctx, iam.ActionView, inv); err != nil {
		return nil, hideForbidden(err, store.ErrInvitationNotFound)
	}
	return inv, nil
}

func (s *invitationServiceImpl) CreateInvitation(
	ctx context.Context,
	ic *iam.Context,
	input CreateInvitationInput,
) (*domain.Invitation, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if ic.Organization == nil {
		return nil, ErrOrganizationRequired
	}
	if !input.Role.Valid() {
		return nil, domain.NewValidationError("role", "is not a valid role", domain.ErrInvalidRole)
	}
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return nil, domain.NewValidationError("email", "cannot be empty", domain.ErrInvalidEmail)
	}

	orgID := ic.Organization.ID
	if err := s.policy.Invitations(ic).CheckCreate(ctx, orgID, input.Role); err != nil {
		return nil, err
	}

	invitee, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrInviteeNotFound
	}
	if err != nil {
		return nil, NewServiceError("invitation", "create", "failed to look up invited user", err)
	}

	membership, err := domain.NewPendingMembership(invitee.ID, orgID, input.Role)
	if err != nil {
		return nil, err
	}
	inv, err := domain.NewInvitation(ic.UserID(), membership)
	if err != nil {
		return nil, NewServiceError("invitation", "create", "failed to generate invitation key", err)
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.memberships.WithTx(tx).Create(ctx, membership); err != nil {
			return err
		}
		return s.invitations.WithTx(tx).Create(ctx, inv)
	})
	if err != nil {
		log.Error("failed to create invitation",
			slog.String("organization_id", orgID.String()),
			slog.String("error", redact.Error(err)))
		return nil, NewServiceError("invitation", "create", "failed to save invitation", err)
	}

	log.Info("invitation created",
		slog.String("organization_id", orgID.String()),
		slog.String("membership_id", membership.ID.String()),
		slog.String("role", string(membership.Role)))
	return inv, nil
}

func (s *invitationServiceImpl) AcceptInvitation(ctx context.Context, ic *iam.Context, key string) (*domain.Invitation, error) {
	inv, err := s.GetInvitation(ctx, ic, key)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Invitations(ic).Check(ctx, iam.ActionAccept, inv); err != nil {
		return nil, err
	}
	if inv.Accepted() {
		return inv, nil
	}

	inv.Membership.Activate()
	if err := s.memberships.Update(ctx, inv.Membership); err != nil {
		return nil, NewServiceError("invitation", "accept", "failed to activate membership", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("invitation accepted",
		slog.String("membership_id", inv.MembershipID.String()))
	return inv, nil
}

func (s *invitationServiceImpl) DeleteInvitation(ctx context.Context, ic *iam.Context, key string) error {
	inv, err := s.GetInvitation(ctx, ic, key)
	if err != nil {
		return err
	}
	if err := s.policy.Invitations(ic).Check(ctx, iam.ActionDelete, inv); err != nil {
		return err
	}

	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		return s.invitations.WithTx(tx).Delete(ctx, inv.Key)
	})
	if err != nil {
		return NewServiceError("invitation", "delete", "failed to delete invitation", err)
	}
	return nil
}
