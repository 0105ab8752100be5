package iam

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/store"
)

// Action is an operation on a resource.
type Action string

// Actions checked by the permission types.
const (
	ActionView   Action = "view"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAccept Action = "accept"
)

func deny(action Action, resource string) error {
	return fmt.Errorf("%w: cannot %s %s", domain.ErrForbidden, action, resource)
}

// Policy evaluates the built-in role table.
type Policy struct {
	memberships MembershipLookup
}

// NewPolicy creates a Policy reading memberships through lookup.
func NewPolicy(lookup MembershipLookup) *Policy {
	return &Policy{memberships: lookup}
}

// Organizations returns the organization permissions of c.
func (p *Policy) Organizations(c *Context) *OrganizationPermission {
	return &OrganizationPermission{iam: c, policy: p}
}

// Memberships returns the membership permissions of c.
func (p *Policy) Memberships(c *Context) *MembershipPermission {
	return &MembershipPermission{iam: c, policy: p}
}

// Invitations returns the invitation permissions of c.
func (p *Policy) Invitations(c *Context) *InvitationPermission {
	return &InvitationPermission{iam: c, policy: p}
}

// roleIn returns the acting user's active role in orgID, or "" without one.
func (p *Policy) roleIn(ctx context.Context, c *Context, orgID uuid.UUID) (domain.Role, error) {
	if c.Membership != nil && c.Membership.OrganizationID == orgID {
		return c.Membership.Role, nil
	}
	m, err := activeMembership(ctx, p.memberships, c.UserID(), orgID)
	if err != nil || m == nil {
		return "", err
	}
	return m.Role, nil
}

// visibleTo restricts opts to what a non-admin user can see.
func visibleTo(c *Context, opts store.ListOptions) store.ListOptions {
	if !c.IsAdmin() {
		opts.VisibleTo = uuid.NullUUID{UUID: c.UserID(), Valid: true}
	}
	return opts
}

// managesRole reports whether a member with role actor may assign or remove role target.
func managesRole(actor, target domain.Role) bool {
	switch actor {
	case domain.RoleOwner:
		return target != domain.RoleOwner
	case domain.RoleMaintainer:
		return target == domain.RoleSupervisor || target == domain.RoleWorker
	default:
		return false
	}
}

// OrganizationPermission authorizes organization operations.
type OrganizationPermission struct {
	iam    *Context
	policy *Policy
}

// Filter restricts opts to organizations the user belongs to. Admins see all.
func (p *OrganizationPermission) Filter(opts store.ListOptions) store.ListOptions {
	return visibleTo(p.iam, opts)
}

// Check authorizes action on org. Any authenticated user may create an
// organization; org may be nil for ActionCreate.
func (p *OrganizationPermission) Check(ctx context.Context, action Action, org *domain.Organization) error {
	if action == ActionCreate {
		if p.iam.UserID() == uuid.Nil {
			return deny(action, "organization")
		}
		return nil
	}
	if p.iam.IsAdmin() {
		return nil
	}

	role, err := p.policy.roleIn(ctx, p.iam, org.ID)
	if err != nil {
		return err
	}

	allowed := false
	switch action {
	case ActionView:
		allowed = role != ""
	case ActionUpdate:
		allowed = role == domain.RoleOwner || role == domain.RoleMaintainer
	case ActionDelete:
		allowed = role == domain.RoleOwner
	}
	if !allowed {
		return deny(action, "organization")
	}
	return nil
}

// MembershipPermission authorizes membership operations.
type MembershipPermission struct {
	iam    *Context
	policy *Policy
}

// Filter restricts opts to the organization of the request, when one is
// selected, and to memberships the user can see. Admins see all.
func (p *MembershipPermission) Filter(opts store.ListOptions) store.ListOptions {
	if org := p.iam.OrganizationID(); org.Valid {
		opts.OrganizationID = org
	}
	return visibleTo(p.iam, opts)
}

// Check authorizes viewing or deleting m. Owner memberships cannot be
// deleted; members other than the owner may always leave.
func (p *MembershipPermission) Check(ctx context.Context, action Action, m *domain.Membership) error {
	self := m.UserID == p.iam.UserID()

	switch action {
	case ActionView:
		if self || p.iam.IsAdmin() {
			return nil
		}
		role, err := p.policy.roleIn(ctx, p.iam, m.OrganizationID)
		if err != nil {
			return err
		}
		if role != "" {
			return nil
		}

	case ActionDelete:
		if m.Role == domain.RoleOwner {
			break
		}
		if self || p.iam.IsAdmin() {
			return nil
		}
		role, err := p.policy.roleIn(ctx, p.iam, m.OrganizationID)
		if err != nil {
			return err
		}
		if managesRole(role, m.Role) {
			return nil
		}
	}
	return deny(action, "membership")
}

// CheckRoleChange authorizes setting the role of m to newRole. Nobody can
// grant or take away the owner role this way.
func (p *MembershipPermission) CheckRoleChange(ctx context.Context, m *domain.Membership, newRole domain.Role) error {
	if m.Role == domain.RoleOwner || newRole == domain.RoleOwner {
		return deny(ActionUpdate, "owner membership")
	}
	if p.iam.IsAdmin() {
		return nil
	}
	if m.UserID == p.iam.UserID() {
		return deny(ActionUpdate, "own membership")
	}

	role, err := p.policy.roleIn(ctx, p.iam, m.OrganizationID)
	if err != nil {
		return err
	}
	if !managesRole(role, m.Role) || !managesRole(role, newRole) {
		return deny(ActionUpdate, "membership")
	}
	return nil
}

// InvitationPermission authorizes invitation operations.
type InvitationPermission struct {
	iam    *Context
	policy *Policy
}

// Filter restricts opts to the organization of the request, when one is
// selected, and to invitations the user sent, received, or manages.
func (p *InvitationPermission) Filter(opts store.ListOptions) store.ListOptions {
	if org := p.iam.OrganizationID(); org.Valid {
		opts.OrganizationID = org
	}
	return visibleTo(p.iam, opts)
}

// CheckCreate authorizes inviting someone into orgID with role.
func (p *InvitationPermission) CheckCreate(ctx context.Context, orgID uuid.UUID, role domain.Role) error {
	if role == domain.RoleOwner {
		return deny(ActionCreate, "owner invitation")
	}
	if p.iam.IsAdmin() {
		return nil
	}
	actor, err := p.policy.roleIn(ctx, p.iam, orgID)
	if err != nil {
		return err
	}
	if !managesRole(actor, role) {
		return deny(ActionCreate, "invitation")
	}
	return nil
}

// Check authorizes action on inv. Only the invited user may accept.
func (p *InvitationPermission) Check(ctx context.Context, action Action, inv *domain.Invitation) error {
	user := p.iam.UserID()
	invited := inv.Membership != nil && inv.Membership.UserID == user

	if action == ActionAccept {
		if invited {
			return nil
		}
		return deny(action, "invitation")
	}

	if p.iam.IsAdmin() || inv.OwnerID == user {
		return nil
	}
	if action == ActionView && invited {
		return nil
	}
	if inv.Membership == nil {
		return deny(action, "invitation")
	}

	role, err := p.policy.roleIn(ctx, p.iam, inv.Membership.OrganizationID)
	if err != nil {
		return err
	}
	switch action {
	case ActionView, ActionDelete:
		if role == domain.RoleOwner || role == domain.RoleMaintainer {
			return nil
		}
	}
	return deny(action, "invitation")
}

// Projects returns the project permissions of c.
func (p *Policy) Projects(c *Context) *ProjectPermission {
	return &ProjectPermission{iam: c, policy: p}
}

// ProjectPermission authorizes dataset operations on a project.
type ProjectPermission struct {
	iam    *Context
	policy *Policy
}

// Check authorizes action on project. ActionView covers dataset export;
// ActionUpdate covers dataset import. The project owner may do both, as may
// organization members with a sufficient role.
func (p *ProjectPermission) Check(ctx context.Context, action Action, project *domain.Project) error {
	if p.iam.IsAdmin() || project.OwnerID == p.iam.UserID() {
		return nil
	}
	if !project.OrganizationID.Valid {
		return deny(action, "project")
	}

	role, err := p.policy.roleIn(ctx, p.iam, project.OrganizationID.UUID)
	if err != nil {
		return err
	}
	switch action {
	case ActionView:
		if role != "" {
			return nil
		}
	case ActionUpdate:
		if role == domain.RoleOwner || role == domain.RoleMaintainer {
			return nil
		}
	}
	return deny(action, "project")
}
