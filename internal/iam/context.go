package iam

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/store"
)

// OrganizationHeader selects the organization of a request when the "org"
// query parameter is absent.
const OrganizationHeader = "X-Organization"

// OrganizationQueryParam selects the organization of a request by slug.
const OrganizationQueryParam = "org"

// Context is the identity a request acts with.
type Context struct {
	User         *domain.User
	Organization *domain.Organization
	// Membership is the user's active membership in Organization, if any.
	Membership *domain.Membership
}

// IsAdmin reports whether the user is a platform administrator.
func (c *Context) IsAdmin() bool {
	return c != nil && c.User != nil && c.User.IsAdmin
}

// UserID returns the ID of the acting user.
func (c *Context) UserID() uuid.UUID {
	if c == nil || c.User == nil {
		return uuid.Nil
	}
	return c.User.ID
}

// OrganizationID returns the selected organization, if any.
func (c *Context) OrganizationID() uuid.NullUUID {
	if c == nil || c.Organization == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: c.Organization.ID, Valid: true}
}

type contextKey struct{}

// WithContext stores c in ctx.
func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// FromContext returns the Context stored in ctx.
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok && c != nil
}

// Resolver builds request contexts from the stores.
type Resolver struct {
	users         store.UserStore
	organizations store.OrganizationStore
	memberships   store.MembershipStore
}

// NewResolver creates a Resolver.
func NewResolver(users store.UserStore, orgs store.OrganizationStore, memberships store.MembershipStore) *Resolver {
	return &Resolver{users: users, organizations: orgs, memberships: memberships}
}

// Resolve loads the user and, when orgSlug is not empty, the organization and
// the user's active membership in it. An unknown user yields
// domain.ErrUnauthorized; an unknown slug yields store.ErrOrganizationNotFound.
func (r *Resolver) Resolve(ctx context.Context, userID uuid.UUID, orgSlug string) (*Context, error) {
	user, err := r.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("%w: unknown user", domain.ErrUnauthorized)
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	c := &Context{User: user}
	if orgSlug == "" {
		return c, nil
	}

	org, err := r.organizations.GetBySlug(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	c.Organization = org

	m, err := activeMembership(ctx, r.memberships, user.ID, org.ID)
	if err != nil {
		return nil, err
	}
	c.Membership = m
	return c, nil
}

// MembershipLookup finds a user's membership in an organization.
type MembershipLookup interface {
	GetByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (*domain.Membership, error)
}

// activeMembership returns the user's active membership in orgID, or nil.
func activeMembership(ctx context.Context, lookup MembershipLookup, userID, orgID uuid.UUID) (*domain.Membership, error) {
	m, err := lookup.GetByUserAndOrganization(ctx, userID, orgID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if !m.IsActive {
		return nil, nil
	}
	return m, nil
}
