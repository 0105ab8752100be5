package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type orgFixture struct {
	svc         OrganizationService
	orgs        *MockOrganizationStore
	memberships *MockMembershipStore
	tx          *txRecorder
	org         *domain.Organization
	owner       uuid.UUID
	worker      uuid.UUID
	maintainer  uuid.UUID
}

func newOrgFixture(t *testing.T) *orgFixture {
	t.Helper()

	f := &orgFixture{
		orgs:        &MockOrganizationStore{},
		memberships: &MockMembershipStore{},
		owner:       uuid.New(),
		worker:      uuid.New(),
		maintainer:  uuid.New(),
	}
	org, err := domain.NewOrganization(f.owner, "acme", "Acme", "", nil)
	require.NoError(t, err)
	f.org = org

	policy := iam.NewPolicy(memberLookup{
		activeMember(t, f.owner, org.ID, domain.RoleOwner),
		activeMember(t, f.maintainer, org.ID, domain.RoleMaintainer),
		activeMember(t, f.worker, org.ID, domain.RoleWorker),
	})

	db, rec := newTxDB(t)
	f.tx = rec
	svc, err := NewOrganizationService(db, f.orgs, f.memberships, policy, nil)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func TestNewOrganizationService_NilDependencies(t *testing.T) {
	db, _ := newTxDB(t)
	policy := iam.NewPolicy(memberLookup{})

	_, err := NewOrganizationService(nil, &MockOrganizationStore{}, &MockMembershipStore{}, policy, nil)
	var serviceErr *ServiceError
	require.ErrorAs(t, err, &serviceErr)
	assert.Equal(t, "create_service", serviceErr.Op)

	_, err = NewOrganizationService(db, &MockOrganizationStore{}, &MockMembershipStore{}, nil, nil)
	assert.Error(t, err)
}

func TestCreateOrganization(t *testing.T) {
	t.Run("creates organization and owner membership in one transaction", func(t *testing.T) {
		f := newOrgFixture(t)
		creator := uuid.New()

		f.orgs.On("Create", mock.Anything, mock.AnythingOfType("*domain.Organization")).Return(nil)
		f.memberships.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Membership) bool {
			return m.UserID == creator && m.Role == domain.RoleOwner && m.IsActive && m.JoinedAt != nil
		})).Return(nil)

		org, err := f.svc.CreateOrganization(context.Background(), userCtx(creator), CreateOrganizationInput{Slug: "labs"})
		require.NoError(t, err)

		assert.Equal(t, "labs", org.Name, "name defaults to the slug")
		assert.Equal(t, creator, org.OwnerID)
		assert.EqualValues(t, 1, f.tx.commits.Load())
		f.orgs.AssertExpectations(t)
		f.memberships.AssertExpectations(t)
	})

	t.Run("duplicate slug rolls back", func(t *testing.T) {
		f := newOrgFixture(t)
		f.orgs.On("Create", mock.Anything, mock.Anything).Return(store.ErrSlugExists)

		_, err := f.svc.CreateOrganization(context.Background(), userCtx(uuid.New()), CreateOrganizationInput{Slug: "acme"})
		assert.ErrorIs(t, err, store.ErrSlugExists)
		assert.EqualValues(t, 1, f.tx.rollbacks.Load())
		assert.EqualValues(t, 0, f.tx.commits.Load())
		f.memberships.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("membership failure rolls back", func(t *testing.T) {
		f := newOrgFixture(t)
		f.orgs.On("Create", mock.Anything, mock.Anything).Return(nil)
		f.memberships.On("Create", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

		_, err := f.svc.CreateOrganization(context.Background(), userCtx(uuid.New()), CreateOrganizationInput{Slug: "labs"})
		var serviceErr *ServiceError
		require.ErrorAs(t, err, &serviceErr)
		assert.Equal(t, "create", serviceErr.Op)
		assert.EqualValues(t, 1, f.tx.rollbacks.Load())
	})

	t.Run("invalid slug", func(t *testing.T) {
		f := newOrgFixture(t)
		_, err := f.svc.CreateOrganization(context.Background(), userCtx(uuid.New()), CreateOrganizationInput{Slug: "not a slug"})
		assert.ErrorIs(t, err, domain.ErrInvalidSlug)
		f.orgs.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestListOrganizations_FiltersByVisibility(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()

	f.orgs.On("List", mock.Anything, store.ListOptions{VisibleTo: uuid.NullUUID{UUID: f.worker, Valid: true}}).
		Return([]*domain.Organization{f.org}, nil)
	f.orgs.On("List", mock.Anything, store.ListOptions{}).Return([]*domain.Organization{f.org}, nil)

	orgs, err := f.svc.ListOrganizations(ctx, userCtx(f.worker))
	require.NoError(t, err)
	assert.Len(t, orgs, 1)

	_, err = f.svc.ListOrganizations(ctx, adminCtx())
	require.NoError(t, err)
	f.orgs.AssertExpectations(t)
}

func TestGetOrganization(t *testing.T) {
	f := newOrgFixture(t)
	ctx := context.Background()
	f.orgs.On("GetByID", mock.Anything, f.org.ID).Return(f.org, nil)

	got, err := f.svc.GetOrganization(ctx, userCtx(f.worker), f.org.ID)
	require.NoError(t, err)
	assert.Equal(t, f.org.ID, got.ID)

	_, err = f.svc.GetOrganization(ctx, userCtx(uuid.New()), f.org.ID)
	assert.ErrorIs(t, err, store.ErrOrganizationNotFound, "outsiders must not learn the organization exists")
}

func TestUpdateOrganization(t *testing.T) {
	ctx := context.Background()
	name := "Acme Labs"

	t.Run("maintainer renames", func(t *testing.T) {
		f := newOrgFixture(t)
		f.orgs.On("GetByID", mock.Anything, f.org.ID).Return(f.org, nil)
		f.orgs.On("Update", mock.Anything, mock.MatchedBy(func(o *domain.Organization) bool {
			return o.Name == name && o.Slug == "acme"
		})).Return(nil)

		got, err := f.svc.UpdateOrganization(ctx, userCtx(f.maintainer), f.org.ID, domain.OrganizationPatch{Name: &name})
		require.NoError(t, err)
		assert.Equal(t, name, got.Name)
		f.orgs.AssertExpectations(t)
	})

	t.Run("worker is forbidden", func(t *testing.T) {
		f := newOrgFixture(t)
		f.orgs.On("GetByID", mock.Anything, f.org.ID).Return(f.org, nil)

		_, err := f.svc.UpdateOrganization(ctx, userCtx(f.worker), f.org.ID, domain.OrganizationPatch{Name: &name})
		assert.ErrorIs(t, err, domain.ErrForbidden)
		f.orgs.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
	})

	t.Run("slug taken", func(t *testing.T) {
		f := newOrgFixture(t)
		slug := "taken"
		f.orgs.On("GetByID", mock.Anything, f.org.ID).Return(f.org, nil)
		f.orgs.On("Update", mock.Anything, mock.Anything).Return(store.ErrSlugExists)

		_, err := f.svc.UpdateOrganization(ctx, userCtx(f.owner), f.org.ID, domain.OrganizationPatch{Slug: &slug})
		assert.ErrorIs(t, err, store.ErrDuplicate)
	})
}

func TestDeleteOrganization(t *testing.T) {
	ctx := context.Background()

	f := newOrgFixture(t)
	f.orgs.On("GetByID", mock.Anything, f.org.ID).Return(f.org, nil)
	f.orgs.On("Delete", mock.Anything, f.org.ID).Return(nil)

	err := f.svc.DeleteOrganization(ctx, userCtx(f.maintainer), f.org.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	require.NoError(t, f.svc.DeleteOrganization(ctx, userCtx(f.owner), f.org.ID))
	f.orgs.AssertNumberOfCalls(t, "Delete", 1)
}
