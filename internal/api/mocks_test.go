package api

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/job"
	"github.com/phrazzld/annotator-api/internal/service"
	"github.com/phrazzld/annotator-api/internal/store"
	"github.com/stretchr/testify/mock"
)

type MockOrganizationService struct{ mock.Mock }

var _ service.OrganizationService = (*MockOrganizationService)(nil)

func (m *MockOrganizationService) ListOrganizations(ctx context.Context, ic *iam.Context) ([]*domain.Organization, error) {
	args := m.Called(ctx, ic)
	orgs, _ := args.Get(0).([]*domain.Organization)
	return orgs, args.Error(1)
}

func (m *MockOrganizationService) GetOrganization(ctx context.Context, ic *iam.Context, id uuid.UUID) (*domain.Organization, error) {
	args := m.Called(ctx, ic, id)
	org, _ := args.Get(0).(*domain.Organization)
	return org, args.Error(1)
}

func (m *MockOrganizationService) CreateOrganization(ctx context.Context, ic *iam.Context, input service.CreateOrganizationInput) (*domain.Organization, error) {
	args := m.Called(ctx, ic, input)
	org, _ := args.Get(0).(*domain.Organization)
	return org, args.Error(1)
}

func (m *MockOrganizationService) UpdateOrganization(ctx context.Context, ic *iam.Context, id uuid.UUID, patch domain.OrganizationPatch) (*domain.Organization, error) {
	args := m.Called(ctx, ic, id, patch)
	org, _ := args.Get(0).(*domain.Organization)
	return org, args.Error(1)
}

func (m *MockOrganizationService) DeleteOrganization(ctx context.Context, ic *iam.Context, id uuid.UUID) error {
	return m.Called(ctx, ic, id).Error(0)
}

type MockMembershipService struct{ mock.Mock }

var _ service.MembershipService = (*MockMembershipService)(nil)

func (m *MockMembershipService) ListMemberships(ctx context.Context, ic *iam.Context, opts store.ListOptions) (store.Page[*domain.Membership], error) {
	args := m.Called(ctx, ic, opts)
	return args.Get(0).(store.Page[*domain.Membership]), args.Error(1)
}

func (m *MockMembershipService) GetMembership(ctx context.Context, ic *iam.Context, id uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, ic, id)
	ms, _ := args.Get(0).(*domain.Membership)
	return ms, args.Error(1)
}

func (m *MockMembershipService) UpdateMembershipRole(ctx context.Context, ic *iam.Context, id uuid.UUID, role domain.Role) (*domain.Membership, error) {
	args := m.Called(ctx, ic, id, role)
	ms, _ := args.Get(0).(*domain.Membership)
	return ms, args.Error(1)
}

func (m *MockMembershipService) DeleteMembership(ctx context.Context, ic *iam.Context, id uuid.UUID) error {
	return m.Called(ctx, ic, id).Error(0)
}

type MockInvitationService struct{ mock.Mock }

var _ service.InvitationService = (*MockInvitationService)(nil)

func (m *MockInvitationService) ListInvitations(ctx context.Context, ic *iam.Context, opts store.ListOptions) (store.Page[*domain.Invitation], error) {
	args := m.Called(ctx, ic, opts)
	return args.Get(0).(store.Page[*domain.Invitation]), args.Error(1)
}

func (m *MockInvitationService) GetInvitation(ctx context.Context, ic *iam.Context, key string) (*domain.Invitation, error) {
	args := m.Called(ctx, ic, key)
	inv, _ := args.Get(0).(*domain.Invitation)
	return inv, args.Error(1)
}

func (m *MockInvitationService) CreateInvitation(ctx context.Context, ic *iam.Context, input service.CreateInvitationInput) (*domain.Invitation, error) {
	args := m.Called(ctx, ic, input)
	inv, _ := args.Get(0).(*domain.Invitation)
	return inv, args.Error(1)
}

func (m *MockInvitationService) AcceptInvitation(ctx context.Context, ic *iam.Context, key string) (*domain.Invitation, error) {
	args := m.Called(ctx, ic, key)
	inv, _ := args.Get(0).(*domain.Invitation)
	return inv, args.Error(1)
}

func (m *MockInvitationService) DeleteInvitation(ctx context.Context, ic *iam.Context, key string) error {
	return m.Called(ctx, ic, key).Error(0)
}

type MockDatasetService struct{ mock.Mock }

var _ service.DatasetService = (*MockDatasetService)(nil)

func (m *MockDatasetService) RequestExport(ctx context.Context, ic *iam.Context, projectID uuid.UUID, req service.ExportRequest) (*job.Record, error) {
	args := m.Called(ctx, ic, projectID, req)
	rec, _ := args.Get(0).(*job.Record)
	return rec, args.Error(1)
}

func (m *MockDatasetService) RequestImport(ctx context.Context, ic *iam.Context, projectID uuid.UUID, req service.ImportRequest) (*job.Record, error) {
	args := m.Called(ctx, ic, projectID, req)
	rec, _ := args.Get(0).(*job.Record)
	return rec, args.Error(1)
}

func (m *MockDatasetService) GetJob(ctx context.Context, ic *iam.Context, jobID uuid.UUID) (*job.Record, error) {
	args := m.Called(ctx, ic, jobID)
	rec, _ := args.Get(0).(*job.Record)
	return rec, args.Error(1)
}

func (m *MockDatasetService) ExportFile(ctx context.Context, ic *iam.Context, jobID uuid.UUID) (string, error) {
	args := m.Called(ctx, ic, jobID)
	return args.String(0), args.Error(1)
}

func (m *MockDatasetService) Formats() dataset.FormatList {
	return m.Called().Get(0).(dataset.FormatList)
}

// newRequest builds a request acting as ic with the given chi URL params.
func newRequest(method, target string, body io.Reader, ic *iam.Context, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	ctx := req.Context()
	if ic != nil {
		ctx = iam.WithContext(ctx, ic)
	}
	if len(params) > 0 {
		rctx := chi.NewRouteContext()
		for k, v := range params {
			rctx.URLParams.Add(k, v)
		}
		ctx = context.WithValue(ctx, chi.RouteCtxKey, rctx)
	}
	return req.WithContext(ctx)
}

func testIAMContext() *iam.Context {
	return &iam.Context{User: &domain.User{ID: uuid.New(), Username: "alice", Email: "alice@example.com"}}
}
