package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/dataset"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/events"
	"github.com/phrazzld/annotator-api/internal/iam"
	"github.com/phrazzld/annotator-api/internal/job"
	"github.com/phrazzld/annotator-api/internal/store"
	"github.com/stretchr/testify/mock"
)

// MockOrganizationStore mocks store.OrganizationStore
type MockOrganizationStore struct {
	mock.Mock
}

func (m *MockOrganizationStore) Create(ctx context.Context, org *domain.Organization) error {
	return m.Called(ctx, org).Error(0)
}

func (m *MockOrganizationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockOrganizationStore) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	args := m.Called(ctx, slug)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockOrganizationStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Organization, error) {
	args := m.Called(ctx, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Organization), args.Error(1)
}

func (m *MockOrganizationStore) Update(ctx context.Context, org *domain.Organization) error {
	return m.Called(ctx, org).Error(0)
}

func (m *MockOrganizationStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockOrganizationStore) WithTx(*sql.Tx) store.OrganizationStore {
	return m
}

// MockMembershipStore mocks store.MembershipStore
type MockMembershipStore struct {
	mock.Mock
}

func (m *MockMembershipStore) Create(ctx context.Context, ms *domain.Membership) error {
	return m.Called(ctx, ms).Error(0)
}

func (m *MockMembershipStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipStore) GetByUserAndOrganization(ctx context.Context, userID, orgID uuid.UUID) (*domain.Membership, error) {
	args := m.Called(ctx, userID, orgID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Membership), args.Error(1)
}

func (m *MockMembershipStore) List(ctx context.Context, opts store.ListOptions) (store.Page[*domain.Membership], error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(store.Page[*domain.Membership]), args.Error(1)
}

func (m *MockMembershipStore) Update(ctx context.Context, ms *domain.Membership) error {
	return m.Called(ctx, ms).Error(0)
}

func (m *MockMembershipStore) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockMembershipStore) WithTx(*sql.Tx) store.MembershipStore {
	return m
}

// MockInvitationStore mocks store.InvitationStore
type MockInvitationStore struct {
	mock.Mock
}

func (m *MockInvitationStore) Create(ctx context.Context, inv *domain.Invitation) error {
	return m.Called(ctx, inv).Error(0)
}

func (m *MockInvitationStore) GetByKey(ctx context.Context, key string) (*domain.Invitation, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Invitation), args.Error(1)
}

func (m *MockInvitationStore) List(ctx context.Context, opts store.ListOptions) (store.Page[*domain.Invitation], error) {
	args := m.Called(ctx, opts)
	return args.Get(0).(store.Page[*domain.Invitation]), args.Error(1)
}

func (m *MockInvitationStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockInvitationStore) WithTx(*sql.Tx) store.InvitationStore {
	return m
}

// MockUserStore mocks store.UserStore
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

// MockProjectStore mocks store.ProjectStore
type MockProjectStore struct {
	mock.Mock
}

func (m *MockProjectStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Project), args.Error(1)
}

func (m *MockProjectStore) WithTx(*sql.Tx) store.ProjectStore {
	return m
}

// MockJobReader mocks JobReader
type MockJobReader struct {
	mock.Mock
}

func (m *MockJobReader) GetJob(ctx context.Context, id uuid.UUID) (*job.Record, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*job.Record), args.Error(1)
}

// MockEventEmitter implements the events.EventEmitter interface for testing
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.DatasetRequestEvent) error {
	return m.Called(ctx, event).Error(0)
}

// stubFormats knows a single format for both directions.
type stubFormats struct {
	name string
}

func (f stubFormats) MakeExporter(name string) (dataset.Exporter, error) {
	if name != f.name {
		return nil, dataset.ErrUnknownFormat
	}
	return func(_ io.Writer, _ *dataset.ProjectData, _ dataset.Options) error { return nil }, nil
}

func (f stubFormats) MakeImporter(name string) (dataset.Importer, error) {
	if name != f.name {
		return nil, dataset.ErrUnknownFormat
	}
	return func(context.Context, io.Reader, *dataset.ProjectData, dataset.LoadFunc) error { return nil }, nil
}

func (f stubFormats) Formats() dataset.FormatList {
	format := dataset.Format{Name: f.name, Ext: "zip", Version: "1.0"}
	return dataset.FormatList{Importers: []dataset.Format{format}, Exporters: []dataset.Format{format}}
}

// memberLookup is an iam.MembershipLookup over a fixed set of memberships.
type memberLookup []*domain.Membership

func (ms memberLookup) GetByUserAndOrganization(_ context.Context, userID, orgID uuid.UUID) (*domain.Membership, error) {
	for _, m := range ms {
		if m.UserID == userID && m.OrganizationID == orgID {
			return m, nil
		}
	}
	return nil, store.ErrMembershipNotFound
}

// activeMember creates an active membership of user in org with role.
func activeMember(t *testing.T, userID, orgID uuid.UUID, role domain.Role) *domain.Membership {
	t.Helper()
	m, err := domain.NewPendingMembership(userID, orgID, role)
	if err != nil {
		t.Fatalf("failed to create membership: %v", err)
	}
	m.Activate()
	return m
}

func userCtx(id uuid.UUID) *iam.Context {
	return &iam.Context{User: &domain.User{ID: id, Email: id.String() + "@example.com"}}
}

func adminCtx() *iam.Context {
	return &iam.Context{User: &domain.User{ID: uuid.New(), IsAdmin: true}}
}

// txRecorder is a database/sql connector whose transactions only count
// commits and rollbacks. It lets services run store.RunInTransaction against
// mocked stores.
type txRecorder struct {
	commits   atomic.Int32
	rollbacks atomic.Int32
}

func newTxDB(t *testing.T) (*sql.DB, *txRecorder) {
	t.Helper()
	rec := &txRecorder{}
	db := sql.OpenDB(rec)
	t.Cleanup(func() { _ = db.Close() })
	return db, rec
}

func (r *txRecorder) Connect(context.Context) (driver.Conn, error) {
	return &recorderConn{rec: r}, nil
}

func (r *txRecorder) Driver() driver.Driver {
	return recorderDriver{rec: r}
}

type recorderDriver struct {
	rec *txRecorder
}

func (d recorderDriver) Open(string) (driver.Conn, error) {
	return &recorderConn{rec: d.rec}, nil
}

type recorderConn struct {
	rec *txRecorder
}

func (c *recorderConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("statements are not supported")
}

func (c *recorderConn) Close() error { return nil }

func (c *recorderConn) Begin() (driver.Tx, error) {
	return recorderTx{rec: c.rec}, nil
}

type recorderTx struct {
	rec *txRecorder
}

func (tx recorderTx) Commit() error {
	tx.rec.commits.Add(1)
	return nil
}

func (tx recorderTx) Rollback() error {
	tx.rec.rollbacks.Add(1)
	return nil
}
