//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/annotation"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/job"
	"github.com/phrazzld/annotator-api/internal/platform/postgres"
	"github.com/phrazzld/annotator-api/internal/store"
	"github.com/phrazzld/annotator-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.DiscardHandler)

func TestOrganizationStore(t *testing.T) {
	db := testdb.GetTestDB(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := testdb.InsertUser(t, tx, "ann", "ann@example.com")
		orgs := postgres.NewPostgresOrganizationStore(tx, discard)

		org, err := domain.NewOrganization(owner, "acme", "Acme", "", map[string]string{"email": "ops@acme.test"})
		require.NoError(t, err)
		require.NoError(t, orgs.Create(ctx, org))

		got, err := orgs.GetBySlug(ctx, "acme")
		require.NoError(t, err)
		assert.Equal(t, org.ID, got.ID)
		assert.Equal(t, "ops@acme.test", got.Contact["email"])

		dup, err := domain.NewOrganization(owner, "acme", "", "", nil)
		require.NoError(t, err)
		assert.ErrorIs(t, orgs.Create(ctx, dup), store.ErrSlugExists)
	})
}

func TestMembershipAndInvitationStores(t *testing.T) {
	db := testdb.GetTestDB(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := testdb.InsertUser(t, tx, "owner", "owner@example.com")
		invitee := testdb.InsertUser(t, tx, "invitee", "invitee@example.com")
		outsider := testdb.InsertUser(t, tx, "outsider", "outsider@example.com")

		orgs := postgres.NewPostgresOrganizationStore(tx, discard)
		memberships := postgres.NewPostgresMembershipStore(tx, discard)
		invitations := postgres.NewPostgresInvitationStore(tx, discard)

		org, err := domain.NewOrganization(owner, "labs", "", "", nil)
		require.NoError(t, err)
		require.NoError(t, orgs.Create(ctx, org))
		require.NoError(t, memberships.Create(ctx, domain.NewOwnerMembership(org)))

		pending, err := domain.NewPendingMembership(invitee, org.ID, domain.RoleWorker)
		require.NoError(t, err)
		require.NoError(t, memberships.Create(ctx, pending))

		inv, err := domain.NewInvitation(owner, pending)
		require.NoError(t, err)
		require.NoError(t, invitations.Create(ctx, inv))

		got, err := invitations.GetByKey(ctx, inv.Key)
		require.NoError(t, err)
		require.NotNil(t, got.Membership)
		assert.Equal(t, invitee, got.Membership.UserID)
		assert.False(t, got.Accepted())

		visible, err := invitations.List(ctx, store.ListOptions{VisibleTo: uuid.NullUUID{UUID: invitee, Valid: true}})
		require.NoError(t, err)
		assert.Equal(t, 1, visible.Count)

		hidden, err := invitations.List(ctx, store.ListOptions{VisibleTo: uuid.NullUUID{UUID: outsider, Valid: true}})
		require.NoError(t, err)
		assert.Zero(t, hidden.Count)

		page, err := memberships.List(ctx, store.ListOptions{
			OrganizationID: uuid.NullUUID{UUID: org.ID, Valid: true},
			Page:           1,
			PageSize:       1,
		})
		require.NoError(t, err)
		assert.Equal(t, 2, page.Count)
		assert.Len(t, page.Results, 1)

		require.NoError(t, invitations.Delete(ctx, inv.Key))
		_, err = invitations.GetByKey(ctx, inv.Key)
		assert.ErrorIs(t, err, store.ErrInvitationNotFound)
		_, err = memberships.GetByID(ctx, pending.ID)
		assert.ErrorIs(t, err, store.ErrMembershipNotFound, "unaccepted membership goes with its invitation")

		// A failed statement aborts the transaction, so this runs last.
		dup, err := domain.NewPendingMembership(owner, org.ID, domain.RoleWorker)
		require.NoError(t, err)
		assert.ErrorIs(t, memberships.Create(ctx, dup), store.ErrMembershipExists)
	})
}

func TestTaskAndAnnotationStores(t *testing.T) {
	db := testdb.GetTestDB(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := testdb.InsertUser(t, tx, "annotator", "annotator@example.com")
		projectID := testdb.InsertProject(t, tx, "cats", owner, uuid.NullUUID{})

		tasks := postgres.NewPostgresTaskStore(tx, discard)
		annotations := postgres.NewPostgresAnnotationStore(tx, discard)

		base := time.Now().UTC().Truncate(time.Microsecond)
		var created []*domain.Task
		for i := range 5 {
			created = append(created, &domain.Task{
				ID:        uuid.New(),
				ProjectID: projectID,
				Name:      "task",
				Subset:    "train",
				OwnerID:   owner,
				Status:    "annotation",
				CreatedAt: base.Add(time.Duration(i) * time.Second),
				UpdatedAt: base,
			})
		}
		require.NoError(t, tasks.BulkCreate(ctx, created, 2))

		listed, err := tasks.ListByProject(ctx, projectID)
		require.NoError(t, err)
		require.Len(t, listed, len(created))
		for i := range created {
			assert.Equal(t, created[i].ID, listed[i].ID, "tasks come back in creation order")
		}

		ir := annotation.NewIR()
		ir.Tags = append(ir.Tags, annotation.Tag{Frame: 0, Label: "cat"})
		require.NoError(t, annotations.Put(ctx, created[0].ID, ir))

		got, err := annotations.Get(ctx, created[0].ID)
		require.NoError(t, err)
		assert.Len(t, got.Tags, 1)

		assert.ErrorIs(t, annotations.Put(ctx, uuid.New(), ir), store.ErrTaskNotFound)
	})
}

type storedJob struct {
	id, requestedBy uuid.UUID
}

func (j storedJob) ID() uuid.UUID                 { return j.id }
func (j storedJob) Type() string                  { return job.TypeDatasetExport }
func (j storedJob) Payload() []byte               { return []byte(`{"format":"Native JSON 1.0"}`) }
func (j storedJob) RequestedBy() uuid.UUID        { return j.requestedBy }
func (j storedJob) Execute(context.Context) error { return nil }

func TestJobStore(t *testing.T) {
	db := testdb.GetTestDB(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		user := testdb.InsertUser(t, tx, "requester", "requester@example.com")
		jobs := postgres.NewPostgresJobStore(tx, discard)

		j := storedJob{id: uuid.New(), requestedBy: user}
		require.NoError(t, jobs.SaveJob(ctx, j))

		pending, err := jobs.GetPendingJobs(ctx)
		require.NoError(t, err)
		assert.NotEmpty(t, pending)

		claimed, err := jobs.ClaimJob(ctx, j.id)
		require.NoError(t, err)
		assert.True(t, claimed)
		claimed, err = jobs.ClaimJob(ctx, j.id)
		require.NoError(t, err)
		assert.False(t, claimed, "a processing job cannot be claimed twice")

		require.NoError(t, jobs.UpdateJobStatus(ctx, j.id, job.StatusFailed, "unknown format"))
		rec, err := jobs.GetJob(ctx, j.id)
		require.NoError(t, err)
		assert.Equal(t, job.StatusFailed, rec.Status)
		assert.Equal(t, "unknown format", rec.ErrorMessage)
		assert.Equal(t, user, rec.RequestedBy)

		_, err = jobs.GetJob(ctx, uuid.New())
		assert.ErrorIs(t, err, store.ErrJobNotFound)
	})
}

func TestTaskStore_ListsInInsertionOrder(t *testing.T) {
	db := testdb.GetTestDB(t)
	ctx := context.Background()

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := testdb.InsertUser(t, tx, "importer", "importer@example.com")
		projectID := testdb.InsertProject(t, tx, "dogs", owner, uuid.NullUUID{})
		tasks := postgres.NewPostgresTaskStore(tx, discard)

		same := time.Now().UTC()
		var created []*domain.Task
		for range 50 {
			created = append(created, &domain.Task{
				ID:        uuid.New(),
				ProjectID: projectID,
				Name:      "frame",
				Status:    domain.TaskStatusAnnotation,
				CreatedAt: same,
				UpdatedAt: same,
			})
		}
		require.NoError(t, tasks.BulkCreate(ctx, created, 7))

		listed, err := tasks.ListByProject(ctx, projectID)
		require.NoError(t, err)
		require.Len(t, listed, len(created))
		for i := range created {
			assert.Equal(t, created[i].ID, listed[i].ID)
		}
	})
}
