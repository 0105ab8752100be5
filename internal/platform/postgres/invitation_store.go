package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// PostgresInvitationStore implements the store.InvitationStore interface
// using a PostgreSQL database as the storage backend. Invitations are always
// read together with the membership they invite into.
type PostgresInvitationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresInvitationStore creates a new PostgreSQL implementation of the InvitationStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresInvitationStore(db store.DBTX, logger *slog.Logger) *PostgresInvitationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresInvitationStore{
		db:     db,
		logger: logger.With(slog.String("component", "invitation_store")),
	}
}

// Ensure PostgresInvitationStore implements store.InvitationStore interface
var _ store.InvitationStore = (*PostgresInvitationStore)(nil)

const invitationSelect = `SELECT i.key, i.created_at, i.owner_id, ` + membershipColumns + `
	FROM invitations i JOIN memberships m ON m.id = i.membership_id`

// Create implements store.InvitationStore.Create. The invited membership
// must already exist.
func (s *PostgresInvitationStore) Create(ctx context.Context, inv *domain.Invitation) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := inv.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invitations (key, created_at, owner_id, membership_id)
		VALUES ($1, $2, $3, $4)`,
		inv.Key, inv.CreatedAt, inv.OwnerID, inv.MembershipID,
	)
	if err != nil {
		log.Error("failed to create invitation",
			slog.String("membership_id", inv.MembershipID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return nil
}

// GetByKey implements store.InvitationStore.GetByKey
func (s *PostgresInvitationStore) GetByKey(ctx context.Context, key string) (*domain.Invitation, error) {
	inv, err := scanInvitation(s.db.QueryRowContext(ctx, invitationSelect+` WHERE i.key = $1`, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrInvitationNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read invitation",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return inv, nil
}

// List implements store.InvitationStore.List. Invitations are ordered by
// creation date, newest first. With opts.VisibleTo set, a user sees the
// invitations they sent, the invitations addressed to them, and every
// invitation of organizations they own or maintain.
func (s *PostgresInvitationStore) List(
	ctx context.Context,
	opts store.ListOptions,
) (store.Page[*domain.Invitation], error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := ` WHERE TRUE`
	var args []any
	if opts.OrganizationID.Valid {
		args = append(args, opts.OrganizationID.UUID)
		where += fmt.Sprintf(` AND m.organization_id = $%d`, len(args))
	}
	if opts.VisibleTo.Valid {
		args = append(args, opts.VisibleTo.UUID)
		where += fmt.Sprintf(` AND (i.owner_id = $%[1]d OR m.user_id = $%[1]d OR EXISTS (
			SELECT 1 FROM memberships own
			WHERE own.organization_id = m.organization_id AND own.user_id = $%[1]d
			AND own.is_active AND own.role IN ('owner', 'maintainer')))`, len(args))
	}

	page := store.Page[*domain.Invitation]{Results: []*domain.Invitation{}}
	countQuery := `SELECT COUNT(*) FROM invitations i JOIN memberships m ON m.id = i.membership_id` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&page.Count); err != nil {
		log.Error("failed to count invitations", slog.String("error", err.Error()))
		return page, MapError(err)
	}

	query := invitationSelect + where + ` ORDER BY i.created_at DESC, i.key`
	if opts.Paginated() {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, opts.Limit(), opts.Offset())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list invitations", slog.String("error", err.Error()))
		return page, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return page, MapError(err)
		}
		page.Results = append(page.Results, inv)
	}
	return page, MapError(rows.Err())
}

// Delete implements store.InvitationStore.Delete. The invited membership is
// removed in the same statement unless it has already been accepted, so a
// failure never leaves an orphaned pending membership behind.
func (s *PostgresInvitationStore) Delete(ctx context.Context, key string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deleted int
	err := s.db.QueryRowContext(ctx, `
		WITH inv AS (
			DELETE FROM invitations WHERE key = $1 RETURNING membership_id
		), pending AS (
			DELETE FROM memberships
			WHERE id IN (SELECT membership_id FROM inv) AND NOT is_active
		)
		SELECT COUNT(*) FROM inv`, key).Scan(&deleted)
	if err != nil {
		log.Error("failed to delete invitation", slog.String("error", err.Error()))
		return MapError(err)
	}
	if deleted == 0 {
		return store.ErrInvitationNotFound
	}
	return nil
}

// WithTx implements store.InvitationStore.WithTx
func (s *PostgresInvitationStore) WithTx(tx *sql.Tx) store.InvitationStore {
	return &PostgresInvitationStore{db: tx, logger: s.logger}
}

func scanInvitation(row rowScanner) (*domain.Invitation, error) {
	var (
		inv    domain.Invitation
		owner  uuid.NullUUID
		m      domain.Membership
		joined sql.NullTime
		role   string
	)
	if err := row.Scan(&inv.Key, &inv.CreatedAt, &owner,
		&m.ID, &m.UserID, &m.OrganizationID, &m.IsActive, &joined, &role, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	if joined.Valid {
		t := joined.Time
		m.JoinedAt = &t
	}
	inv.OwnerID = owner.UUID
	inv.MembershipID = m.ID
	inv.Membership = &m
	return &inv, nil
}
