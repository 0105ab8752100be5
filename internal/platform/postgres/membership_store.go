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

// PostgresMembershipStore implements the store.MembershipStore interface
// using a PostgreSQL database as the storage backend.
type PostgresMembershipStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresMembershipStore creates a new PostgreSQL implementation of the MembershipStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresMembershipStore(db store.DBTX, logger *slog.Logger) *PostgresMembershipStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresMembershipStore{
		db:     db,
		logger: logger.With(slog.String("component", "membership_store")),
	}
}

// Ensure PostgresMembershipStore implements store.MembershipStore interface
var _ store.MembershipStore = (*PostgresMembershipStore)(nil)

const membershipColumns = `m.id, m.user_id, m.organization_id, m.is_active, m.joined_at, m.role, m.created_at`

// Create implements store.MembershipStore.Create
func (s *PostgresMembershipStore) Create(ctx context.Context, m *domain.Membership) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := m.Validate(); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memberships (id, user_id, organization_id, is_active, joined_at, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		m.ID, m.UserID, m.OrganizationID, m.IsActive, m.JoinedAt, string(m.Role), m.CreatedAt,
	)
	if err != nil {
		log.Error("failed to create membership",
			slog.String("membership_id", m.ID.String()),
			slog.String("organization_id", m.OrganizationID.String()),
			slog.String("error", err.Error()))
		return MapUniqueViolation(err, store.ErrMembershipExists)
	}
	return nil
}

// GetByID implements store.MembershipStore.GetByID
func (s *PostgresMembershipStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships m WHERE m.id = $1`, id)
	return s.scanOne(ctx, row)
}

// GetByUserAndOrganization implements store.MembershipStore.GetByUserAndOrganization
func (s *PostgresMembershipStore) GetByUserAndOrganization(
	ctx context.Context,
	userID, orgID uuid.UUID,
) (*domain.Membership, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+membershipColumns+` FROM memberships m WHERE m.user_id = $1 AND m.organization_id = $2`,
		userID, orgID)
	return s.scanOne(ctx, row)
}

// List implements store.MembershipStore.List. Memberships are ordered newest
// first. With opts.VisibleTo set, a user sees the memberships of every
// organization they actively belong to plus their own memberships.
func (s *PostgresMembershipStore) List(
	ctx context.Context,
	opts store.ListOptions,
) (store.Page[*domain.Membership], error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	where := ` WHERE TRUE`
	var args []any
	if opts.OrganizationID.Valid {
		args = append(args, opts.OrganizationID.UUID)
		where += fmt.Sprintf(` AND m.organization_id = $%d`, len(args))
	}
	if opts.VisibleTo.Valid {
		args = append(args, opts.VisibleTo.UUID)
		where += fmt.Sprintf(` AND (m.user_id = $%[1]d OR EXISTS (
			SELECT 1 FROM memberships own
			WHERE own.organization_id = m.organization_id AND own.user_id = $%[1]d AND own.is_active))`,
			len(args))
	}

	page := store.Page[*domain.Membership]{Results: []*domain.Membership{}}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM memberships m`+where, args...).
		Scan(&page.Count); err != nil {
		log.Error("failed to count memberships", slog.String("error", err.Error()))
		return page, MapError(err)
	}

	query := `SELECT ` + membershipColumns + ` FROM memberships m` + where +
		` ORDER BY m.created_at DESC, m.id DESC`
	if opts.Paginated() {
		query += fmt.Sprintf(` LIMIT %d OFFSET %d`, opts.Limit(), opts.Offset())
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list memberships", slog.String("error", err.Error()))
		return page, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return page, MapError(err)
		}
		page.Results = append(page.Results, m)
	}
	return page, MapError(rows.Err())
}

// Update implements store.MembershipStore.Update
func (s *PostgresMembershipStore) Update(ctx context.Context, m *domain.Membership) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := m.Validate(); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE memberships SET is_active = $1, joined_at = $2, role = $3
		WHERE id = $4`,
		m.IsActive, m.JoinedAt, string(m.Role), m.ID,
	)
	if err != nil {
		log.Error("failed to update membership",
			slog.String("membership_id", m.ID.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrMembershipNotFound)
}

// Delete implements store.MembershipStore.Delete
func (s *PostgresMembershipStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM memberships WHERE id = $1`, id)
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to delete membership",
			slog.String("membership_id", id.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrMembershipNotFound)
}

// WithTx implements store.MembershipStore.WithTx
func (s *PostgresMembershipStore) WithTx(tx *sql.Tx) store.MembershipStore {
	return &PostgresMembershipStore{db: tx, logger: s.logger}
}

func (s *PostgresMembershipStore) scanOne(ctx context.Context, row *sql.Row) (*domain.Membership, error) {
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrMembershipNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read membership",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return m, nil
}

func scanMembership(row rowScanner) (*domain.Membership, error) {
	var (
		m      domain.Membership
		joined sql.NullTime
		role   string
	)
	if err := row.Scan(&m.ID, &m.UserID, &m.OrganizationID, &m.IsActive, &joined, &role, &m.CreatedAt); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	if joined.Valid {
		t := joined.Time
		m.JoinedAt = &t
	}
	return &m, nil
}
