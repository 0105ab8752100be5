package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/annotator-api/internal/domain"
	"github.com/phrazzld/annotator-api/internal/platform/logger"
	"github.com/phrazzld/annotator-api/internal/store"
)

// PostgresOrganizationStore implements the store.OrganizationStore interface
// using a PostgreSQL database as the storage backend.
type PostgresOrganizationStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresOrganizationStore creates a new PostgreSQL implementation of the OrganizationStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresOrganizationStore(db store.DBTX, logger *slog.Logger) *PostgresOrganizationStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresOrganizationStore{
		db:     db,
		logger: logger.With(slog.String("component", "organization_store")),
	}
}

// Ensure PostgresOrganizationStore implements store.OrganizationStore interface
var _ store.OrganizationStore = (*PostgresOrganizationStore)(nil)

const organizationColumns = `o.id, o.slug, o.name, o.description, o.contact, o.owner_id, o.created_at, o.updated_at`

// Create implements store.OrganizationStore.Create
func (s *PostgresOrganizationStore) Create(ctx context.Context, org *domain.Organization) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := org.Validate(); err != nil {
		return err
	}

	contact, err := json.Marshal(org.Contact)
	if err != nil {
		return fmt.Errorf("failed to encode organization contact: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, slug, name, description, contact, owner_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		org.ID, org.Slug, org.Name, org.Description, contact, org.OwnerID, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		log.Error("failed to create organization",
			slog.String("organization_id", org.ID.String()),
			slog.String("error", err.Error()))
		return MapUniqueViolation(err, store.ErrSlugExists)
	}

	log.Debug("organization created", slog.String("organization_id", org.ID.String()))
	return nil
}

// GetByID implements store.OrganizationStore.GetByID
func (s *PostgresOrganizationStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations o WHERE o.id = $1`, id)
	return s.scanOne(ctx, row)
}

// GetBySlug implements store.OrganizationStore.GetBySlug
func (s *PostgresOrganizationStore) GetBySlug(ctx context.Context, slug string) (*domain.Organization, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+organizationColumns+` FROM organizations o WHERE o.slug = $1`, slug)
	return s.scanOne(ctx, row)
}

// List implements store.OrganizationStore.List. Organizations are returned
// newest first. When opts.VisibleTo is set only organizations where that user
// holds an active membership are returned.
func (s *PostgresOrganizationStore) List(ctx context.Context, opts store.ListOptions) ([]*domain.Organization, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + organizationColumns + ` FROM organizations o WHERE TRUE`
	var args []any
	if opts.VisibleTo.Valid {
		args = append(args, opts.VisibleTo.UUID)
		query += fmt.Sprintf(` AND EXISTS (
			SELECT 1 FROM memberships m
			WHERE m.organization_id = o.id AND m.user_id = $%d AND m.is_active)`, len(args))
	}
	if opts.OrganizationID.Valid {
		args = append(args, opts.OrganizationID.UUID)
		query += fmt.Sprintf(` AND o.id = $%d`, len(args))
	}
	query += ` ORDER BY o.created_at DESC, o.id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to list organizations", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	orgs := []*domain.Organization{}
	for rows.Next() {
		org, err := scanOrganization(rows)
		if err != nil {
			log.Error("failed to scan organization row", slog.String("error", err.Error()))
			return nil, MapError(err)
		}
		orgs = append(orgs, org)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return orgs, nil
}

// Update implements store.OrganizationStore.Update
func (s *PostgresOrganizationStore) Update(ctx context.Context, org *domain.Organization) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := org.Validate(); err != nil {
		return err
	}

	contact, err := json.Marshal(org.Contact)
	if err != nil {
		return fmt.Errorf("failed to encode organization contact: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE organizations
		SET slug = $1, name = $2, description = $3, contact = $4, updated_at = $5
		WHERE id = $6`,
		org.Slug, org.Name, org.Description, contact, org.UpdatedAt, org.ID,
	)
	if err != nil {
		log.Error("failed to update organization",
			slog.String("organization_id", org.ID.String()),
			slog.String("error", err.Error()))
		return MapUniqueViolation(err, store.ErrSlugExists)
	}
	return CheckRowsAffected(result, store.ErrOrganizationNotFound)
}

// Delete implements store.OrganizationStore.Delete. Memberships and
// invitations of the organization are removed by cascade.
func (s *PostgresOrganizationStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		log.Error("failed to delete organization",
			slog.String("organization_id", id.String()),
			slog.String("error", err.Error()))
		return MapError(err)
	}
	return CheckRowsAffected(result, store.ErrOrganizationNotFound)
}

// WithTx implements store.OrganizationStore.WithTx
func (s *PostgresOrganizationStore) WithTx(tx *sql.Tx) store.OrganizationStore {
	return &PostgresOrganizationStore{db: tx, logger: s.logger}
}

func (s *PostgresOrganizationStore) scanOne(ctx context.Context, row *sql.Row) (*domain.Organization, error) {
	org, err := scanOrganization(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrOrganizationNotFound
	}
	if err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Error("failed to read organization",
			slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	return org, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrganization(row rowScanner) (*domain.Organization, error) {
	var (
		org     domain.Organization
		contact []byte
		owner   uuid.NullUUID
	)
	if err := row.Scan(&org.ID, &org.Slug, &org.Name, &org.Description, &contact,
		&owner, &org.CreatedAt, &org.UpdatedAt); err != nil {
		return nil, err
	}
	org.OwnerID = owner.UUID
	org.Contact = map[string]string{}
	if len(contact) > 0 {
		if err := json.Unmarshal(contact, &org.Contact); err != nil {
			return nil, fmt.Errorf("failed to decode organization contact: %w", err)
		}
	}
	return &org, nil
}
