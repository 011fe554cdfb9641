package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "addresshub/pkg/domain"
	"addresshub/pkg/platform/sentinel"

	"addresshub/internal/org/models"
)

// Postgres persists organizations, memberships and grants. Uniqueness of
// (org, user) and (address, org) pairs is enforced by database constraints
// and surfaces as sentinel.ErrConflict.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (s *Postgres) CreateOrg(ctx context.Context, org *models.Organization) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		org.ID, org.Name, org.Description, org.IsActive, org.CreatedAt, org.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert organization: %w", err)
	}
	return nil
}

func (s *Postgres) FindOrgByID(ctx context.Context, orgID id.OrgID) (*models.Organization, error) {
	var org models.Organization
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, is_active, created_at, updated_at
		FROM organizations WHERE id = $1`, orgID,
	).Scan(&org.ID, &org.Name, &org.Description, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find organization: %w", err)
	}
	return &org, nil
}

func (s *Postgres) UpdateOrg(ctx context.Context, org *models.Organization) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE organizations SET name = $2, description = $3, is_active = $4, updated_at = $5
		WHERE id = $1`,
		org.ID, org.Name, org.Description, org.IsActive, org.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update organization: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListOrgsByUser returns the active organizations the user is an active
// member of, oldest first.
func (s *Postgres) ListOrgsByUser(ctx context.Context, userID id.UserID) ([]*models.Organization, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.name, o.description, o.is_active, o.created_at, o.updated_at
		FROM organizations o
		JOIN organization_memberships m ON m.org_id = o.id
		WHERE m.user_id = $1 AND m.is_active AND o.is_active
		ORDER BY o.created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list organizations by user: %w", err)
	}
	defer rows.Close()

	var out []*models.Organization
	for rows.Next() {
		var org models.Organization
		err := rows.Scan(&org.ID, &org.Name, &org.Description, &org.IsActive, &org.CreatedAt, &org.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		out = append(out, &org)
	}
	return out, rows.Err()
}

const membershipColumns = `id, org_id, user_id, role, is_active, created_by, created_at, updated_at`

func scanMembership(row interface{ Scan(...any) error }) (*models.Membership, error) {
	var m models.Membership
	err := row.Scan(&m.ID, &m.OrgID, &m.UserID, &m.Role, &m.IsActive, &m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *Postgres) CreateMembership(ctx context.Context, m *models.Membership) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organization_memberships (`+membershipColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.OrgID, m.UserID, m.Role, m.IsActive, m.CreatedBy, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert membership: %w", err)
	}
	return nil
}

func (s *Postgres) FindMembership(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.Membership, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+membershipColumns+` FROM organization_memberships
		WHERE org_id = $1 AND user_id = $2`, orgID, userID)
	m, err := scanMembership(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find membership: %w", err)
	}
	return m, nil
}

func (s *Postgres) UpdateMembership(ctx context.Context, m *models.Membership) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE organization_memberships SET role = $2, is_active = $3, updated_at = $4
		WHERE id = $1`,
		m.ID, m.Role, m.IsActive, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update membership: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListMembers(ctx context.Context, orgID id.OrgID) ([]*models.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+membershipColumns+` FROM organization_memberships
		WHERE org_id = $1 ORDER BY created_at`, orgID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []*models.Membership
	for rows.Next() {
		m, err := scanMembership(rows)
		if err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const grantColumns = `id, address_id, org_id, granted_by, is_active, created_at, updated_at`

func scanGrant(row interface{ Scan(...any) error }) (*models.Grant, error) {
	var g models.Grant
	err := row.Scan(&g.ID, &g.AddressID, &g.OrgID, &g.GrantedBy, &g.IsActive, &g.CreatedAt, &g.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (s *Postgres) FindGrant(ctx context.Context, addressID id.AddressID, orgID id.OrgID) (*models.Grant, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+grantColumns+` FROM address_permissions
		WHERE address_id = $1 AND org_id = $2`, addressID, orgID)
	g, err := scanGrant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find grant: %w", err)
	}
	return g, nil
}

func (s *Postgres) CreateGrant(ctx context.Context, g *models.Grant) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO address_permissions (`+grantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		g.ID, g.AddressID, g.OrgID, g.GrantedBy, g.IsActive, g.CreatedAt, g.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert grant: %w", err)
	}
	return nil
}

func (s *Postgres) UpdateGrant(ctx context.Context, g *models.Grant) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE address_permissions SET granted_by = $2, is_active = $3, updated_at = $4
		WHERE id = $1`,
		g.ID, g.GrantedBy, g.IsActive, g.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update grant: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) ListGrantsByAddress(ctx context.Context, addressID id.AddressID) ([]*models.Grant, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+grantColumns+` FROM address_permissions
		WHERE address_id = $1 ORDER BY created_at`, addressID)
	if err != nil {
		return nil, fmt.Errorf("list grants: %w", err)
	}
	defer rows.Close()

	var out []*models.Grant
	for rows.Next() {
		g, err := scanGrant(rows)
		if err != nil {
			return nil, fmt.Errorf("scan grant: %w", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}
