package store

import (
	"context"
	"database/sql"
	"fmt"

	id "addresshub/pkg/domain"

	"addresshub/internal/lookup/models"
)

// Postgres appends lookup records to the lookup_records table. No update or
// delete statements exist in this store on purpose.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (s *Postgres) Append(ctx context.Context, record *models.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lookup_records (id, org_id, user_id, address_id, granted, client_ip, user_agent, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		record.ID, record.OrgID, record.UserID, record.AddressID,
		record.Granted, record.ClientIP, record.UserAgent, record.Note, record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append lookup record: %w", err)
	}
	return nil
}

func (s *Postgres) ListByOrganization(ctx context.Context, orgID id.OrgID, limit int) ([]*models.Record, error) {
	q := `
		SELECT id, org_id, user_id, address_id, granted, client_ip, user_agent, note, created_at
		FROM lookup_records WHERE org_id = $1 ORDER BY created_at DESC`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, q+` LIMIT $2`, orgID, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, q, orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("list lookup records: %w", err)
	}
	defer rows.Close()

	var out []*models.Record
	for rows.Next() {
		var r models.Record
		if err := rows.Scan(&r.ID, &r.OrgID, &r.UserID, &r.AddressID,
			&r.Granted, &r.ClientIP, &r.UserAgent, &r.Note, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan lookup record: %w", err)
		}
		out = append(out, &r)
	}
	return out, rows.Err()
}

func (s *Postgres) CountByAddress(ctx context.Context, addressID id.AddressID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM lookup_records WHERE address_id = $1`, addressID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count lookup records: %w", err)
	}
	return n, nil
}
