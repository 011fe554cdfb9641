package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	id "addresshub/pkg/domain"
	"addresshub/pkg/platform/sentinel"

	"addresshub/internal/address/models"
)

// Postgres persists addresses in the addresses table. Sync metadata writes
// go through MarkSynced/MarkDeletedFromLedger only, so batch write-back can
// never clobber a concurrent content edit.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const addressColumns = `id, user_id, name, line, street, suburb, region, postal_code,
	is_default, is_active, is_synced, needs_sync,
	tx_ref, block_ref, blob_ref, last_synced_at, created_at, updated_at`

func scanAddress(row interface{ Scan(...any) error }) (*models.Address, error) {
	var a models.Address
	err := row.Scan(
		&a.ID, &a.UserID, &a.Name, &a.Line, &a.Street, &a.Suburb, &a.Region, &a.PostalCode,
		&a.IsDefault, &a.IsActive, &a.IsSynced, &a.NeedsSync,
		&a.TxRef, &a.BlockRef, &a.BlobRef, &a.LastSyncedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *Postgres) Create(ctx context.Context, address *models.Address) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create address: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if address.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`,
			address.UserID,
		); err != nil {
			return fmt.Errorf("clear previous default: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO addresses (`+addressColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		address.ID, address.UserID, address.Name,
		address.Line, address.Street, address.Suburb, address.Region, address.PostalCode,
		address.IsDefault, address.IsActive, address.IsSynced, address.NeedsSync,
		address.TxRef, address.BlockRef, address.BlobRef, address.LastSyncedAt,
		address.CreatedAt, address.UpdatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert address: %w", err)
	}
	return tx.Commit()
}

func (s *Postgres) FindByID(ctx context.Context, addressID id.AddressID) (*models.Address, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1`, addressID)
	a, err := scanAddress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find address: %w", err)
	}
	return a, nil
}

func (s *Postgres) FindByIDForUser(ctx context.Context, addressID id.AddressID, userID id.UserID) (*models.Address, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses WHERE id = $1 AND user_id = $2`,
		addressID, userID)
	a, err := scanAddress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find address for user: %w", err)
	}
	return a, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Address, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+addressColumns+` FROM addresses
		 WHERE user_id = $1 AND is_active
		 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list addresses: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func collect(rows *sql.Rows) ([]*models.Address, error) {
	var out []*models.Address
	for rows.Next() {
		a, err := scanAddress(rows)
		if err != nil {
			return nil, fmt.Errorf("scan address: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Postgres) FindDefault(ctx context.Context, userID id.UserID) (*models.Address, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+addressColumns+` FROM addresses
		 WHERE user_id = $1 AND is_active AND is_default`, userID)
	a, err := scanAddress(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find default address: %w", err)
	}
	return a, nil
}

func (s *Postgres) Update(ctx context.Context, address *models.Address) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update address: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if address.IsDefault {
		if _, err := tx.ExecContext(ctx,
			`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default AND id <> $2`,
			address.UserID, address.ID,
		); err != nil {
			return fmt.Errorf("clear previous default: %w", err)
		}
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE addresses SET
			name = $2, line = $3, street = $4, suburb = $5, region = $6, postal_code = $7,
			is_default = $8, is_active = $9, needs_sync = $10, updated_at = $11
		WHERE id = $1`,
		address.ID, address.Name,
		address.Line, address.Street, address.Suburb, address.Region, address.PostalCode,
		address.IsDefault, address.IsActive, address.NeedsSync, address.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update address: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return tx.Commit()
}

func (s *Postgres) SetDefault(ctx context.Context, userID id.UserID, addressID id.AddressID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set default: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = FALSE WHERE user_id = $1 AND is_default`,
		userID,
	); err != nil {
		return fmt.Errorf("clear previous default: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE addresses SET is_default = TRUE WHERE id = $1 AND user_id = $2 AND is_active`,
		addressID, userID,
	)
	if err != nil {
		return fmt.Errorf("set default: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return tx.Commit()
}

func (s *Postgres) selectWhere(ctx context.Context, cond string, limit int) ([]*models.Address, error) {
	q := `SELECT ` + addressColumns + ` FROM addresses WHERE ` + cond + ` ORDER BY created_at`
	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = s.db.QueryContext(ctx, q+` LIMIT $1`, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, q)
	}
	if err != nil {
		return nil, fmt.Errorf("select addresses: %w", err)
	}
	defer rows.Close()
	return collect(rows)
}

func (s *Postgres) SelectPending(ctx context.Context, limit int) ([]*models.Address, error) {
	return s.selectWhere(ctx, `is_active AND NOT is_synced`, limit)
}

func (s *Postgres) SelectStale(ctx context.Context, limit int) ([]*models.Address, error) {
	return s.selectWhere(ctx, `is_active AND is_synced AND needs_sync`, limit)
}

func (s *Postgres) SelectPendingDeletion(ctx context.Context, limit int) ([]*models.Address, error) {
	return s.selectWhere(ctx, `NOT is_active AND is_synced`, limit)
}

func (s *Postgres) countWhere(ctx context.Context, cond string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM addresses WHERE `+cond).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count addresses: %w", err)
	}
	return n, nil
}

func (s *Postgres) CountPending(ctx context.Context) (int, error) {
	return s.countWhere(ctx, `is_active AND NOT is_synced`)
}

func (s *Postgres) CountStale(ctx context.Context) (int, error) {
	return s.countWhere(ctx, `is_active AND is_synced AND needs_sync`)
}

func (s *Postgres) CountPendingDeletion(ctx context.Context) (int, error) {
	return s.countWhere(ctx, `NOT is_active AND is_synced`)
}

// MarkSynced writes back sync metadata for exactly one record. The dirty bit
// is only cleared when the row's updated_at has not advanced past the synced
// snapshot, so an owner edit landing mid-sync stays queued.
func (s *Postgres) MarkSynced(ctx context.Context, addressID id.AddressID, result models.SyncResult) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE addresses SET
			is_synced = TRUE, needs_sync = (needs_sync AND updated_at > $6),
			tx_ref = $2, block_ref = $3, blob_ref = COALESCE(NULLIF($4, ''), blob_ref),
			last_synced_at = $5
		WHERE id = $1`,
		addressID, result.TxRef, result.BlockRef, result.BlobRef, result.SyncedAt, result.SourceUpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("mark synced: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Postgres) MarkDeletedFromLedger(ctx context.Context, addressID id.AddressID, result models.SyncResult) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE addresses SET
			is_synced = FALSE, needs_sync = FALSE,
			tx_ref = $2, block_ref = $3, last_synced_at = $4
		WHERE id = $1`,
		addressID, result.TxRef, result.BlockRef, result.SyncedAt,
	)
	if err != nil {
		return fmt.Errorf("mark deleted from ledger: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}
