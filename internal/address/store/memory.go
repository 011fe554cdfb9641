// Package store persists addresses. The in-memory implementation backs unit
// tests and local development; PostgresStore is the production store. Both
// return sentinel errors that the service layer translates.
package store

import (
	"context"
	"sort"
	"sync"

	id "addresshub/pkg/domain"
	"addresshub/pkg/platform/sentinel"

	"addresshub/internal/address/models"
)

// Memory is a mutex-guarded map store with the same semantics as the
// postgres implementation, including single-default enforcement and
// sync-field-only partial updates.
type Memory struct {
	mu        sync.RWMutex
	addresses map[id.AddressID]*models.Address
}

func NewMemory() *Memory {
	return &Memory{addresses: make(map[id.AddressID]*models.Address)}
}

func clone(a *models.Address) *models.Address {
	cp := *a
	if a.TxRef != nil {
		v := *a.TxRef
		cp.TxRef = &v
	}
	if a.BlockRef != nil {
		v := *a.BlockRef
		cp.BlockRef = &v
	}
	if a.BlobRef != nil {
		v := *a.BlobRef
		cp.BlobRef = &v
	}
	if a.LastSyncedAt != nil {
		v := *a.LastSyncedAt
		cp.LastSyncedAt = &v
	}
	return &cp
}

// Create inserts a new address. When the address is flagged default, other
// defaults for the same user are cleared in the same critical section so the
// single-default invariant holds even under concurrent creates.
func (s *Memory) Create(_ context.Context, address *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.addresses[address.ID]; exists {
		return sentinel.ErrConflict
	}
	if address.IsDefault {
		s.clearDefaultLocked(address.UserID)
	}
	s.addresses[address.ID] = clone(address)
	return nil
}

func (s *Memory) clearDefaultLocked(userID id.UserID) {
	for _, a := range s.addresses {
		if a.UserID == userID && a.IsDefault {
			a.IsDefault = false
		}
	}
}

func (s *Memory) FindByID(_ context.Context, addressID id.AddressID) (*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.addresses[addressID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// FindByIDForUser scopes the lookup to the owning user. A foreign address
// reads as not-found so ownership is never revealed.
func (s *Memory) FindByIDForUser(_ context.Context, addressID id.AddressID, userID id.UserID) (*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.addresses[addressID]
	if !ok || a.UserID != userID {
		return nil, sentinel.ErrNotFound
	}
	return clone(a), nil
}

// ListByUser returns the user's active addresses, newest first.
func (s *Memory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Address
	for _, a := range s.addresses {
		if a.UserID == userID && a.IsActive {
			out = append(out, clone(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *Memory) FindDefault(_ context.Context, userID id.UserID) (*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.addresses {
		if a.UserID == userID && a.IsActive && a.IsDefault {
			return clone(a), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Update persists content columns and flags. Sync metadata is deliberately
// not written here; only MarkSynced and MarkDeletedFromLedger touch it.
func (s *Memory) Update(_ context.Context, address *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.addresses[address.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if address.IsDefault && !existing.IsDefault {
		s.clearDefaultLocked(address.UserID)
	}
	existing.Name = address.Name
	existing.Line = address.Line
	existing.Street = address.Street
	existing.Suburb = address.Suburb
	existing.Region = address.Region
	existing.PostalCode = address.PostalCode
	existing.IsDefault = address.IsDefault
	existing.IsActive = address.IsActive
	existing.NeedsSync = address.NeedsSync
	existing.UpdatedAt = address.UpdatedAt
	return nil
}

// SetDefault atomically makes one address the user's default.
func (s *Memory) SetDefault(_ context.Context, userID id.UserID, addressID id.AddressID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.addresses[addressID]
	if !ok || target.UserID != userID || !target.IsActive {
		return sentinel.ErrNotFound
	}
	s.clearDefaultLocked(userID)
	target.IsDefault = true
	return nil
}

func (s *Memory) selectWhere(limit int, match func(*models.Address) bool) []*models.Address {
	var out []*models.Address
	for _, a := range s.addresses {
		if match(a) {
			out = append(out, clone(a))
		}
	}
	// Stable order: oldest first so retried batches re-select the same rows.
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// SelectPending returns active addresses not yet on the ledger.
func (s *Memory) SelectPending(_ context.Context, limit int) ([]*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectWhere(limit, func(a *models.Address) bool {
		return a.IsActive && !a.IsSynced
	}), nil
}

// SelectStale returns addresses whose content changed since the last sync.
func (s *Memory) SelectStale(_ context.Context, limit int) ([]*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectWhere(limit, func(a *models.Address) bool {
		return a.IsActive && a.IsSynced && a.NeedsSync
	}), nil
}

// SelectPendingDeletion returns soft-deleted addresses whose ledger copy
// still exists.
func (s *Memory) SelectPendingDeletion(_ context.Context, limit int) ([]*models.Address, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selectWhere(limit, func(a *models.Address) bool {
		return !a.IsActive && a.IsSynced
	}), nil
}

func (s *Memory) CountPending(ctx context.Context) (int, error) {
	rows, err := s.SelectPending(ctx, 0)
	return len(rows), err
}

func (s *Memory) CountStale(ctx context.Context) (int, error) {
	rows, err := s.SelectStale(ctx, 0)
	return len(rows), err
}

func (s *Memory) CountPendingDeletion(ctx context.Context) (int, error) {
	rows, err := s.SelectPendingDeletion(ctx, 0)
	return len(rows), err
}

// MarkSynced writes back sync metadata for exactly one record. Content
// columns are untouched so a concurrent owner edit is preserved, and the
// dirty bit is only cleared when the row still matches the synced snapshot.
func (s *Memory) MarkSynced(_ context.Context, addressID id.AddressID, result models.SyncResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.addresses[addressID]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.IsSynced = true
	if !a.UpdatedAt.After(result.SourceUpdatedAt) {
		a.NeedsSync = false
	}
	a.TxRef = &result.TxRef
	a.BlockRef = &result.BlockRef
	if result.BlobRef != "" {
		a.BlobRef = &result.BlobRef
	}
	at := result.SyncedAt
	a.LastSyncedAt = &at
	return nil
}

// MarkDeletedFromLedger records that the ledger copy was tombstoned.
func (s *Memory) MarkDeletedFromLedger(_ context.Context, addressID id.AddressID, result models.SyncResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.addresses[addressID]
	if !ok {
		return sentinel.ErrNotFound
	}
	a.IsSynced = false
	a.NeedsSync = false
	a.TxRef = &result.TxRef
	a.BlockRef = &result.BlockRef
	at := result.SyncedAt
	a.LastSyncedAt = &at
	return nil
}
