// Package store persists lookup audit records. The store surface is
// append-only: there is no update or delete.
package store

import (
	"context"
	"sort"
	"sync"

	id "addresshub/pkg/domain"

	"addresshub/internal/lookup/models"
)

type Memory struct {
	mu      sync.RWMutex
	records []*models.Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (s *Memory) Append(_ context.Context, record *models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *record
	s.records = append(s.records, &cp)
	return nil
}

// ListByOrganization returns the organization's lookup history, newest first.
func (s *Memory) ListByOrganization(_ context.Context, orgID id.OrgID, limit int) ([]*models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Record
	for _, r := range s.records {
		if r.OrgID == orgID {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// CountByAddress reports how many attempts were recorded against an address.
func (s *Memory) CountByAddress(_ context.Context, addressID id.AddressID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, r := range s.records {
		if r.AddressID == addressID {
			n++
		}
	}
	return n, nil
}
