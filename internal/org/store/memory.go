// Package store persists organizations, memberships and address grants.
package store

import (
	"context"
	"sort"
	"sync"

	id "addresshub/pkg/domain"
	"addresshub/pkg/platform/sentinel"

	"addresshub/internal/org/models"
)

// Memory is a mutex-guarded store with the same semantics as the postgres
// implementation, including (org, user) and (address, org) uniqueness.
type Memory struct {
	mu          sync.RWMutex
	orgs        map[id.OrgID]*models.Organization
	memberships map[id.MembershipID]*models.Membership
	grants      map[id.GrantID]*models.Grant
}

func NewMemory() *Memory {
	return &Memory{
		orgs:        make(map[id.OrgID]*models.Organization),
		memberships: make(map[id.MembershipID]*models.Membership),
		grants:      make(map[id.GrantID]*models.Grant),
	}
}

func (s *Memory) CreateOrg(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orgs[org.ID]; exists {
		return sentinel.ErrConflict
	}
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *Memory) FindOrgByID(_ context.Context, orgID id.OrgID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	org, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *Memory) UpdateOrg(_ context.Context, org *models.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[org.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

// CreateMembership enforces one row per (organization, user).
func (s *Memory) CreateMembership(_ context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.memberships {
		if existing.OrgID == m.OrgID && existing.UserID == m.UserID {
			return sentinel.ErrConflict
		}
	}
	cp := *m
	s.memberships[m.ID] = &cp
	return nil
}

func (s *Memory) FindMembership(_ context.Context, orgID id.OrgID, userID id.UserID) (*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, m := range s.memberships {
		if m.OrgID == orgID && m.UserID == userID {
			cp := *m
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *Memory) UpdateMembership(_ context.Context, m *models.Membership) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.memberships[m.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *m
	s.memberships[m.ID] = &cp
	return nil
}

// ListMembers returns the organization's memberships, oldest first.
func (s *Memory) ListMembers(_ context.Context, orgID id.OrgID) ([]*models.Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Membership
	for _, m := range s.memberships {
		if m.OrgID == orgID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListOrgsByUser returns the active organizations the user is an active
// member of, oldest first.
func (s *Memory) ListOrgsByUser(_ context.Context, userID id.UserID) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Organization
	for _, m := range s.memberships {
		if m.UserID != userID || !m.IsActive {
			continue
		}
		if org, ok := s.orgs[m.OrgID]; ok && org.IsActive {
			cp := *org
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// FindGrant returns the single historical grant row for (address, org),
// active or not.
func (s *Memory) FindGrant(_ context.Context, addressID id.AddressID, orgID id.OrgID) (*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.grants {
		if g.AddressID == addressID && g.OrgID == orgID {
			cp := *g
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// CreateGrant enforces one row per (address, organization).
func (s *Memory) CreateGrant(_ context.Context, g *models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.grants {
		if existing.AddressID == g.AddressID && existing.OrgID == g.OrgID {
			return sentinel.ErrConflict
		}
	}
	cp := *g
	s.grants[g.ID] = &cp
	return nil
}

func (s *Memory) UpdateGrant(_ context.Context, g *models.Grant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.grants[g.ID]; !ok {
		return sentinel.ErrNotFound
	}
	cp := *g
	s.grants[g.ID] = &cp
	return nil
}

// ListGrantsByAddress returns all grant rows for an address, oldest first.
func (s *Memory) ListGrantsByAddress(_ context.Context, addressID id.AddressID) ([]*models.Grant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Grant
	for _, g := range s.grants {
		if g.AddressID == addressID {
			cp := *g
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
