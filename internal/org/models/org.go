// Package models holds the organization aggregate: organizations, their
// memberships and per-address read grants.
package models

import (
	"time"

	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
)

// Role is a member's role within an organization.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleOwner, RoleAdmin, RoleManager, RoleMember:
		return Role(s), nil
	default:
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown role %q", s)
	}
}

// CanManageMembers reports whether the role may add, remove or re-role other
// members.
func (r Role) CanManageMembers() bool {
	return r == RoleOwner || r == RoleAdmin || r == RoleManager
}

// CanManageSettings reports whether the role may change organization
// settings.
func (r Role) CanManageSettings() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Organization is a tenant that can be granted read access to addresses.
type Organization struct {
	ID          id.OrgID  `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewOrganization validates invariants and constructs an active organization.
func NewOrganization(orgID id.OrgID, name, description string, now time.Time) (*Organization, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name cannot be empty")
	}
	if len(name) > 255 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "organization name must be 255 characters or less")
	}
	return &Organization{
		ID:          orgID,
		Name:        name,
		Description: description,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Membership links a user to an organization with a role.
//
// Invariant: at most one membership row per (organization, user) pair,
// enforced by the store.
type Membership struct {
	ID        id.MembershipID `json:"id"`
	OrgID     id.OrgID        `json:"org_id"`
	UserID    id.UserID       `json:"user_id"`
	Role      Role            `json:"role"`
	IsActive  bool            `json:"is_active"`
	CreatedBy id.UserID       `json:"created_by"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Grant is an active read permission from one address to one organization.
//
// Invariant: at most one row per (address, organization) pair. Revocation
// deactivates the row; a re-grant reactivates it, so history is a single row
// rather than an accumulation of duplicates.
type Grant struct {
	ID        id.GrantID   `json:"id"`
	AddressID id.AddressID `json:"address_id"`
	OrgID     id.OrgID     `json:"org_id"`
	GrantedBy id.UserID    `json:"granted_by"`
	IsActive  bool         `json:"is_active"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}
