// Package service enforces organization access control.
//
// Two separate axes of authority: a member's role governs managing other
// members and settings, while address visibility is governed solely by an
// active grant for the (address, organization) pair. A high role never
// implies address access.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	addressmodels "addresshub/internal/address/models"
	"addresshub/internal/audit"
	"addresshub/internal/org/models"
	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
	"addresshub/pkg/platform/sentinel"
	"addresshub/pkg/requestcontext"
)

type Store interface {
	CreateOrg(ctx context.Context, org *models.Organization) error
	FindOrgByID(ctx context.Context, orgID id.OrgID) (*models.Organization, error)
	UpdateOrg(ctx context.Context, org *models.Organization) error
	ListOrgsByUser(ctx context.Context, userID id.UserID) ([]*models.Organization, error)
	CreateMembership(ctx context.Context, m *models.Membership) error
	FindMembership(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.Membership, error)
	UpdateMembership(ctx context.Context, m *models.Membership) error
	ListMembers(ctx context.Context, orgID id.OrgID) ([]*models.Membership, error)
	FindGrant(ctx context.Context, addressID id.AddressID, orgID id.OrgID) (*models.Grant, error)
	CreateGrant(ctx context.Context, g *models.Grant) error
	UpdateGrant(ctx context.Context, g *models.Grant) error
	ListGrantsByAddress(ctx context.Context, addressID id.AddressID) ([]*models.Grant, error)
}

// AddressFinder scopes grant management to addresses the caller owns.
type AddressFinder interface {
	FindByIDForUser(ctx context.Context, addressID id.AddressID, userID id.UserID) (*addressmodels.Address, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates organizations, memberships and address grants.
type Service struct {
	store          Store
	addresses      AddressFinder
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

// New constructs a Service.
func New(store Store, addresses AddressFinder, opts ...Option) *Service {
	s := &Service{store: store, addresses: addresses}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrganization creates the organization and makes the creator its
// owner.
func (s *Service) CreateOrganization(ctx context.Context, creator id.UserID, name, description string) (*models.Organization, error) {
	now := requestcontext.Now(ctx)

	org, err := models.NewOrganization(id.OrgID(uuid.New()), name, description, now)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInvariantViolation) {
			return nil, dErrors.New(dErrors.CodeValidation, dErrors.MessageOf(err))
		}
		return nil, err
	}

	if err := s.store.CreateOrg(ctx, org); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "organization already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create organization")
	}

	owner := &models.Membership{
		ID:        id.MembershipID(uuid.New()),
		OrgID:     org.ID,
		UserID:    creator,
		Role:      models.RoleOwner,
		IsActive:  true,
		CreatedBy: creator,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateMembership(ctx, owner); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create owner membership")
	}

	s.logAudit(ctx, audit.EventOrgCreated, creator, org.ID, "")
	return org, nil
}

// GetOrganization returns org metadata to an active member.
func (s *Service) GetOrganization(ctx context.Context, caller id.UserID, orgID id.OrgID) (*models.Organization, error) {
	if _, err := s.requireMembership(ctx, orgID, caller); err != nil {
		return nil, err
	}
	org, err := s.store.FindOrgByID(ctx, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}
	return org, nil
}

// ListOrganizations returns the organizations the caller actively belongs
// to. No role is required beyond membership itself.
func (s *Service) ListOrganizations(ctx context.Context, caller id.UserID) ([]*models.Organization, error) {
	orgs, err := s.store.ListOrgsByUser(ctx, caller)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list organizations")
	}
	return orgs, nil
}

// ListMembers returns the member roster to an active member.
func (s *Service) ListMembers(ctx context.Context, caller id.UserID, orgID id.OrgID) ([]*models.Membership, error) {
	if _, err := s.requireMembership(ctx, orgID, caller); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, orgID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list members")
	}
	return members, nil
}

// AddMember adds a user to the organization. Requires a management role;
// only an owner may mint another owner.
func (s *Service) AddMember(ctx context.Context, actor id.UserID, orgID id.OrgID, userID id.UserID, role models.Role) (*models.Membership, error) {
	actorMembership, err := s.requireManagement(ctx, orgID, actor)
	if err != nil {
		return nil, err
	}
	if role == models.RoleOwner && actorMembership.Role != models.RoleOwner {
		return nil, dErrors.New(dErrors.CodeOwnerProtected, "only an owner can add another owner")
	}

	now := requestcontext.Now(ctx)
	m := &models.Membership{
		ID:        id.MembershipID(uuid.New()),
		OrgID:     orgID,
		UserID:    userID,
		Role:      role,
		IsActive:  true,
		CreatedBy: actor,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateMembership(ctx, m); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "user is already a member")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add member")
	}

	s.logAudit(ctx, audit.EventMemberAdded, actor, orgID, "")
	return m, nil
}

// ChangeRole changes another member's role. Self-modification is forbidden
// through this path; touching an owner, or assigning the owner role,
// requires an owner actor.
func (s *Service) ChangeRole(ctx context.Context, actor id.UserID, orgID id.OrgID, target id.UserID, role models.Role) (*models.Membership, error) {
	actorMembership, err := s.requireManagement(ctx, orgID, actor)
	if err != nil {
		return nil, err
	}
	if actor == target {
		return nil, dErrors.New(dErrors.CodeSelfModification, "cannot change your own role")
	}

	targetMembership, err := s.store.FindMembership(ctx, orgID, target)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "membership not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}

	if (targetMembership.Role == models.RoleOwner || role == models.RoleOwner) &&
		actorMembership.Role != models.RoleOwner {
		return nil, dErrors.New(dErrors.CodeOwnerProtected, "only an owner can change an owner's role")
	}

	targetMembership.Role = role
	targetMembership.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.UpdateMembership(ctx, targetMembership); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update membership")
	}

	s.logAudit(ctx, audit.EventMemberRoleChange, actor, orgID, "")
	return targetMembership, nil
}

// DeactivateMember removes another member from the organization. The same
// owner protections as ChangeRole apply.
func (s *Service) DeactivateMember(ctx context.Context, actor id.UserID, orgID id.OrgID, target id.UserID) error {
	actorMembership, err := s.requireManagement(ctx, orgID, actor)
	if err != nil {
		return err
	}
	if actor == target {
		return dErrors.New(dErrors.CodeSelfModification, "cannot deactivate your own membership")
	}

	targetMembership, err := s.store.FindMembership(ctx, orgID, target)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "membership not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}
	if targetMembership.Role == models.RoleOwner && actorMembership.Role != models.RoleOwner {
		return dErrors.New(dErrors.CodeOwnerProtected, "only an owner can deactivate an owner")
	}

	targetMembership.IsActive = false
	targetMembership.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.UpdateMembership(ctx, targetMembership); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to deactivate membership")
	}

	s.logAudit(ctx, audit.EventMemberRemoved, actor, orgID, "")
	return nil
}

// GrantAccess grants an organization read access to one of the caller's
// addresses. A previously revoked grant is reactivated in place, so the
// (address, org) pair keeps a single historical row.
func (s *Service) GrantAccess(ctx context.Context, owner id.UserID, addressID id.AddressID, orgID id.OrgID) (*models.Grant, error) {
	if _, err := s.addresses.FindByIDForUser(ctx, addressID, owner); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "address not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load address")
	}
	if _, err := s.store.FindOrgByID(ctx, orgID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "organization not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load organization")
	}

	now := requestcontext.Now(ctx)
	existing, err := s.store.FindGrant(ctx, addressID, orgID)
	switch {
	case err == nil:
		if existing.IsActive {
			return existing, nil
		}
		existing.IsActive = true
		existing.GrantedBy = owner
		existing.UpdatedAt = now
		if err := s.store.UpdateGrant(ctx, existing); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reactivate grant")
		}
		s.logAudit(ctx, audit.EventGrantCreated, owner, orgID, "")
		return existing, nil
	case errors.Is(err, sentinel.ErrNotFound):
		grant := &models.Grant{
			ID:        id.GrantID(uuid.New()),
			AddressID: addressID,
			OrgID:     orgID,
			GrantedBy: owner,
			IsActive:  true,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.store.CreateGrant(ctx, grant); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create grant")
		}
		s.logAudit(ctx, audit.EventGrantCreated, owner, orgID, "")
		return grant, nil
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load grant")
	}
}

// ListGrants returns every grant row for one of the caller's addresses,
// revoked rows included, so owners can review the full sharing history.
func (s *Service) ListGrants(ctx context.Context, owner id.UserID, addressID id.AddressID) ([]*models.Grant, error) {
	if _, err := s.addresses.FindByIDForUser(ctx, addressID, owner); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "address not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load address")
	}
	grants, err := s.store.ListGrantsByAddress(ctx, addressID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list grants")
	}
	return grants, nil
}

// RevokeAccess deactivates the grant, preserving the row for history.
func (s *Service) RevokeAccess(ctx context.Context, owner id.UserID, addressID id.AddressID, orgID id.OrgID) error {
	if _, err := s.addresses.FindByIDForUser(ctx, addressID, owner); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "address not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load address")
	}

	grant, err := s.store.FindGrant(ctx, addressID, orgID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "grant not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load grant")
	}
	if !grant.IsActive {
		return nil
	}

	grant.IsActive = false
	grant.UpdatedAt = requestcontext.Now(ctx)
	if err := s.store.UpdateGrant(ctx, grant); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke grant")
	}

	s.logAudit(ctx, audit.EventGrantRevoked, owner, orgID, "")
	return nil
}

// RequireMembership returns the caller's active membership or CodeNotAMember.
// The lookup service uses this as rule one of its access check.
func (s *Service) RequireMembership(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.Membership, error) {
	return s.requireMembership(ctx, orgID, userID)
}

// HasActiveGrant reports whether the organization holds an active grant for
// the address.
func (s *Service) HasActiveGrant(ctx context.Context, addressID id.AddressID, orgID id.OrgID) (bool, error) {
	grant, err := s.store.FindGrant(ctx, addressID, orgID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load grant")
	}
	return grant.IsActive, nil
}

func (s *Service) requireMembership(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.Membership, error) {
	m, err := s.store.FindMembership(ctx, orgID, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotAMember, "not a member of this organization")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load membership")
	}
	if !m.IsActive {
		return nil, dErrors.New(dErrors.CodeNotAMember, "membership is inactive")
	}
	return m, nil
}

func (s *Service) requireManagement(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.Membership, error) {
	m, err := s.requireMembership(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	if !m.Role.CanManageMembers() {
		return nil, dErrors.New(dErrors.CodeInsufficientRole, "role cannot manage members")
	}
	return m, nil
}

func (s *Service) logAudit(ctx context.Context, event audit.AuditEvent, userID id.UserID, orgID id.OrgID, reason string) {
	if s.logger != nil {
		attributes := []any{
			"event", string(event),
			"user_id", userID.String(),
			"org_id", orgID.String(),
			"log_type", "audit",
		}
		if requestID := requestcontext.RequestID(ctx); requestID != "" {
			attributes = append(attributes, "request_id", requestID)
		}
		s.logger.InfoContext(ctx, string(event), attributes...)
	}
	if s.auditPublisher == nil {
		return
	}
	_ = s.auditPublisher.Emit(ctx, audit.Event{
		UserID: userID,
		OrgID:  orgID,
		Action: string(event),
		Reason: reason,
	})
}
