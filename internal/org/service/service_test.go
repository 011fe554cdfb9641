package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	addressmodels "addresshub/internal/address/models"
	addressstore "addresshub/internal/address/store"
	"addresshub/internal/org/models"
	"addresshub/internal/org/store"
	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
)

type OrgServiceSuite struct {
	suite.Suite
	store     *store.Memory
	addresses *addressstore.Memory
	service   *Service
	ctx       context.Context
	owner     id.UserID
	orgID     id.OrgID
}

func (s *OrgServiceSuite) SetupTest() {
	s.store = store.NewMemory()
	s.addresses = addressstore.NewMemory()
	s.service = New(s.store, s.addresses)
	s.ctx = context.Background()
	s.owner = id.UserID(uuid.New())

	org, err := s.service.CreateOrganization(s.ctx, s.owner, "Acme", "test org")
	s.Require().NoError(err)
	s.orgID = org.ID
}

func TestOrgServiceSuite(t *testing.T) {
	suite.Run(t, new(OrgServiceSuite))
}

func (s *OrgServiceSuite) addMember(role models.Role) id.UserID {
	userID := id.UserID(uuid.New())
	_, err := s.service.AddMember(s.ctx, s.owner, s.orgID, userID, role)
	s.Require().NoError(err)
	return userID
}

func (s *OrgServiceSuite) newAddress(owner id.UserID) id.AddressID {
	now := time.Now()
	addr := &addressmodels.Address{
		ID:        id.AddressID(uuid.New()),
		UserID:    owner,
		Name:      "home",
		Line:      "enc:line",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.addresses.Create(s.ctx, addr))
	return addr.ID
}

// TestCreateOrganization verifies the creator becomes owner.
func (s *OrgServiceSuite) TestCreateOrganization() {
	m, err := s.service.RequireMembership(s.ctx, s.orgID, s.owner)
	s.Require().NoError(err)
	s.Equal(models.RoleOwner, m.Role)

	s.Run("rejects empty name", func() {
		_, err := s.service.CreateOrganization(s.ctx, s.owner, "", "")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// TestMembershipChecks verifies rule one: every org operation requires an
// active membership.
func (s *OrgServiceSuite) TestMembershipChecks() {
	outsider := id.UserID(uuid.New())

	s.Run("non-member gets NotAMember", func() {
		_, err := s.service.ListMembers(s.ctx, outsider, s.orgID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAMember))
	})

	s.Run("deactivated member gets NotAMember", func() {
		target := s.addMember(models.RoleMember)
		s.Require().NoError(s.service.DeactivateMember(s.ctx, s.owner, s.orgID, target))
		_, err := s.service.RequireMembership(s.ctx, s.orgID, target)
		s.True(dErrors.HasCode(err, dErrors.CodeNotAMember))
	})

	s.Run("duplicate membership conflicts", func() {
		target := s.addMember(models.RoleMember)
		_, err := s.service.AddMember(s.ctx, s.owner, s.orgID, target, models.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}

// TestRoleMatrix verifies the denial codes for member management.
func (s *OrgServiceSuite) TestRoleMatrix() {
	member := s.addMember(models.RoleMember)
	manager := s.addMember(models.RoleManager)
	admin := s.addMember(models.RoleAdmin)

	s.Run("member cannot manage members", func() {
		_, err := s.service.ChangeRole(s.ctx, member, s.orgID, manager, models.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeInsufficientRole))
	})

	s.Run("manager can change a member's role", func() {
		m, err := s.service.ChangeRole(s.ctx, manager, s.orgID, member, models.RoleManager)
		s.Require().NoError(err)
		s.Equal(models.RoleManager, m.Role)
	})

	s.Run("self modification forbidden", func() {
		_, err := s.service.ChangeRole(s.ctx, admin, s.orgID, admin, models.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeSelfModification))

		err = s.service.DeactivateMember(s.ctx, admin, s.orgID, admin)
		s.True(dErrors.HasCode(err, dErrors.CodeSelfModification))
	})

	s.Run("admin cannot touch an owner", func() {
		_, err := s.service.ChangeRole(s.ctx, admin, s.orgID, s.owner, models.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeOwnerProtected))

		err = s.service.DeactivateMember(s.ctx, admin, s.orgID, s.owner)
		s.True(dErrors.HasCode(err, dErrors.CodeOwnerProtected))
	})

	s.Run("admin cannot mint an owner", func() {
		_, err := s.service.AddMember(s.ctx, admin, s.orgID, id.UserID(uuid.New()), models.RoleOwner)
		s.True(dErrors.HasCode(err, dErrors.CodeOwnerProtected))
	})

	s.Run("owner can promote to owner", func() {
		m, err := s.service.ChangeRole(s.ctx, s.owner, s.orgID, admin, models.RoleOwner)
		s.Require().NoError(err)
		s.Equal(models.RoleOwner, m.Role)
	})
}

// TestGrantLifecycle verifies grant/revoke/re-grant keeps one historical row.
func (s *OrgServiceSuite) TestGrantLifecycle() {
	addressOwner := id.UserID(uuid.New())
	addressID := s.newAddress(addressOwner)

	grant, err := s.service.GrantAccess(s.ctx, addressOwner, addressID, s.orgID)
	s.Require().NoError(err)
	s.True(grant.IsActive)

	ok, err := s.service.HasActiveGrant(s.ctx, addressID, s.orgID)
	s.Require().NoError(err)
	s.True(ok)

	s.Require().NoError(s.service.RevokeAccess(s.ctx, addressOwner, addressID, s.orgID))

	ok, err = s.service.HasActiveGrant(s.ctx, addressID, s.orgID)
	s.Require().NoError(err)
	s.False(ok)

	rows, err := s.store.ListGrantsByAddress(s.ctx, addressID)
	s.Require().NoError(err)
	s.Require().Len(rows, 1)
	s.False(rows[0].IsActive)

	// Re-grant reactivates the same row instead of duplicating.
	regrant, err := s.service.GrantAccess(s.ctx, addressOwner, addressID, s.orgID)
	s.Require().NoError(err)
	s.Equal(grant.ID, regrant.ID)
	s.True(regrant.IsActive)

	rows, err = s.store.ListGrantsByAddress(s.ctx, addressID)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

// TestGrantOwnership verifies only the address owner can grant or revoke.
func (s *OrgServiceSuite) TestGrantOwnership() {
	addressOwner := id.UserID(uuid.New())
	addressID := s.newAddress(addressOwner)
	stranger := id.UserID(uuid.New())

	_, err := s.service.GrantAccess(s.ctx, stranger, addressID, s.orgID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.service.RevokeAccess(s.ctx, stranger, addressID, s.orgID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestListOrganizations verifies members see their active organizations and
// nothing else.
func (s *OrgServiceSuite) TestListOrganizations() {
	second, err := s.service.CreateOrganization(s.ctx, s.owner, "Globex", "")
	s.Require().NoError(err)

	orgs, err := s.service.ListOrganizations(s.ctx, s.owner)
	s.Require().NoError(err)
	s.Require().Len(orgs, 2)
	s.Equal(s.orgID, orgs[0].ID)
	s.Equal(second.ID, orgs[1].ID)

	s.Run("non-member sees nothing", func() {
		orgs, err := s.service.ListOrganizations(s.ctx, id.UserID(uuid.New()))
		s.Require().NoError(err)
		s.Empty(orgs)
	})

	s.Run("deactivated membership drops the org", func() {
		member := s.addMember(models.RoleMember)
		orgs, err := s.service.ListOrganizations(s.ctx, member)
		s.Require().NoError(err)
		s.Len(orgs, 1)

		s.Require().NoError(s.service.DeactivateMember(s.ctx, s.owner, s.orgID, member))
		orgs, err = s.service.ListOrganizations(s.ctx, member)
		s.Require().NoError(err)
		s.Empty(orgs)
	})
}

// TestListGrants verifies owners can review the full sharing history of an
// address, revoked rows included, and nobody else can.
func (s *OrgServiceSuite) TestListGrants() {
	addressOwner := id.UserID(uuid.New())
	addressID := s.newAddress(addressOwner)

	_, err := s.service.GrantAccess(s.ctx, addressOwner, addressID, s.orgID)
	s.Require().NoError(err)
	s.Require().NoError(s.service.RevokeAccess(s.ctx, addressOwner, addressID, s.orgID))

	grants, err := s.service.ListGrants(s.ctx, addressOwner, addressID)
	s.Require().NoError(err)
	s.Require().Len(grants, 1)
	s.False(grants[0].IsActive)
	s.Equal(s.orgID, grants[0].OrgID)

	s.Run("non-owner cannot enumerate grants", func() {
		_, err := s.service.ListGrants(s.ctx, id.UserID(uuid.New()), addressID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
