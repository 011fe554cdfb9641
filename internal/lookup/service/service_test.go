package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	addressmodels "addresshub/internal/address/models"
	addressstore "addresshub/internal/address/store"
	"addresshub/internal/crypto"
	"addresshub/internal/lookup/store"
	orgservice "addresshub/internal/org/service"
	orgstore "addresshub/internal/org/store"
	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
)

type LookupServiceSuite struct {
	suite.Suite
	records   *store.Memory
	addresses *addressstore.Memory
	orgs      *orgservice.Service
	cipher    *crypto.FieldCipher
	service   *Service
	ctx       context.Context

	orgOwner     id.UserID
	orgID        id.OrgID
	addressOwner id.UserID
	addressID    id.AddressID
}

func (s *LookupServiceSuite) SetupTest() {
	s.records = store.NewMemory()
	s.addresses = addressstore.NewMemory()

	cipher, err := crypto.New(crypto.Config{Password: "test-password", Salt: "test-salt"})
	s.Require().NoError(err)
	s.cipher = cipher

	s.orgs = orgservice.New(orgstore.NewMemory(), s.addresses)
	s.service = New(s.records, s.addresses, s.orgs, s.cipher)
	s.ctx = context.Background()

	s.orgOwner = id.UserID(uuid.New())
	org, err := s.orgs.CreateOrganization(s.ctx, s.orgOwner, "Acme", "")
	s.Require().NoError(err)
	s.orgID = org.ID

	s.addressOwner = id.UserID(uuid.New())
	s.addressID = s.newAddress(s.addressOwner, "42 Wallaby Way")
}

func TestLookupServiceSuite(t *testing.T) {
	suite.Run(t, new(LookupServiceSuite))
}

func (s *LookupServiceSuite) newAddress(owner id.UserID, line string) id.AddressID {
	enc, err := s.cipher.Encrypt(line)
	s.Require().NoError(err)
	now := time.Now()
	addr := &addressmodels.Address{
		ID:        id.AddressID(uuid.New()),
		UserID:    owner,
		Name:      "home",
		Line:      enc,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.Require().NoError(s.addresses.Create(s.ctx, addr))
	return addr.ID
}

func (s *LookupServiceSuite) grant() {
	_, err := s.orgs.GrantAccess(s.ctx, s.addressOwner, s.addressID, s.orgID)
	s.Require().NoError(err)
}

func (s *LookupServiceSuite) orgRecords() []int {
	records, err := s.records.ListByOrganization(s.ctx, s.orgID, 0)
	s.Require().NoError(err)
	granted, denied := 0, 0
	for _, r := range records {
		if r.Granted {
			granted++
		} else {
			denied++
		}
	}
	return []int{len(records), granted, denied}
}

// TestGrantedLookup verifies the full grant → lookup → audit flow.
func (s *LookupServiceSuite) TestGrantedLookup() {
	s.grant()

	b, err := s.service.Lookup(s.ctx, s.orgOwner, s.orgID, s.addressID, "delivery check")
	s.Require().NoError(err)
	s.Equal("42 Wallaby Way", b.Line)

	counts := s.orgRecords()
	s.Equal([]int{1, 1, 0}, counts)

	records, err := s.records.ListByOrganization(s.ctx, s.orgID, 0)
	s.Require().NoError(err)
	s.Equal("delivery check", records[0].Note)
	s.Equal(s.orgOwner, records[0].UserID)
}

// TestCorruptedRowFailsClosed verifies a row that no longer decrypts errors
// out instead of handing the organization raw ciphertext.
func (s *LookupServiceSuite) TestCorruptedRowFailsClosed() {
	s.grant()

	raw, err := s.addresses.FindByID(s.ctx, s.addressID)
	s.Require().NoError(err)
	raw.Line = "not-a-ciphertext"
	s.Require().NoError(s.addresses.Update(s.ctx, raw))

	_, err = s.service.Lookup(s.ctx, s.orgOwner, s.orgID, s.addressID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeDecryptionFailed))
}

// TestDeniedWithoutGrant verifies the denied row and the uniform error.
func (s *LookupServiceSuite) TestDeniedWithoutGrant() {
	_, err := s.service.Lookup(s.ctx, s.orgOwner, s.orgID, s.addressID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNoActiveGrant))

	s.Equal([]int{1, 0, 1}, s.orgRecords())
}

// TestNonExistentAddressLeavesNoTrace verifies no row is written and the
// error is indistinguishable from a missing grant.
func (s *LookupServiceSuite) TestNonExistentAddressLeavesNoTrace() {
	_, err := s.service.Lookup(s.ctx, s.orgOwner, s.orgID, id.AddressID(uuid.New()), "")
	s.True(dErrors.HasCode(err, dErrors.CodeNoActiveGrant))

	s.Equal([]int{0, 0, 0}, s.orgRecords())
}

// TestNonMemberRejected verifies rule one runs before anything is resolved.
func (s *LookupServiceSuite) TestNonMemberRejected() {
	s.grant()

	outsider := id.UserID(uuid.New())
	_, err := s.service.Lookup(s.ctx, outsider, s.orgID, s.addressID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotAMember))

	s.Equal([]int{0, 0, 0}, s.orgRecords())
}

// TestRevokedGrantDenies verifies revocation takes effect immediately.
func (s *LookupServiceSuite) TestRevokedGrantDenies() {
	s.grant()
	s.Require().NoError(s.orgs.RevokeAccess(s.ctx, s.addressOwner, s.addressID, s.orgID))

	_, err := s.service.Lookup(s.ctx, s.orgOwner, s.orgID, s.addressID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNoActiveGrant))

	s.Equal([]int{1, 0, 1}, s.orgRecords())
}

// TestOtherOrgDenied verifies a grant authorizes exactly one organization.
func (s *LookupServiceSuite) TestOtherOrgDenied() {
	s.grant()

	otherOwner := id.UserID(uuid.New())
	other, err := s.orgs.CreateOrganization(s.ctx, otherOwner, "Other", "")
	s.Require().NoError(err)

	_, err = s.service.Lookup(s.ctx, otherOwner, other.ID, s.addressID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeNoActiveGrant))

	otherRecords, err := s.records.ListByOrganization(s.ctx, other.ID, 0)
	s.Require().NoError(err)
	s.Require().Len(otherRecords, 1)
	s.False(otherRecords[0].Granted)

	// The granted org still works.
	b, err := s.service.Lookup(s.ctx, s.orgOwner, s.orgID, s.addressID, "")
	s.Require().NoError(err)
	s.Equal("42 Wallaby Way", b.Line)
}

// TestHistoryRequiresMembership verifies the compliance view is org-scoped.
func (s *LookupServiceSuite) TestHistoryRequiresMembership() {
	s.grant()
	_, err := s.service.Lookup(s.ctx, s.orgOwner, s.orgID, s.addressID, "")
	s.Require().NoError(err)

	_, err = s.service.History(s.ctx, id.UserID(uuid.New()), s.orgID, 10)
	s.True(dErrors.HasCode(err, dErrors.CodeNotAMember))

	records, err := s.service.History(s.ctx, s.orgOwner, s.orgID, 10)
	s.Require().NoError(err)
	s.Len(records, 1)
}
