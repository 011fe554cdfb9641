// Package domain holds typed identifiers and small domain primitives shared
// across features. Typed IDs make it a compile error to pass an OrgID where
// an AddressID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "addresshub/pkg/domain-errors"
)

// Typed identifiers. Construct via the Parse* functions at trust boundaries;
// direct conversion from uuid.UUID is for internal wiring and tests.
type (
	UserID       uuid.UUID
	AddressID    uuid.UUID
	OrgID        uuid.UUID
	MembershipID uuid.UUID
	GrantID      uuid.UUID
	RecordID     uuid.UUID
)

func parseUUID(s, what string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s is required", what)
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must be a valid UUID", what)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeInvalidInput, "%s must not be the nil UUID", what)
	}
	return u, nil
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseAddressID(s string) (AddressID, error) {
	u, err := parseUUID(s, "address id")
	return AddressID(u), err
}

func ParseOrgID(s string) (OrgID, error) {
	u, err := parseUUID(s, "organization id")
	return OrgID(u), err
}

func ParseMembershipID(s string) (MembershipID, error) {
	u, err := parseUUID(s, "membership id")
	return MembershipID(u), err
}

func (id UserID) String() string       { return uuid.UUID(id).String() }
func (id AddressID) String() string    { return uuid.UUID(id).String() }
func (id OrgID) String() string        { return uuid.UUID(id).String() }
func (id MembershipID) String() string { return uuid.UUID(id).String() }
func (id GrantID) String() string      { return uuid.UUID(id).String() }
func (id RecordID) String() string     { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id AddressID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id OrgID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id MembershipID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id GrantID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
