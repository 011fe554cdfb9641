package audit

import (
	"time"

	id "addresshub/pkg/domain"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp time.Time
	UserID    id.UserID
	OrgID     id.OrgID
	AddressID id.AddressID
	Action    string
	Decision  string
	Reason    string
	RequestID string
	ClientIP  string
	UserAgent string
}

type AuditEvent string

const (
	// Address events
	EventAddressCreated    AuditEvent = "address_created"
	EventAddressUpdated    AuditEvent = "address_updated"
	EventAddressDeleted    AuditEvent = "address_deleted"
	EventAddressSetDefault AuditEvent = "address_set_default"

	// Lookup events
	EventLookupGranted AuditEvent = "lookup_granted"
	EventLookupDenied  AuditEvent = "lookup_denied"

	// Organization events
	EventOrgCreated       AuditEvent = "org_created"
	EventMemberAdded      AuditEvent = "member_added"
	EventMemberRemoved    AuditEvent = "member_removed"
	EventMemberRoleChange AuditEvent = "member_role_changed"
	EventGrantCreated     AuditEvent = "grant_created"
	EventGrantRevoked     AuditEvent = "grant_revoked"

	// Sync events
	EventAddressSynced     AuditEvent = "address_synced"
	EventAddressSyncFailed AuditEvent = "address_sync_failed"
	EventAddressTombstoned AuditEvent = "address_tombstoned"
)
