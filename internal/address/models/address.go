// Package models holds the Address aggregate and its sync metadata.
package models

import (
	"regexp"
	"time"

	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
)

// EncryptedFields names the five semantic address fields stored encrypted at
// rest. Everything else on the row is plaintext metadata.
var EncryptedFields = []string{"line", "street", "suburb", "region", "postal_code"}

var postalCodeRe = regexp.MustCompile(`^[0-9A-Za-z\s\-]+$`)

// Address is a user's postal address.
//
// Invariants:
//   - Name is non-empty and at most 255 characters
//   - PostalCode contains only letters, digits, spaces and hyphens
//   - At most one address per user has IsDefault=true (enforced by the store)
//   - Rows are soft-deleted: IsActive=false, never physically removed
//
// The five semantic fields hold ciphertext once the row has passed through
// the service; only the service's encrypt/decrypt boundary sees plaintext.
// Sync metadata is written exclusively by the synchronization engine through
// a partial update, so an owner edit and a sync write-back can never clobber
// each other's columns.
type Address struct {
	ID     id.AddressID `json:"id"`
	UserID id.UserID    `json:"user_id"`
	Name   string       `json:"name"`

	Line       string `json:"line"`
	Street     string `json:"street"`
	Suburb     string `json:"suburb"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code"`

	IsDefault bool `json:"is_default"`
	IsActive  bool `json:"is_active"`

	// Ledger sync metadata.
	IsSynced     bool       `json:"is_synced"`
	NeedsSync    bool       `json:"needs_sync"`
	TxRef        *string    `json:"tx_ref,omitempty"`
	BlockRef     *int64     `json:"block_ref,omitempty"`
	BlobRef      *string    `json:"blob_ref,omitempty"`
	LastSyncedAt *time.Time `json:"last_synced_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Breakdown is the plaintext view of the five semantic fields plus display
// metadata. It exists only inside a response payload for an authorized
// caller; it is never persisted.
type Breakdown struct {
	ID         id.AddressID `json:"id"`
	Name       string       `json:"name"`
	Line       string       `json:"line"`
	Street     string       `json:"street"`
	Suburb     string       `json:"suburb"`
	Region     string       `json:"region"`
	PostalCode string       `json:"postal_code"`
	IsDefault  bool         `json:"is_default"`
	IsActive   bool         `json:"is_active"`
}

// NewAddress validates invariants and constructs an active, unsynced address.
func NewAddress(addressID id.AddressID, userID id.UserID, name string, fields map[string]string, isDefault bool, now time.Time) (*Address, error) {
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "address name cannot be empty")
	}
	if len(name) > 255 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "address name must be 255 characters or less")
	}
	if pc := fields["postal_code"]; pc != "" && !postalCodeRe.MatchString(pc) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "postal code can only contain letters, numbers, spaces, and hyphens")
	}

	a := &Address{
		ID:        addressID,
		UserID:    userID,
		Name:      name,
		IsDefault: isDefault,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	a.ApplyFieldMap(fields)
	return a, nil
}

// ValidatePostalCode checks the postal code format on updates.
func ValidatePostalCode(pc string) error {
	if pc != "" && !postalCodeRe.MatchString(pc) {
		return dErrors.New(dErrors.CodeInvariantViolation, "postal code can only contain letters, numbers, spaces, and hyphens")
	}
	return nil
}

// FieldMap exposes the five semantic fields for the encrypt/decrypt helpers.
func (a *Address) FieldMap() map[string]string {
	return map[string]string{
		"line":        a.Line,
		"street":      a.Street,
		"suburb":      a.Suburb,
		"region":      a.Region,
		"postal_code": a.PostalCode,
	}
}

// ApplyFieldMap writes the five semantic fields back from a mapping.
func (a *Address) ApplyFieldMap(fields map[string]string) {
	a.Line = fields["line"]
	a.Street = fields["street"]
	a.Suburb = fields["suburb"]
	a.Region = fields["region"]
	a.PostalCode = fields["postal_code"]
}

// CanDeactivate reports whether the address can be soft-deleted.
func (a *Address) CanDeactivate() error {
	if !a.IsActive {
		return dErrors.New(dErrors.CodeInvariantViolation, "address is already inactive")
	}
	return nil
}

// ApplyDeactivation soft-deletes the address. The row stays behind so lookup
// history keeps its target; the sync engine picks the record up for
// ledger-side deletion.
func (a *Address) ApplyDeactivation(now time.Time) {
	a.IsActive = false
	a.IsDefault = false
	a.UpdatedAt = now
}

// MarkDirty flags the address for a ledger update after a content change.
// The dirty bit replaces any read-compare against the ledger: the write path
// knows when content changed, so the engine never pays a network read to
// find out.
func (a *Address) MarkDirty(now time.Time) {
	a.NeedsSync = true
	a.UpdatedAt = now
}

// SyncResult is the engine's per-record write-back after a successful ledger
// store. SourceUpdatedAt is the row's UpdatedAt captured when the batch was
// selected; the dirty bit is only cleared when the row has not advanced past
// it, so an owner edit landing mid-sync stays queued for the next cycle.
type SyncResult struct {
	TxRef           string
	BlockRef        int64
	BlobRef         string
	SyncedAt        time.Time
	SourceUpdatedAt time.Time
}
