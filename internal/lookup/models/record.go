// Package models holds the append-only lookup audit record.
package models

import (
	"time"

	id "addresshub/pkg/domain"
)

// Outcome of a lookup attempt.
const (
	OutcomeGranted = "granted"
	OutcomeDenied  = "denied"
)

// Record is one audited lookup attempt. Rows are immutable once written and
// retained indefinitely; soft deletion of the address or the organization
// never erases them.
type Record struct {
	ID        id.RecordID  `json:"id"`
	OrgID     id.OrgID     `json:"org_id"`
	UserID    id.UserID    `json:"user_id"`
	AddressID id.AddressID `json:"address_id"`
	Granted   bool         `json:"granted"`
	ClientIP  string       `json:"client_ip,omitempty"`
	UserAgent string       `json:"user_agent,omitempty"`
	Note      string       `json:"note,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}

func (r *Record) Outcome() string {
	if r.Granted {
		return OutcomeGranted
	}
	return OutcomeDenied
}
