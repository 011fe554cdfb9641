// Package ledger is the narrow client boundary to the external append-only
// ledger and its content-addressed blob store. Consensus, contract semantics
// and content addressing are owned by the remote systems; this package only
// speaks their wire protocols.
package ledger

import (
	"context"
	"time"
)

// Record is the ledger-side copy of an address. All string fields are UTF-8
// plaintext; encryption is a database concern, the ledger stores what the
// registry contract was given.
type Record struct {
	Key        RecordKey `json:"key"`
	Name       string    `json:"name"`
	Line       string    `json:"line"`
	Street     string    `json:"street"`
	Suburb     string    `json:"suburb"`
	Region     string    `json:"region"`
	PostalCode string    `json:"postal_code"`
	IsDefault  bool      `json:"is_default"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// StoreResult reports where a write landed.
type StoreResult struct {
	TxRef    string
	BlockRef int64
}

// Client is the operation surface the synchronization engine depends on.
//
// IsConnected is a cheap reachability probe and never returns an error.
// Store is idempotent only insofar as the caller supplies the same record
// key; the ledger does not deduplicate.
type Client interface {
	IsConnected(ctx context.Context) bool
	Store(ctx context.Context, record Record, signer Signer) (StoreResult, error)
	Fetch(ctx context.Context, key RecordKey, signer Signer) (Record, error)
	Delete(ctx context.Context, key RecordKey, signer Signer) (StoreResult, error)
}

// BlobStore is the auxiliary content-addressed store. Both operations are
// best-effort: callers treat errors as "proceed without the blob".
type BlobStore interface {
	PutBlob(ctx context.Context, data []byte) (string, error)
	GetBlob(ctx context.Context, ref string) ([]byte, error)
}
