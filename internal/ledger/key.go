package ledger

import (
	"encoding/hex"
	"strings"

	"github.com/google/uuid"

	id "addresshub/pkg/domain"
	dErrors "addresshub/pkg/domain-errors"
)

// RecordKey is the fixed-width ledger identifier for an address: the
// address UUID's 16 bytes left-padded to 32 bytes, big-endian. The mapping
// is deterministic both ways so ledger lookups never need a side table.
type RecordKey [32]byte

// KeyFromAddressID derives the ledger key for an address.
func KeyFromAddressID(addressID id.AddressID) RecordKey {
	var key RecordKey
	raw := uuid.UUID(addressID)
	copy(key[16:], raw[:])
	return key
}

// AddressID recovers the address UUID from a key. Returns an error when the
// padding bytes are non-zero, which means the key was not derived from an
// address id.
func (k RecordKey) AddressID() (id.AddressID, error) {
	for _, b := range k[:16] {
		if b != 0 {
			return id.AddressID{}, dErrors.New(dErrors.CodeInvalidInput, "record key is not an address-derived key")
		}
	}
	var raw uuid.UUID
	copy(raw[:], k[16:])
	return id.AddressID(raw), nil
}

// Hex renders the key as 0x-prefixed lowercase hex, the form the RPC wire
// expects.
func (k RecordKey) Hex() string {
	return "0x" + hex.EncodeToString(k[:])
}

// ParseRecordKey parses the 0x-prefixed hex form.
func ParseRecordKey(s string) (RecordKey, error) {
	var key RecordKey
	s = strings.TrimPrefix(s, "0x")
	raw, err := hex.DecodeString(s)
	if err != nil {
		return key, dErrors.Wrap(err, dErrors.CodeInvalidInput, "record key must be hex")
	}
	if len(raw) != len(key) {
		return key, dErrors.Newf(dErrors.CodeInvalidInput, "record key must be %d bytes, got %d", len(key), len(raw))
	}
	copy(key[:], raw)
	return key, nil
}
