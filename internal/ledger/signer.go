package ledger

import (
	"context"

	id "addresshub/pkg/domain"
)

// Signer is the ledger identity that authorizes a write on behalf of a user.
type Signer string

// SignerResolver maps the owning user of a record to the signer used for the
// ledger write. Resolution is pluggable because per-user key management is a
// deployment concern this module does not design; see DESIGN.md.
type SignerResolver interface {
	Resolve(ctx context.Context, userID id.UserID) (Signer, error)
}

// StaticSigner resolves every user to one configured signing identity.
//
// This mirrors the shared operator wallet the system launched with. It is a
// deliberate placeholder: a real multi-tenant deployment substitutes a
// resolver backed by per-user key custody.
type StaticSigner struct {
	signer Signer
}

func NewStaticSigner(signer Signer) *StaticSigner {
	return &StaticSigner{signer: signer}
}

func (s *StaticSigner) Resolve(_ context.Context, _ id.UserID) (Signer, error) {
	return s.signer, nil
}
