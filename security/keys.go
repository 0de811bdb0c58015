// Package security implements the principal-based authorization core
// described in spec §4.8: Public Key Records (PKRs) with parsed
// expiration, a Principal Registry that mints and refreshes
// identities, and Reader/Writer Sets enforcing read/write/grant
// capabilities.
package security

import "github.com/google/uuid"

// KeyHandle is an opaque, identity-only token (spec §9: "opaque key
// handles ... reference equality ... implementations may use an
// interned id allocator"). A *keyToken's pointer identity is the
// handle: only the allocator that minted one can produce another
// value equal to it, which is what makes it non-forgeable within the
// process.
type KeyHandle = *keyToken

type keyToken struct {
	label string // debug-only; never compared against
}

func (k *keyToken) String() string {
	if k == nil {
		return "<nil>"
	}
	return k.label
}

// KeyAllocator mints fresh, process-unique key handles.
type KeyAllocator struct{}

// NewKeyAllocator builds a KeyAllocator.
func NewKeyAllocator() *KeyAllocator { return &KeyAllocator{} }

// Mint returns a fresh, unforgeable handle labeled with a random
// UUID for debug output.
func (a *KeyAllocator) Mint() KeyHandle {
	return &keyToken{label: uuid.NewString()}
}
