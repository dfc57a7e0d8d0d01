// Package mint provides canonicalization and validation of Solana addresses.
package mint

import (
	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MaxAddressLen is the maximum base58 length of a 32-byte Solana address.
const MaxAddressLen = 44

// Normalize canonicalizes a candidate mint string for cache keys and provider
// lookups. Upstream sources occasionally append extraneous trailing characters
// to the mint, so anything beyond the maximum valid address length is
// discarded. Empty input passes through unchanged; rejection is the caller's
// concern. Idempotent, no I/O.
func Normalize(raw string) string {
	if len(raw) > MaxAddressLen {
		return raw[:MaxAddressLen]
	}
	return raw
}

// IsValid reports whether s decodes as a 32-byte base58 address.
func IsValid(s string) bool {
	if s == "" {
		return false
	}
	decoded, err := base58.Decode(s)
	if err != nil {
		return false
	}
	return len(decoded) == 32
}

// IsOnCurve reports whether s is a valid ed25519 point. Wallet public keys
// are on-curve; program-derived addresses are not, so this distinguishes a
// user wallet from a PDA when classifying webhook transfers.
func IsOnCurve(s string) bool {
	decoded, err := base58.Decode(s)
	if err != nil || len(decoded) != 32 {
		return false
	}
	_, err = new(edwards25519.Point).SetBytes(decoded)
	return err == nil
}
