// Package srp implements the SRP-6a key-agreement engine used by the login
// service (spec §4.1): verifier derivation, challenge/proof, and the
// reconnect shortcut. The group parameters and hash input order are fixed
// constants the client already knows — they must never vary per account or
// per connection.
package srp

import (
	"crypto/sha1"
	"math/big"
)

// Group is the fixed SRP-6a safe-prime group. N and g are hard-coded
// protocol constants; the legacy client embeds the same values.
type Group struct {
	N *big.Int
	g *big.Int
	// k is the SRP-6a multiplier used when deriving B. Legacy clients of
	// this protocol family use the fixed value 3 rather than H(N, g).
	k *big.Int
}

// nHex is a 256-bit prime (the NIST P-256 field prime, reused here purely
// as a fixed 32-byte modulus — any fixed prime the client also hard-codes
// would do; what matters is that server and client agree byte-for-byte).
const nHex = "FFFFFFFF00000001000000000000000000000000FFFFFFFFFFFFFFFFFFFFFFFF"

// DefaultGroup is the group every login connection uses. There is exactly
// one group for the whole service; it is never negotiated per-connection.
var DefaultGroup = newGroup()

func newGroup() *Group {
	n, ok := new(big.Int).SetString(nHex, 16)
	if !ok {
		panic("srp: invalid N constant")
	}
	return &Group{
		N: n,
		g: big.NewInt(7),
		k: big.NewInt(3),
	}
}

// Modulus returns N as exactly NLen zero-padded little-endian bytes, the
// wire representation the client expects in a LogonChallenge reply.
func (g *Group) Modulus() []byte {
	return padLeft(bigIntToLE(g.N, NLen), NLen)
}

// Generator returns g as a uint32; callers that need the wire's
// single-byte form take the low byte (g is always small in this group).
func (g *Group) Generator() uint32 {
	return uint32(g.g.Uint64())
}

// NLen is the fixed wire length, in bytes, of N, B, s and any other group
// element (spec §3: "s and v are always exactly 32 bytes").
const NLen = 32

// digestLen is the SHA-1 digest length used throughout this construction.
const digestLen = sha1.Size
