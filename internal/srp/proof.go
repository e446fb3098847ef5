package srp

import (
	"crypto/subtle"
	"errors"
	"math/big"
)

// ErrInvalidA is returned when the client's public ephemeral A reduces to
// zero mod N (spec §4.1 step 1, §8 property 1: "A mod N == 0" covers
// A == 0, A == N, A == 2N, ... — all rejected identically, and without
// ever touching the store).
var ErrInvalidA = errors.New("srp: A mod N == 0")

// ErrProofMismatch is returned when the client's M1 does not match the
// value the server computes from A, B, K and the stored salt.
var ErrProofMismatch = errors.New("srp: proof mismatch")

// Proof is the result of a successful LogonProof exchange: the derived
// session key K and the server's own proof to echo back to the client.
type Proof struct {
	K          []byte // 40 bytes
	ServerHash []byte // H(A || M || K), 20 bytes
}

// VerifyProof implements spec §4.1 "Proof". username must already be
// upper-cased by the caller. s and v are the account's cached salt and
// verifier; A and M1 are the client-supplied values; b is the server's
// ephemeral secret from the matching Challenge.
//
// The A-mod-N check happens first and touches nothing else — callers must
// not perform any store lookup before calling this (or must already have
// s/v in hand from the Challenge step), so that a forged A never causes a
// store round-trip (§8 property 1).
func (g *Group) VerifyProof(username string, s, v, A, M1, b []byte) (*Proof, error) {
	bigA := leToBigInt(A)
	if new(big.Int).Mod(bigA, g.N).Sign() == 0 {
		return nil, ErrInvalidA
	}

	bBytes := bigBFromChallenge(v, b, g)
	u := leToBigInt(h(padLeft(A, NLen), bBytes))

	vInt := leToBigInt(v)

	// S = (A * v^u) ^ b mod N
	vu := new(big.Int).Exp(vInt, u, g.N)
	base := new(big.Int).Mul(bigA, vu)
	base.Mod(base, g.N)
	bigBExp := leToBigInt(b)
	s32 := new(big.Int).Exp(base, bigBExp, g.N)
	sBytes := padLeft(bigIntToLE(s32, NLen), NLen)

	k := expandSessionKey(sBytes)

	expected := expectedM(username, s, A, bBytes, k, g)

	if subtle.ConstantTimeCompare(expected, M1) != 1 {
		return nil, ErrProofMismatch
	}

	serverHash := h(A, expected, k)

	return &Proof{K: k, ServerHash: serverHash}, nil
}

// bigBFromChallenge recomputes B = (3v + g^b mod N) mod N. Kept as a pure
// function of (v, b) so VerifyProof does not need to carry the *Challenge
// object across the request boundary — only the raw b it persisted.
func bigBFromChallenge(v, b []byte, g *Group) []byte {
	vInt := leToBigInt(v)
	bInt := leToBigInt(b)
	gb := new(big.Int).Exp(g.g, bInt, g.N)
	bVal := new(big.Int).Mul(g.k, vInt)
	bVal.Add(bVal, gb)
	bVal.Mod(bVal, g.N)
	return padLeft(bigIntToLE(bVal, NLen), NLen)
}

// expandSessionKey implements the interleaved odd/even-byte session-key
// expansion (spec §4.1 step 4): split S into its even-index and odd-index
// bytes (16 bytes each), SHA-1 each half, then interleave the two 20-byte
// digests into a 40-byte K. This exact construction must match the legacy
// client byte-for-byte — it is not a generic KDF.
func expandSessionKey(s []byte) []byte {
	half := len(s) / 2
	even := make([]byte, half)
	odd := make([]byte, half)
	for i := 0; i < len(s); i++ {
		if i%2 == 0 {
			even[i/2] = s[i]
		} else {
			odd[i/2] = s[i]
		}
	}

	evenHash := h(even)
	oddHash := h(odd)

	k := make([]byte, digestLen*2)
	for i := 0; i < digestLen; i++ {
		k[2*i] = evenHash[i]
		k[2*i+1] = oddHash[i]
	}
	return k
}

// expectedM computes M = H( H(N) xor H(g) || H(upper(username)) || s || A || B || K ).
func expectedM(username string, s, a, b, k []byte, g *Group) []byte {
	hn := h(padLeft(bigIntToLE(g.N, NLen), NLen))
	hg := h(bigIntToLE(g.g, 1))

	xorred := make([]byte, digestLen)
	for i := range xorred {
		xorred[i] = hn[i] ^ hg[i]
	}

	hu := h([]byte(username))

	return h(xorred, hu, s, padLeft(a, NLen), b, k)
}
