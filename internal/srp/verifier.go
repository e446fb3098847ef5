package srp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// GenerateSalt draws a fresh 32-byte random salt s (spec §4.1 step 1).
func GenerateSalt() ([]byte, error) {
	s := make([]byte, NLen)
	if _, err := rand.Read(s); err != nil {
		return nil, fmt.Errorf("srp: generating salt: %w", err)
	}
	return s, nil
}

// DeriveVerifier computes (s, v) for an account from its externally stored
// password hash I = H(upper(username) || ":" || password) (spec §4.1,
// steps 1-4). storedHash is that stored hash, in whatever length the store
// returned it — it is left-padded to 20 bytes and byte-reversed before use,
// exactly as the legacy client/server pair requires.
//
// (s, v) are each always returned as exactly 32 bytes (left-padded), per
// the storage invariant in spec §3.
func (g *Group) DeriveVerifier(storedHash []byte) (s, v []byte, err error) {
	s, err = GenerateSalt()
	if err != nil {
		return nil, nil, err
	}
	v = g.verifierFromSalt(s, storedHash)
	return s, v, nil
}

// verifierFromSalt recomputes v for a given (possibly cached) salt. Used
// both by DeriveVerifier and by any caller that needs to re-derive v from
// a persisted s without drawing a new salt.
func (g *Group) verifierFromSalt(s, storedHash []byte) []byte {
	i := reverseBytes(padLeft(storedHash, digestLen))
	x := leToBigInt(h(s, i))
	v := new(big.Int).Exp(g.g, x, g.N)
	return padLeft(bigIntToLE(v, NLen), NLen)
}
