package srp

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Challenge is the server-side half of the SRP challenge step (spec §4.1
// "Challenge"): a fresh ephemeral secret b, the corresponding public value
// B, and the unrelated 16-byte pad the legacy client expects in the same
// frame.
type Challenge struct {
	B    []byte // 32 bytes, zero-padded
	B3   *big.Int
	b    []byte // 19-byte private exponent, kept to compute the proof later
	Unk3 [16]byte
}

// NewChallenge draws b and derives B = (3v + g^b mod N) mod N (spec §4.1
// steps 1-3), plus a fresh unrelated 16-byte pad.
func (g *Group) NewChallenge(v []byte) (*Challenge, error) {
	b := make([]byte, EphemeralBLen)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("srp: generating b: %w", err)
	}

	bigB := leToBigInt(b)
	vInt := leToBigInt(v)

	gb := new(big.Int).Exp(g.g, bigB, g.N)
	bVal := new(big.Int).Mul(g.k, vInt)
	bVal.Add(bVal, gb)
	bVal.Mod(bVal, g.N)

	var unk3 [16]byte
	if _, err := rand.Read(unk3[:]); err != nil {
		return nil, fmt.Errorf("srp: generating unk3: %w", err)
	}

	return &Challenge{
		B:    padLeft(bigIntToLE(bVal, NLen), NLen),
		B3:   bVal,
		b:    b,
		Unk3: unk3,
	}, nil
}

// EphemeralBLen is the byte length the server draws b from (spec §4.1
// step 1: "Draw b uniformly at random, 19 bytes").
const EphemeralBLen = 19

// PrivateB returns the server's ephemeral secret b, needed by VerifyProof
// to recompute S from the client's A.
func (c *Challenge) PrivateB() []byte {
	return c.b
}
