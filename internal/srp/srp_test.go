package srp

import (
	"crypto/sha1"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

// clientSideHandshake reimplements the client's half of SRP-6a so the
// tests can exercise the full server flow without a real legacy client.
func clientSideHandshake(t *testing.T, g *Group, username string, storedHash []byte, s, serverB []byte) (A, M1 []byte, a []byte) {
	t.Helper()

	a = make([]byte, EphemeralBLen+1)
	for i := range a {
		a[i] = byte(i + 7)
	}
	aInt := leToBigInt(a)
	bigA := new(big.Int).Exp(g.g, aInt, g.N)
	A = padLeft(bigIntToLE(bigA, NLen), NLen)

	i := reverseBytes(padLeft(storedHash, digestLen))
	x := leToBigInt(h(s, i))

	bigB := leToBigInt(serverB)
	u := leToBigInt(h(padLeft(A, NLen), padLeft(serverB, NLen)))

	// S = (B - k*g^x) ^ (a + u*x) mod N
	gx := new(big.Int).Exp(g.g, x, g.N)
	kgx := new(big.Int).Mul(g.k, gx)
	base := new(big.Int).Sub(bigB, kgx)
	base.Mod(base, g.N)

	exp := new(big.Int).Mul(u, x)
	exp.Add(exp, aInt)

	sInt := new(big.Int).Exp(base, exp, g.N)
	sBytes := padLeft(bigIntToLE(sInt, NLen), NLen)

	k := expandSessionKey(sBytes)
	M1 = expectedM(username, s, A, padLeft(serverB, NLen), k, g)
	return A, M1, a
}

func hashAccountSecret(username, password string) []byte {
	d := sha1.New()
	d.Write([]byte(username + ":" + password))
	return d.Sum(nil)
}

func TestFullHandshakeSucceeds(t *testing.T) {
	g := DefaultGroup
	username := "ALICE"
	storedHash := hashAccountSecret(username, "hunter2")

	s, v, err := g.DeriveVerifier(storedHash)
	require.NoError(t, err)
	require.Len(t, s, NLen)
	require.Len(t, v, NLen)

	ch, err := g.NewChallenge(v)
	require.NoError(t, err)
	require.Len(t, ch.B, NLen)

	A, M1, _ := clientSideHandshake(t, g, username, storedHash, s, ch.B)

	proof, err := g.VerifyProof(username, s, v, A, M1, ch.b)
	require.NoError(t, err)
	require.Len(t, proof.K, 40)
	require.Len(t, proof.ServerHash, digestLen)
}

func TestWrongPasswordFailsWithoutLeakingWhich(t *testing.T) {
	g := DefaultGroup
	username := "ALICE"
	storedHash := hashAccountSecret(username, "hunter2")

	s, v, err := g.DeriveVerifier(storedHash)
	require.NoError(t, err)

	ch, err := g.NewChallenge(v)
	require.NoError(t, err)

	wrongHash := hashAccountSecret(username, "wrong-password")
	A, M1, _ := clientSideHandshake(t, g, username, wrongHash, s, ch.B)

	_, err = g.VerifyProof(username, s, v, A, M1, ch.b)
	require.ErrorIs(t, err, ErrProofMismatch)
}

func TestInvalidAIsRejectedWithoutComputation(t *testing.T) {
	g := DefaultGroup
	username := "ALICE"
	storedHash := hashAccountSecret(username, "hunter2")
	s, v, err := g.DeriveVerifier(storedHash)
	require.NoError(t, err)
	ch, err := g.NewChallenge(v)
	require.NoError(t, err)

	for _, bad := range [][]byte{
		make([]byte, NLen),                      // A == 0
		padLeft(bigIntToLE(g.N, NLen), NLen),     // A == N
		bigIntToLE(new(big.Int).Mul(g.N, big.NewInt(2)), NLen+1), // A == 2N (needs NLen+1 bytes)
	} {
		_, err := g.VerifyProof(username, s, v, bad, make([]byte, digestLen), ch.b)
		require.ErrorIs(t, err, ErrInvalidA)
	}
}

func TestDeriveVerifierIsDeterministicForFixedSalt(t *testing.T) {
	g := DefaultGroup
	storedHash := hashAccountSecret("BOB", "correcthorse")
	s, _, err := g.DeriveVerifier(storedHash)
	require.NoError(t, err)

	v1 := g.verifierFromSalt(s, storedHash)
	v2 := g.verifierFromSalt(s, storedHash)
	require.Equal(t, v1, v2)
}

func TestReconnectProofRoundTrip(t *testing.T) {
	k := make([]byte, 40)
	for i := range k {
		k[i] = byte(i)
	}
	clientChallenge := []byte("client-nonce-16b")
	reconnectProof, err := NewReconnectChallenge()
	require.NoError(t, err)

	r2 := h([]byte("ALICE"), clientChallenge, reconnectProof, k)
	require.True(t, CheckReconnectProof("ALICE", clientChallenge, reconnectProof, k, r2))
	require.False(t, CheckReconnectProof("ALICE", clientChallenge, reconnectProof, k, make([]byte, digestLen)))
}
