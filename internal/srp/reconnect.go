package srp

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
)

// NewReconnectChallenge draws the 16-byte random reconnectProof the server
// sends when a client presents an account with a cached K (spec §4.1
// "Reconnect").
func NewReconnectChallenge() ([]byte, error) {
	buf := make([]byte, ReconnectProofLen)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("srp: generating reconnect challenge: %w", err)
	}
	return buf, nil
}

// ReconnectProofLen is the byte length of the reconnect challenge/response
// nonces.
const ReconnectProofLen = 16

// CheckReconnectProof verifies R2 == H(username || clientChallenge ||
// reconnectProof || K) (spec §4.1 "Reconnect"). username must already be
// upper-cased by the caller.
func CheckReconnectProof(username string, clientChallenge, reconnectProof, k, r2 []byte) bool {
	expected := h([]byte(username), clientChallenge, reconnectProof, k)
	return subtle.ConstantTimeCompare(expected, r2) == 1
}
