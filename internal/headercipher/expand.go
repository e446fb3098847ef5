// Package headercipher implements the per-direction, per-connection frame
// header cipher described in spec §4.2. Unlike the teacher's whole-packet
// GameCrypt, this cipher only ever touches a fixed-length header prefix of
// each frame; the body travels in the clear.
package headercipher

import (
	"crypto/hmac"
	"crypto/sha1"
)

// expandKey derives the 16-byte rolling key for one direction from the SRP
// session key K via an HMAC-SHA1 expansion (spec §4.2: "seeded from K via an
// HMAC-style key expansion"). label distinguishes the send and receive
// directions so the two state blocks never collide even when seeded from
// the same K.
func expandKey(k []byte, label string) [16]byte {
	mac := hmac.New(sha1.New, k)
	mac.Write([]byte(label))
	sum := mac.Sum(nil)

	var out [16]byte
	copy(out[:], sum[:16])
	return out
}
