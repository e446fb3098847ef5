package srp

import (
	"crypto/sha1"
	"math/big"
)

// leToBigInt interprets b as a little-endian byte string and returns the
// corresponding big.Int (spec §4.1 step 3: "x ... interpreted little-endian
// into a big integer").
func leToBigInt(b []byte) *big.Int {
	rev := make([]byte, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(rev)
}

// bigIntToLE serializes x as exactly n little-endian bytes, left-padding
// (in big-endian terms — i.e. padding at the high end) with zeros when x
// is shorter than n bytes. Panics if x needs more than n bytes: callers
// must only use this for values already reduced mod N.
func bigIntToLE(x *big.Int, n int) []byte {
	be := x.Bytes()
	if len(be) > n {
		panic("srp: value does not fit in requested length")
	}
	out := make([]byte, n)
	for i, v := range be {
		out[n-1-i] = v
	}
	return out
}

// padLeft pads b on the left with zero bytes until it is exactly n bytes
// long. Used for the stored (s, v) pair (spec §3 invariant: "s and v are
// always exactly 32 bytes when stored; shorter values ... are left-padded").
func padLeft(b []byte, n int) []byte {
	if len(b) >= n {
		return b[len(b)-n:]
	}
	out := make([]byte, n)
	copy(out[n-len(b):], b)
	return out
}

// reverseBytes returns a new slice with the byte order reversed.
func reverseBytes(b []byte) []byte {
	out := make([]byte, len(b))
	for i, v := range b {
		out[len(b)-1-i] = v
	}
	return out
}

// h is the protocol's one-way hash function: SHA-1, digest length 20
// (spec §4.1: "Hash is SHA-1, digest length 20").
func h(parts ...[]byte) []byte {
	d := sha1.New()
	for _, p := range parts {
		d.Write(p)
	}
	return d.Sum(nil)
}
