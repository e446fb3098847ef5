package model

import "time"

// Account is the login service's view of a player account (spec §3
// "Account"). PasswordHash is the externally-stored secret the SRP engine
// derives (s, v) from; SRPSalt/SRPVerifier are cached once derived so a
// reconnecting client does not force a fresh derivation every time.
type Account struct {
	Login        string
	PasswordHash []byte
	SRPSalt      []byte
	SRPVerifier  []byte
	SessionKeyK  []byte // cached K, set after a successful proof; nil before first login
	AccessLevel  int
	LastServer   int32
	LastIP       string
	LastActive   time.Time
	TutorialData []byte // opaque per-account blob, round-tripped through the realm uplink
}
