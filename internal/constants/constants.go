// Package constants collects protocol-level constants shared across the
// login service, the realm service, and the uplinks between them.
package constants

import "time"

// Buffer pool sizes, mirrored across both services (§5 reactor I/O).
const (
	DefaultSendBufSize = 512
	DefaultReadBufSize = 512

	RealmLinkSendBufSize = 1024
	RealmLinkReadBufSize = 8192

	WorldLinkSendBufSize = 2048
	WorldLinkReadBufSize = 16384

	ClientSendBufSize = 2048
	ClientReadBufSize = 8192
)

// Packet framing. PacketHeaderSize is the 2-byte little-endian length
// prefix of the login client's plain frames and of the login<->realm and
// realm<->world uplinks. The realm client wire does not use it: its
// headers are 4 bytes inbound and 5 bytes outbound, with a big-endian size.
const (
	PacketHeaderSize = 2
)

// SRP-6a session lifetime and cadence (§4.3, §5).
const (
	LoginIdleTimeout  = 60 * time.Second
	RealmListWindow   = 10 * time.Second
	RealmListBurst    = 3
	MaxOnlineRealms   = 255
	ReconnectPadLen   = 16
	UnknownPadLen     = 16
	SaltLen           = 32
	VerifierLen       = 32
	SessionKeyLen     = 40
	EphemeralPrivBLen = 19
)

// Login↔realm and realm↔world uplink cadence (§4.3, §5).
const (
	UplinkKeepAliveInterval = 30 * time.Second
	UplinkIdleTimeout       = 30 * time.Second
)

// Realm FSM rate limits (§4.4).
const (
	WhoRequestCooldown  = 6 * time.Second
	MaxCharactersPerAcc = 11
	MaxWhoZoneFilters   = 10
	MaxWhoStringFilters = 4

	RealmIdleTimeoutDefault = 60 * time.Second
)

// Cross-realm GUID bit layout (GLOSSARY: "Cross-realm GUID"). A GUID packs
// the database id, an object-kind tag, and the owning realm id into a
// single uint64 so that ids stay unique across the cluster.
//
//	bits 0..31  database id (uint32)
//	bits 32..39 object kind (uint8)
//	bits 40..63 realm id (low 24 bits)
const (
	GUIDDBIDBits  = 32
	GUIDKindBits  = 8
	GUIDRealmBits = 24

	GUIDDBIDMask = (uint64(1) << GUIDDBIDBits) - 1
	GUIDKindMask = (uint64(1) << GUIDKindBits) - 1
)

// Object kinds packed into a cross-realm GUID.
const (
	ObjectKindPlayer uint8 = 1
	ObjectKindPet    uint8 = 2
	ObjectKindItem   uint8 = 3
)

// Blowfish/XOR framing constants for the realm↔login uplink handshake
// (§4.3 "Login↔realm side channel"). The uplink is the one piece of this
// system that still speaks the teacher's legacy Blowfish-wrapped framing
// rather than the SRP/header-cipher schemes used for client traffic.
const (
	BlowfishBlockSize     = 8
	PacketChecksumSize    = 4
	XOREncryptSkipBytes   = 4
	XOREncryptStopOffset  = 8
)
