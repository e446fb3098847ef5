package model

import "github.com/realmbroker/realmd/internal/constants"

// GUID is the cross-realm object identifier presented to clients (spec §3
// "Cross-realm GUID", §8 property 7): the low 32 bits are the character's
// database id, the next 8 bits its object kind, and the top 24 bits the
// realm id it currently lives on.
type GUID uint64

// PackGUID combines a database id, object kind and realm id into a GUID.
// The round-trip invariant (UnpackDBID(PackGUID(d, k, r)) == d for any d
// that fits in 32 bits) is what every CharEnum response relies on.
func PackGUID(dbID uint32, kind uint8, realmID uint32) GUID {
	g := uint64(dbID) & constants.GUIDDBIDMask
	g |= (uint64(kind) & constants.GUIDKindMask) << constants.GUIDDBIDBits
	g |= uint64(realmID) << (constants.GUIDDBIDBits + constants.GUIDKindBits)
	return GUID(g)
}

// UnpackDBID extracts the low-32-bit database id from a GUID.
func (g GUID) UnpackDBID() uint32 {
	return uint32(uint64(g) & constants.GUIDDBIDMask)
}

// UnpackKind extracts the object kind byte from a GUID.
func (g GUID) UnpackKind() uint8 {
	return uint8((uint64(g) >> constants.GUIDDBIDBits) & constants.GUIDKindMask)
}

// UnpackRealmID extracts the realm id a GUID was packed against.
func (g GUID) UnpackRealmID() uint32 {
	return uint32(uint64(g) >> (constants.GUIDDBIDBits + constants.GUIDKindBits))
}
