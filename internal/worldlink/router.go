package worldlink

// ClientRouter is the realm-side callback surface the world uplink drives.
// It is implemented by realm.Server; defining it here (rather than
// importing internal/realm) keeps the dependency one-directional — realm
// imports worldlink, never the reverse.
type ClientRouter interface {
	// WorldInstanceEntered delivers spec §4.4 step 9: the character is now
	// live on the world node, in instanceID (0 = overworld).
	WorldInstanceEntered(characterID uint32, instanceID int64) error

	// WorldInstanceLeft delivers spec §4.4 step 10.
	WorldInstanceLeft(characterID uint32, reason byte) error

	// WorldInstanceError reports that CharacterLogIn failed; the realm
	// aborts any pending transfer and returns the client to its last good
	// state.
	WorldInstanceError(characterID uint32, reason byte) error

	// DeliverProxyPacket hands an unrecognised opcode from a world node
	// back up to the bound client, byte-transparent (spec §4.5).
	DeliverProxyPacket(characterID uint32, opcode uint16, body []byte) error

	// SaveCharacterPosition records the world node's authoritative shadow
	// of a character's position.
	SaveCharacterPosition(characterID uint32, mapID, x, y, z, heading int32) error

	// UpdateGroupID applies a group-id change reported from world-local
	// state.
	UpdateGroupID(characterID uint32, groupID int64) error

	// UpdateUnreadMail applies a mail-count change reported by a world
	// node.
	UpdateUnreadMail(characterID uint32, unread int32) error
}
