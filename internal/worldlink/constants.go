// Package worldlink implements the realm's side of the realm<->world
// uplink (spec §5 "three-tier topology": a new, analogous uplink to the
// teacher's GS<->LS link, built in the same idiom — length-prefixed
// frames, a connection table keyed by id, handler dispatch by
// (state, opcode)). Unlike internal/realmlink, this is a brand-new
// internal link with no legacy transport to carry forward, so it reuses
// the plain length-prefixed codec (internal/protocol.ReadPlainFrame)
// instead of the teacher's Blowfish framing.
package worldlink

// World->Realm opcodes (spec §6 "Realm<->world uplink").
const (
	OpLogin                 byte = 0x00
	OpKeepAlive              byte = 0x01
	OpWorldInstanceEntered   byte = 0x02
	OpWorldInstanceLeft      byte = 0x03
	OpWorldInstanceError     byte = 0x04
	OpClientProxyPacketUp    byte = 0x05
	OpCharacterData          byte = 0x06
	OpTeleportRequest        byte = 0x07
	OpCharacterGroupUpdate   byte = 0x08
	OpQuestUpdate            byte = 0x09
	OpCharacterSpawned       byte = 0x0A
	OpMailNotify             byte = 0x0B
)

// Realm->World opcodes.
const (
	OpLoginAnswer            byte = 0x80
	OpCharacterLogIn         byte = 0x81
	OpLeaveWorldInstance     byte = 0x82
	OpClientProxyPacketDown  byte = 0x83
	OpChatMessage            byte = 0x84
	OpIgnoreList             byte = 0x85
	OpItemData               byte = 0x86
	OpSpellLearned           byte = 0x87
	OpMoneyChange            byte = 0x88
	OpCharacterGroupChanged  byte = 0x89
)

// WorldInstanceLeft reasons (spec §4.4 step 10).
const (
	LeaveReasonLogout     byte = 0x00
	LeaveReasonTeleport   byte = 0x01
	LeaveReasonDisconnect byte = 0x02
)

// LoginAnswer result codes.
const (
	LoginAnswerOk      byte = 0x00
	LoginAnswerRejected byte = 0x01
)
