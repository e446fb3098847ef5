package realm

// Client->realm opcodes (spec §6 "Realm client-facing wire"). Every
// opcode the realm interprets locally has an entry in requiredStatus;
// anything else is forwarded verbatim to the bound world node once the
// client is LoggedIn (spec §4.4 "packet routing for LoggedIn"), and is
// simply rejected-and-dropped at any earlier status.
const (
	OpAuthSession uint16 = 0x0001
	OpPing        uint16 = 0x0002

	OpCharEnum   uint16 = 0x0010
	OpCharCreate uint16 = 0x0011
	OpCharDelete uint16 = 0x0012
	OpCharRename uint16 = 0x0013
	OpCharSelect uint16 = 0x0014 // PlayerLogin(characterId), spec §4.4 step 8

	OpWho uint16 = 0x0020

	OpMoveWorldPortAck uint16 = 0x0030 // spec §4.4.a transfer protocol
	OpLogoutRequest    uint16 = 0x0031
)

// Realm->client opcodes.
const (
	OpAuthChallenge uint16 = 0x0080
	OpAuthResponse  uint16 = 0x0081
	OpAddonInfo     uint16 = 0x0082

	OpCharEnumReply   uint16 = 0x0090
	OpCharCreateReply uint16 = 0x0091
	OpCharDeleteReply uint16 = 0x0092
	OpCharRenameReply uint16 = 0x0093

	OpTransferPending uint16 = 0x00A0
	OpNewWorld        uint16 = 0x00A1
	OpTransferAborted uint16 = 0x00A2
	OpEnterWorld      uint16 = 0x00A3 // composite "you are in the world" sequence
	OpLogoutComplete  uint16 = 0x00A4

	OpFriendRemoved    uint16 = 0x00B0
	OpCharRenamedBcast uint16 = 0x00B1
)

// AuthResponse/result codes.
const (
	AuthOk               byte = 0x00
	AuthFailVersion      byte = 0x01
	AuthFailBadHash      byte = 0x02
	AuthFailBanned       byte = 0x03
	AuthFailAlreadyOnRealm byte = 0x04
)

// CharCreate/Delete/Rename reply codes.
const (
	CharOk                   byte = 0x00
	CharCreateNameInUse      byte = 0x01
	CharCreateServerLimit    byte = 0x02
	CharCreateInvalidRace    byte = 0x03
	CharDeleteNotFound       byte = 0x04
	CharRenameNotAllowed     byte = 0x05
	CharRenameNameInUse      byte = 0x06
	CharSelectNotOwned       byte = 0x07
	CharSelectPendingRename  byte = 0x08
	CharSelectNoWorldNode    byte = 0x09
)

// requiredStatus maps every client opcode the realm handles itself to the
// set of statuses it may legally be received in. An opcode missing here
// is the spec's "Never" for direct dispatch: it is only ever valid as
// proxy-forwarded traffic from a LoggedIn client (handled separately by
// the dispatcher, not through this table).
var requiredStatus = map[uint16]statusMask{
	OpAuthSession: maskFor(StatusConnected),
	OpPing:        alwaysMask,

	OpCharEnum:   maskFor(StatusAuthenticated),
	OpCharCreate: maskFor(StatusAuthenticated),
	OpCharDelete: maskFor(StatusAuthenticated),
	OpCharRename: maskFor(StatusAuthenticated),
	OpCharSelect: maskFor(StatusAuthenticated),

	OpWho: maskFor(StatusLoggedIn),

	OpMoveWorldPortAck: maskFor(StatusTransferPending),
	OpLogoutRequest:    maskFor(StatusLoggedIn),
}
