package worldlink

import (
	"encoding/binary"
	"fmt"

	"github.com/realmbroker/realmd/internal/protocol"
)

func writeInt32(buf []byte, pos int, v int32) int {
	binary.LittleEndian.PutUint32(buf[pos:], uint32(v))
	return pos + 4
}

func writeInt64(buf []byte, pos int, v int64) int {
	binary.LittleEndian.PutUint64(buf[pos:], uint64(v))
	return pos + 8
}

func writeUint32(buf []byte, pos int, v uint32) int {
	binary.LittleEndian.PutUint32(buf[pos:], v)
	return pos + 4
}

func writeString(buf []byte, pos int, s string) int {
	buf[pos] = byte(len(s))
	pos++
	copy(buf[pos:], s)
	return pos + len(s)
}

// LoginFrame is a world node's first frame on its uplink: the set of
// map ids it simulates (spec §3 "WorldConnection: set of supported map
// ids").
type LoginFrame struct {
	ProtocolVersion int32
	MapIDs          []int32
}

func ParseLoginFrame(body []byte) (*LoginFrame, error) {
	r := protocol.NewReader(body)
	version, err := r.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("worldlink: Login.ProtocolVersion: %w", err)
	}
	count, err := r.ReadUint16()
	if err != nil {
		return nil, fmt.Errorf("worldlink: Login.MapCount: %w", err)
	}
	mapIDs := make([]int32, count)
	for i := range mapIDs {
		mapIDs[i], err = r.ReadInt32()
		if err != nil {
			return nil, fmt.Errorf("worldlink: Login.MapIDs[%d]: %w", i, err)
		}
	}
	return &LoginFrame{ProtocolVersion: version, MapIDs: mapIDs}, nil
}

// WriteLoginAnswer replies to a world node's Login frame.
func WriteLoginAnswer(buf []byte, result byte) int {
	buf[0] = OpLoginAnswer
	buf[1] = result
	return 2
}

// WorldInstanceEnteredFrame (spec §4.4 step 9): the world node confirms
// the character is now live, optionally in instanceID (0 = overworld, no
// instance).
type WorldInstanceEnteredFrame struct {
	CharacterID uint32
	InstanceID  int64
}

func ParseWorldInstanceEntered(body []byte) (*WorldInstanceEnteredFrame, error) {
	r := protocol.NewReader(body)
	charID, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("worldlink: WorldInstanceEntered.CharacterID: %w", err)
	}
	instanceID, err := r.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("worldlink: WorldInstanceEntered.InstanceID: %w", err)
	}
	return &WorldInstanceEnteredFrame{CharacterID: charID, InstanceID: instanceID}, nil
}

// WorldInstanceLeftFrame (spec §4.4 step 10).
type WorldInstanceLeftFrame struct {
	CharacterID uint32
	Reason      byte
}

func ParseWorldInstanceLeft(body []byte) (*WorldInstanceLeftFrame, error) {
	r := protocol.NewReader(body)
	charID, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("worldlink: WorldInstanceLeft.CharacterID: %w", err)
	}
	reason, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("worldlink: WorldInstanceLeft.Reason: %w", err)
	}
	return &WorldInstanceLeftFrame{CharacterID: charID, Reason: reason}, nil
}

// WorldInstanceErrorFrame reports that a CharacterLogIn could not be
// honoured (e.g. the instance failed to spin up).
type WorldInstanceErrorFrame struct {
	CharacterID uint32
	Reason      byte
}

func ParseWorldInstanceError(body []byte) (*WorldInstanceErrorFrame, error) {
	r := protocol.NewReader(body)
	charID, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("worldlink: WorldInstanceError.CharacterID: %w", err)
	}
	reason, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("worldlink: WorldInstanceError.Reason: %w", err)
	}
	return &WorldInstanceErrorFrame{CharacterID: charID, Reason: reason}, nil
}

// CharacterDataFrame writes back a character's authoritative position,
// kept as the realm's shadow (spec §3 "GameCharacter... shadow updated
// via world->realm state-sync").
type CharacterDataFrame struct {
	CharacterID uint32
	MapID       int32
	X, Y, Z     int32
	Heading     int32
}

func ParseCharacterData(body []byte) (*CharacterDataFrame, error) {
	r := protocol.NewReader(body)
	var f CharacterDataFrame
	var err error
	if f.CharacterID, err = r.ReadUint32(); err != nil {
		return nil, fmt.Errorf("worldlink: CharacterData.CharacterID: %w", err)
	}
	if f.MapID, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("worldlink: CharacterData.MapID: %w", err)
	}
	if f.X, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("worldlink: CharacterData.X: %w", err)
	}
	if f.Y, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("worldlink: CharacterData.Y: %w", err)
	}
	if f.Z, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("worldlink: CharacterData.Z: %w", err)
	}
	if f.Heading, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("worldlink: CharacterData.Heading: %w", err)
	}
	return &f, nil
}

// CharacterGroupUpdateFrame reports a character's live group id changing
// from the world node's side (e.g. a world-local group action).
type CharacterGroupUpdateFrame struct {
	CharacterID uint32
	GroupID     int64
}

func ParseCharacterGroupUpdate(body []byte) (*CharacterGroupUpdateFrame, error) {
	r := protocol.NewReader(body)
	charID, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("worldlink: CharacterGroupUpdate.CharacterID: %w", err)
	}
	groupID, err := r.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("worldlink: CharacterGroupUpdate.GroupID: %w", err)
	}
	return &CharacterGroupUpdateFrame{CharacterID: charID, GroupID: groupID}, nil
}

// MailNotifyFrame updates a character's unread-mail count (spec §3
// "unread mail count" on ClientConnection (realm)).
type MailNotifyFrame struct {
	CharacterID uint32
	Unread      int32
}

func ParseMailNotify(body []byte) (*MailNotifyFrame, error) {
	r := protocol.NewReader(body)
	charID, err := r.ReadUint32()
	if err != nil {
		return nil, fmt.Errorf("worldlink: MailNotify.CharacterID: %w", err)
	}
	unread, err := r.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("worldlink: MailNotify.Unread: %w", err)
	}
	return &MailNotifyFrame{CharacterID: charID, Unread: unread}, nil
}

// GameCharacterSnapshot is everything a world node needs to spawn a
// character, handed over on CharacterLogIn (spec §4.4 step 8).
type GameCharacterSnapshot struct {
	AccountLogin string
	Name         string
	MapID        int32
	X, Y, Z      int32
	Heading      int32
}

// CharacterLogInFrame asks a world node to bring a character into play,
// optionally into a specific instance (spec §4.4 step 8; instanceID <= 0
// means "no instance, overworld").
type CharacterLogInFrame struct {
	CharacterID uint32
	InstanceID  int64
	Snapshot    GameCharacterSnapshot
}

// WriteCharacterLogIn encodes a CharacterLogIn frame (realm->world).
func WriteCharacterLogIn(buf []byte, f CharacterLogInFrame) int {
	pos := 0
	buf[pos] = OpCharacterLogIn
	pos++
	pos = int(writeUint32(buf, pos, f.CharacterID))
	pos = writeInt64(buf, pos, f.InstanceID)
	pos = writeString(buf, pos, f.Snapshot.AccountLogin)
	pos = writeString(buf, pos, f.Snapshot.Name)
	pos = writeInt32(buf, pos, f.Snapshot.MapID)
	pos = writeInt32(buf, pos, f.Snapshot.X)
	pos = writeInt32(buf, pos, f.Snapshot.Y)
	pos = writeInt32(buf, pos, f.Snapshot.Z)
	pos = writeInt32(buf, pos, f.Snapshot.Heading)
	return pos
}

// WriteLeaveWorldInstance asks a world node to remove characterID from
// play (spec §4.4.a "asks current world node to leave").
func WriteLeaveWorldInstance(buf []byte, characterID uint32) int {
	buf[0] = OpLeaveWorldInstance
	writeUint32(buf, 1, characterID)
	return 5
}

// ChatMessageFrame relays a chat line the realm resolved (e.g. a
// cross-realm whisper) down to the world node that owns the sender.
type ChatMessageFrame struct {
	CharacterID uint32
	Text        string
}

// WriteChatMessage encodes a ChatMessage frame (realm->world).
func WriteChatMessage(buf []byte, f ChatMessageFrame) int {
	pos := 0
	buf[pos] = OpChatMessage
	pos++
	pos = int(writeUint32(buf, pos, f.CharacterID))
	pos = writeString(buf, pos, f.Text)
	return pos
}

// IgnoreListFrame pushes a character's current ignore set down to its
// world node, so world-local chat can drop blocked senders without a
// realm round trip per message.
type IgnoreListFrame struct {
	CharacterID uint32
	Ignored     []uint32
}

// WriteIgnoreList encodes an IgnoreList frame (realm->world).
func WriteIgnoreList(buf []byte, f IgnoreListFrame) int {
	pos := 0
	buf[pos] = OpIgnoreList
	pos++
	pos = int(writeUint32(buf, pos, f.CharacterID))
	binary.LittleEndian.PutUint16(buf[pos:], uint16(len(f.Ignored)))
	pos += 2
	for _, id := range f.Ignored {
		pos = int(writeUint32(buf, pos, id))
	}
	return pos
}

// WriteCharacterGroupChanged tells a world node a character's group id
// changed, so it can update in-world party UI state.
func WriteCharacterGroupChanged(buf []byte, characterID uint32, groupID int64) int {
	buf[0] = OpCharacterGroupChanged
	pos := 1
	pos = int(writeUint32(buf, pos, characterID))
	pos = writeInt64(buf, pos, groupID)
	return pos
}
