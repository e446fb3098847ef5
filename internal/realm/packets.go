package realm

import (
	"encoding/binary"
	"fmt"

	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/model"
	"github.com/realmbroker/realmd/internal/protocol"
)

func writeUint32(buf []byte, pos int, v uint32) int {
	binary.LittleEndian.PutUint32(buf[pos:], v)
	return pos + 4
}

func writeUint64(buf []byte, pos int, v uint64) int {
	binary.LittleEndian.PutUint64(buf[pos:], v)
	return pos + 8
}

func writeString(buf []byte, pos int, s string) int {
	buf[pos] = byte(len(s))
	pos++
	copy(buf[pos:], s)
	return pos + len(s)
}

// writeAuthChallenge encodes the first frame the realm ever sends a
// client: the server seed AuthSession must echo back into its hash (spec
// §4.4 step 1).
func writeAuthChallenge(buf []byte, serverSeed uint32) int {
	return int(writeUint32(buf, 0, serverSeed))
}

// authSessionFrame is a parsed AuthSession request (spec §4.4 step 2).
type authSessionFrame struct {
	ClientBuild int32
	AccountName string
	ClientSeed  uint32
	ClientHash  [20]byte
	Locale      string
}

func parseAuthSession(body []byte) (*authSessionFrame, error) {
	r := protocol.NewReader(body)
	var f authSessionFrame
	var err error
	if f.ClientBuild, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("realm: AuthSession.ClientBuild: %w", err)
	}
	if f.AccountName, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("realm: AuthSession.AccountName: %w", err)
	}
	if f.ClientSeed, err = r.ReadUint32(); err != nil {
		return nil, fmt.Errorf("realm: AuthSession.ClientSeed: %w", err)
	}
	hash, err := r.ReadBytes(20)
	if err != nil {
		return nil, fmt.Errorf("realm: AuthSession.ClientHash: %w", err)
	}
	copy(f.ClientHash[:], hash)
	if f.Locale, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("realm: AuthSession.Locale: %w", err)
	}
	return &f, nil
}

// writeAuthResponse encodes the realm's verdict on AuthSession.
func writeAuthResponse(buf []byte, result byte) int {
	buf[0] = result
	return 1
}

// writeAddonInfo encodes a minimal addon-proof reply: no addons are
// validated server-side, so this just closes out the handshake the
// client expects after AuthResponse(Ok).
func writeAddonInfo(buf []byte) int {
	buf[0] = 0
	return 1
}

// writeCharEnumReply encodes the character list (spec §4.4 step 4),
// cross-realm GUID-packed per the GLOSSARY.
func writeCharEnumReply(buf []byte, realmID int32, characters []model.CharacterSummary) int {
	pos := 0
	buf[pos] = byte(len(characters))
	pos++
	for _, c := range characters {
		guid := model.PackGUID(c.DatabaseID, constants.ObjectKindPlayer, uint32(realmID))
		pos = writeUint64(buf, pos, uint64(guid))
		pos = writeString(buf, pos, c.Name)
		buf[pos] = byte(c.Race)
		pos++
		pos = writeUint32(buf, pos, uint32(int32(c.ClassID)))
		pos = writeUint32(buf, pos, uint32(c.Level))
		pos = writeUint32(buf, pos, uint32(c.MapID))
		pos = writeUint32(buf, pos, uint32(c.AtLogin))
	}
	return pos
}

// charCreateFrame is a parsed CharCreate request.
type charCreateFrame struct {
	Name    string
	Race    int8
	ClassID int16
}

func parseCharCreate(body []byte) (*charCreateFrame, error) {
	r := protocol.NewReader(body)
	var f charCreateFrame
	var err error
	if f.Name, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("realm: CharCreate.Name: %w", err)
	}
	race, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("realm: CharCreate.Race: %w", err)
	}
	f.Race = int8(race)
	classID, err := r.ReadInt16()
	if err != nil {
		return nil, fmt.Errorf("realm: CharCreate.ClassID: %w", err)
	}
	f.ClassID = classID
	return &f, nil
}

func writeCharCreateReply(buf []byte, result byte) int {
	buf[0] = result
	return 1
}

// parseCharacterGUID reads a single cross-realm GUID argument, used by
// CharDelete, CharRename and PlayerLogin(characterId).
func parseCharacterGUID(body []byte) (model.GUID, error) {
	r := protocol.NewReader(body)
	v, err := r.ReadInt64()
	if err != nil {
		return 0, fmt.Errorf("realm: characterId: %w", err)
	}
	return model.GUID(uint64(v)), nil
}

func writeCharDeleteReply(buf []byte, result byte) int {
	buf[0] = result
	return 1
}

// charRenameFrame is a parsed CharRename request.
type charRenameFrame struct {
	CharacterID model.GUID
	NewName     string
}

func parseCharRename(body []byte) (*charRenameFrame, error) {
	r := protocol.NewReader(body)
	guid, err := r.ReadInt64()
	if err != nil {
		return nil, fmt.Errorf("realm: CharRename.CharacterId: %w", err)
	}
	name, err := r.ReadPrefixedString()
	if err != nil {
		return nil, fmt.Errorf("realm: CharRename.NewName: %w", err)
	}
	return &charRenameFrame{CharacterID: model.GUID(uint64(guid)), NewName: name}, nil
}

func writeCharRenameReply(buf []byte, guid model.GUID, newName string, result byte) int {
	pos := 0
	buf[pos] = result
	pos++
	pos = writeUint64(buf, pos, uint64(guid))
	pos = writeString(buf, pos, newName)
	return pos
}

// writeCharRenamedBroadcast announces a name change realm-locally (spec §9
// open-question decision: rename broadcasts never cross realms).
func writeCharRenamedBroadcast(buf []byte, guid model.GUID, newName string) int {
	pos := 0
	pos = writeUint64(buf, pos, uint64(guid))
	pos = writeString(buf, pos, newName)
	return pos
}

// writeFriendRemoved tells a connected friend that victimGUID no longer
// exists (spec §4.4 step 6 "CharDelete broadcasts to friend lists").
func writeFriendRemoved(buf []byte, victimGUID model.GUID) int {
	return int(writeUint64(buf, 0, uint64(victimGUID)))
}

func writeCharLoginFailed(buf []byte, result byte) int {
	buf[0] = result
	return 1
}

// writeTransferPending announces the mapId the client is about to be
// transferred to (spec §4.4.a step 1).
func writeTransferPending(buf []byte, mapID int32) int {
	return int(writeUint32(buf, 0, uint32(mapID)))
}

// writeNewWorld hands the client the coordinates to render at on the
// destination map (spec §4.4.a step 2).
func writeNewWorld(buf []byte, mapID, x, y, z, heading int32) int {
	pos := 0
	pos = writeUint32(buf, pos, uint32(mapID))
	pos = writeUint32(buf, pos, uint32(x))
	pos = writeUint32(buf, pos, uint32(y))
	pos = writeUint32(buf, pos, uint32(z))
	pos = writeUint32(buf, pos, uint32(heading))
	return pos
}

func writeTransferAborted(buf []byte, reason byte) int {
	buf[0] = reason
	return 1
}

// writeEnterWorld composes the "you are in the world" reply once the
// world node has confirmed WorldInstanceEntered (spec §4.4 step 9).
func writeEnterWorld(buf []byte, guid model.GUID) int {
	return int(writeUint64(buf, 0, uint64(guid)))
}

func writeLogoutComplete(buf []byte) int {
	return 0
}

// whoRequestFrame is a parsed Who request (spec §4.4 "Who command").
type whoRequestFrame struct {
	MinLevel, MaxLevel int32
	ZoneFilters        []int32
	StringFilters       []string
}

func parseWhoRequest(body []byte, maxZoneFilters, maxStringFilters int) (*whoRequestFrame, error) {
	r := protocol.NewReader(body)
	var f whoRequestFrame
	var err error
	if f.MinLevel, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("realm: Who.MinLevel: %w", err)
	}
	if f.MaxLevel, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("realm: Who.MaxLevel: %w", err)
	}
	zoneCount, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("realm: Who.ZoneCount: %w", err)
	}
	if int(zoneCount) > maxZoneFilters {
		return nil, fmt.Errorf("realm: Who request carries %d zone filters, max %d", zoneCount, maxZoneFilters)
	}
	f.ZoneFilters = make([]int32, zoneCount)
	for i := range f.ZoneFilters {
		if f.ZoneFilters[i], err = r.ReadInt32(); err != nil {
			return nil, fmt.Errorf("realm: Who.ZoneFilters[%d]: %w", i, err)
		}
	}
	strCount, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("realm: Who.StringCount: %w", err)
	}
	if int(strCount) > maxStringFilters {
		return nil, fmt.Errorf("realm: Who request carries %d string filters, max %d", strCount, maxStringFilters)
	}
	f.StringFilters = make([]string, strCount)
	for i := range f.StringFilters {
		if f.StringFilters[i], err = r.ReadPrefixedString(); err != nil {
			return nil, fmt.Errorf("realm: Who.StringFilters[%d]: %w", i, err)
		}
	}
	return &f, nil
}

func writeWhoReply(buf []byte, names []string) int {
	pos := 0
	buf[pos] = byte(len(names))
	pos++
	for _, name := range names {
		pos = writeString(buf, pos, name)
	}
	return pos
}

// moveWorldPortAckFrame acknowledges a NewWorld frame (spec §4.4.a step
// 3): the client confirms it finished rendering the destination map, so
// the realm can complete the handoff to the new world node.
type moveWorldPortAckFrame struct{}

func parseMoveWorldPortAck(body []byte) (*moveWorldPortAckFrame, error) {
	return &moveWorldPortAckFrame{}, nil
}
