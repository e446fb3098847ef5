package realmlink

import (
	"fmt"

	"github.com/realmbroker/realmd/internal/protocol"
)

// writeRealmLoginFrame encodes the realm's RealmLogin request, the mirror
// of ParseRealmLoginFrame.
func writeRealmLoginFrame(buf []byte, f RealmLoginFrame) int {
	pos := 0
	buf[pos] = OpcodeRealmLogin
	pos++
	writeInt32(buf, pos, f.ProtocolVersion)
	pos += 4
	pos = writePrefixedString(buf, pos, f.Password)
	pos = writePrefixedString(buf, pos, f.InternalName)
	pos = writePrefixedString(buf, pos, f.VisibleName)
	pos = writePrefixedString(buf, pos, f.Host)
	writeInt32(buf, pos, f.Port)
	pos += 4
	writeInt32(buf, pos, f.RealmID)
	pos += 4
	return pos
}

func writePlayerLoginRequestFrame(buf []byte, accountName string) int {
	pos := 0
	buf[pos] = OpcodePlayerLoginRequest
	pos++
	return writePrefixedString(buf, pos, accountName)
}

func writeUpdateCurrentPlayersFrame(buf []byte, current int32) int {
	pos := 0
	buf[pos] = OpcodeUpdateCurrentPlayers
	pos++
	writeInt32(buf, pos, current)
	return pos + 4
}

func writePlayerLogoutFrame(buf []byte, accountName string) int {
	pos := 0
	buf[pos] = OpcodePlayerLogout
	pos++
	return writePrefixedString(buf, pos, accountName)
}

func writeTutorialDataFrame(buf []byte, accountName string, data []byte) int {
	pos := 0
	buf[pos] = OpcodeTutorialData
	pos++
	pos = writePrefixedString(buf, pos, accountName)
	buf[pos] = byte(len(data))
	buf[pos+1] = byte(len(data) >> 8)
	pos += 2
	copy(buf[pos:], data)
	return pos + len(data)
}

func writeInt32(buf []byte, pos int, v int32) {
	buf[pos] = byte(v)
	buf[pos+1] = byte(v >> 8)
	buf[pos+2] = byte(v >> 16)
	buf[pos+3] = byte(v >> 24)
}

// playerLoginSuccessFrame is the decoded mirror of PlayerLoginSuccess.
type playerLoginSuccessFrame struct {
	AccountName  string
	K            []byte
	Salt         []byte
	Verifier     []byte
	TutorialData []byte
}

func parsePlayerLoginSuccessFrame(body []byte) (*playerLoginSuccessFrame, error) {
	r := protocol.NewReader(body)
	var f playerLoginSuccessFrame
	var err error
	if f.AccountName, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLoginSuccess.AccountName: %w", err)
	}
	if f.K, err = readLenPrefixedBytes(r); err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLoginSuccess.K: %w", err)
	}
	if f.Salt, err = readLenPrefixedBytes(r); err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLoginSuccess.Salt: %w", err)
	}
	if f.Verifier, err = readLenPrefixedBytes(r); err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLoginSuccess.Verifier: %w", err)
	}
	if f.TutorialData, err = readLenPrefixedBytes(r); err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLoginSuccess.TutorialData: %w", err)
	}
	return &f, nil
}

type playerLoginFailureFrame struct {
	AccountName string
	Reason      byte
}

func parsePlayerLoginFailureFrame(body []byte) (*playerLoginFailureFrame, error) {
	r := protocol.NewReader(body)
	name, err := r.ReadPrefixedString()
	if err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLoginFailure.AccountName: %w", err)
	}
	reason, err := r.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLoginFailure.Reason: %w", err)
	}
	return &playerLoginFailureFrame{AccountName: name, Reason: reason}, nil
}

// readLenPrefixedBytes reads a uint16-length-prefixed byte blob, the
// mirror of writeLenPrefixedBytes.
func readLenPrefixedBytes(r *protocol.Reader) ([]byte, error) {
	size, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}
	return r.ReadBytes(int(size))
}
