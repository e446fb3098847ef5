package realmlink

import (
	"fmt"

	"github.com/realmbroker/realmd/internal/protocol"
)

// RealmLoginFrame is the first frame a realm sends on its uplink (spec
// §4.3): protocol version, the realm's shared secret, and the identity it
// wants to register under.
type RealmLoginFrame struct {
	ProtocolVersion int32
	Password        string
	InternalName    string
	VisibleName     string
	Host            string
	Port            int32
	RealmID         int32
}

// ParseRealmLoginFrame decodes a RealmLogin frame body.
func ParseRealmLoginFrame(body []byte) (*RealmLoginFrame, error) {
	r := protocol.NewReader(body)
	var f RealmLoginFrame
	var err error
	if f.ProtocolVersion, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("realmlink: RealmLogin.ProtocolVersion: %w", err)
	}
	if f.Password, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("realmlink: RealmLogin.Password: %w", err)
	}
	if f.InternalName, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("realmlink: RealmLogin.InternalName: %w", err)
	}
	if f.VisibleName, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("realmlink: RealmLogin.VisibleName: %w", err)
	}
	if f.Host, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("realmlink: RealmLogin.Host: %w", err)
	}
	if f.Port, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("realmlink: RealmLogin.Port: %w", err)
	}
	if f.RealmID, err = r.ReadInt32(); err != nil {
		return nil, fmt.Errorf("realmlink: RealmLogin.RealmID: %w", err)
	}
	return &f, nil
}

// UpdateCurrentPlayersFrame reports a realm's live player count.
type UpdateCurrentPlayersFrame struct {
	Current int32
}

func ParseUpdateCurrentPlayersFrame(body []byte) (*UpdateCurrentPlayersFrame, error) {
	r := protocol.NewReader(body)
	current, err := r.ReadInt32()
	if err != nil {
		return nil, fmt.Errorf("realmlink: UpdateCurrentPlayers.Current: %w", err)
	}
	return &UpdateCurrentPlayersFrame{Current: current}, nil
}

// PlayerLoginRequestFrame asks the login service whether an account is
// allowed onto this realm right now (spec §4.3 step "PlayerLogin
// (accountName)").
type PlayerLoginRequestFrame struct {
	AccountName string
}

func ParsePlayerLoginRequestFrame(body []byte) (*PlayerLoginRequestFrame, error) {
	r := protocol.NewReader(body)
	name, err := r.ReadPrefixedString()
	if err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLoginRequest.AccountName: %w", err)
	}
	return &PlayerLoginRequestFrame{AccountName: name}, nil
}

// PlayerLogoutFrame tells the login service an account left the realm.
type PlayerLogoutFrame struct {
	AccountName string
}

func ParsePlayerLogoutFrame(body []byte) (*PlayerLogoutFrame, error) {
	r := protocol.NewReader(body)
	name, err := r.ReadPrefixedString()
	if err != nil {
		return nil, fmt.Errorf("realmlink: PlayerLogout.AccountName: %w", err)
	}
	return &PlayerLogoutFrame{AccountName: name}, nil
}

// TutorialDataFrame writes back progress for a single account's tutorial
// state, persisted by the login service on the account record.
type TutorialDataFrame struct {
	AccountName string
	Data        []byte
}

func ParseTutorialDataFrame(body []byte) (*TutorialDataFrame, error) {
	r := protocol.NewReader(body)
	name, err := r.ReadPrefixedString()
	if err != nil {
		return nil, fmt.Errorf("realmlink: TutorialData.AccountName: %w", err)
	}
	size, err := r.ReadInt16()
	if err != nil {
		return nil, fmt.Errorf("realmlink: TutorialData.Size: %w", err)
	}
	data, err := r.ReadBytes(int(size))
	if err != nil {
		return nil, fmt.Errorf("realmlink: TutorialData.Data: %w", err)
	}
	return &TutorialDataFrame{AccountName: name, Data: data}, nil
}

// writePrefixedString writes a uint8-length-prefixed ASCII string, the
// mirror of Reader.ReadPrefixedString.
func writePrefixedString(buf []byte, pos int, s string) int {
	buf[pos] = byte(len(s))
	pos++
	copy(buf[pos:], s)
	return pos + len(s)
}

// LoginResult writes the reply to RealmLogin: the opcode and a one-byte
// result code. No realm id is carried.
func LoginResult(buf []byte, result int32) int {
	pos := 0
	buf[pos] = OpcodeLoginResult
	pos++
	buf[pos] = byte(result)
	pos++
	return pos
}

// PlayerLoginSuccess writes the reply admitting an account onto the realm,
// carrying everything the realm needs to complete AuthSession without a
// second round trip to the login service: the cached session key K and
// (s, v) pair, plus the account's tutorial-progress blob (spec §4.3:
// "PlayerLoginSuccess(accountName, accountId, K, v, s, tutorialData)" —
// accountId is folded into accountName here since login is this schema's
// primary key, not a separate surrogate id).
func PlayerLoginSuccess(buf []byte, accountName string, k, s, v, tutorialData []byte) int {
	pos := 0
	buf[pos] = OpcodePlayerLoginSuccess
	pos++
	pos = writePrefixedString(buf, pos, accountName)
	pos = writeLenPrefixedBytes(buf, pos, k)
	pos = writeLenPrefixedBytes(buf, pos, s)
	pos = writeLenPrefixedBytes(buf, pos, v)
	pos = writeLenPrefixedBytes(buf, pos, tutorialData)
	return pos
}

// writeLenPrefixedBytes writes a uint16-length-prefixed byte blob.
func writeLenPrefixedBytes(buf []byte, pos int, b []byte) int {
	buf[pos] = byte(len(b))
	buf[pos+1] = byte(len(b) >> 8)
	pos += 2
	copy(buf[pos:], b)
	return pos + len(b)
}

// PlayerLoginFailure writes the reply refusing an account onto the realm.
func PlayerLoginFailure(buf []byte, accountName string, reason byte) int {
	pos := 0
	buf[pos] = OpcodePlayerLoginFailure
	pos++
	pos = writePrefixedString(buf, pos, accountName)
	buf[pos] = reason
	pos++
	return pos
}
