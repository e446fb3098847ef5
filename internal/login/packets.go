package login

import (
	"encoding/binary"
	"fmt"

	"github.com/realmbroker/realmd/internal/protocol"
)

// LogonChallengeRequest is the client's first frame (spec §6: "error byte,
// length, game-name magic, three version octets, build u16, platform
// magic, OS magic, locale magic, timezone, IP, username length-prefixed
// u8"). Only the fields the FSM needs are kept; game-name/platform/os/
// timezone/ip are read and discarded, matching the legacy wire shape.
type LogonChallengeRequest struct {
	Version1 byte
	Version2 byte
	Version3 byte
	Build    uint16
	Locale   uint32
	Username string
}

// ParseLogonChallengeRequest decodes a client LogonChallenge body.
func ParseLogonChallengeRequest(body []byte) (*LogonChallengeRequest, error) {
	r := protocol.NewReader(body)

	if _, err := r.ReadByte(); err != nil { // error byte, always a fixed protocol constant
		return nil, fmt.Errorf("login: LogonChallenge.error: %w", err)
	}
	if _, err := r.ReadUint16(); err != nil { // declared body size
		return nil, fmt.Errorf("login: LogonChallenge.size: %w", err)
	}
	if _, err := r.ReadUint32(); err != nil { // game name magic
		return nil, fmt.Errorf("login: LogonChallenge.gameName: %w", err)
	}

	var req LogonChallengeRequest
	var err error
	if req.Version1, err = r.ReadByte(); err != nil {
		return nil, fmt.Errorf("login: LogonChallenge.version1: %w", err)
	}
	if req.Version2, err = r.ReadByte(); err != nil {
		return nil, fmt.Errorf("login: LogonChallenge.version2: %w", err)
	}
	if req.Version3, err = r.ReadByte(); err != nil {
		return nil, fmt.Errorf("login: LogonChallenge.version3: %w", err)
	}
	if req.Build, err = r.ReadUint16(); err != nil {
		return nil, fmt.Errorf("login: LogonChallenge.build: %w", err)
	}
	if _, err := r.ReadUint32(); err != nil { // platform magic
		return nil, fmt.Errorf("login: LogonChallenge.platform: %w", err)
	}
	if _, err := r.ReadUint32(); err != nil { // OS magic
		return nil, fmt.Errorf("login: LogonChallenge.os: %w", err)
	}
	if req.Locale, err = r.ReadUint32(); err != nil {
		return nil, fmt.Errorf("login: LogonChallenge.locale: %w", err)
	}
	if _, err := r.ReadUint32(); err != nil { // timezone
		return nil, fmt.Errorf("login: LogonChallenge.timezone: %w", err)
	}
	if _, err := r.ReadUint32(); err != nil { // client IP, informational only
		return nil, fmt.Errorf("login: LogonChallenge.ip: %w", err)
	}
	if req.Username, err = r.ReadPrefixedString(); err != nil {
		return nil, fmt.Errorf("login: LogonChallenge.username: %w", err)
	}
	return &req, nil
}

// WriteLogonChallengeFail writes the short failure reply: one opcode byte,
// one reserved byte, one result byte. The handler sends it only for a
// rejected client build, before any account lookup; an unknown account is
// answered with a full WriteLogonChallengeBody instead.
func WriteLogonChallengeFail(buf []byte, result byte) int {
	buf[0] = OpcodeLogonChallenge
	buf[1] = 0
	buf[2] = result
	return 3
}

// WriteLogonChallengeBody writes the full challenge body: B, g, N, s,
// unk3, and a zero security-flags byte (spec §4.1 "Challenge"). Used both
// for a genuine account and for the fabricated-verifier path on an
// unknown account, so the two are byte-length identical (spec §8
// property 2, "constant-shape challenge") — only the result byte differs.
func WriteLogonChallengeBody(buf []byte, result byte, b, g, n, s, unk3 []byte) int {
	pos := 0
	buf[pos] = OpcodeLogonChallenge
	pos++
	buf[pos] = 0 // reserved
	pos++
	buf[pos] = result
	pos++

	pos += copy(buf[pos:], b)
	buf[pos] = 1 // unknown, fixed
	pos++
	buf[pos] = g[0]
	pos++
	buf[pos] = byte(len(n))
	pos++
	pos += copy(buf[pos:], n)
	pos += copy(buf[pos:], s)
	pos += copy(buf[pos:], unk3)
	buf[pos] = 0 // security flags: none of the optional blocks are sent
	pos++
	return pos
}

// LogonProofRequest is the client's proof of password possession (spec
// §4.1 "Proof").
type LogonProofRequest struct {
	A  []byte // 32 bytes
	M1 []byte // 20 bytes
}

// ParseLogonProofRequest decodes a client LogonProof body.
func ParseLogonProofRequest(body []byte) (*LogonProofRequest, error) {
	r := protocol.NewReader(body)
	a, err := r.ReadBytes(32)
	if err != nil {
		return nil, fmt.Errorf("login: LogonProof.A: %w", err)
	}
	m1, err := r.ReadBytes(20)
	if err != nil {
		return nil, fmt.Errorf("login: LogonProof.M1: %w", err)
	}
	// crcHash (20 bytes), numberOfKeys (1), securityFlags (1) follow but
	// are not used by this FSM.
	return &LogonProofRequest{A: a, M1: m1}, nil
}

// WriteLogonProofFail writes a failure reply. The extra (3,0) tail the
// client expects for account/password failures is appended when result is
// ResultFailIncorrectPass or ResultFailUnknownAccount (spec §4.1 step 6:
// wrong password and unknown account share the same wire result).
func WriteLogonProofFail(buf []byte, result byte) int {
	buf[0] = OpcodeLogonProof
	buf[1] = result
	if result == ResultFailIncorrectPass || result == ResultFailUnknownAccount {
		buf[2] = 3
		buf[3] = 0
		return 4
	}
	return 2
}

// WriteLogonProofSuccess writes the success reply: result byte, the
// server's proof hash, and the fixed build-≥8606 trailer.
func WriteLogonProofSuccess(buf []byte, serverHash []byte) int {
	pos := 0
	buf[pos] = OpcodeLogonProof
	pos++
	buf[pos] = ResultSuccess
	pos++
	pos += copy(buf[pos:], serverHash)
	binary.LittleEndian.PutUint32(buf[pos:], 0x00800000)
	pos += 4
	binary.LittleEndian.PutUint32(buf[pos:], 0)
	pos += 4
	binary.LittleEndian.PutUint16(buf[pos:], 0)
	pos += 2
	return pos
}

// ReconnectChallengeRequest carries just the account name (spec §4.1
// "Reconnect").
type ReconnectChallengeRequest struct {
	Username string
}

func ParseReconnectChallengeRequest(body []byte) (*ReconnectChallengeRequest, error) {
	r := protocol.NewReader(body)
	name, err := r.ReadPrefixedString()
	if err != nil {
		return nil, fmt.Errorf("login: ReconnectChallenge.username: %w", err)
	}
	return &ReconnectChallengeRequest{Username: name}, nil
}

// WriteReconnectChallenge writes the 16-byte reconnect nonce reply.
func WriteReconnectChallenge(buf []byte, result byte, reconnectProof []byte) int {
	pos := 0
	buf[pos] = OpcodeReconnectChallenge
	pos++
	buf[pos] = result
	pos++
	if result != ResultSuccess {
		return pos
	}
	pos += copy(buf[pos:], reconnectProof)
	var zeroPad [16]byte
	pos += copy(buf[pos:], zeroPad[:])
	return pos
}

// ReconnectProofRequest is the client's response to the reconnect
// challenge.
type ReconnectProofRequest struct {
	R1 []byte // 16 bytes, client challenge
	R2 []byte // 20 bytes, H(username || R1 || reconnectProof || K)
}

func ParseReconnectProofRequest(body []byte) (*ReconnectProofRequest, error) {
	r := protocol.NewReader(body)
	r1, err := r.ReadBytes(16)
	if err != nil {
		return nil, fmt.Errorf("login: ReconnectProof.R1: %w", err)
	}
	r2, err := r.ReadBytes(20)
	if err != nil {
		return nil, fmt.Errorf("login: ReconnectProof.R2: %w", err)
	}
	// R3 (20 bytes) and keyCount (1 byte) follow but are not used.
	return &ReconnectProofRequest{R1: r1, R2: r2}, nil
}

// WriteReconnectProof writes the reconnect proof reply (just a result
// byte on this wire).
func WriteReconnectProof(buf []byte, result byte) int {
	buf[0] = OpcodeReconnectProof
	buf[1] = result
	return 2
}

// RealmListEntry is one row of the realm-list response.
type RealmListEntry struct {
	Name           string
	Address        string // "host:port"
	Icon           byte
	CurrentPlayers byte
}

// WriteRealmList writes the realm-list body: a u32 placeholder, a u16
// count, one entry per realm, and the build-8606+ trailer.
func WriteRealmList(buf []byte, realms []RealmListEntry) int {
	pos := 0
	buf[pos] = OpcodeRealmList
	pos++
	sizePos := pos
	pos += 2 // filled in below, once the body length is known
	bodyStart := pos

	binary.LittleEndian.PutUint32(buf[pos:], 0)
	pos += 4
	binary.LittleEndian.PutUint16(buf[pos:], uint16(len(realms)))
	pos += 2

	for _, r := range realms {
		buf[pos] = r.Icon
		pos++
		buf[pos] = 0 // locked
		pos++
		buf[pos] = 0 // flags
		pos++
		pos += copy(buf[pos:], r.Name)
		buf[pos] = 0 // C-string terminator
		pos++
		pos += copy(buf[pos:], r.Address)
		buf[pos] = 0 // C-string terminator
		pos++
		binary.LittleEndian.PutUint32(buf[pos:], 0) // population, float encoded as 0.0
		pos += 4
		buf[pos] = r.CurrentPlayers
		pos++
		buf[pos] = 1 // timezone
		pos++
		buf[pos] = 0x2C
		pos++
	}

	binary.LittleEndian.PutUint16(buf[pos:], 0x0010)
	pos += 2

	binary.LittleEndian.PutUint16(buf[sizePos:], uint16(pos-bodyStart))
	return pos
}
