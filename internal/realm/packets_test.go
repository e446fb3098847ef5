package realm

import (
	"crypto/sha1"
	"encoding/binary"
	"testing"

	"github.com/realmbroker/realmd/internal/constants"
	"github.com/realmbroker/realmd/internal/model"
)

func encodeAuthSessionBody(build int32, account string, clientSeed uint32, hash [20]byte, locale string) []byte {
	buf := make([]byte, 4+1+len(account)+4+20+1+len(locale))
	pos := 0
	binary.LittleEndian.PutUint32(buf[pos:], uint32(build))
	pos += 4
	buf[pos] = byte(len(account))
	pos++
	copy(buf[pos:], account)
	pos += len(account)
	binary.LittleEndian.PutUint32(buf[pos:], clientSeed)
	pos += 4
	copy(buf[pos:], hash[:])
	pos += 20
	buf[pos] = byte(len(locale))
	pos++
	copy(buf[pos:], locale)
	return buf
}

func TestParseAuthSessionRoundTrip(t *testing.T) {
	var hash [20]byte
	for i := range hash {
		hash[i] = byte(i)
	}
	body := encodeAuthSessionBody(12340, "PLAYERONE", 0xdeadbeef, hash, "enUS")

	f, err := parseAuthSession(body)
	if err != nil {
		t.Fatalf("parseAuthSession: %v", err)
	}
	if f.ClientBuild != 12340 {
		t.Errorf("ClientBuild = %d, want 12340", f.ClientBuild)
	}
	if f.AccountName != "PLAYERONE" {
		t.Errorf("AccountName = %q, want PLAYERONE", f.AccountName)
	}
	if f.ClientSeed != 0xdeadbeef {
		t.Errorf("ClientSeed = %#x, want 0xdeadbeef", f.ClientSeed)
	}
	if f.ClientHash != hash {
		t.Errorf("ClientHash = %v, want %v", f.ClientHash, hash)
	}
	if f.Locale != "enUS" {
		t.Errorf("Locale = %q, want enUS", f.Locale)
	}
}

func TestParseAuthSessionTruncated(t *testing.T) {
	body := encodeAuthSessionBody(1, "A", 1, [20]byte{}, "enUS")
	if _, err := parseAuthSession(body[:len(body)-5]); err == nil {
		t.Fatal("expected error parsing truncated AuthSession body")
	}
}

func TestComputeAuthHashMatchesManualSHA1(t *testing.T) {
	k := []byte("session-key-bytes")
	account := "PLAYERONE"
	clientSeed := uint32(111)
	serverSeed := uint32(222)

	d := sha1.New()
	d.Write([]byte(account))
	d.Write(make([]byte, 4))
	var seedBuf [4]byte
	binary.LittleEndian.PutUint32(seedBuf[:], clientSeed)
	d.Write(seedBuf[:])
	binary.LittleEndian.PutUint32(seedBuf[:], serverSeed)
	d.Write(seedBuf[:])
	d.Write(k)
	var want [20]byte
	copy(want[:], d.Sum(nil))

	got := computeAuthHash(account, clientSeed, serverSeed, k)
	if got != want {
		t.Errorf("computeAuthHash = %x, want %x", got, want)
	}
}

func TestComputeAuthHashDiffersOnSeedOrKey(t *testing.T) {
	base := computeAuthHash("ACCOUNT", 1, 2, []byte("k"))
	if computeAuthHash("ACCOUNT", 2, 2, []byte("k")) == base {
		t.Error("changing clientSeed must change the hash")
	}
	if computeAuthHash("ACCOUNT", 1, 3, []byte("k")) == base {
		t.Error("changing serverSeed must change the hash")
	}
	if computeAuthHash("ACCOUNT", 1, 2, []byte("k2")) == base {
		t.Error("changing the session key must change the hash")
	}
}

func TestCharCreateRoundTrip(t *testing.T) {
	name := "Newbie"
	body := make([]byte, 1+len(name)+1+2)
	pos := 0
	body[pos] = byte(len(name))
	pos++
	copy(body[pos:], name)
	pos += len(name)
	body[pos] = byte(3) // race
	pos++
	binary.LittleEndian.PutUint16(body[pos:], uint16(1)) // classID
	pos += 2

	f, err := parseCharCreate(body)
	if err != nil {
		t.Fatalf("parseCharCreate: %v", err)
	}
	if f.Name != name {
		t.Errorf("Name = %q, want %q", f.Name, name)
	}
	if f.Race != 3 {
		t.Errorf("Race = %d, want 3", f.Race)
	}
	if f.ClassID != 1 {
		t.Errorf("ClassID = %d, want 1", f.ClassID)
	}
}

func TestParseCharacterGUIDRoundTrip(t *testing.T) {
	want := model.PackGUID(42, constants.ObjectKindPlayer, 7)
	body := make([]byte, 8)
	binary.LittleEndian.PutUint64(body, uint64(want))

	got, err := parseCharacterGUID(body)
	if err != nil {
		t.Fatalf("parseCharacterGUID: %v", err)
	}
	if got != want {
		t.Errorf("GUID = %#x, want %#x", got, want)
	}
	if got.UnpackDBID() != 42 {
		t.Errorf("UnpackDBID() = %d, want 42", got.UnpackDBID())
	}
}

func TestParseCharRenameRoundTrip(t *testing.T) {
	guid := model.PackGUID(9, constants.ObjectKindPlayer, 1)
	newName := "Renamed"
	body := make([]byte, 8+1+len(newName))
	binary.LittleEndian.PutUint64(body, uint64(guid))
	body[8] = byte(len(newName))
	copy(body[9:], newName)

	f, err := parseCharRename(body)
	if err != nil {
		t.Fatalf("parseCharRename: %v", err)
	}
	if f.CharacterID != guid {
		t.Errorf("CharacterID = %#x, want %#x", f.CharacterID, guid)
	}
	if f.NewName != newName {
		t.Errorf("NewName = %q, want %q", f.NewName, newName)
	}
}

func TestWriteCharRenameReplyRoundTrip(t *testing.T) {
	guid := model.PackGUID(9, constants.ObjectKindPlayer, 1)
	buf := make([]byte, 64)
	n := writeCharRenameReply(buf, guid, "Renamed", CharOk)

	if buf[0] != CharOk {
		t.Errorf("result byte = %d, want CharOk", buf[0])
	}
	gotGUID := binary.LittleEndian.Uint64(buf[1:9])
	if model.GUID(gotGUID) != guid {
		t.Errorf("encoded GUID = %#x, want %#x", gotGUID, guid)
	}
	nameLen := int(buf[9])
	if got := string(buf[10 : 10+nameLen]); got != "Renamed" {
		t.Errorf("encoded name = %q, want Renamed", got)
	}
	if n != 10+nameLen {
		t.Errorf("n = %d, want %d", n, 10+nameLen)
	}
}

func TestWriteCharEnumReplyEmptyList(t *testing.T) {
	buf := make([]byte, 16)
	n := writeCharEnumReply(buf, 1, nil)
	if n != 1 {
		t.Fatalf("n = %d, want 1 for an empty roster", n)
	}
	if buf[0] != 0 {
		t.Errorf("count byte = %d, want 0", buf[0])
	}
}

func TestParseWhoRequestFilterCaps(t *testing.T) {
	body := make([]byte, 4+4+1)
	binary.LittleEndian.PutUint32(body[0:], 1)
	binary.LittleEndian.PutUint32(body[4:], 60)
	body[8] = 5 // claims 5 zone filters

	if _, err := parseWhoRequest(body, 2, 2); err == nil {
		t.Fatal("expected error when zone filter count exceeds the configured max")
	}
}

func TestParseWhoRequestWithinCaps(t *testing.T) {
	minLevel, maxLevel := int32(1), int32(60)
	body := make([]byte, 0, 32)
	tmp := make([]byte, 4)
	binary.LittleEndian.PutUint32(tmp, uint32(minLevel))
	body = append(body, tmp...)
	binary.LittleEndian.PutUint32(tmp, uint32(maxLevel))
	body = append(body, tmp...)
	body = append(body, 1) // one zone filter
	binary.LittleEndian.PutUint32(tmp, 12)
	body = append(body, tmp...)
	body = append(body, 0) // zero string filters

	f, err := parseWhoRequest(body, 4, 4)
	if err != nil {
		t.Fatalf("parseWhoRequest: %v", err)
	}
	if f.MinLevel != minLevel || f.MaxLevel != maxLevel {
		t.Errorf("levels = (%d, %d), want (%d, %d)", f.MinLevel, f.MaxLevel, minLevel, maxLevel)
	}
	if len(f.ZoneFilters) != 1 || f.ZoneFilters[0] != 12 {
		t.Errorf("ZoneFilters = %v, want [12]", f.ZoneFilters)
	}
	if len(f.StringFilters) != 0 {
		t.Errorf("StringFilters = %v, want empty", f.StringFilters)
	}
}
