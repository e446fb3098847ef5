package realmlink

import "testing"

func TestParseRealmLoginFrameRoundTrip(t *testing.T) {
	buf := make([]byte, 256)
	pos := 0
	writeInt32 := func(v int32) {
		buf[pos] = byte(v)
		buf[pos+1] = byte(v >> 8)
		buf[pos+2] = byte(v >> 16)
		buf[pos+3] = byte(v >> 24)
		pos += 4
	}
	writeInt32(ProtocolVersion)
	pos = writePrefixedString(buf, pos, "s3cret")
	pos = writePrefixedString(buf, pos, "realm-one")
	pos = writePrefixedString(buf, pos, "Realm One")
	pos = writePrefixedString(buf, pos, "127.0.0.1")
	writeInt32(7777)
	writeInt32(1)

	f, err := ParseRealmLoginFrame(buf[:pos])
	if err != nil {
		t.Fatalf("ParseRealmLoginFrame: %v", err)
	}
	if f.ProtocolVersion != ProtocolVersion || f.Password != "s3cret" || f.InternalName != "realm-one" ||
		f.VisibleName != "Realm One" || f.Host != "127.0.0.1" || f.Port != 7777 || f.RealmID != 1 {
		t.Fatalf("unexpected frame: %+v", f)
	}
}

func TestPlayerLoginSuccessAndFailureOpcodes(t *testing.T) {
	buf := make([]byte, 256)
	n := PlayerLoginSuccess(buf, "ALICE", []byte("k"), []byte("s"), []byte("v"), []byte("tut"))
	if buf[0] != OpcodePlayerLoginSuccess {
		t.Fatalf("opcode = %#x, want PlayerLoginSuccess", buf[0])
	}
	if n <= 1 {
		t.Fatalf("expected non-trivial payload, got %d bytes", n)
	}

	n = PlayerLoginFailure(buf, "ALICE", PlayerLoginFailureNoAccount)
	if buf[0] != OpcodePlayerLoginFailure {
		t.Fatalf("opcode = %#x, want PlayerLoginFailure", buf[0])
	}
	if buf[n-1] != PlayerLoginFailureNoAccount {
		t.Fatalf("reason byte = %d, want %d", buf[n-1], PlayerLoginFailureNoAccount)
	}
}

func TestParseUpdateCurrentPlayersFrame(t *testing.T) {
	buf := []byte{42, 0, 0, 0}
	f, err := ParseUpdateCurrentPlayersFrame(buf)
	if err != nil {
		t.Fatalf("ParseUpdateCurrentPlayersFrame: %v", err)
	}
	if f.Current != 42 {
		t.Fatalf("Current = %d, want 42", f.Current)
	}
}
