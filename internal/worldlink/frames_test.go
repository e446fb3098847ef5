package worldlink

import (
	"encoding/binary"
	"testing"
)

func TestParseLoginFrameRoundTrip(t *testing.T) {
	body := make([]byte, 4+2+4*2)
	binary.LittleEndian.PutUint32(body[0:], 7) // protocol version
	binary.LittleEndian.PutUint16(body[4:], 2) // map count
	binary.LittleEndian.PutUint32(body[6:], 1)
	binary.LittleEndian.PutUint32(body[10:], 33)

	f, err := ParseLoginFrame(body)
	if err != nil {
		t.Fatalf("ParseLoginFrame: %v", err)
	}
	if f.ProtocolVersion != 7 {
		t.Errorf("ProtocolVersion = %d, want 7", f.ProtocolVersion)
	}
	if len(f.MapIDs) != 2 || f.MapIDs[0] != 1 || f.MapIDs[1] != 33 {
		t.Errorf("MapIDs = %v, want [1 33]", f.MapIDs)
	}
}

func TestWriteLoginAnswer(t *testing.T) {
	buf := make([]byte, 2)
	n := WriteLoginAnswer(buf, LoginAnswerOk)
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}
	if buf[0] != OpLoginAnswer || buf[1] != LoginAnswerOk {
		t.Errorf("buf = %v, want [%d %d]", buf, OpLoginAnswer, LoginAnswerOk)
	}
}

func TestParseWorldInstanceEnteredRoundTrip(t *testing.T) {
	body := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(body[0:], 42)
	binary.LittleEndian.PutUint64(body[4:], 100)

	f, err := ParseWorldInstanceEntered(body)
	if err != nil {
		t.Fatalf("ParseWorldInstanceEntered: %v", err)
	}
	if f.CharacterID != 42 || f.InstanceID != 100 {
		t.Errorf("f = %+v, want {42 100}", f)
	}
}

func TestParseWorldInstanceLeftRoundTrip(t *testing.T) {
	body := []byte{42, 0, 0, 0, LeaveReasonTeleport}
	f, err := ParseWorldInstanceLeft(body)
	if err != nil {
		t.Fatalf("ParseWorldInstanceLeft: %v", err)
	}
	if f.CharacterID != 42 || f.Reason != LeaveReasonTeleport {
		t.Errorf("f = %+v, want {42 %d}", f, LeaveReasonTeleport)
	}
}

func TestParseWorldInstanceErrorRoundTrip(t *testing.T) {
	body := []byte{9, 0, 0, 0, 3}
	f, err := ParseWorldInstanceError(body)
	if err != nil {
		t.Fatalf("ParseWorldInstanceError: %v", err)
	}
	if f.CharacterID != 9 || f.Reason != 3 {
		t.Errorf("f = %+v, want {9 3}", f)
	}
}

func TestParseCharacterDataRoundTrip(t *testing.T) {
	body := make([]byte, 4*6)
	binary.LittleEndian.PutUint32(body[0:], 5)
	binary.LittleEndian.PutUint32(body[4:], 33)
	binary.LittleEndian.PutUint32(body[8:], 100)
	binary.LittleEndian.PutUint32(body[12:], 200)
	binary.LittleEndian.PutUint32(body[16:], 300)
	binary.LittleEndian.PutUint32(body[20:], 45)

	f, err := ParseCharacterData(body)
	if err != nil {
		t.Fatalf("ParseCharacterData: %v", err)
	}
	if f.CharacterID != 5 || f.MapID != 33 || f.X != 100 || f.Y != 200 || f.Z != 300 || f.Heading != 45 {
		t.Errorf("f = %+v, unexpected", f)
	}
}

func TestParseCharacterGroupUpdateRoundTrip(t *testing.T) {
	body := make([]byte, 4+8)
	binary.LittleEndian.PutUint32(body[0:], 7)
	binary.LittleEndian.PutUint64(body[4:], 55)

	f, err := ParseCharacterGroupUpdate(body)
	if err != nil {
		t.Fatalf("ParseCharacterGroupUpdate: %v", err)
	}
	if f.CharacterID != 7 || f.GroupID != 55 {
		t.Errorf("f = %+v, want {7 55}", f)
	}
}

func TestParseMailNotifyRoundTrip(t *testing.T) {
	body := make([]byte, 8)
	binary.LittleEndian.PutUint32(body[0:], 3)
	binary.LittleEndian.PutUint32(body[4:], 2)

	f, err := ParseMailNotify(body)
	if err != nil {
		t.Fatalf("ParseMailNotify: %v", err)
	}
	if f.CharacterID != 3 || f.Unread != 2 {
		t.Errorf("f = %+v, want {3 2}", f)
	}
}

func TestWriteCharacterLogInEncodesLeadingFields(t *testing.T) {
	buf := make([]byte, 256)
	n := WriteCharacterLogIn(buf, CharacterLogInFrame{
		CharacterID: 11,
		InstanceID:  22,
		Snapshot: GameCharacterSnapshot{
			AccountLogin: "ALICE",
			Name:         "Ally",
			MapID:        1,
			X:            10,
			Y:            20,
			Z:            30,
			Heading:      1,
		},
	})
	if buf[0] != OpCharacterLogIn {
		t.Fatalf("opcode byte = %d, want OpCharacterLogIn", buf[0])
	}
	if n <= 1 {
		t.Fatalf("n = %d, want > 1", n)
	}

	pos := 1
	if got := binary.LittleEndian.Uint32(buf[pos:]); got != 11 {
		t.Errorf("CharacterID = %d, want 11", got)
	}
	pos += 4
	if got := int64(binary.LittleEndian.Uint64(buf[pos:])); got != 22 {
		t.Errorf("InstanceID = %d, want 22", got)
	}
	pos += 8
	accLen := int(buf[pos])
	pos++
	if got := string(buf[pos : pos+accLen]); got != "ALICE" {
		t.Errorf("AccountLogin = %q, want ALICE", got)
	}
	pos += accLen
	nameLen := int(buf[pos])
	pos++
	if got := string(buf[pos : pos+nameLen]); got != "Ally" {
		t.Errorf("Name = %q, want Ally", got)
	}
}

func TestWriteLeaveWorldInstance(t *testing.T) {
	buf := make([]byte, 5)
	n := WriteLeaveWorldInstance(buf, 77)
	if n != 5 {
		t.Fatalf("n = %d, want 5", n)
	}
	if buf[0] != OpLeaveWorldInstance {
		t.Errorf("opcode byte = %d, want OpLeaveWorldInstance", buf[0])
	}
	if got := binary.LittleEndian.Uint32(buf[1:]); got != 77 {
		t.Errorf("characterID = %d, want 77", got)
	}
}

func TestWriteChatMessage(t *testing.T) {
	buf := make([]byte, 64)
	n := WriteChatMessage(buf, ChatMessageFrame{CharacterID: 3, Text: "hi"})
	if buf[0] != OpChatMessage {
		t.Errorf("opcode byte = %d, want OpChatMessage", buf[0])
	}
	if got := binary.LittleEndian.Uint32(buf[1:]); got != 3 {
		t.Errorf("CharacterID = %d, want 3", got)
	}
	textLen := int(buf[5])
	if got := string(buf[6 : 6+textLen]); got != "hi" {
		t.Errorf("Text = %q, want hi", got)
	}
	if n != 6+textLen {
		t.Errorf("n = %d, want %d", n, 6+textLen)
	}
}

func TestWriteIgnoreList(t *testing.T) {
	buf := make([]byte, 64)
	n := WriteIgnoreList(buf, IgnoreListFrame{CharacterID: 1, Ignored: []uint32{5, 6}})
	if buf[0] != OpIgnoreList {
		t.Errorf("opcode byte = %d, want OpIgnoreList", buf[0])
	}
	count := binary.LittleEndian.Uint16(buf[5:])
	if count != 2 {
		t.Errorf("ignored count = %d, want 2", count)
	}
	if got := binary.LittleEndian.Uint32(buf[7:]); got != 5 {
		t.Errorf("Ignored[0] = %d, want 5", got)
	}
	if got := binary.LittleEndian.Uint32(buf[11:]); got != 6 {
		t.Errorf("Ignored[1] = %d, want 6", got)
	}
	if n != 15 {
		t.Errorf("n = %d, want 15", n)
	}
}

func TestWriteCharacterGroupChanged(t *testing.T) {
	buf := make([]byte, 32)
	n := WriteCharacterGroupChanged(buf, 4, 88)
	if buf[0] != OpCharacterGroupChanged {
		t.Errorf("opcode byte = %d, want OpCharacterGroupChanged", buf[0])
	}
	if got := binary.LittleEndian.Uint32(buf[1:]); got != 4 {
		t.Errorf("characterID = %d, want 4", got)
	}
	if got := int64(binary.LittleEndian.Uint64(buf[5:])); got != 88 {
		t.Errorf("groupID = %d, want 88", got)
	}
	if n != 13 {
		t.Errorf("n = %d, want 13", n)
	}
}
