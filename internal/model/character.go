package model

// CharacterSummary is the minimal character projection sent in a CharEnum
// response (spec §4.4 step 4). DatabaseID is the raw store id; callers
// combine it with the realm id via PackGUID before putting it on the wire.
type CharacterSummary struct {
	DatabaseID uint32
	Name       string
	Race       int8
	ClassID    int16
	Level      int32
	MapID      int32
	AtLogin    AtLoginFlags
}

// AtLoginFlags are per-character one-shot flags (spec §4.4 step 7:
// "allowed only when the character's atLogin flag has the Rename bit").
type AtLoginFlags uint32

const (
	AtLoginNone   AtLoginFlags = 0
	AtLoginRename AtLoginFlags = 1 << 0
)

// HasRename reports whether the character is still allowed one free rename.
func (f AtLoginFlags) HasRename() bool {
	return f&AtLoginRename != 0
}

// GameCharacter is the realm's fuller, in-memory shadow of a character once
// it is selected for play (spec §4.4 steps 8-9: "relocate shadow"). It
// carries just enough state for the realm to route world-link traffic and
// answer friend/group queries without ever simulating gameplay itself.
type GameCharacter struct {
	DatabaseID uint32
	AccountLogin string
	Name       string
	MapID      int32
	PosX, PosY, PosZ int32
	Heading    int32
	GroupID    int64
}
