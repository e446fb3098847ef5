package realm

// Numeric race/class ids (spec §4.4 step 5 "validate race/class combo
// against a static table"). Starter spells/inventory generation from race
// tables is a world-node concern (character simulation is out of this
// service's scope) — CharCreate only validates the combination and
// persists the row; the world node populates starting gear the first time
// the character enters play.
const (
	RaceHuman   int8 = 1
	RaceOrc     int8 = 2
	RaceDwarf   int8 = 3
	RaceElf     int8 = 4
	RaceUndead  int8 = 5
	RaceTroll   int8 = 6
	RaceGnome   int8 = 7
	RaceTauren  int8 = 8
)

const (
	ClassWarrior int16 = 1
	ClassPaladin int16 = 2
	ClassHunter  int16 = 3
	ClassRogue   int16 = 4
	ClassPriest  int16 = 5
	ClassShaman  int16 = 7
	ClassMage    int16 = 8
	ClassWarlock int16 = 9
	ClassDruid   int16 = 11
)

// validRaceClass lists the race/class combos CharCreate accepts. Absence
// from this table is not "unknown" — it is "rejected" (spec §7: reject
// malformed or disallowed create requests rather than guessing).
var validRaceClass = map[int8]map[int16]bool{
	RaceHuman:  {ClassWarrior: true, ClassPaladin: true, ClassRogue: true, ClassPriest: true, ClassMage: true, ClassWarlock: true},
	RaceDwarf:  {ClassWarrior: true, ClassPaladin: true, ClassHunter: true, ClassRogue: true, ClassPriest: true},
	RaceGnome:  {ClassWarrior: true, ClassRogue: true, ClassMage: true, ClassWarlock: true},
	RaceElf:    {ClassHunter: true, ClassRogue: true, ClassPriest: true, ClassMage: true, ClassDruid: true},
	RaceOrc:    {ClassWarrior: true, ClassHunter: true, ClassRogue: true, ClassShaman: true, ClassWarlock: true},
	RaceUndead: {ClassWarrior: true, ClassRogue: true, ClassPriest: true, ClassMage: true, ClassWarlock: true},
	RaceTroll:  {ClassWarrior: true, ClassHunter: true, ClassRogue: true, ClassPriest: true, ClassShaman: true, ClassMage: true},
	RaceTauren: {ClassWarrior: true, ClassHunter: true, ClassShaman: true, ClassDruid: true},
}

// raceFaction maps a race to a faction bitmask, used by Who/chat same
// faction checks (spec §4.4 "Same-faction check uses the race-to-faction
// bitmask").
const (
	FactionAlliance uint8 = 1 << 0
	FactionHorde    uint8 = 1 << 1
)

var raceFaction = map[int8]uint8{
	RaceHuman:  FactionAlliance,
	RaceDwarf:  FactionAlliance,
	RaceGnome:  FactionAlliance,
	RaceElf:    FactionAlliance,
	RaceOrc:    FactionHorde,
	RaceUndead: FactionHorde,
	RaceTroll:  FactionHorde,
	RaceTauren: FactionHorde,
}

func sameFaction(a, b int8) bool {
	return raceFaction[a] == raceFaction[b]
}
