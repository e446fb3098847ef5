package model

// Group is a persistent party record (spec §4.4.b "Group persistence: list
// ids, load by id, create, disband, add/remove member, set leader").
// Membership rule enforcement (who may invite, who may change loot method)
// lives in the realm package; this is pure storage shape.
type Group struct {
	ID          int64
	LeaderID    uint32
	MemberIDs   []uint32
	LootMethod  LootMethod
	InstanceBindings map[int32]int64 // mapID -> instanceID, spec §4.4 step 8
}

// LootMethod mirrors the handful of loot-distribution rules a group can be
// set to; the realm only needs to persist and relay the choice; it does not
// compute actual loot splits (that is a world-node concern).
type LootMethod int8

const (
	LootFinderTakesAll LootMethod = iota
	LootRandom
	LootRandomIncludeSpoil
	LootByTurn
	LootByTurnIncludeSpoil
)

// IsLeader reports whether accountCharID is this group's current leader.
func (g *Group) IsLeader(charID uint32) bool {
	return g.LeaderID == charID
}

// HasMember reports whether charID currently belongs to the group.
func (g *Group) HasMember(charID uint32) bool {
	for _, id := range g.MemberIDs {
		if id == charID {
			return true
		}
	}
	return false
}
