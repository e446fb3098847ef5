package model

// RealmDescriptor is the login service's record of a realm (spec §3
// "RealmConnection" uplink state plus the realm-list entries shown to
// clients). Authenticated reflects whether the realm's uplink is currently
// connected; only authenticated realms appear in a RealmList response.
type RealmDescriptor struct {
	RealmID       int32
	InternalName  string
	VisibleName   string
	Host          string
	Port          int
	AgeLimit      int8
	PvP           bool
	CurrentPlayers int32
	MaxPlayers    int32
	Brackets      bool
	Clock         bool
	Authenticated bool
}
