package realm

import (
	"context"

	"github.com/realmbroker/realmd/internal/model"
	"github.com/realmbroker/realmd/internal/realmlink"
)

// LoginUplink is the realm service's view of the login-server uplink.
// Defined here, consumed by handler.go, implemented by
// *realmlink.Client against a real login server and by an in-memory fake
// in tests.
type LoginUplink interface {
	// RequestPlayerLogin relays AuthSession's account name to the login
	// service, which admits or rejects the session and hands back K
	// (spec §4.4 step 3).
	RequestPlayerLogin(accountName string) (*realmlink.PlayerLoginOutcome, error)

	// Logout tells the login service a character's play session ended
	// (spec §4.4 "LogoutRequest").
	Logout(accountName string) error
}

// CharacterRepository is the realm service's view of character storage.
// Defined here, consumed by handler.go, implemented by
// db.CharacterRepository against Postgres and by an in-memory fake in
// tests.
type CharacterRepository interface {
	// ListByAccount returns every non-deleted character for accountLogin
	// on realmID (spec §4.4 step 4, "CharEnum").
	ListByAccount(ctx context.Context, accountLogin string, realmID int32) ([]model.CharacterSummary, error)

	// CountByAccount enforces the per-account character cap (spec §4.4
	// step 5).
	CountByAccount(ctx context.Context, accountLogin string, realmID int32) (int, error)

	// Create inserts a new character row, returning its database id.
	Create(ctx context.Context, accountLogin string, realmID int32, name string, race int8, classID int16) (uint32, error)

	// SoftDelete marks a character removed without losing its row.
	SoftDelete(ctx context.Context, characterID uint32) error

	// Rename changes a character's name and clears its AtLoginRename
	// flag (spec §4.4 step 7).
	Rename(ctx context.Context, characterID uint32, newName string) error

	// GetByID returns the full row needed to hand a character off to a
	// world node (spec §4.4 step 8). Returns nil, 0, nil on miss.
	GetByID(ctx context.Context, characterID uint32, realmID int32) (*model.GameCharacter, model.AtLoginFlags, error)
}

// FriendRepository is the realm service's view of social-list storage.
type FriendRepository interface {
	// RemoveFromAllFriendLists drops victimID from every other
	// character's friend list on CharDelete, returning the owner ids
	// that had it so the caller can notify whoever is online.
	RemoveFromAllFriendLists(ctx context.Context, victimID uint32) ([]uint32, error)
}

// GroupRepository is the realm service's view of group storage.
type GroupRepository interface {
	// Load returns the group by id, or nil, nil if not found.
	Load(ctx context.Context, groupID int64) (*model.Group, error)
}
