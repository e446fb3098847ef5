package login

import (
	"context"

	"github.com/realmbroker/realmd/internal/model"
)

// AccountRepository is the login service's view of account storage.
// Defined here, consumed by handler.go, implemented by db.AccountRepository
// against Postgres and by an in-memory fake in tests.
type AccountRepository interface {
	// GetAccount returns the account by login, or nil, nil if not found.
	GetAccount(ctx context.Context, login string) (*model.Account, error)

	// CreateAccount inserts a new account with the given SRP salt/verifier
	// derived from storedHash (spec §4.1 "Challenge" step 1, first login).
	CreateAccount(ctx context.Context, login string, storedHash, salt, verifier []byte) (*model.Account, error)

	// SaveVerifier persists a freshly (re)derived (s, v) pair for an
	// existing account.
	SaveVerifier(ctx context.Context, login string, salt, verifier []byte) error

	// SaveSessionKey persists K after a successful proof (spec §4.1 step 7).
	SaveSessionKey(ctx context.Context, login string, k []byte) error

	// ClearSessionKey drops the cached K, e.g. after it is consumed by a
	// realm PlayerLogin handoff, so a stale K can't be reconnect-replayed
	// indefinitely.
	ClearSessionKey(ctx context.Context, login string) error

	// SaveTutorialData writes back an account's tutorial-progress blob,
	// reported by a realm over the uplink (spec §4.3 "tutorial-data
	// writebacks").
	SaveTutorialData(ctx context.Context, login string, data []byte) error
}
