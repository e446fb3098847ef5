package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/realmbroker/realmd/internal/model"
)

// AccountRepository implements login.AccountRepository against Postgres.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a Postgres-backed account repository.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// GetAccount returns the account by login, or nil, nil if not found.
func (r *AccountRepository) GetAccount(ctx context.Context, login string) (*model.Account, error) {
	login = strings.ToLower(login)
	var acc model.Account
	err := r.pool.QueryRow(ctx,
		`SELECT login, password_hash, srp_salt, srp_verifier, session_key,
		        access_level, last_server, last_ip, last_active, tutorial_data
		 FROM accounts WHERE login = $1`, login,
	).Scan(&acc.Login, &acc.PasswordHash, &acc.SRPSalt, &acc.SRPVerifier, &acc.SessionKeyK,
		&acc.AccessLevel, &acc.LastServer, &acc.LastIP, &acc.LastActive, &acc.TutorialData)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("querying account %q: %w", login, err)
	}
	return &acc, nil
}

// CreateAccount inserts a new account with a freshly derived (s, v) pair.
func (r *AccountRepository) CreateAccount(ctx context.Context, login string, storedHash, salt, verifier []byte) (*model.Account, error) {
	login = strings.ToLower(login)
	now := time.Now()
	_, err := r.pool.Exec(ctx,
		`INSERT INTO accounts (login, password_hash, srp_salt, srp_verifier, last_active)
		 VALUES ($1, $2, $3, $4, $5)`,
		login, storedHash, salt, verifier, now,
	)
	if err != nil {
		return nil, fmt.Errorf("creating account %q: %w", login, err)
	}
	return &model.Account{
		Login:        login,
		PasswordHash: storedHash,
		SRPSalt:      salt,
		SRPVerifier:  verifier,
		LastActive:   now,
	}, nil
}

// SaveVerifier persists a (possibly re-derived) (s, v) pair.
func (r *AccountRepository) SaveVerifier(ctx context.Context, login string, salt, verifier []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET srp_salt = $1, srp_verifier = $2 WHERE login = $3`,
		salt, verifier, strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("saving verifier for %q: %w", login, err)
	}
	return nil
}

// SaveSessionKey persists K after a successful LogonProof.
func (r *AccountRepository) SaveSessionKey(ctx context.Context, login string, k []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET session_key = $1, last_active = $2 WHERE login = $3`,
		k, time.Now(), strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("saving session key for %q: %w", login, err)
	}
	return nil
}

// SaveTutorialData writes back an account's tutorial progress blob, as
// reported by a realm on its uplink.
func (r *AccountRepository) SaveTutorialData(ctx context.Context, login string, data []byte) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET tutorial_data = $1 WHERE login = $2`,
		data, strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("saving tutorial data for %q: %w", login, err)
	}
	return nil
}

// ClearSessionKey drops the cached K.
func (r *AccountRepository) ClearSessionKey(ctx context.Context, login string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE accounts SET session_key = NULL WHERE login = $1`,
		strings.ToLower(login),
	)
	if err != nil {
		return fmt.Errorf("clearing session key for %q: %w", login, err)
	}
	return nil
}
