package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/realmbroker/realmd/internal/model"
)

// RealmRepository implements the login service's view of known realms.
type RealmRepository struct {
	pool *pgxpool.Pool
}

// NewRealmRepository creates a Postgres-backed realm repository.
func NewRealmRepository(pool *pgxpool.Pool) *RealmRepository {
	return &RealmRepository{pool: pool}
}

// GetByInternalName looks up a realm by the name it presents on its uplink
// handshake (spec §4.3 "Login↔realm side channel").
func (r *RealmRepository) GetByInternalName(ctx context.Context, internalName string) (*model.RealmDescriptor, []byte, error) {
	var d model.RealmDescriptor
	var uplinkPasswordHash []byte
	err := r.pool.QueryRow(ctx,
		`SELECT realm_id, internal_name, visible_name, uplink_password_hash, host, port,
		        age_limit, pvp, current_players, max_players, brackets, clock, authenticated
		 FROM realms WHERE internal_name = $1`, internalName,
	).Scan(&d.RealmID, &d.InternalName, &d.VisibleName, &uplinkPasswordHash, &d.Host, &d.Port,
		&d.AgeLimit, &d.PvP, &d.CurrentPlayers, &d.MaxPlayers, &d.Brackets, &d.Clock, &d.Authenticated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("querying realm %q: %w", internalName, err)
	}
	return &d, uplinkPasswordHash, nil
}

// MarkOnline records a realm's uplink coming up, with the visible name,
// host and port it announced.
func (r *RealmRepository) MarkOnline(ctx context.Context, realmID int32, visibleName, host string, port int) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE realms SET authenticated = true, visible_name = $1, host = $2, port = $3 WHERE realm_id = $4`,
		visibleName, host, port, realmID,
	)
	if err != nil {
		return fmt.Errorf("marking realm %d online: %w", realmID, err)
	}
	return nil
}

// MarkOffline records a realm's uplink dropping (spec §4.3: "if the realm
// uplink is idle for 30 seconds it is dropped and the realm is marked
// offline").
func (r *RealmRepository) MarkOffline(ctx context.Context, realmID int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE realms SET authenticated = false WHERE realm_id = $1`, realmID,
	)
	if err != nil {
		return fmt.Errorf("marking realm %d offline: %w", realmID, err)
	}
	return nil
}

// UpdatePlayerCount records a realm's live player count, as reported on its
// UpdateCurrentPlayers uplink frame.
func (r *RealmRepository) UpdatePlayerCount(ctx context.Context, realmID int32, current int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE realms SET current_players = $1 WHERE realm_id = $2`, current, realmID,
	)
	if err != nil {
		return fmt.Errorf("updating player count for realm %d: %w", realmID, err)
	}
	return nil
}

// ListAuthenticated returns every realm whose uplink is currently
// connected, ordered by realm id, capped at the protocol's u8 length limit
// by the caller.
func (r *RealmRepository) ListAuthenticated(ctx context.Context) ([]model.RealmDescriptor, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT realm_id, internal_name, visible_name, host, port,
		        age_limit, pvp, current_players, max_players, brackets, clock, authenticated
		 FROM realms WHERE authenticated = true ORDER BY realm_id`)
	if err != nil {
		return nil, fmt.Errorf("listing authenticated realms: %w", err)
	}
	defer rows.Close()

	var out []model.RealmDescriptor
	for rows.Next() {
		var d model.RealmDescriptor
		if err := rows.Scan(&d.RealmID, &d.InternalName, &d.VisibleName, &d.Host, &d.Port,
			&d.AgeLimit, &d.PvP, &d.CurrentPlayers, &d.MaxPlayers, &d.Brackets, &d.Clock, &d.Authenticated); err != nil {
			return nil, fmt.Errorf("scanning realm row: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
