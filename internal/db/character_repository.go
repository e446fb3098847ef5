package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/realmbroker/realmd/internal/model"
)

// CharacterRepository implements the realm's character storage (spec §3.4
// "Store": character CRUD, name uniqueness per realm, soft delete).
type CharacterRepository struct {
	pool *pgxpool.Pool
}

// NewCharacterRepository creates a Postgres-backed character repository.
func NewCharacterRepository(pool *pgxpool.Pool) *CharacterRepository {
	return &CharacterRepository{pool: pool}
}

// ListByAccount returns every non-deleted character for accountLogin on
// realmID (spec §4.4 step 4, "CharEnum").
func (r *CharacterRepository) ListByAccount(ctx context.Context, accountLogin string, realmID int32) ([]model.CharacterSummary, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT character_id, name, race, class_id, level, map_id, at_login
		 FROM characters
		 WHERE account_login = $1 AND realm_id = $2 AND deleted_at IS NULL
		 ORDER BY character_id`, accountLogin, realmID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing characters for %q: %w", accountLogin, err)
	}
	defer rows.Close()

	var out []model.CharacterSummary
	for rows.Next() {
		var c model.CharacterSummary
		if err := rows.Scan(&c.DatabaseID, &c.Name, &c.Race, &c.ClassID, &c.Level, &c.MapID, &c.AtLogin); err != nil {
			return nil, fmt.Errorf("scanning character row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// CountByAccount returns how many non-deleted characters accountLogin has
// on realmID, used to enforce the per-account character cap (spec §4.4
// step 5).
func (r *CharacterRepository) CountByAccount(ctx context.Context, accountLogin string, realmID int32) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM characters WHERE account_login = $1 AND realm_id = $2 AND deleted_at IS NULL`,
		accountLogin, realmID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting characters for %q: %w", accountLogin, err)
	}
	return n, nil
}

// Create inserts a new character row, returning the database id assigned.
func (r *CharacterRepository) Create(ctx context.Context, accountLogin string, realmID int32, name string, race int8, classID int16) (uint32, error) {
	var id uint32
	err := r.pool.QueryRow(ctx,
		`INSERT INTO characters (account_login, realm_id, name, race, class_id)
		 VALUES ($1, $2, $3, $4, $5) RETURNING character_id`,
		accountLogin, realmID, name, race, classID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("creating character %q: %w", name, err)
	}
	return id, nil
}

// SoftDelete marks a character removed without losing its row (friend-list
// bookkeeping and audit trails still reference the id).
func (r *CharacterRepository) SoftDelete(ctx context.Context, characterID uint32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE characters SET deleted_at = now() WHERE character_id = $1`, characterID,
	)
	if err != nil {
		return fmt.Errorf("deleting character %d: %w", characterID, err)
	}
	return nil
}

// Rename changes a character's name and clears its AtLoginRename flag
// (spec §4.4 step 7).
func (r *CharacterRepository) Rename(ctx context.Context, characterID uint32, newName string) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE characters SET name = $1, at_login = at_login & ~$2 WHERE character_id = $3`,
		newName, model.AtLoginRename, characterID,
	)
	if err != nil {
		return fmt.Errorf("renaming character %d: %w", characterID, err)
	}
	return nil
}

// GetOwner returns the account login that owns characterID on realmID, or
// "", nil if the character does not exist (spec §4.4 step 8: "verify the
// character belongs to this account").
func (r *CharacterRepository) GetOwner(ctx context.Context, characterID uint32, realmID int32) (string, error) {
	var login string
	err := r.pool.QueryRow(ctx,
		`SELECT account_login FROM characters WHERE character_id = $1 AND realm_id = $2 AND deleted_at IS NULL`,
		characterID, realmID,
	).Scan(&login)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", nil
		}
		return "", fmt.Errorf("looking up owner of character %d: %w", characterID, err)
	}
	return login, nil
}

// GetByID returns the full row needed to hand a character off to a world
// node (spec §4.4 step 8: ownership check, pending-rename gate, and the
// position snapshot CharacterLogIn carries). Returns nil, nil on miss.
func (r *CharacterRepository) GetByID(ctx context.Context, characterID uint32, realmID int32) (*model.GameCharacter, model.AtLoginFlags, error) {
	var gc model.GameCharacter
	var atLogin model.AtLoginFlags
	gc.DatabaseID = characterID
	err := r.pool.QueryRow(ctx,
		`SELECT account_login, name, map_id, pos_x, pos_y, pos_z, heading, at_login
		 FROM characters
		 WHERE character_id = $1 AND realm_id = $2 AND deleted_at IS NULL`,
		characterID, realmID,
	).Scan(&gc.AccountLogin, &gc.Name, &gc.MapID, &gc.PosX, &gc.PosY, &gc.PosZ, &gc.Heading, &atLogin)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("looking up character %d: %w", characterID, err)
	}
	return &gc, atLogin, nil
}

// SavePosition writes back the character's in-world location, called on
// world→realm CharacterData frames and at logout (spec §3.4).
func (r *CharacterRepository) SavePosition(ctx context.Context, characterID uint32, mapID, x, y, z, heading int32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE characters SET map_id = $1, pos_x = $2, pos_y = $3, pos_z = $4, heading = $5 WHERE character_id = $6`,
		mapID, x, y, z, heading, characterID,
	)
	if err != nil {
		return fmt.Errorf("saving position for character %d: %w", characterID, err)
	}
	return nil
}
