package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/realmbroker/realmd/internal/model"
)

// FriendRepository implements the social list storage (spec §3.4 "Social
// list (friend/ignore bits + note) per character").
type FriendRepository struct {
	pool *pgxpool.Pool
}

// NewFriendRepository creates a Postgres-backed friend list repository.
func NewFriendRepository(pool *pgxpool.Pool) *FriendRepository {
	return &FriendRepository{pool: pool}
}

// Load returns ownerID's friend list, including the ignore set.
func (r *FriendRepository) Load(ctx context.Context, ownerID uint32) (*model.FriendList, error) {
	fl := &model.FriendList{OwnerID: ownerID}

	rows, err := r.pool.Query(ctx,
		`SELECT f.friend_id, c.name, f.note
		 FROM friend_entries f JOIN characters c ON c.character_id = f.friend_id
		 WHERE f.owner_id = $1 ORDER BY c.name`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading friends of %d: %w", ownerID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var e model.FriendEntry
		if err := rows.Scan(&e.CharID, &e.Name, &e.Note); err != nil {
			return nil, fmt.Errorf("scanning friend entry: %w", err)
		}
		fl.Friends = append(fl.Friends, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ignored, err := r.pool.Query(ctx, `SELECT ignored_id FROM ignore_entries WHERE owner_id = $1`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("loading ignore list of %d: %w", ownerID, err)
	}
	defer ignored.Close()
	for ignored.Next() {
		var id uint32
		if err := ignored.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning ignore entry: %w", err)
		}
		fl.Ignored = append(fl.Ignored, id)
	}
	return fl, ignored.Err()
}

// AddFriend adds friendID to ownerID's friend list.
func (r *FriendRepository) AddFriend(ctx context.Context, ownerID, friendID uint32) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO friend_entries (owner_id, friend_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		ownerID, friendID,
	)
	if err != nil {
		return fmt.Errorf("adding friend %d for %d: %w", friendID, ownerID, err)
	}
	return nil
}

// RemoveFriend removes the (ownerID, friendID) edge.
func (r *FriendRepository) RemoveFriend(ctx context.Context, ownerID, friendID uint32) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM friend_entries WHERE owner_id = $1 AND friend_id = $2`, ownerID, friendID,
	)
	if err != nil {
		return fmt.Errorf("removing friend %d for %d: %w", friendID, ownerID, err)
	}
	return nil
}

// RemoveFromAllFriendLists drops victimID from every other character's
// friend list, used on CharDelete (spec §4.4 step 6). It returns the set of
// owner ids that had victimID as a contact, so the caller can broadcast a
// removal to anyone currently online.
func (r *FriendRepository) RemoveFromAllFriendLists(ctx context.Context, victimID uint32) ([]uint32, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM friend_entries WHERE friend_id = $1 RETURNING owner_id`, victimID,
	)
	if err != nil {
		return nil, fmt.Errorf("removing character %d from friend lists: %w", victimID, err)
	}
	defer rows.Close()

	var owners []uint32
	for rows.Next() {
		var ownerID uint32
		if err := rows.Scan(&ownerID); err != nil {
			return nil, fmt.Errorf("scanning removed friend-list owner: %w", err)
		}
		owners = append(owners, ownerID)
	}
	return owners, rows.Err()
}
