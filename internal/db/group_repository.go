package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/realmbroker/realmd/internal/model"
)

// GroupRepository implements group persistence (spec §4.4.b "Group
// persistence: list ids, load by id, create, disband, add/remove member,
// set leader").
type GroupRepository struct {
	pool *pgxpool.Pool
}

// NewGroupRepository creates a Postgres-backed group repository.
func NewGroupRepository(pool *pgxpool.Pool) *GroupRepository {
	return &GroupRepository{pool: pool}
}

// Load returns the group by id, or nil, nil if not found.
func (r *GroupRepository) Load(ctx context.Context, groupID int64) (*model.Group, error) {
	var g model.Group
	g.ID = groupID
	err := r.pool.QueryRow(ctx,
		`SELECT leader_id, loot_method FROM groups WHERE group_id = $1`, groupID,
	).Scan(&g.LeaderID, &g.LootMethod)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("loading group %d: %w", groupID, err)
	}

	rows, err := r.pool.Query(ctx, `SELECT character_id FROM group_members WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading members of group %d: %w", groupID, err)
	}
	defer rows.Close()
	for rows.Next() {
		var id uint32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning group member: %w", err)
		}
		g.MemberIDs = append(g.MemberIDs, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	bindings, err := r.pool.Query(ctx, `SELECT map_id, instance_id FROM group_instance_bindings WHERE group_id = $1`, groupID)
	if err != nil {
		return nil, fmt.Errorf("loading instance bindings of group %d: %w", groupID, err)
	}
	defer bindings.Close()
	g.InstanceBindings = make(map[int32]int64)
	for bindings.Next() {
		var mapID int32
		var instanceID int64
		if err := bindings.Scan(&mapID, &instanceID); err != nil {
			return nil, fmt.Errorf("scanning instance binding: %w", err)
		}
		g.InstanceBindings[mapID] = instanceID
	}
	return &g, bindings.Err()
}

// Create inserts a brand-new group with leaderID as its sole member.
func (r *GroupRepository) Create(ctx context.Context, leaderID uint32) (*model.Group, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO groups (leader_id) VALUES ($1) RETURNING group_id`, leaderID,
	).Scan(&id)
	if err != nil {
		return nil, fmt.Errorf("creating group for leader %d: %w", leaderID, err)
	}
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, character_id) VALUES ($1, $2)`, id, leaderID,
	); err != nil {
		return nil, fmt.Errorf("adding leader to group %d: %w", id, err)
	}
	return &model.Group{ID: id, LeaderID: leaderID, MemberIDs: []uint32{leaderID}}, nil
}

// Disband removes a group entirely.
func (r *GroupRepository) Disband(ctx context.Context, groupID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM groups WHERE group_id = $1`, groupID)
	if err != nil {
		return fmt.Errorf("disbanding group %d: %w", groupID, err)
	}
	return nil
}

// AddMember adds charID to groupID.
func (r *GroupRepository) AddMember(ctx context.Context, groupID int64, charID uint32) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO group_members (group_id, character_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		groupID, charID,
	)
	if err != nil {
		return fmt.Errorf("adding member %d to group %d: %w", charID, groupID, err)
	}
	return nil
}

// RemoveMember removes charID from groupID.
func (r *GroupRepository) RemoveMember(ctx context.Context, groupID int64, charID uint32) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM group_members WHERE group_id = $1 AND character_id = $2`, groupID, charID,
	)
	if err != nil {
		return fmt.Errorf("removing member %d from group %d: %w", charID, groupID, err)
	}
	return nil
}

// SetLeader transfers group leadership.
func (r *GroupRepository) SetLeader(ctx context.Context, groupID int64, newLeaderID uint32) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE groups SET leader_id = $1 WHERE group_id = $2`, newLeaderID, groupID,
	)
	if err != nil {
		return fmt.Errorf("setting leader of group %d: %w", groupID, err)
	}
	return nil
}

// BindInstance records which instance a group resolved on mapID, so a
// reassembling member lands in the same instance (spec §4.4 step 8).
func (r *GroupRepository) BindInstance(ctx context.Context, groupID int64, mapID int32, instanceID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO group_instance_bindings (group_id, map_id, instance_id)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (group_id, map_id) DO UPDATE SET instance_id = excluded.instance_id`,
		groupID, mapID, instanceID,
	)
	if err != nil {
		return fmt.Errorf("binding group %d to instance on map %d: %w", groupID, mapID, err)
	}
	return nil
}
