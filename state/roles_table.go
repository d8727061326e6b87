package state

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/chatframe/roster/internal"
)

// RolesTable stores the roles of each room.
type RolesTable struct {
	db *sqlx.DB
}

func NewRolesTable(db *sqlx.DB) *RolesTable {
	// make sure tables are made
	db.MustExec(`
	CREATE TABLE IF NOT EXISTS roster_roles (
		role_id TEXT NOT NULL PRIMARY KEY,
		room_id TEXT NOT NULL,
		name TEXT NOT NULL,
		position BIGINT NOT NULL DEFAULT 0,
		hoist BOOL NOT NULL DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS roster_roles_room_idx ON roster_roles (room_id);
	`)
	return &RolesTable{db}
}

// SelectForRoom returns all roles for a room in position order, capped at
// limit. The cap exists to bound the single-page fetch, not to paginate.
func (t *RolesTable) SelectForRoom(ctx context.Context, roomID string, limit int) (roles []internal.Role, err error) {
	err = t.db.SelectContext(ctx, &roles, `
	SELECT role_id, room_id, name, position, hoist FROM roster_roles
	WHERE room_id = $1 ORDER BY position, role_id LIMIT $2`, roomID, limit)
	return
}

func (t *RolesTable) Upsert(ctx context.Context, role internal.Role) error {
	_, err := t.db.ExecContext(ctx, `
	INSERT INTO roster_roles(role_id, room_id, name, position, hoist)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (role_id) DO UPDATE SET name = $3, position = $4, hoist = $5`,
		role.ID, role.RoomID, role.Name, role.Position, role.Hoist)
	return err
}

func (t *RolesTable) Delete(ctx context.Context, roleID string) error {
	_, err := t.db.ExecContext(ctx, `DELETE FROM roster_roles WHERE role_id = $1`, roleID)
	return err
}
