package state

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chatframe/roster/internal"
	"github.com/chatframe/roster/sqlutil"
)

// RoomMembersTable stores room membership records plus the role assignments
// for each member (roster_member_roles).
type RoomMembersTable struct {
	db *sqlx.DB
}

func NewRoomMembersTable(db *sqlx.DB) *RoomMembersTable {
	// make sure tables are made
	db.MustExec(`
	CREATE TABLE IF NOT EXISTS roster_room_members (
		room_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		membership TEXT NOT NULL,
		override_name TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (room_id, user_id)
	);
	CREATE TABLE IF NOT EXISTS roster_member_roles (
		room_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		role_id TEXT NOT NULL,
		PRIMARY KEY (room_id, user_id, role_id)
	);
	`)
	return &RoomMembersTable{db}
}

// SelectForRoom returns every membership record for the room with its role IDs
// aggregated in.
func (t *RoomMembersTable) SelectForRoom(ctx context.Context, roomID string) ([]internal.RoomMember, error) {
	rows, err := t.db.QueryContext(ctx, `
	SELECT m.room_id, m.user_id, m.membership, m.override_name,
	       array_remove(array_agg(r.role_id ORDER BY r.role_id), NULL)
	FROM roster_room_members AS m
	LEFT JOIN roster_member_roles AS r
	       ON r.room_id = m.room_id AND r.user_id = m.user_id
	WHERE m.room_id = $1
	GROUP BY m.room_id, m.user_id, m.membership, m.override_name`, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var members []internal.RoomMember
	for rows.Next() {
		var member internal.RoomMember
		var roleIDs pq.StringArray
		if err := rows.Scan(&member.RoomID, &member.UserID, &member.Membership, &member.OverrideName, &roleIDs); err != nil {
			return nil, err
		}
		member.RoleIDs = roleIDs
		members = append(members, member)
	}
	return members, rows.Err()
}

// Upsert replaces the membership record and its role assignments atomically.
func (t *RoomMembersTable) Upsert(ctx context.Context, member internal.RoomMember) error {
	return sqlutil.WithTransaction(t.db, func(txn *sqlx.Tx) error {
		_, err := txn.ExecContext(ctx, `
		INSERT INTO roster_room_members(room_id, user_id, membership, override_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (room_id, user_id) DO UPDATE SET membership = $3, override_name = $4`,
			member.RoomID, member.UserID, member.Membership, member.OverrideName)
		if err != nil {
			return err
		}
		_, err = txn.ExecContext(ctx, `
		DELETE FROM roster_member_roles WHERE room_id = $1 AND user_id = $2`,
			member.RoomID, member.UserID)
		if err != nil {
			return err
		}
		for _, roleID := range member.RoleIDs {
			_, err = txn.ExecContext(ctx, `
			INSERT INTO roster_member_roles(room_id, user_id, role_id) VALUES ($1, $2, $3)
			ON CONFLICT DO NOTHING`, member.RoomID, member.UserID, roleID)
			if err != nil {
				return err
			}
		}
		return nil
	})
}
