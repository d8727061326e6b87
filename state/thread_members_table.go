package state

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/chatframe/roster/internal"
)

// ThreadMembersTable stores who is participating in each thread channel.
type ThreadMembersTable struct {
	db *sqlx.DB
}

func NewThreadMembersTable(db *sqlx.DB) *ThreadMembersTable {
	// make sure tables are made
	db.MustExec(`
	CREATE TABLE IF NOT EXISTS roster_thread_members (
		channel_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		membership TEXT NOT NULL,
		PRIMARY KEY (channel_id, user_id)
	);
	`)
	return &ThreadMembersTable{db}
}

func (t *ThreadMembersTable) SelectForChannel(ctx context.Context, channelID string) (members []internal.ThreadMember, err error) {
	err = t.db.SelectContext(ctx, &members, `
	SELECT channel_id, user_id, membership FROM roster_thread_members
	WHERE channel_id = $1`, channelID)
	return
}

func (t *ThreadMembersTable) Upsert(ctx context.Context, member internal.ThreadMember) error {
	_, err := t.db.ExecContext(ctx, `
	INSERT INTO roster_thread_members(channel_id, user_id, membership)
	VALUES ($1, $2, $3)
	ON CONFLICT (channel_id, user_id) DO UPDATE SET membership = $3`,
		member.ChannelID, member.UserID, member.Membership)
	return err
}
