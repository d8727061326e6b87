package state

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/chatframe/roster/internal"
)

// ChannelsTable stores the channel metadata the engine needs: which room a
// channel belongs to and whether it is a thread.
type ChannelsTable struct {
	db *sqlx.DB
}

func NewChannelsTable(db *sqlx.DB) *ChannelsTable {
	// make sure tables are made
	db.MustExec(`
	CREATE TABLE IF NOT EXISTS roster_channels (
		channel_id TEXT NOT NULL PRIMARY KEY,
		room_id TEXT NOT NULL,
		type TEXT NOT NULL DEFAULT 'text'
	);
	`)
	return &ChannelsTable{db}
}

func (t *ChannelsTable) Select(ctx context.Context, channelID string) (*internal.Channel, error) {
	var channel internal.Channel
	err := t.db.GetContext(ctx, &channel, `
	SELECT channel_id, room_id, type FROM roster_channels WHERE channel_id = $1`, channelID)
	if err != nil {
		return nil, fmt.Errorf("select channel %s: %w", channelID, err)
	}
	return &channel, nil
}

func (t *ChannelsTable) Upsert(ctx context.Context, channel internal.Channel) error {
	_, err := t.db.ExecContext(ctx, `
	INSERT INTO roster_channels(channel_id, room_id, type)
	VALUES ($1, $2, $3)
	ON CONFLICT (channel_id) DO UPDATE SET room_id = $2, type = $3`,
		channel.ID, channel.RoomID, channel.Type)
	return err
}
