package migrations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/pressly/goose/v3"
)

func init() {
	goose.AddMigrationContext(upStaleThreadMembers, downStaleThreadMembers)
}

// Early bridge versions did not delete thread membership rows when a thread
// was archived and its channel row removed, leaving memberships pointing at
// channels that no longer exist. Those rows inflate rosters built for a
// re-created channel ID, so remove them.
func upStaleThreadMembers(ctx context.Context, tx *sql.Tx) error {
	var exists bool
	err := tx.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM information_schema.tables WHERE table_name = 'roster_thread_members'
		)`).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		return err
	}
	if !exists {
		// fresh database, the table will be created with nothing stale in it
		return nil
	}
	res, err := tx.ExecContext(ctx, `
		DELETE FROM roster_thread_members
		WHERE channel_id NOT IN (
			SELECT channel_id FROM roster_channels WHERE type = 'thread'
		)`)
	if err != nil {
		return fmt.Errorf("failed to delete stale thread members: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err == nil && deleted > 0 {
		fmt.Printf("removed %d stale thread membership rows\n", deleted)
	}
	return nil
}

func downStaleThreadMembers(ctx context.Context, tx *sql.Tx) error {
	// the deleted rows were garbage, there is nothing to restore
	return nil
}
