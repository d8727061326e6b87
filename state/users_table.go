package state

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/chatframe/roster/internal"
)

// UsersTable stores user profiles with their last known presence.
type UsersTable struct {
	db *sqlx.DB
}

func NewUsersTable(db *sqlx.DB) *UsersTable {
	// make sure tables are made
	db.MustExec(`
	CREATE TABLE IF NOT EXISTS roster_users (
		user_id TEXT NOT NULL PRIMARY KEY,
		username TEXT NOT NULL,
		online BOOL NOT NULL DEFAULT FALSE
	);
	`)
	return &UsersTable{db}
}

// SelectByID batch-fetches the given users. Unknown IDs are simply absent from
// the result; the caller decides whether that matters.
func (t *UsersTable) SelectByID(ctx context.Context, userIDs []string) (users []internal.User, err error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	err = t.db.SelectContext(ctx, &users, `
	SELECT user_id, username, online FROM roster_users
	WHERE user_id = ANY($1)`, pq.StringArray(userIDs))
	return
}

func (t *UsersTable) Upsert(ctx context.Context, user internal.User) error {
	_, err := t.db.ExecContext(ctx, `
	INSERT INTO roster_users(user_id, username, online)
	VALUES ($1, $2, $3)
	ON CONFLICT (user_id) DO UPDATE SET username = $2, online = $3`,
		user.ID, user.Username, user.Online)
	return err
}
