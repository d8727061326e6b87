package state

import (
	"context"
	"os"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/chatframe/roster/internal"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

// Storage aggregates the read accessors the list engine needs at construction
// time. The engine never writes through it: the tables are populated by the
// rest of the platform (message service, presence tracker, bridges).
type Storage struct {
	DB *sqlx.DB

	ChannelsTable      *ChannelsTable
	RolesTable         *RolesTable
	RoomMembersTable   *RoomMembersTable
	ThreadMembersTable *ThreadMembersTable
	UsersTable         *UsersTable
}

func NewStorage(postgresURI string) *Storage {
	db, err := sqlx.Open("postgres", postgresURI)
	if err != nil {
		sentry.CaptureException(err)
		// TODO: if we panic(), will sentry have a chance to flush the event?
		logger.Panic().Err(err).Str("uri", postgresURI).Msg("failed to open SQL DB")
	}
	return NewStorageWithDB(db)
}

func NewStorageWithDB(db *sqlx.DB) *Storage {
	return &Storage{
		DB:                 db,
		ChannelsTable:      NewChannelsTable(db),
		RolesTable:         NewRolesTable(db),
		RoomMembersTable:   NewRoomMembersTable(db),
		ThreadMembersTable: NewThreadMembersTable(db),
		UsersTable:         NewUsersTable(db),
	}
}

func (s *Storage) Teardown() {
	if err := s.DB.Close(); err != nil {
		panic("Storage.Teardown: " + err.Error())
	}
}

// Channel implements list.Store.
func (s *Storage) Channel(ctx context.Context, channelID string) (*internal.Channel, error) {
	return s.ChannelsTable.Select(ctx, channelID)
}

// RolesForRoom implements list.Store.
func (s *Storage) RolesForRoom(ctx context.Context, roomID string, limit int) ([]internal.Role, error) {
	return s.RolesTable.SelectForRoom(ctx, roomID, limit)
}

// RoomMembers implements list.Store.
func (s *Storage) RoomMembers(ctx context.Context, roomID string) ([]internal.RoomMember, error) {
	return s.RoomMembersTable.SelectForRoom(ctx, roomID)
}

// ThreadMembers implements list.Store.
func (s *Storage) ThreadMembers(ctx context.Context, channelID string) ([]internal.ThreadMember, error) {
	return s.ThreadMembersTable.SelectForChannel(ctx, channelID)
}

// UsersByID implements list.Store.
func (s *Storage) UsersByID(ctx context.Context, userIDs []string) ([]internal.User, error) {
	return s.UsersTable.SelectByID(ctx, userIDs)
}
