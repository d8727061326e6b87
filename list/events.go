package list

import (
	"github.com/chatframe/roster/internal"
)

// Event is a domain event fed to MemberList.Process. Events carrying a room or
// channel ID that does not match the list's key produce no ops.
type Event interface{}

// RoomMemberEvent is a room membership upsert: a join, a role change, an
// override-name change, or a leave (Member.Membership == MembershipLeave).
type RoomMemberEvent struct {
	RoomID string
	Member internal.RoomMember
}

// ThreadMemberEvent is the thread-scoped equivalent of RoomMemberEvent.
type ThreadMemberEvent struct {
	ChannelID string
	Member    internal.ThreadMember
}

// RoleEvent is a role create or update.
type RoleEvent struct {
	RoomID string
	Role   internal.Role
}

// RoleDeleteEvent removes a role; members holding it are reclassified.
type RoleDeleteEvent struct {
	RoomID string
	RoleID string
}

// UserEvent is a profile update. Presence is owned by PresenceEvent and is
// preserved from the cached record.
type UserEvent struct {
	User internal.User
}

// PresenceEvent flips a user's online state.
type PresenceEvent struct {
	UserID string
	Online bool
}

// RoleReorderEvent and ChannelOverwriteEvent are decoded off the bus but are
// deliberate no-ops in this revision.
type RoleReorderEvent struct {
	RoomID string
}

type ChannelOverwriteEvent struct {
	ChannelID string
}
