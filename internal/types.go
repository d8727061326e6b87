package internal

// Membership states carried on membership records. The engine only cares
// whether a member has left; every other state counts as active.
const (
	MembershipJoin  = "join"
	MembershipLeave = "leave"
)

// Role is a room-scoped role. Position orders roles, lower = more prominent.
// Hoisted roles get their own group in the member list.
type Role struct {
	ID       string `db:"role_id"`
	RoomID   string `db:"room_id"`
	Name     string `db:"name"`
	Position int64  `db:"position"`
	Hoist    bool   `db:"hoist"`
}

// RoomMember is a user's membership record in a room, including the roles they
// hold there and any per-room override of their display name.
type RoomMember struct {
	RoomID       string   `db:"room_id" json:"room_id" cbor:"1,keyasint"`
	UserID       string   `db:"user_id" json:"user_id" cbor:"2,keyasint"`
	Membership   string   `db:"membership" json:"membership" cbor:"3,keyasint"`
	OverrideName string   `db:"override_name" json:"override_name,omitempty" cbor:"4,keyasint,omitempty"`
	RoleIDs      []string `json:"role_ids,omitempty" cbor:"5,keyasint,omitempty"`
}

// ThreadMember links a user to a thread-type channel.
type ThreadMember struct {
	ChannelID  string `db:"channel_id" json:"channel_id" cbor:"1,keyasint"`
	UserID     string `db:"user_id" json:"user_id" cbor:"2,keyasint"`
	Membership string `db:"membership" json:"membership" cbor:"3,keyasint"`
}

// User is a profile record with its embedded presence.
type User struct {
	ID       string `db:"user_id" json:"user_id" cbor:"1,keyasint"`
	Username string `db:"username" json:"username" cbor:"2,keyasint"`
	Online   bool   `db:"online" json:"online" cbor:"3,keyasint"`
}

const (
	ChannelTypeText   = "text"
	ChannelTypeThread = "thread"
	ChannelTypeVoice  = "voice"
)

// Channel is the slice of channel metadata the engine needs: enough to tell
// whether a channel-scoped list key refers to a thread.
type Channel struct {
	ID     string `db:"channel_id"`
	RoomID string `db:"room_id"`
	Type   string `db:"type"`
}

func (c *Channel) IsThread() bool {
	return c != nil && c.Type == ChannelTypeThread
}

// DisplayName is the name members sort by: the room override if one is set,
// else the username. Byte-order comparisons, no case folding.
func DisplayName(member *RoomMember, user *User) string {
	if member != nil && member.OverrideName != "" {
		return member.OverrideName
	}
	return user.Username
}
