package testutils

import (
	"encoding/json"
	"testing"

	"github.com/tidwall/sjson"

	"github.com/chatframe/roster/internal"
)

// Builders for the JSON domain events carried on the bus. Each builds the
// exact shape gateway publishes, so decode tests and integration tests share
// one source of truth.

func setJSON(t *testing.T, raw []byte, path string, value interface{}) []byte {
	t.Helper()
	out, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		t.Fatalf("failed to set %s on event JSON: %s", path, err)
	}
	return out
}

func NewRoomMemberEvent(t *testing.T, member internal.RoomMember) json.RawMessage {
	t.Helper()
	j := setJSON(t, []byte(`{}`), "type", "room_member")
	j = setJSON(t, j, "room_id", member.RoomID)
	j = setJSON(t, j, "user_id", member.UserID)
	j = setJSON(t, j, "membership", member.Membership)
	if member.OverrideName != "" {
		j = setJSON(t, j, "override_name", member.OverrideName)
	}
	if len(member.RoleIDs) > 0 {
		j = setJSON(t, j, "role_ids", member.RoleIDs)
	}
	return j
}

func NewThreadMemberEvent(t *testing.T, member internal.ThreadMember) json.RawMessage {
	t.Helper()
	j := setJSON(t, []byte(`{}`), "type", "thread_member")
	j = setJSON(t, j, "channel_id", member.ChannelID)
	j = setJSON(t, j, "user_id", member.UserID)
	j = setJSON(t, j, "membership", member.Membership)
	return j
}

func NewRoleEvent(t *testing.T, role internal.Role) json.RawMessage {
	t.Helper()
	j := setJSON(t, []byte(`{}`), "type", "role")
	j = setJSON(t, j, "room_id", role.RoomID)
	j = setJSON(t, j, "role.id", role.ID)
	j = setJSON(t, j, "role.name", role.Name)
	j = setJSON(t, j, "role.position", role.Position)
	j = setJSON(t, j, "role.hoist", role.Hoist)
	return j
}

func NewRoleDeleteEvent(t *testing.T, roomID, roleID string) json.RawMessage {
	t.Helper()
	j := setJSON(t, []byte(`{}`), "type", "role_delete")
	j = setJSON(t, j, "room_id", roomID)
	j = setJSON(t, j, "role_id", roleID)
	return j
}

func NewUserEvent(t *testing.T, user internal.User) json.RawMessage {
	t.Helper()
	j := setJSON(t, []byte(`{}`), "type", "user")
	j = setJSON(t, j, "user.id", user.ID)
	j = setJSON(t, j, "user.username", user.Username)
	return j
}

func NewPresenceEvent(t *testing.T, userID string, online bool) json.RawMessage {
	t.Helper()
	j := setJSON(t, []byte(`{}`), "type", "presence")
	j = setJSON(t, j, "user_id", userID)
	j = setJSON(t, j, "online", online)
	return j
}
