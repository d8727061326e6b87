package list

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/chatframe/roster/internal"
)

type mockStore struct {
	channels      map[string]*internal.Channel
	roles         map[string][]internal.Role
	roomMembers   map[string][]internal.RoomMember
	threadMembers map[string][]internal.ThreadMember
	users         map[string]internal.User
}

func (s *mockStore) Channel(ctx context.Context, channelID string) (*internal.Channel, error) {
	return s.channels[channelID], nil
}
func (s *mockStore) RolesForRoom(ctx context.Context, roomID string, limit int) ([]internal.Role, error) {
	return s.roles[roomID], nil
}
func (s *mockStore) RoomMembers(ctx context.Context, roomID string) ([]internal.RoomMember, error) {
	return s.roomMembers[roomID], nil
}
func (s *mockStore) ThreadMembers(ctx context.Context, channelID string) ([]internal.ThreadMember, error) {
	return s.threadMembers[channelID], nil
}
func (s *mockStore) UsersByID(ctx context.Context, userIDs []string) ([]internal.User, error) {
	var users []internal.User
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			users = append(users, u)
		}
	}
	return users, nil
}

func onlineUser(id string) internal.User {
	return internal.User{ID: id, Username: id, Online: true}
}

func offlineUser(id string) internal.User {
	return internal.User{ID: id, Username: id}
}

func roomMember(roomID, userID string, roleIDs ...string) internal.RoomMember {
	return internal.RoomMember{
		RoomID:     roomID,
		UserID:     userID,
		Membership: internal.MembershipJoin,
		RoleIDs:    roleIDs,
	}
}

func threadMember(channelID, userID string) internal.ThreadMember {
	return internal.ThreadMember{
		ChannelID:  channelID,
		UserID:     userID,
		Membership: internal.MembershipJoin,
	}
}

func hoistedRole(roomID, roleID string, position int64) internal.Role {
	return internal.Role{ID: roleID, RoomID: roomID, Name: roleID, Position: position, Hoist: true}
}

// flatten reads the whole list back through InitialRanges and returns the user
// IDs in list order.
func flatten(t *testing.T, m *MemberList) []string {
	t.Helper()
	var ids []string
	for _, op := range m.InitialRanges(Ranges{{0, int64(m.Len())}}) {
		sync, ok := op.(*SyncOp)
		if !ok {
			t.Fatalf("flatten: InitialRanges returned a %s op", op.Op())
		}
		for _, u := range sync.Users {
			ids = append(ids, u.ID)
		}
	}
	return ids
}

func assertEqualOps(t *testing.T, name string, gotOps, wantOps []Op) {
	t.Helper()
	got, err := json.Marshal(gotOps)
	want, err2 := json.Marshal(wantOps)
	if err != nil || err2 != nil {
		t.Fatalf("%s: failed to marshal ops: %v %v", name, err, err2)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("%s: assertEqualOps, got != want\n%s\n%s", name, string(got), string(want))
	}
}

func assertFlattened(t *testing.T, m *MemberList, want []string) {
	t.Helper()
	got := m.flattenedUserIDs()
	if len(got) != len(want) {
		t.Fatalf("flattened list: got %v want %v", got, want)
	}
	for i := range got {
		if got[i] != want[i] {
			t.Fatalf("flattened list: got %v want %v", got, want)
		}
	}
}

// checkInvariants asserts the structural invariants that must hold after
// every Process call: no empty groups, groups in group order, every tracked
// user in exactly one group at a display-name-sorted index.
func checkInvariants(t *testing.T, m *MemberList) {
	t.Helper()
	seen := make(map[string]GroupID)
	for gi, g := range m.groups {
		if len(g.userIDs) == 0 {
			t.Fatalf("group %+v is empty", g.id)
		}
		if gi > 0 {
			prev := m.groups[gi-1]
			if !prev.sortsBefore(g.id, g.rolePosition) {
				t.Fatalf("groups out of order: %+v before %+v", prev.id, g.id)
			}
		}
		for i, userID := range g.userIDs {
			if other, ok := seen[userID]; ok {
				t.Fatalf("user %s in both %+v and %+v", userID, other, g.id)
			}
			seen[userID] = g.id
			if i > 0 && m.displayName(g.userIDs[i-1]) > m.displayName(userID) {
				t.Fatalf("group %+v not sorted by display name: %v", g.id, g.userIDs)
			}
		}
	}
	if len(seen) != len(m.userToGroup) {
		t.Fatalf("reverse index out of sync: %d grouped users, %d indexed", len(seen), len(m.userToGroup))
	}
	for userID, id := range m.userToGroup {
		if seen[userID] != id {
			t.Fatalf("reverse index for %s says %+v but user is in %+v", userID, id, seen[userID])
		}
	}
}

func TestLoadRoomList(t *testing.T) {
	store := &mockStore{
		roles: map[string][]internal.Role{
			"!r1": {
				hoistedRole("!r1", "mods", 1),
				{ID: "plain", RoomID: "!r1", Name: "plain", Position: 0, Hoist: false},
			},
		},
		roomMembers: map[string][]internal.RoomMember{
			"!r1": {
				roomMember("!r1", "zara", "mods"),
				roomMember("!r1", "amy"),
				roomMember("!r1", "bob", "plain"),
				roomMember("!r1", "cleo"),
			},
		},
		users: map[string]internal.User{
			"zara": onlineUser("zara"),
			"amy":  onlineUser("amy"),
			"bob":  onlineUser("bob"),
			"cleo": offlineUser("cleo"),
		},
	}
	m, err := Load(context.Background(), Key{RoomID: "!r1"}, store, Opts{})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	checkInvariants(t, m)
	// zara is hoisted; bob's unhoisted role does not move him out of Online
	assertFlattened(t, m, []string{"zara", "amy", "bob", "cleo"})
	wantGroups := []GroupSummary{
		{ID: HoistedGroup("mods"), Count: 1},
		{ID: OnlineGroup, Count: 2},
		{ID: OfflineGroup, Count: 1},
	}
	gotGroups := m.Groups()
	gotJSON, _ := json.Marshal(gotGroups)
	wantJSON, _ := json.Marshal(wantGroups)
	if !bytes.Equal(gotJSON, wantJSON) {
		t.Fatalf("Groups: got %s want %s", gotJSON, wantJSON)
	}
}

func TestLoadThreadList(t *testing.T) {
	store := &mockStore{
		channels: map[string]*internal.Channel{
			"#t1": {ID: "#t1", RoomID: "!r1", Type: internal.ChannelTypeThread},
		},
		threadMembers: map[string][]internal.ThreadMember{
			"#t1": {
				threadMember("#t1", "bob"),
				threadMember("#t1", "amy"),
			},
		},
		users: map[string]internal.User{
			"amy": onlineUser("amy"),
			"bob": offlineUser("bob"),
		},
	}
	m, err := Load(context.Background(), Key{ChannelID: "#t1"}, store, Opts{})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	checkInvariants(t, m)
	assertFlattened(t, m, []string{"amy", "bob"})
}

func TestLoadNonThreadChannelIsEmpty(t *testing.T) {
	store := &mockStore{
		channels: map[string]*internal.Channel{
			"#general": {ID: "#general", RoomID: "!r1", Type: internal.ChannelTypeText},
		},
		threadMembers: map[string][]internal.ThreadMember{
			"#general": {threadMember("#general", "amy")},
		},
		users: map[string]internal.User{"amy": onlineUser("amy")},
	}
	m, err := Load(context.Background(), Key{ChannelID: "#general"}, store, Opts{})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if m.Len() != 0 {
		t.Fatalf("non-thread channel list should be empty, got %d members", m.Len())
	}
}

func TestLoadSkipsMembersWithoutProfiles(t *testing.T) {
	store := &mockStore{
		roomMembers: map[string][]internal.RoomMember{
			"!r1": {
				roomMember("!r1", "amy"),
				roomMember("!r1", "ghost"),
			},
		},
		users: map[string]internal.User{"amy": onlineUser("amy")},
	}
	m, err := Load(context.Background(), Key{RoomID: "!r1"}, store, Opts{})
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	assertFlattened(t, m, []string{"amy"})
}

func TestKeyString(t *testing.T) {
	if got := (Key{RoomID: "!r1"}).String(); got != "room:!r1" {
		t.Errorf("room key: got %s", got)
	}
	if got := (Key{ChannelID: "#t1"}).String(); got != "channel:#t1" {
		t.Errorf("channel key: got %s", got)
	}
}
