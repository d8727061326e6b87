package list

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/chatframe/roster/internal"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

// Key scopes one member list: a room-wide roster or a single thread's roster.
// Exactly one field must be set; this is a construction precondition.
type Key struct {
	RoomID    string
	ChannelID string
}

func (k Key) String() string {
	if k.RoomID != "" {
		return "room:" + k.RoomID
	}
	return "channel:" + k.ChannelID
}

// Store is the set of read accessors used at construction time. All calls are
// expected to be fast, already-retried reads; any failure aborts construction.
type Store interface {
	Channel(ctx context.Context, channelID string) (*internal.Channel, error)
	RolesForRoom(ctx context.Context, roomID string, limit int) ([]internal.Role, error)
	RoomMembers(ctx context.Context, roomID string) ([]internal.RoomMember, error)
	ThreadMembers(ctx context.Context, channelID string) ([]internal.ThreadMember, error)
	UsersByID(ctx context.Context, userIDs []string) ([]internal.User, error)
}

// roleFetchLimit caps the single-page role fetch. Rooms approaching this many
// roles are pathological.
const roleFetchLimit = 1000

// Opts tunes optional behaviours of a MemberList.
type Opts struct {
	// ReplayPendingMembers queues membership events that were dropped because
	// no user profile was cached, and replays them when the profile arrives.
	// Off by default: it changes observable op timing.
	ReplayPendingMembers bool
}

// MemberList maintains the live grouped roster for one Key and converts domain
// events into positional edit ops. It performs no locking: each instance must
// be owned by a single goroutine which feeds Process one event at a time.
type MemberList struct {
	key  Key
	opts Opts

	// cached projections from the external stores, kept current by Process
	roles         map[string]*internal.Role
	roomMembers   map[string]*internal.RoomMember
	threadMembers map[string]*internal.ThreadMember
	users         map[string]*internal.User

	// ordered non-empty groups plus the user -> group reverse index
	groups      []*group
	userToGroup map[string]GroupID

	// membership events awaiting a user profile, only when ReplayPendingMembers
	pending map[string]struct{}
}

// Load builds a fully-populated MemberList for the given key: it snapshots the
// relevant stores, then classifies and inserts every cached member so the list
// is immediately consistent with its own invariants. Any store failure aborts
// the build; there is no partially-populated list.
func Load(ctx context.Context, key Key, store Store, opts Opts) (*MemberList, error) {
	ctx, span := internal.StartSpan(ctx, "list.Load")
	defer span.End()
	internal.AssertWithContext(ctx, "list key has exactly one scope", (key.RoomID == "") != (key.ChannelID == ""))
	m := &MemberList{
		key:           key,
		opts:          opts,
		roles:         make(map[string]*internal.Role),
		roomMembers:   make(map[string]*internal.RoomMember),
		threadMembers: make(map[string]*internal.ThreadMember),
		users:         make(map[string]*internal.User),
		userToGroup:   make(map[string]GroupID),
		pending:       make(map[string]struct{}),
	}
	if key.RoomID != "" {
		roles, err := store.RolesForRoom(ctx, key.RoomID, roleFetchLimit)
		if err != nil {
			return nil, fmt.Errorf("load roles for %s: %w", key, err)
		}
		for i := range roles {
			m.roles[roles[i].ID] = &roles[i]
		}
		members, err := store.RoomMembers(ctx, key.RoomID)
		if err != nil {
			return nil, fmt.Errorf("load members for %s: %w", key, err)
		}
		for i := range members {
			m.roomMembers[members[i].UserID] = &members[i]
		}
	} else {
		channel, err := store.Channel(ctx, key.ChannelID)
		if err != nil {
			return nil, fmt.Errorf("load channel for %s: %w", key, err)
		}
		if channel.IsThread() {
			members, err := store.ThreadMembers(ctx, key.ChannelID)
			if err != nil {
				return nil, fmt.Errorf("load thread members for %s: %w", key, err)
			}
			for i := range members {
				m.threadMembers[members[i].UserID] = &members[i]
			}
		}
	}

	memberIDs := m.cachedMemberIDs()
	users, err := store.UsersByID(ctx, memberIDs)
	if err != nil {
		return nil, fmt.Errorf("load users for %s: %w", key, err)
	}
	for i := range users {
		m.users[users[i].ID] = &users[i]
	}
	internal.Logf(ctx, "list", "%s: loaded %d roles, %d members, %d users", key, len(m.roles), len(memberIDs), len(users))

	// place every cached member into its group so hydration reflects
	// pre-existing membership from the first read
	for _, userID := range memberIDs {
		if m.users[userID] == nil {
			logger.Warn().Str("list", key.String()).Str("user", userID).Msg(
				"Load: member has no user record, skipping",
			)
			continue
		}
		m.recalculateUser(userID)
	}
	return m, nil
}

// Key returns the scope this list was built for.
func (m *MemberList) Key() Key {
	return m.key
}

// Len is the total number of members across all groups.
func (m *MemberList) Len() int {
	n := 0
	for _, g := range m.groups {
		n += len(g.userIDs)
	}
	return n
}

// cachedMemberIDs returns the union of user IDs referenced by the membership
// caches, sorted for deterministic iteration.
func (m *MemberList) cachedMemberIDs() []string {
	ids := internal.Keys(m.roomMembers)
	for userID := range m.threadMembers {
		if _, ok := m.roomMembers[userID]; !ok {
			ids = append(ids, userID)
		}
	}
	sort.Strings(ids)
	return ids
}

func (m *MemberList) displayName(userID string) string {
	return internal.DisplayName(m.roomMembers[userID], m.users[userID])
}

// groupIndex returns the index of the group with this exact identity, or -1.
func (m *MemberList) groupIndex(id GroupID) int {
	for i, g := range m.groups {
		if g.id == id {
			return i
		}
	}
	return -1
}

// groupStart is the flattened position of the first member of groups[gi].
func (m *MemberList) groupStart(gi int) int {
	pos := 0
	for i := 0; i < gi; i++ {
		pos += len(m.groups[i].userIDs)
	}
	return pos
}

// ensureGroup finds the group with the given identity, lazily creating it at
// its sorted index. The identity lookup must not go through the binary search:
// a cached role position can be newer than a live group's creation-time
// rolePosition (position-only role updates move nobody), and searching with
// the fresh position against groups ordered by their recorded positions would
// miss the live group and create a duplicate. Hoisted identities must
// reference a cached role; the role cache diverging from the source of truth
// is a precondition violation.
func (m *MemberList) ensureGroup(id GroupID) *group {
	if gi := m.groupIndex(id); gi != -1 {
		return m.groups[gi]
	}
	var rolePosition int64
	if id.Kind == KindHoisted {
		role := m.roles[id.RoleID]
		internal.Assert("hoisted group references a cached role", role != nil)
		if role != nil {
			rolePosition = role.Position
		}
	}
	i := sort.Search(len(m.groups), func(i int) bool {
		return !m.groups[i].sortsBefore(id, rolePosition)
	})
	g := &group{id: id, rolePosition: rolePosition}
	m.groups = slices.Insert(m.groups, i, g)
	return g
}

// insertMember places userID into g at the first index whose display name is
// not less than the member's. Equal names therefore keep a stable order
// without any secondary sort key. Returns the intra-group index.
func (m *MemberList) insertMember(g *group, userID string) int {
	name := m.displayName(userID)
	i := sort.Search(len(g.userIDs), func(i int) bool {
		return m.displayName(g.userIDs[i]) >= name
	})
	g.userIDs = slices.Insert(g.userIDs, i, userID)
	return i
}

// removeMember takes userID out of its current group, dropping the group if it
// becomes empty, and returns the flattened position it occupied. Returns -1 if
// the user is not in any group.
func (m *MemberList) removeMember(userID string) int {
	id, ok := m.userToGroup[userID]
	if !ok {
		return -1
	}
	gi := m.groupIndex(id)
	internal.Assert("user's group exists in the index", gi != -1)
	if gi == -1 {
		delete(m.userToGroup, userID)
		return -1
	}
	g := m.groups[gi]
	i := g.indexOf(userID)
	internal.Assert("user exists in its group", i != -1)
	if i == -1 {
		delete(m.userToGroup, userID)
		return -1
	}
	pos := m.groupStart(gi) + i
	g.removeAt(i)
	if len(g.userIDs) == 0 {
		m.groups = slices.Delete(m.groups, gi, gi+1)
	}
	delete(m.userToGroup, userID)
	return pos
}
