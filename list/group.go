package list

// GroupKind enumerates the three kinds of member-list group. The numeric order
// matches the group order: hoisted groups first, then online, then offline.
type GroupKind uint8

const (
	KindHoisted GroupKind = iota
	KindOnline
	KindOffline
)

func (k GroupKind) String() string {
	switch k {
	case KindHoisted:
		return "hoisted"
	case KindOnline:
		return "online"
	case KindOffline:
		return "offline"
	}
	return "unknown"
}

// GroupID identifies one group in the member list. RoleID is set iff Kind is
// KindHoisted.
type GroupID struct {
	Kind   GroupKind `json:"kind" cbor:"1,keyasint"`
	RoleID string    `json:"role_id,omitempty" cbor:"2,keyasint,omitempty"`
}

func HoistedGroup(roleID string) GroupID {
	return GroupID{Kind: KindHoisted, RoleID: roleID}
}

var (
	OnlineGroup  = GroupID{Kind: KindOnline}
	OfflineGroup = GroupID{Kind: KindOffline}
)

// group is one non-empty group in the list. userIDs is kept sorted by the
// member's display name; equal names keep their insertion order. rolePosition
// is the referenced role's position at the time the group was created and is
// only meaningful for hoisted groups.
type group struct {
	id           GroupID
	rolePosition int64
	userIDs      []string
}

// sortsBefore reports whether this group sorts strictly before a group with
// the given identity. Hoisted groups order by role position ascending with the
// role ID as tiebreak, and all sort before Online, which sorts before Offline.
func (g *group) sortsBefore(id GroupID, rolePosition int64) bool {
	if g.id.Kind != id.Kind {
		return g.id.Kind < id.Kind
	}
	if g.id.Kind != KindHoisted {
		return false // online/offline are singletons
	}
	if g.rolePosition != rolePosition {
		return g.rolePosition < rolePosition
	}
	return g.id.RoleID < id.RoleID
}

// indexOf returns the intra-group index of the given user, or -1.
func (g *group) indexOf(userID string) int {
	for i := range g.userIDs {
		if g.userIDs[i] == userID {
			return i
		}
	}
	return -1
}

func (g *group) removeAt(i int) {
	g.userIDs = append(g.userIDs[:i], g.userIDs[i+1:]...)
}
