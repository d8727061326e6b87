package list

import (
	"github.com/chatframe/roster/internal"
)

// Process applies one domain event and returns the positional ops it caused.
// Events outside this list's scope return nil. Process is synchronous and must
// only be called from the goroutine owning this list.
func (m *MemberList) Process(ev Event) []Op {
	switch e := ev.(type) {
	case *RoomMemberEvent:
		if m.key.RoomID == "" || e.RoomID != m.key.RoomID {
			return nil
		}
		if e.Member.Membership == internal.MembershipLeave {
			return m.evictUser(e.Member.UserID)
		}
		member := e.Member
		m.roomMembers[member.UserID] = &member
		return m.upsertMember(member.UserID)
	case *ThreadMemberEvent:
		if m.key.ChannelID == "" || e.ChannelID != m.key.ChannelID {
			return nil
		}
		if e.Member.Membership == internal.MembershipLeave {
			return m.evictUser(e.Member.UserID)
		}
		member := e.Member
		m.threadMembers[member.UserID] = &member
		return m.upsertMember(member.UserID)
	case *RoleEvent:
		if m.key.RoomID == "" || e.RoomID != m.key.RoomID {
			return nil
		}
		return m.upsertRole(e.Role)
	case *RoleDeleteEvent:
		if m.key.RoomID == "" || e.RoomID != m.key.RoomID {
			return nil
		}
		delete(m.roles, e.RoleID)
		return m.removeGroup(HoistedGroup(e.RoleID))
	case *UserEvent:
		return m.upsertUser(e.User)
	case *PresenceEvent:
		user := m.users[e.UserID]
		if user == nil {
			return nil
		}
		user.Online = e.Online
		if _, tracked := m.userToGroup[e.UserID]; !tracked {
			return nil
		}
		return m.recalculateUser(e.UserID)
	default:
		// reserved: role reordering, channel overwrite changes, and anything
		// else on the bus is not reflected in this list yet
		return nil
	}
}

// upsertMember handles the active half of a membership upsert: the membership
// record is already cached; place (or re-place) the member. Without a cached
// user profile the member cannot be rendered, so the event is dropped with a
// warning (and optionally queued for replay).
func (m *MemberList) upsertMember(userID string) []Op {
	if m.users[userID] == nil {
		logger.Warn().Str("list", m.key.String()).Str("user", userID).Msg(
			"membership event for a user with no cached profile, dropping",
		)
		if m.opts.ReplayPendingMembers {
			m.pending[userID] = struct{}{}
		}
		return nil
	}
	return m.recalculateUser(userID)
}

func (m *MemberList) upsertRole(role internal.Role) []Op {
	old := m.roles[role.ID]
	r := role
	m.roles[role.ID] = &r
	wasHoisted := old != nil && old.Hoist
	if role.Hoist == wasHoisted {
		// name/colour/permission changes don't move anyone
		return nil
	}
	if !role.Hoist {
		return m.removeGroup(HoistedGroup(role.ID))
	}
	// newly hoisted: everyone holding the role may move into its group
	var ops []Op
	for _, userID := range m.cachedMemberIDs() {
		member := m.roomMembers[userID]
		if member == nil || !holdsRole(member, role.ID) {
			continue
		}
		if m.users[userID] == nil {
			continue
		}
		ops = append(ops, m.recalculateUser(userID)...)
	}
	return ops
}

func holdsRole(member *internal.RoomMember, roleID string) bool {
	for _, id := range member.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

func (m *MemberList) upsertUser(user internal.User) []Op {
	old := m.users[user.ID]
	u := user
	if old != nil {
		// presence is owned by PresenceEvent
		u.Online = old.Online
	}
	m.users[user.ID] = &u
	if old == nil {
		if _, queued := m.pending[user.ID]; queued {
			delete(m.pending, user.ID)
			if m.roomMembers[user.ID] != nil || m.threadMembers[user.ID] != nil {
				return m.recalculateUser(user.ID)
			}
		}
		return nil
	}
	if _, tracked := m.userToGroup[user.ID]; !tracked {
		return nil
	}
	if m.displayNameOf(old, user.ID) == m.displayName(user.ID) {
		// the name the list sorts by didn't change; avatar etc don't move members
		return nil
	}
	return m.recalculateUser(user.ID)
}

func (m *MemberList) displayNameOf(user *internal.User, userID string) string {
	return internal.DisplayName(m.roomMembers[userID], user)
}

// evictUser handles a leave: the user is removed from every cache, and if it
// occupied a group, one Delete op is emitted for its position. Evicting an
// untracked user is a no-op.
func (m *MemberList) evictUser(userID string) []Op {
	delete(m.roomMembers, userID)
	delete(m.threadMembers, userID)
	delete(m.users, userID)
	delete(m.pending, userID)
	pos := m.removeMember(userID)
	if pos == -1 {
		return nil
	}
	return []Op{&DeleteOp{Position: pos, Count: 1}}
}

// recalculateUser fully recomputes the group and position for a user present
// in the caches: remove from the old group (emitting a Delete), classify,
// binary-search the new group and intra-group index, and emit an Insert.
func (m *MemberList) recalculateUser(userID string) []Op {
	var ops []Op
	if pos := m.removeMember(userID); pos != -1 {
		ops = append(ops, &DeleteOp{Position: pos, Count: 1})
	}
	id := m.memberGroupID(userID)
	g := m.ensureGroup(id)
	i := m.insertMember(g, userID)
	m.userToGroup[userID] = id
	pos := m.groupStart(m.groupIndex(id)) + i
	ops = append(ops, &InsertOp{
		Position:     pos,
		RoomMember:   m.roomMembers[userID],
		ThreadMember: m.threadMembers[userID],
		User:         m.users[userID],
	})
	return ops
}

// removeGroup drops a whole group: one bulk Delete covering the former group,
// then an independent reinsertion per member. The per-member path's "remove
// from old group" half must not run here, the group is already gone.
func (m *MemberList) removeGroup(id GroupID) []Op {
	gi := m.groupIndex(id)
	if gi == -1 {
		return nil
	}
	g := m.groups[gi]
	start := m.groupStart(gi)
	m.groups = append(m.groups[:gi], m.groups[gi+1:]...)
	var ops []Op
	if len(g.userIDs) > 0 {
		ops = append(ops, &DeleteOp{Position: start, Count: len(g.userIDs)})
	}
	for _, userID := range g.userIDs {
		delete(m.userToGroup, userID)
	}
	for _, userID := range g.userIDs {
		ops = append(ops, m.recalculateUser(userID)...)
	}
	return ops
}

// memberGroupID classifies a user: offline members are Offline; otherwise the
// lowest-position hoisted role they hold wins, else Online. The tiebreak on
// equal positions matches the group order's tiebreak.
func (m *MemberList) memberGroupID(userID string) GroupID {
	user := m.users[userID]
	if user == nil || !user.Online {
		return OfflineGroup
	}
	member := m.roomMembers[userID]
	if member == nil {
		return OnlineGroup
	}
	var best *internal.Role
	for _, roleID := range member.RoleIDs {
		role := m.roles[roleID]
		if role == nil || !role.Hoist {
			continue
		}
		if best == nil || role.Position < best.Position ||
			(role.Position == best.Position && role.ID < best.ID) {
			best = role
		}
	}
	if best != nil {
		return HoistedGroup(best.ID)
	}
	return OnlineGroup
}
