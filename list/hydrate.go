package list

// GroupSummary is the header data for one non-empty group, e.g "Online — 12".
type GroupSummary struct {
	ID    GroupID `json:"group" cbor:"1,keyasint"`
	Count int     `json:"count" cbor:"2,keyasint"`
}

// Groups returns the identifier and member count of every non-empty group, in
// group order.
func (m *MemberList) Groups() []GroupSummary {
	summaries := make([]GroupSummary, len(m.groups))
	for i, g := range m.groups {
		summaries[i] = GroupSummary{ID: g.id, Count: len(g.userIDs)}
	}
	return summaries
}

// InitialRanges hydrates the requested viewport windows: each range is clipped
// to the current flattened length and produces one Sync op carrying the member
// and user snapshots for that window. Empty clipped ranges produce nothing.
// IDs unexpectedly missing from the caches are skipped with a diagnostic.
func (m *MemberList) InitialRanges(ranges Ranges) []Op {
	flattened := m.flattenedUserIDs()
	var ops []Op
	for _, rr := range ranges {
		start, end, ok := clip(rr, int64(len(flattened)))
		if !ok {
			continue
		}
		op := &SyncOp{Position: int(start)}
		for _, userID := range flattened[start:end] {
			user := m.users[userID]
			if user == nil {
				logger.Warn().Str("list", m.key.String()).Str("user", userID).Msg(
					"InitialRanges: tracked user missing from cache, skipping",
				)
				continue
			}
			op.Users = append(op.Users, user)
			if member := m.roomMembers[userID]; member != nil {
				op.RoomMembers = append(op.RoomMembers, member)
			}
			if member := m.threadMembers[userID]; member != nil {
				op.ThreadMembers = append(op.ThreadMembers, member)
			}
		}
		if len(op.Users) > 0 {
			ops = append(ops, op)
		}
	}
	return ops
}

// flattenedUserIDs concatenates all groups in group order.
func (m *MemberList) flattenedUserIDs() []string {
	ids := make([]string, 0, m.Len())
	for _, g := range m.groups {
		ids = append(ids, g.userIDs...)
	}
	return ids
}
