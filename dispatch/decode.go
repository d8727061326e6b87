package dispatch

import (
	"encoding/json"

	"github.com/tidwall/gjson"

	"github.com/chatframe/roster/internal"
	"github.com/chatframe/roster/list"
)

// Domain event kinds as they appear on the bus.
const (
	EventRoomMember       = "room_member"
	EventThreadMember     = "thread_member"
	EventRole             = "role"
	EventRoleDelete       = "role_delete"
	EventRoleReorder      = "role_reorder"
	EventUser             = "user"
	EventPresence         = "presence"
	EventChannelOverwrite = "channel_overwrite"
)

// DecodeEvent parses a raw bus event into a typed list event, pulling out just
// the fields the engine cares about. Returns nil for kinds the engine does not
// consume at all.
func DecodeEvent(raw json.RawMessage) list.Event {
	ev := gjson.ParseBytes(raw)
	switch ev.Get("type").Str {
	case EventRoomMember:
		member := internal.RoomMember{
			RoomID:       ev.Get("room_id").Str,
			UserID:       ev.Get("user_id").Str,
			Membership:   ev.Get("membership").Str,
			OverrideName: ev.Get("override_name").Str,
		}
		for _, r := range ev.Get("role_ids").Array() {
			member.RoleIDs = append(member.RoleIDs, r.Str)
		}
		return &list.RoomMemberEvent{RoomID: member.RoomID, Member: member}
	case EventThreadMember:
		member := internal.ThreadMember{
			ChannelID:  ev.Get("channel_id").Str,
			UserID:     ev.Get("user_id").Str,
			Membership: ev.Get("membership").Str,
		}
		return &list.ThreadMemberEvent{ChannelID: member.ChannelID, Member: member}
	case EventRole:
		return &list.RoleEvent{
			RoomID: ev.Get("room_id").Str,
			Role: internal.Role{
				ID:       ev.Get("role.id").Str,
				RoomID:   ev.Get("room_id").Str,
				Name:     ev.Get("role.name").Str,
				Position: ev.Get("role.position").Int(),
				Hoist:    ev.Get("role.hoist").Bool(),
			},
		}
	case EventRoleDelete:
		return &list.RoleDeleteEvent{
			RoomID: ev.Get("room_id").Str,
			RoleID: ev.Get("role_id").Str,
		}
	case EventRoleReorder:
		return &list.RoleReorderEvent{RoomID: ev.Get("room_id").Str}
	case EventUser:
		return &list.UserEvent{
			User: internal.User{
				ID:       ev.Get("user.id").Str,
				Username: ev.Get("user.username").Str,
			},
		}
	case EventPresence:
		return &list.PresenceEvent{
			UserID: ev.Get("user_id").Str,
			Online: ev.Get("online").Bool(),
		}
	case EventChannelOverwrite:
		return &list.ChannelOverwriteEvent{ChannelID: ev.Get("channel_id").Str}
	}
	return nil
}

// routingKey returns the list key an event is scoped to. Events without a
// scope (profile and presence updates) return ok=false and are broadcast to
// every running list instead.
func routingKey(ev list.Event) (key list.Key, ok bool) {
	switch e := ev.(type) {
	case *list.RoomMemberEvent:
		return list.Key{RoomID: e.RoomID}, true
	case *list.RoleEvent:
		return list.Key{RoomID: e.RoomID}, true
	case *list.RoleDeleteEvent:
		return list.Key{RoomID: e.RoomID}, true
	case *list.RoleReorderEvent:
		return list.Key{RoomID: e.RoomID}, true
	case *list.ThreadMemberEvent:
		return list.Key{ChannelID: e.ChannelID}, true
	case *list.ChannelOverwriteEvent:
		return list.Key{ChannelID: e.ChannelID}, true
	}
	return list.Key{}, false
}
