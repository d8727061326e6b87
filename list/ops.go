package list

import (
	"github.com/chatframe/roster/internal"
)

const (
	OpSync   = "SYNC"
	OpInsert = "INSERT"
	OpDelete = "DELETE"
)

// Op is a positional edit operation on the flattened member list. Consumers
// must apply ops strictly in emission order: each op's position is relative to
// the list state produced by all prior ops, not to any snapshot.
type Op interface {
	Op() string
}

// DeleteOp removes Count members starting at Position.
type DeleteOp struct {
	Position int `json:"position" cbor:"1,keyasint"`
	Count    int `json:"count" cbor:"2,keyasint"`
}

func (o *DeleteOp) Op() string { return OpDelete }

// InsertOp places one member at Position, shifting later members down. Exactly
// one of RoomMember/ThreadMember is set depending on the list's scope.
type InsertOp struct {
	Position     int                    `json:"position" cbor:"1,keyasint"`
	RoomMember   *internal.RoomMember   `json:"room_member,omitempty" cbor:"2,keyasint,omitempty"`
	ThreadMember *internal.ThreadMember `json:"thread_member,omitempty" cbor:"3,keyasint,omitempty"`
	User         *internal.User         `json:"user" cbor:"4,keyasint"`
}

func (o *InsertOp) Op() string { return OpInsert }

// SyncOp replaces a window of the list starting at Position with the given
// snapshots. The member arrays are omitted when empty: room lists carry no
// thread member data and vice versa.
type SyncOp struct {
	Position      int                      `json:"position" cbor:"1,keyasint"`
	RoomMembers   []*internal.RoomMember   `json:"room_members,omitempty" cbor:"2,keyasint,omitempty"`
	ThreadMembers []*internal.ThreadMember `json:"thread_members,omitempty" cbor:"3,keyasint,omitempty"`
	Users         []*internal.User         `json:"users" cbor:"4,keyasint"`
}

func (o *SyncOp) Op() string { return OpSync }
