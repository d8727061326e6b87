package roster_test

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	roster "github.com/chatframe/roster"
	"github.com/chatframe/roster/dispatch"
	"github.com/chatframe/roster/internal"
	"github.com/chatframe/roster/list"
	"github.com/chatframe/roster/pubsub"
	"github.com/chatframe/roster/testutils"
)

var postgresConnectionString = "user=xxxxx dbname=roster_integration_test sslmode=disable"

func TestMain(m *testing.M) {
	postgresConnectionString = testutils.PrepareDBConnectionString("roster_integration_test")
	exitCode := m.Run()
	os.Exit(exitCode)
}

// opsListener collects decoded op batches from the ops channel.
type opsListener struct {
	mu      sync.Mutex
	batches map[string][][]list.Op
	notify  chan struct{}
}

func newOpsListener(bus *pubsub.PubSub) *opsListener {
	l := &opsListener{
		batches: make(map[string][][]list.Op),
		notify:  make(chan struct{}, 100),
	}
	go bus.Listen(pubsub.ChanOps, func(p pubsub.Payload) {
		batch, ok := p.(*pubsub.OpsBatch)
		if !ok {
			return
		}
		ops, err := dispatch.DecodeOps(batch.Data)
		if err != nil {
			panic("failed to decode ops batch: " + err.Error())
		}
		l.mu.Lock()
		l.batches[batch.ListKey] = append(l.batches[batch.ListKey], ops)
		l.mu.Unlock()
		l.notify <- struct{}{}
	})
	return l
}

func (l *opsListener) waitForBatch(t *testing.T, listKey string) []list.Op {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		l.mu.Lock()
		if batches := l.batches[listKey]; len(batches) > 0 {
			batch := batches[0]
			l.batches[listKey] = batches[1:]
			l.mu.Unlock()
			return batch
		}
		l.mu.Unlock()
		select {
		case <-l.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for ops on %s", listKey)
		}
	}
}

// Drives the assembled app the way production does: seed postgres, start the
// bus listener, hydrate a list over HTTP-free internals, then publish domain
// events and watch the op batches come out the other side.
func TestAppEndToEnd(t *testing.T) {
	app := roster.Setup(postgresConnectionString, roster.Opts{})
	defer app.Teardown()

	ctx := context.Background()
	seedUsers := []internal.User{
		{ID: "amy", Username: "amy", Online: true},
		{ID: "bob", Username: "bob", Online: true},
		{ID: "cleo", Username: "cleo"},
	}
	for _, u := range seedUsers {
		if err := app.Storage.UsersTable.Upsert(ctx, u); err != nil {
			t.Fatalf("seed user: %s", err)
		}
	}
	if err := app.Storage.RolesTable.Upsert(ctx, internal.Role{
		ID: "mods", RoomID: "!e2e", Name: "Moderators", Position: 0, Hoist: true,
	}); err != nil {
		t.Fatalf("seed role: %s", err)
	}
	for _, m := range []internal.RoomMember{
		{RoomID: "!e2e", UserID: "amy", Membership: "join", RoleIDs: []string{"mods"}},
		{RoomID: "!e2e", UserID: "bob", Membership: "join"},
		{RoomID: "!e2e", UserID: "cleo", Membership: "join"},
	} {
		if err := app.Storage.RoomMembersTable.Upsert(ctx, m); err != nil {
			t.Fatalf("seed member: %s", err)
		}
	}

	listener := newOpsListener(app.Bus)
	go app.Sub.Listen()

	key := list.Key{RoomID: "!e2e"}
	runner, err := app.Registry.GetOrCreate(ctx, key)
	if err != nil {
		t.Fatalf("GetOrCreate: %s", err)
	}

	// hydration reflects the seeded DB: amy hoisted, bob online, cleo offline
	ops := runner.Hydrate(list.Ranges{{0, 100}})
	if len(ops) != 1 {
		t.Fatalf("Hydrate: got %d ops", len(ops))
	}
	sync0 := ops[0].(*list.SyncOp)
	wantOrder := []string{"amy", "bob", "cleo"}
	if len(sync0.Users) != len(wantOrder) {
		t.Fatalf("Hydrate: got users %+v", sync0.Users)
	}
	for i, u := range sync0.Users {
		if u.ID != wantOrder[i] {
			t.Fatalf("Hydrate: position %d is %s, want %s", i, u.ID, wantOrder[i])
		}
	}
	groups := runner.Groups()
	if len(groups) != 3 {
		t.Fatalf("Groups: got %+v", groups)
	}

	// a presence flip arrives on the bus and comes out as a CBOR op batch
	if err := app.Notifier.Notify(pubsub.ChanEvents, &pubsub.DomainEvent{
		Data: testutils.NewPresenceEvent(t, "cleo", true),
	}); err != nil {
		t.Fatalf("Notify: %s", err)
	}
	batch := listener.waitForBatch(t, key.String())
	if len(batch) != 2 || batch[0].Op() != list.OpDelete || batch[1].Op() != list.OpInsert {
		t.Fatalf("presence flip batch: %+v", batch)
	}

	// a leave for a list nobody rebuilt: same runner, one delete
	if err := app.Notifier.Notify(pubsub.ChanEvents, &pubsub.DomainEvent{
		Data: testutils.NewRoomMemberEvent(t, internal.RoomMember{
			RoomID: "!e2e", UserID: "bob", Membership: internal.MembershipLeave,
		}),
	}); err != nil {
		t.Fatalf("Notify: %s", err)
	}
	batch = listener.waitForBatch(t, key.String())
	if len(batch) != 1 || batch[0].Op() != list.OpDelete {
		t.Fatalf("leave batch: %+v", batch)
	}

	// the list converges: amy hoisted, cleo now online, bob gone
	ops = runner.Hydrate(list.Ranges{{0, 100}})
	sync1 := ops[0].(*list.SyncOp)
	wantOrder = []string{"amy", "cleo"}
	if len(sync1.Users) != len(wantOrder) {
		t.Fatalf("rehydrate: got users %+v", sync1.Users)
	}
	for i, u := range sync1.Users {
		if u.ID != wantOrder[i] {
			t.Fatalf("rehydrate: position %d is %s, want %s", i, u.ID, wantOrder[i])
		}
	}
}

func TestAppThreadListEndToEnd(t *testing.T) {
	app := roster.Setup(postgresConnectionString, roster.Opts{})
	defer app.Teardown()

	ctx := context.Background()
	if err := app.Storage.ChannelsTable.Upsert(ctx, internal.Channel{
		ID: "#e2e-thread", RoomID: "!e2e", Type: internal.ChannelTypeThread,
	}); err != nil {
		t.Fatalf("seed channel: %s", err)
	}
	if err := app.Storage.UsersTable.Upsert(ctx, internal.User{ID: "dana", Username: "dana", Online: true}); err != nil {
		t.Fatalf("seed user: %s", err)
	}
	if err := app.Storage.ThreadMembersTable.Upsert(ctx, internal.ThreadMember{
		ChannelID: "#e2e-thread", UserID: "dana", Membership: "join",
	}); err != nil {
		t.Fatalf("seed thread member: %s", err)
	}

	go app.Sub.Listen()
	runner, err := app.Registry.GetOrCreate(ctx, list.Key{ChannelID: "#e2e-thread"})
	if err != nil {
		t.Fatalf("GetOrCreate: %s", err)
	}
	ops := runner.Hydrate(list.Ranges{{0, 100}})
	if len(ops) != 1 {
		t.Fatalf("Hydrate: got %d ops", len(ops))
	}
	syncOp := ops[0].(*list.SyncOp)
	if len(syncOp.Users) != 1 || syncOp.Users[0].ID != "dana" {
		t.Fatalf("Hydrate: got %+v", syncOp.Users)
	}
	if len(syncOp.ThreadMembers) != 1 || len(syncOp.RoomMembers) != 0 {
		t.Fatalf("thread list sync should carry thread members only: %+v", syncOp)
	}
}
