package dispatch

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/chatframe/roster/list"
)

func TestRegistryMetricsFollowLifecycle(t *testing.T) {
	reg := NewRegistry(newFakeStore(), list.Opts{}, nil, true)
	if got := testutil.ToFloat64(reg.numLists); got != 0 {
		t.Fatalf("num_lists on a cold registry = %v", got)
	}

	r, err := reg.GetOrCreate(context.Background(), list.Key{RoomID: "!r1"})
	if err != nil {
		t.Fatalf("GetOrCreate: %s", err)
	}
	if got := testutil.ToFloat64(reg.numLists); got != 1 {
		t.Fatalf("num_lists after GetOrCreate = %v, want 1", got)
	}

	r.Send(&list.PresenceEvent{UserID: "amy", Online: false})
	// the read is serialized after the event, so the counters are settled
	r.Hydrate(list.Ranges{{0, 10}})
	if got := testutil.ToFloat64(reg.numEvents); got != 1 {
		t.Fatalf("num_events = %v, want 1", got)
	}

	// Teardown evicts every runner; the gauge must come back down with them
	reg.Teardown()
	if got := testutil.ToFloat64(reg.numLists); got != 0 {
		t.Fatalf("num_lists after Teardown = %v, want 0", got)
	}
}
