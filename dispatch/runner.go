package dispatch

import (
	"sync"

	"github.com/chatframe/roster/list"
)

// command is either one event to process or one read to serve. Reads go
// through the same channel as events so they see a list state with every
// prior event applied, without any locking of the list itself.
type command struct {
	ev    list.Event
	query func(m *list.MemberList)
	done  chan struct{}
}

// Runner owns one MemberList: a single goroutine applies events and serves
// hydration reads one at a time, which is what lets the list itself stay
// lock-free.
type Runner struct {
	key      list.Key
	cmds     chan command
	quit     chan struct{}
	stopOnce sync.Once
}

func newRunner(key list.Key) *Runner {
	return &Runner{
		key:  key,
		cmds: make(chan command, runnerBufferSize),
		quit: make(chan struct{}),
	}
}

func (r *Runner) Key() list.Key {
	return r.key
}

func (r *Runner) loop(m *list.MemberList, sink OpsSink) {
	for {
		select {
		case cmd := <-r.cmds:
			if cmd.query != nil {
				cmd.query(m)
				close(cmd.done)
				continue
			}
			sink(r.key, m.Process(cmd.ev))
		case <-r.quit:
			return
		}
	}
}

// Send queues one event. Events sent to a stopped runner are dropped: the
// list had no subscribers and will be rebuilt from the stores if needed.
func (r *Runner) Send(ev list.Event) {
	select {
	case r.cmds <- command{ev: ev}:
	case <-r.quit:
	}
}

// Hydrate serves a viewport request, ordered after every event queued before it.
func (r *Runner) Hydrate(ranges list.Ranges) []list.Op {
	var ops []list.Op
	r.read(func(m *list.MemberList) {
		ops = m.InitialRanges(ranges)
	})
	return ops
}

// Groups returns the current group headers.
func (r *Runner) Groups() []list.GroupSummary {
	var groups []list.GroupSummary
	r.read(func(m *list.MemberList) {
		groups = m.Groups()
	})
	return groups
}

func (r *Runner) read(fn func(m *list.MemberList)) {
	cmd := command{query: fn, done: make(chan struct{})}
	select {
	case r.cmds <- cmd:
	case <-r.quit:
		return
	}
	select {
	case <-cmd.done:
	case <-r.quit:
	}
}

func (r *Runner) stop() {
	r.stopOnce.Do(func() {
		close(r.quit)
	})
}
