package dispatch

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/chatframe/roster/list"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Logger().Output(zerolog.ConsoleWriter{
	Out:        os.Stderr,
	TimeFormat: "15:04:05",
})

// lists with no subscriber activity for this long are stopped and dropped;
// they are rebuilt from the stores on the next subscriber
const listTTL = 30 * time.Minute

const runnerBufferSize = 64

// OpsSink receives the op batches a list produced for one event, in emission
// order.
type OpsSink func(key list.Key, ops []list.Op)

// Registry owns the set of running list instances, one single-writer goroutine
// per key. Lists are built lazily on the first subscriber and evicted after
// listTTL without activity, the same lifecycle the connection map gives conns.
type Registry struct {
	cache *ttlcache.Cache[string, *Runner]
	mu    sync.Mutex

	store list.Store
	opts  list.Opts
	sink  OpsSink

	numLists    prometheus.Gauge
	opsEmitted  *prometheus.CounterVec
	numEvents   prometheus.Counter
	enableProms bool
}

func NewRegistry(store list.Store, opts list.Opts, sink OpsSink, enablePrometheus bool) *Registry {
	reg := &Registry{
		store:       store,
		opts:        opts,
		sink:        sink,
		enableProms: enablePrometheus,
	}
	// TTL is refreshed by subscriber lookups (GetOrCreate), not by event
	// routing, so busy rooms nobody is looking at still expire
	reg.cache = ttlcache.New[string, *Runner](
		ttlcache.WithTTL[string, *Runner](listTTL),
		ttlcache.WithDisableTouchOnHit[string, *Runner](),
	)
	reg.cache.OnEviction(func(_ context.Context, _ ttlcache.EvictionReason, item *ttlcache.Item[string, *Runner]) {
		logger.Info().Str("list", item.Key()).Msg("closing idle member list")
		item.Value().stop()
		if reg.numLists != nil {
			reg.numLists.Dec()
		}
	})
	go reg.cache.Start()
	if enablePrometheus {
		reg.registerMetrics()
	}
	return reg
}

func (reg *Registry) registerMetrics() {
	reg.numLists = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "roster",
		Subsystem: "dispatch",
		Name:      "num_lists",
		Help:      "Number of live member lists.",
	})
	reg.numEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "dispatch",
		Name:      "num_events",
		Help:      "Number of domain events processed by member lists.",
	})
	reg.opsEmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "roster",
		Subsystem: "dispatch",
		Name:      "num_ops",
		Help:      "Number of list ops emitted, by op type.",
	}, []string{"op"})
	prometheus.MustRegister(reg.numLists)
	prometheus.MustRegister(reg.numEvents)
	prometheus.MustRegister(reg.opsEmitted)
}

// GetOrCreate returns the runner for this key, constructing and starting the
// list if it is not currently running. Construction failures propagate; no
// partially built list is retained.
func (reg *Registry) GetOrCreate(ctx context.Context, key list.Key) (*Runner, error) {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if item := reg.cache.Get(key.String()); item != nil {
		reg.cache.Touch(key.String())
		return item.Value(), nil
	}
	m, err := list.Load(ctx, key, reg.store, reg.opts)
	if err != nil {
		return nil, err
	}
	r := newRunner(key)
	go r.loop(m, reg.onOps)
	reg.cache.Set(key.String(), r, ttlcache.DefaultTTL)
	if reg.numLists != nil {
		reg.numLists.Inc()
	}
	return r, nil
}

// Get returns the runner for this key if one is running, else nil. Event
// routing uses this; it does not refresh the TTL.
func (reg *Registry) Get(key list.Key) *Runner {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	if item := reg.cache.Get(key.String()); item != nil {
		return item.Value()
	}
	return nil
}

// Runners snapshots every running list, for events that must be broadcast.
func (reg *Registry) Runners() []*Runner {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	items := reg.cache.Items()
	runners := make([]*Runner, 0, len(items))
	for _, item := range items {
		runners = append(runners, item.Value())
	}
	return runners
}

func (reg *Registry) Len() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return reg.cache.Len()
}

func (reg *Registry) onOps(key list.Key, ops []list.Op) {
	if reg.numEvents != nil {
		reg.numEvents.Inc()
		for _, op := range ops {
			reg.opsEmitted.WithLabelValues(op.Op()).Inc()
		}
	}
	if reg.sink != nil && len(ops) > 0 {
		reg.sink(key, ops)
	}
}

func (reg *Registry) Teardown() {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	reg.cache.Stop()
	reg.cache.DeleteAll() // fires OnEviction for each runner
	if reg.enableProms {
		prometheus.Unregister(reg.numLists)
		prometheus.Unregister(reg.numEvents)
		prometheus.Unregister(reg.opsEmitted)
	}
}
