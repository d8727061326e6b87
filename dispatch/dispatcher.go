package dispatch

import (
	"github.com/chatframe/roster/pubsub"
)

// Dispatcher routes decoded bus events to the runners that care about them.
// Scoped events (membership, roles) go to the single list for their key;
// profile and presence updates have no scope and are broadcast, each list
// filters against its own caches.
type Dispatcher struct {
	registry *Registry
}

func NewDispatcher(registry *Registry) *Dispatcher {
	return &Dispatcher{registry: registry}
}

// OnDomainEvent implements pubsub.EventReceiver.
func (d *Dispatcher) OnDomainEvent(p *pubsub.DomainEvent) {
	ev := DecodeEvent(p.Data)
	if ev == nil {
		return
	}
	if key, scoped := routingKey(ev); scoped {
		if r := d.registry.Get(key); r != nil {
			r.Send(ev)
		}
		return
	}
	for _, r := range d.registry.Runners() {
		r.Send(ev)
	}
}
