package pubsub

import "encoding/json"

// ChanEvents carries raw domain events committed by the rest of the platform
// (membership service, role service, presence tracker, bridges).
const ChanEvents = "events"

// ChanOps carries op batches produced by the list engines, consumed by the
// realtime transport for fanout to subscribers.
const ChanOps = "ops"

// DomainEvent is one committed domain event, as JSON. Delivery order on a
// single bus matches commit order, which the list engines rely on.
type DomainEvent struct {
	Data json.RawMessage
}

func (*DomainEvent) Type() string { return "e" }

// OpsBatch is the CBOR-encoded result of one Process call (or one hydration)
// for one list key.
type OpsBatch struct {
	ListKey string
	Data    []byte
}

func (*OpsBatch) Type() string { return "o" }

// EventListener dispatches ChanEvents payloads to a receiver.
type EventReceiver interface {
	OnDomainEvent(p *DomainEvent)
}

type EventSub struct {
	listener Listener
	receiver EventReceiver
}

func NewEventSub(l Listener, recv EventReceiver) *EventSub {
	return &EventSub{
		listener: l,
		receiver: recv,
	}
}

func (s *EventSub) Teardown() {
	s.listener.Close()
}

func (s *EventSub) onMessage(p Payload) {
	switch ev := p.(type) {
	case *DomainEvent:
		s.receiver.OnDomainEvent(ev)
	}
}

func (s *EventSub) Listen() error {
	return s.listener.Listen(ChanEvents, s.onMessage)
}
