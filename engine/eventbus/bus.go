package eventbus

import (
	"sync"

	"github.com/gputrace/tracevis/engine/telemetry/metrics"
)

// Token identifies one subscription for Unsubscribe (§4.4). Unsubscribe
// finds the token by a linear scan over all subscriptions; it is not O(1).
type Token uint64

// Handler receives one dispatched event. It may call StopPropagation to
// prevent later subscribers (within the same Kind, same dispatch pass) from
// observing the event.
type Handler func(evt *Event)

type subscription struct {
	token   Token
	kind    Kind
	handler Handler
}

// Bus is a typed pub/sub channel with FIFO synchronous dispatch (§4.4,
// §5). AddEvent enqueues; DispatchEvents fans queued events out to
// subscribers in publication order, walking subscriptions in insertion
// order, once per driver frame.
type Bus struct {
	mu   sync.Mutex
	subs map[Kind][]subscription
	next Token
	queue []Event

	published metrics.Counter
	dropped   metrics.Counter
}

// New returns an empty Bus. provider may be nil, in which case metrics are
// discarded.
func New(provider metrics.Provider) *Bus {
	if provider == nil {
		provider = metrics.NewNoopProvider()
	}
	return &Bus{
		subs: make(map[Kind][]subscription),
		published: provider.NewCounter(metrics.CounterOpts{
			CommonOpts: metrics.CommonOpts{Namespace: "tracevis", Subsystem: "eventbus", Name: "published_total", Help: "events enqueued for dispatch"},
			Labels:     []string{"kind"},
		}),
		dropped: provider.NewCounter(metrics.CounterOpts{
			CommonOpts: metrics.CommonOpts{Namespace: "tracevis", Subsystem: "eventbus", Name: "dropped_total", Help: "events whose propagation was stopped before reaching all subscribers"},
			Labels:     []string{"kind"},
		}),
	}
}

// Subscribe registers handler for events of kind, returning a Token usable
// with Unsubscribe.
func (b *Bus) Subscribe(kind Kind, handler Handler) Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	tok := b.next
	b.subs[kind] = append(b.subs[kind], subscription{token: tok, kind: kind, handler: handler})
	return tok
}

// Unsubscribe removes the subscription identified by tok, if present.
func (b *Bus) Unsubscribe(tok Token) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for kind, list := range b.subs {
		for i, s := range list {
			if s.token == tok {
				b.subs[kind] = append(list[:i], list[i+1:]...)
				return
			}
		}
	}
}

// AddEvent enqueues evt for the next DispatchEvents call.
func (b *Bus) AddEvent(evt Event) {
	b.mu.Lock()
	b.queue = append(b.queue, evt)
	b.mu.Unlock()
	b.published.Inc(1, evt.Kind.String())
}

// DispatchEvents fans every currently-queued event out to subscribers in
// FIFO order, one driver-frame tick. Subscribers for a Kind are walked in
// insertion order; a handler calling StopPropagation halts delivery to
// later subscribers for that event only.
func (b *Bus) DispatchEvents() {
	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	for i := range pending {
		evt := &pending[i]
		b.mu.Lock()
		handlers := append([]subscription(nil), b.subs[evt.Kind]...)
		b.mu.Unlock()
		for _, s := range handlers {
			s.handler(evt)
			if !evt.CanPropagate() {
				b.dropped.Inc(1, evt.Kind.String())
				break
			}
		}
	}
}

// Stats reports the number of active subscriptions, for diagnostics.
func (b *Bus) Stats() map[Kind]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make(map[Kind]int, len(b.subs))
	for k, v := range b.subs {
		out[k] = len(v)
	}
	return out
}
