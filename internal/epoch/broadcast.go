package epoch

import "sync"

// EventKind distinguishes the two events the scheduler emits.
type EventKind string

const (
	EventPhaseChanged  EventKind = "phase_changed"
	EventEpochBoundary EventKind = "epoch_boundary"
)

// Event is broadcast to every subscriber on a phase transition or epoch
// rollover.
type Event struct {
	Kind  EventKind
	Epoch uint64
	Phase Phase // zero value for EventEpochBoundary
	Block uint64

	// Missed counts events dropped for this subscriber since its last
	// successful delivery, so a lagging consumer can tell it skipped
	// history instead of silently resuming mid-stream.
	Missed int
}

const subscriberBufferSize = 16

// Broadcaster fans out Events to any number of subscribers. There is no
// stdlib or pack equivalent of a lag-tolerant broadcast channel, so each
// subscriber gets its own small buffered channel; a subscriber that falls
// behind has its oldest pending event dropped to make room rather than
// blocking the publisher, and the next event it does receive carries a
// Missed count of everything it lost.
type Broadcaster struct {
	mu     sync.Mutex
	subs   map[int]chan Event
	missed map[int]int
	next   int
}

// NewBroadcaster creates an empty Broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[int]chan Event), missed: make(map[int]int)}
}

// Subscribe registers a new listener and returns its event channel plus an
// unsubscribe function that must be called when the listener is done.
func (b *Broadcaster) Subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan Event, subscriberBufferSize)
	b.subs[id] = ch
	b.missed[id] = 0

	unsubscribe := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			delete(b.missed, id)
			close(c)
		}
	}
	return ch, unsubscribe
}

// Publish sends ev to every current subscriber. A subscriber whose buffer
// is full has its oldest queued event dropped (lag tolerance) rather than
// blocking the publisher or being disconnected; the event that does
// eventually get through to it carries a Missed count of everything
// dropped since its last successful delivery.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subs {
		out := ev
		out.Missed = b.missed[id]
		select {
		case ch <- out:
			b.missed[id] = 0
		default:
			select {
			case <-ch:
				b.missed[id]++
			default:
			}
			out.Missed = b.missed[id]
			select {
			case ch <- out:
				b.missed[id] = 0
			default:
			}
		}
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broadcaster) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
