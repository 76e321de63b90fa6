// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"sync"
)

// DefaultSubscriberQueueLen is the per-subscriber queue bound used when
// Subscribe is called with a non-positive buffer size.
const DefaultSubscriberQueueLen = 256

// EventBus decouples protocol timing from presentation timing. Each
// subscriber gets its own bounded queue drained by its own pump
// goroutine, so a slow consumer can never stall the dispatch path. On
// overflow the oldest droppable event is evicted; Disconnected and Error
// events are never dropped.
type EventBus struct {
	mutex sync.Mutex
	subs  map[*Subscription]bool
}

// Subscription is one consumer's view of the event stream. Events are
// received from C; Unsubscribe discards anything still queued and closes C.
type Subscription struct {
	C chan Event

	bus    *EventBus
	mutex  sync.Mutex
	cond   *sync.Cond
	queue  []Event
	limit  int
	closed bool
	done   chan struct{}
}

// NewEventBus returns a ready-to-use EventBus.
func NewEventBus() *EventBus {
	return &EventBus{
		subs: make(map[*Subscription]bool),
	}
}

// Subscribe registers a new consumer with the given queue bound.
func (bus *EventBus) Subscribe(buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultSubscriberQueueLen
	}
	sub := &Subscription{
		C:     make(chan Event),
		bus:   bus,
		limit: buffer,
		done:  make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mutex)

	bus.mutex.Lock()
	bus.subs[sub] = true
	bus.mutex.Unlock()

	go sub.pump()
	return sub
}

// Publish delivers the event to every subscriber. It never blocks on
// consumers; only queue bookkeeping happens on the caller's goroutine.
func (bus *EventBus) Publish(ev Event) {
	bus.mutex.Lock()
	subs := make([]*Subscription, 0, len(bus.subs))
	for sub := range bus.subs {
		subs = append(subs, sub)
	}
	bus.mutex.Unlock()

	for _, sub := range subs {
		sub.enqueue(ev)
	}
}

// Shutdown closes every remaining subscription.
func (bus *EventBus) Shutdown() {
	bus.mutex.Lock()
	subs := make([]*Subscription, 0, len(bus.subs))
	for sub := range bus.subs {
		subs = append(subs, sub)
	}
	bus.subs = make(map[*Subscription]bool)
	bus.mutex.Unlock()

	for _, sub := range subs {
		sub.close()
	}
}

// Unsubscribe detaches the subscription; queued events are discarded and
// C is closed.
func (sub *Subscription) Unsubscribe() {
	sub.bus.mutex.Lock()
	delete(sub.bus.subs, sub)
	sub.bus.mutex.Unlock()

	sub.close()
}

func (sub *Subscription) close() {
	sub.mutex.Lock()
	defer sub.mutex.Unlock()
	if sub.closed {
		return
	}
	sub.closed = true
	sub.queue = nil
	close(sub.done)
	sub.cond.Signal()
}

func (sub *Subscription) enqueue(ev Event) {
	sub.mutex.Lock()
	defer sub.mutex.Unlock()
	if sub.closed {
		return
	}

	if len(sub.queue) >= sub.limit {
		if dropped := sub.dropOldestDroppable(); !dropped {
			// every queued event is critical; drop the new event instead,
			// unless it is itself critical, in which case the queue may
			// exceed its bound (critical events are rare and terminal)
			if !eventIsCritical(ev) {
				return
			}
		}
	}

	sub.queue = append(sub.queue, ev)
	sub.cond.Signal()
}

// dropOldestDroppable evicts the oldest non-critical queued event,
// reporting whether anything was evicted. Callers hold sub.mutex.
func (sub *Subscription) dropOldestDroppable() bool {
	for i, queued := range sub.queue {
		if !eventIsCritical(queued) {
			sub.queue = append(sub.queue[:i], sub.queue[i+1:]...)
			return true
		}
	}
	return false
}

// pump moves events from the queue to the public channel.
func (sub *Subscription) pump() {
	for {
		sub.mutex.Lock()
		for len(sub.queue) == 0 && !sub.closed {
			sub.cond.Wait()
		}
		if sub.closed {
			sub.mutex.Unlock()
			close(sub.C)
			return
		}
		ev := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mutex.Unlock()

		select {
		case sub.C <- ev:
		case <-sub.done:
			close(sub.C)
			return
		}
	}
}
