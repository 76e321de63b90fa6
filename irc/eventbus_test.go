// Copyright (c) 2020 the ircclient authors
// released under the MIT license

package irc

import (
	"sync"
	"testing"
	"time"
)

func nextEvent(t *testing.T, sub *Subscription) Event {
	t.Helper()
	select {
	case ev, ok := <-sub.C:
		if !ok {
			t.Fatal("subscription channel closed unexpectedly")
		}
		return ev
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for an event")
	}
	return nil
}

func TestEventBusDelivery(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8)
	defer sub.Unsubscribe()

	bus.Publish(JoinedEvent{Channel: "#go", Nick: "alice"})
	bus.Publish(MessageEvent{Channel: "#go", From: "alice", Text: "hi"})

	if ev, ok := nextEvent(t, sub).(JoinedEvent); !ok || ev.Nick != "alice" {
		t.Errorf("got %#v", ev)
	}
	if ev, ok := nextEvent(t, sub).(MessageEvent); !ok || ev.Text != "hi" {
		t.Errorf("got %#v", ev)
	}
}

func TestEventBusFanout(t *testing.T) {
	bus := NewEventBus()
	first := bus.Subscribe(8)
	second := bus.Subscribe(8)
	defer first.Unsubscribe()
	defer second.Unsubscribe()

	bus.Publish(QuitEvent{Nick: "alice"})

	for _, sub := range []*Subscription{first, second} {
		if ev, ok := nextEvent(t, sub).(QuitEvent); !ok || ev.Nick != "alice" {
			t.Errorf("got %#v", ev)
		}
	}
}

func TestEventBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8)
	sub.Unsubscribe()

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Errorf("received an event after unsubscribing")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after Unsubscribe")
	}

	// publishing to a dead subscription must not panic or block
	bus.Publish(QuitEvent{Nick: "alice"})
}

func TestEventBusShutdown(t *testing.T) {
	bus := NewEventBus()
	sub := bus.Subscribe(8)
	bus.Shutdown()

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Errorf("received an event after shutdown")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("channel not closed after Shutdown")
	}
}

// overflow policy tests drive the queue directly so no pump goroutine
// can drain it mid-test
func newQueueForTesting(limit int) *Subscription {
	sub := &Subscription{
		C:     make(chan Event),
		limit: limit,
		done:  make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mutex)
	return sub
}

func TestEventBusOverflowDropsOldest(t *testing.T) {
	sub := newQueueForTesting(2)
	sub.enqueue(MessageEvent{Text: "one"})
	sub.enqueue(MessageEvent{Text: "two"})
	sub.enqueue(MessageEvent{Text: "three"})

	if len(sub.queue) != 2 {
		t.Fatalf("queue length %d", len(sub.queue))
	}
	if ev := sub.queue[0].(MessageEvent); ev.Text != "two" {
		t.Errorf("oldest event was not dropped: %#v", sub.queue)
	}
	if ev := sub.queue[1].(MessageEvent); ev.Text != "three" {
		t.Errorf("newest event missing: %#v", sub.queue)
	}
}

func TestEventBusOverflowKeepsCritical(t *testing.T) {
	sub := newQueueForTesting(2)
	sub.enqueue(DisconnectedEvent{})
	sub.enqueue(MessageEvent{Text: "one"})
	sub.enqueue(MessageEvent{Text: "two"})

	// the non-critical event was evicted, not the disconnect
	if _, ok := sub.queue[0].(DisconnectedEvent); !ok {
		t.Errorf("critical event was dropped: %#v", sub.queue)
	}

	// a critical event may exceed the bound when everything queued is
	// critical
	sub = newQueueForTesting(1)
	sub.enqueue(DisconnectedEvent{})
	sub.enqueue(ErrorEvent{Kind: ErrorProtocol})
	if len(sub.queue) != 2 {
		t.Fatalf("critical event was refused: %#v", sub.queue)
	}

	// while a non-critical one is refused
	sub.enqueue(MessageEvent{Text: "one"})
	if len(sub.queue) != 2 {
		t.Errorf("non-critical event exceeded the bound: %#v", sub.queue)
	}
}
