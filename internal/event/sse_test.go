package event

import (
	"testing"
	"time"
)

func newRunningServer() Sender {
	server := NewSSEServer()
	go server.Run()
	return server
}

func receive(t *testing.T, client chan Event) Event {
	t.Helper()
	select {
	case ev := <-client:
		return ev
	case <-time.After(time.Second):
		t.Fatalf("timed out waiting for event")
		return Event{}
	}
}

func TestSSEServerDeliversToTopicSubscribers(t *testing.T) {
	server := newRunningServer()

	clientA := make(chan Event, 4)
	clientB := make(chan Event, 4)
	server.Register("lot:1", clientA)
	server.Register("lot:1", clientB)

	server.Broadcast(Event{Topic: "lot:1", Type: EventTypePriceTick, Data: "tick"})

	for _, client := range []chan Event{clientA, clientB} {
		ev := receive(t, client)
		if ev.Type != EventTypePriceTick || ev.Data != "tick" {
			t.Fatalf("unexpected event: %+v", ev)
		}
	}
}

func TestSSEServerIsolatesTopics(t *testing.T) {
	server := newRunningServer()

	client := make(chan Event, 4)
	server.Register("lot:1", client)

	server.Broadcast(Event{Topic: "lot:2", Type: EventTypePriceTick, Data: "other"})
	server.Broadcast(Event{Topic: "lot:1", Type: EventTypeBidResolved, Data: "mine"})

	ev := receive(t, client)
	if ev.Topic != "lot:1" || ev.Type != EventTypeBidResolved {
		t.Fatalf("received event from wrong topic: %+v", ev)
	}

	select {
	case ev = <-client:
		t.Fatalf("received unexpected second event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSSEServerUnregisterClosesChannel(t *testing.T) {
	server := newRunningServer()

	client := make(chan Event, 4)
	server.Register("lot:1", client)
	server.Unregister("lot:1", client)

	select {
	case _, ok := <-client:
		if ok {
			t.Fatalf("received event on unregistered channel")
		}
	case <-time.After(time.Second):
		t.Fatalf("channel was not closed on unregister")
	}

	// Unregistering an unknown channel must not panic or close anything.
	server.Unregister("lot:1", make(chan Event))
}

func TestSSEServerSlowSubscriberDoesNotBlockOthers(t *testing.T) {
	server := newRunningServer()

	slow := make(chan Event) // unbuffered and never read
	fast := make(chan Event, 16)
	server.Register("lot:1", slow)
	server.Register("lot:1", fast)

	for i := 0; i < 10; i++ {
		server.Broadcast(Event{Topic: "lot:1", Type: EventTypePriceTick, Data: i})
	}

	// The fast subscriber keeps receiving even though the slow one never
	// drains. Dropped events are acceptable; a stalled hub is not.
	received := 0
	deadline := time.After(time.Second)
	for received < 5 {
		select {
		case <-fast:
			received++
		case <-deadline:
			t.Fatalf("fast subscriber only received %d events, hub appears stalled", received)
		}
	}
}
