package realtime

import (
	"testing"
	"time"
)

func TestEvent_Topics(t *testing.T) {
	ev := Event{Table: "votes", ElectionID: "e-1", Op: OpInsert}
	topics := ev.Topics()
	if len(topics) != 2 || topics[0] != "votes:e-1" || topics[1] != "votes" {
		t.Fatalf("unexpected topics %v", topics)
	}
	ev = Event{Table: "elections", Op: OpUpdate}
	topics = ev.Topics()
	if len(topics) != 1 || topics[0] != "elections" {
		t.Fatalf("unexpected topics %v", topics)
	}
}

func TestHub_SubscribePublish(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(TopicVotes("e-1"))
	defer sub.Cancel()

	h.Publish(Event{Table: "votes", ElectionID: "e-1", Op: OpInsert})

	select {
	case ev := <-sub.C:
		if ev.ElectionID != "e-1" || ev.Op != OpInsert {
			t.Fatalf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected event delivery")
	}

	// Events on other topics are not delivered
	h.Publish(Event{Table: "votes", ElectionID: "e-2", Op: OpInsert})
	select {
	case ev, ok := <-sub.C:
		if ok {
			t.Fatalf("unexpected event %+v", ev)
		}
		t.Fatalf("channel unexpectedly closed")
	default:
	}
}

func TestHub_CancelReleasesRegistration(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(TopicElections())
	if h.NumSubscriptions(TopicElections()) != 1 {
		t.Fatalf("expected 1 subscription")
	}
	sub.Cancel()
	if h.NumSubscriptions(TopicElections()) != 0 {
		t.Fatalf("expected subscription map cleaned up")
	}
	// channel is closed on cancel
	if _, ok := <-sub.C; ok {
		t.Fatalf("expected closed channel after cancel")
	}
	// Cancel is idempotent
	sub.Cancel()
}

func TestHub_SlowSubscriberDropped(t *testing.T) {
	h := NewHub()
	sub := h.Subscribe(TopicElections())

	// Overflow the buffer without draining
	for i := 0; i < subscriptionBuffer+1; i++ {
		h.Publish(Event{Table: "elections", Op: OpUpdate})
	}

	if h.NumSubscriptions(TopicElections()) != 0 {
		t.Fatalf("expected slow subscription to be dropped")
	}

	// Drain buffered events, then observe the closed channel
	closed := false
	for i := 0; i < subscriptionBuffer+1; i++ {
		if _, ok := <-sub.C; !ok {
			closed = true
			break
		}
	}
	if !closed {
		t.Fatalf("expected channel to be closed after drop")
	}

	// Cancel after a drop must not panic
	sub.Cancel()
}

type fakeClient struct {
	messages [][]byte
}

func (f *fakeClient) Send(message []byte) bool {
	f.messages = append(f.messages, message)
	return true
}

func (f *fakeClient) Close() {}

func TestHub_ClientFanout(t *testing.T) {
	h := NewHub()
	c := &fakeClient{}
	h.Register(TopicVotes("e-1"), c)

	h.Publish(Event{Table: "votes", ElectionID: "e-1", Op: OpInsert})
	h.Publish(Event{Table: "votes", ElectionID: "e-2", Op: OpInsert})

	if len(c.messages) != 1 {
		t.Fatalf("expected exactly one message, got %d", len(c.messages))
	}

	h.Unregister(TopicVotes("e-1"), c)
	h.Publish(Event{Table: "votes", ElectionID: "e-1", Op: OpInsert})
	if len(c.messages) != 1 {
		t.Fatalf("expected no delivery after unregister")
	}
}
