package notify

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHubDeliversToAllSubscribers(t *testing.T) {
	hub := NewHub(4)
	a, cancelA := hub.Subscribe()
	defer cancelA()
	b, cancelB := hub.Subscribe()
	defer cancelB()

	e := NewEvent(EventRequestCreated)
	e.RequestID = "r1"
	if err := hub.NotifyAll(context.Background(), e); err != nil {
		t.Fatalf("NotifyAll: %v", err)
	}

	for _, ch := range []<-chan Event{a, b} {
		select {
		case got := <-ch:
			if got.ID != e.ID || got.RequestID != "r1" {
				t.Errorf("unexpected event %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for event")
		}
	}
}

func TestHubDropsForSlowSubscriber(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	ctx := context.Background()
	hub.NotifyAll(ctx, NewEvent(EventRequestCreated))

	done := make(chan struct{})
	go func() {
		hub.NotifyAll(ctx, NewEvent(EventRequestUpdated))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("NotifyAll blocked on a full subscriber")
	}

	got := <-ch
	if got.Type != EventRequestCreated {
		t.Errorf("expected first event to be kept, got %q", got.Type)
	}
}

func TestHubCancel(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	if hub.Subscribers() != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers())
	}

	cancel()
	cancel()

	if hub.Subscribers() != 0 {
		t.Errorf("expected 0 subscribers, got %d", hub.Subscribers())
	}
	if _, ok := <-ch; ok {
		t.Error("expected channel to be closed")
	}
	if err := hub.NotifyAll(context.Background(), NewEvent(EventRequestUpdated)); err != nil {
		t.Errorf("NotifyAll after cancel: %v", err)
	}
}

type failing struct{ err error }

func (f failing) NotifyAll(context.Context, Event) error { return f.err }

func TestMultiJoinsErrors(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()
	defer cancel()

	boom := errors.New("boom")
	m := Multi{failing{boom}, hub}

	err := m.NotifyAll(context.Background(), NewEvent(EventRequestUpdated))
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	select {
	case <-ch:
	default:
		t.Error("expected later notifiers to still run")
	}
}

func TestHubClose(t *testing.T) {
	hub := NewHub(1)
	ch, cancel := hub.Subscribe()

	hub.Close()
	if _, ok := <-ch; ok {
		t.Fatal("expected subscription to be closed")
	}
	if n := hub.Subscribers(); n != 0 {
		t.Errorf("expected no subscribers after close, got %d", n)
	}

	// Cancelling after close is a no-op.
	cancel()

	late, cancelLate := hub.Subscribe()
	defer cancelLate()
	if _, ok := <-late; ok {
		t.Error("expected subscribe after close to return a closed channel")
	}
	if err := hub.NotifyAll(context.Background(), NewEvent(EventRequestCreated)); err != nil {
		t.Errorf("NotifyAll after close: %v", err)
	}
}
