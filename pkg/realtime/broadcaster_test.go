package realtime

import (
	"testing"
)

func TestNewBroadcaster(t *testing.T) {
	b := NewBroadcaster[string]()
	if b == nil {
		t.Fatal("NewBroadcaster returned nil")
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers %d, want 0", b.Subscribers())
	}
}

func TestBroadcaster_PublishDeliversToSubscriber(t *testing.T) {
	b := NewBroadcaster[string]()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	b.Publish("tick")
	got := <-ch
	if got != "tick" {
		t.Errorf("got event %q, want %q", got, "tick")
	}
}

func TestBroadcaster_PublishDeliversToMultipleSubscribers(t *testing.T) {
	b := NewBroadcaster[int]()
	ch1 := b.Subscribe()
	ch2 := b.Subscribe()
	defer b.Unsubscribe(ch1)
	defer b.Unsubscribe(ch2)

	b.Publish(7)
	if got := <-ch1; got != 7 {
		t.Errorf("ch1 got %d, want 7", got)
	}
	if got := <-ch2; got != 7 {
		t.Errorf("ch2 got %d, want 7", got)
	}
}

func TestBroadcaster_UnsubscribeClosesChannel(t *testing.T) {
	b := NewBroadcaster[string]()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	_, open := <-ch
	if open {
		t.Error("channel should be closed after Unsubscribe")
	}
	// second unsubscribe must not panic on a closed channel
	b.Unsubscribe(ch)
}

func TestBroadcaster_PublishDropsWhenSubscriberLags(t *testing.T) {
	b := NewBroadcaster[int]()
	ch := b.Subscribe()
	defer b.Unsubscribe(ch)

	for i := 0; i < cap(ch)+10; i++ {
		b.Publish(i)
	}
	if len(ch) != cap(ch) {
		t.Errorf("buffered %d events, want %d", len(ch), cap(ch))
	}
	if got := <-ch; got != 0 {
		t.Errorf("first event %d, want 0", got)
	}
}

func TestBroadcaster_Close(t *testing.T) {
	b := NewBroadcaster[int]()
	a, c := b.Subscribe(), b.Subscribe()
	b.Close()
	b.Close()
	for _, ch := range []chan int{a, c} {
		if _, ok := <-ch; ok {
			t.Error("channel open after Close")
		}
	}
	if b.Subscribers() != 0 {
		t.Errorf("Subscribers %d after Close, want 0", b.Subscribers())
	}
	b.Publish(1)
}
