package realtime

import "testing"

func TestNewRoomStore(t *testing.T) {
	s := NewRoomStore[string, string]()
	if s == nil {
		t.Fatal("NewRoomStore returned nil")
	}
	if s.Len() != 0 {
		t.Errorf("Len %d, want 0", s.Len())
	}
}

func TestRoomStore_Create_Get(t *testing.T) {
	s := NewRoomStore[string, string]()
	var seen *Broadcaster[string]
	s.Create("room1", func(hub *Broadcaster[string]) string {
		seen = hub
		return "state1"
	})
	room, ok := s.Get("room1")
	if !ok {
		t.Fatal("Get returned false for existing room")
	}
	if room.ID != "room1" {
		t.Errorf("room ID %q, want room1", room.ID)
	}
	if room.State != "state1" {
		t.Errorf("room State %q, want state1", room.State)
	}
	if room.Hub() != seen {
		t.Error("build received a different broadcaster than the room holds")
	}

	_, ok = s.Get("nonexistent")
	if ok {
		t.Error("Get should return false for missing ID")
	}
}

func TestRoomStore_RecreateKeepsBroadcaster(t *testing.T) {
	s := NewRoomStore[int, string]()
	first := s.Create("r", func(*Broadcaster[string]) int { return 1 })
	hub := first.Hub()
	second := s.Create("r", func(*Broadcaster[string]) int { return 2 })
	if second.Hub() != hub {
		t.Error("recreate replaced the broadcaster")
	}
	if second.State != 2 {
		t.Errorf("State %d, want 2", second.State)
	}
}

func TestRoomStore_Publish(t *testing.T) {
	s := NewRoomStore[string, string]()
	s.Create("r1", func(*Broadcaster[string]) string { return "x" })
	hub, ok := s.Broadcaster("r1")
	if !ok {
		t.Fatal("Broadcaster returned false for existing room")
	}
	ch := hub.Subscribe()
	defer hub.Unsubscribe(ch)

	s.Publish("r1", "event1")
	got := <-ch
	if got != "event1" {
		t.Errorf("got %q, want event1", got)
	}
	// unknown rooms are ignored
	s.Publish("missing", "event2")
}

func TestRoomStore_Delete(t *testing.T) {
	s := NewRoomStore[string, string]()
	s.Create("r1", func(*Broadcaster[string]) string { return "x" })
	if _, ok := s.Delete("r1"); !ok {
		t.Fatal("Delete returned false for existing room")
	}
	if _, ok := s.Get("r1"); ok {
		t.Error("room still present after Delete")
	}
	if _, ok := s.Delete("r1"); ok {
		t.Error("second Delete returned true")
	}
}

func TestRoomStore_DeleteClosesSubscribers(t *testing.T) {
	s := NewRoomStore[string, string]()
	room := s.Create("r1", func(*Broadcaster[string]) string { return "x" })
	ch := room.Hub().Subscribe()
	s.Delete("r1")

	if _, ok := <-ch; ok {
		t.Fatal("subscriber channel still open after Delete")
	}
	room.Hub().Unsubscribe(ch) // no double close
	room.Hub().Publish("late")
	if late, ok := <-room.Hub().Subscribe(); ok {
		t.Errorf("Subscribe on deleted room received %q", late)
	}
}
