package realtime

import (
	"sync/atomic"
	"testing"
	"time"
)

var origin = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestManualScheduler_AfterFiresOnce(t *testing.T) {
	s := NewManualScheduler(origin)
	fired := 0
	s.After(400*time.Millisecond, func() { fired++ })

	s.Advance(399 * time.Millisecond)
	if fired != 0 {
		t.Fatalf("fired %d times before due, want 0", fired)
	}
	s.Advance(time.Millisecond)
	if fired != 1 {
		t.Fatalf("fired %d times at due, want 1", fired)
	}
	s.Advance(time.Hour)
	if fired != 1 {
		t.Errorf("fired %d times after due, want 1", fired)
	}
	if s.Pending() != 0 {
		t.Errorf("Pending %d, want 0", s.Pending())
	}
}

func TestManualScheduler_EveryRepeatsUntilCanceled(t *testing.T) {
	s := NewManualScheduler(origin)
	ticks := 0
	task := s.Every(time.Second, func() { ticks++ })

	s.Advance(3500 * time.Millisecond)
	if ticks != 3 {
		t.Fatalf("ticks %d, want 3", ticks)
	}
	task.Cancel()
	task.Cancel()
	s.Advance(10 * time.Second)
	if ticks != 3 {
		t.Errorf("ticks %d after cancel, want 3", ticks)
	}
}

func TestManualScheduler_OrdersByDueThenSchedulingOrder(t *testing.T) {
	s := NewManualScheduler(origin)
	var got []string
	s.After(2*time.Second, func() { got = append(got, "late") })
	s.After(time.Second, func() { got = append(got, "first") })
	s.After(time.Second, func() { got = append(got, "second") })

	s.Advance(5 * time.Second)
	want := []string{"first", "second", "late"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] %q, want %q", i, got[i], want[i])
		}
	}
}

func TestManualScheduler_CallbackCanScheduleAndCancel(t *testing.T) {
	s := NewManualScheduler(origin)
	var chained, canceled bool
	var victim Task
	s.After(time.Second, func() {
		victim.Cancel()
		s.After(time.Second, func() { chained = true })
	})
	victim = s.After(1500*time.Millisecond, func() { canceled = true })

	s.Advance(3 * time.Second)
	if !chained {
		t.Error("callback scheduled during Advance did not fire")
	}
	if canceled {
		t.Error("task canceled during Advance still fired")
	}
	if got := s.Now(); !got.Equal(origin.Add(3 * time.Second)) {
		t.Errorf("Now %v, want %v", got, origin.Add(3*time.Second))
	}
}

func TestClockScheduler_AfterAndCancel(t *testing.T) {
	var s ClockScheduler
	done := make(chan struct{})
	s.After(5*time.Millisecond, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("After callback did not fire")
	}

	var fired atomic.Bool
	task := s.After(50*time.Millisecond, func() { fired.Store(true) })
	task.Cancel()
	time.Sleep(80 * time.Millisecond)
	if fired.Load() {
		t.Error("canceled After callback fired")
	}
}

func TestClockScheduler_EveryStopsOnCancel(t *testing.T) {
	var s ClockScheduler
	var n atomic.Int32
	task := s.Every(5*time.Millisecond, func() { n.Add(1) })
	time.Sleep(40 * time.Millisecond)
	task.Cancel()
	time.Sleep(10 * time.Millisecond)
	after := n.Load()
	if after == 0 {
		t.Fatal("Every callback never fired")
	}
	time.Sleep(30 * time.Millisecond)
	if n.Load() != after {
		t.Errorf("ticks continued after cancel: %d -> %d", after, n.Load())
	}
}
