package realtime

import (
	"context"
	"sync"
	"time"
)

// Task is a handle to a scheduled callback. Cancel is idempotent and safe to
// call after the callback has fired.
type Task interface {
	Cancel()
}

// TaskFunc adapts a cancel function to Task.
type TaskFunc func()

// Cancel calls f.
func (f TaskFunc) Cancel() { f() }

// Scheduler runs callbacks later. After fires once; Every fires once per
// interval until canceled.
type Scheduler interface {
	Now() time.Time
	After(d time.Duration, f func()) Task
	Every(d time.Duration, f func()) Task
}

// ClockScheduler schedules callbacks on the wall clock. Callbacks run on their
// own goroutines; callers serialize state access themselves.
type ClockScheduler struct{}

// Now returns the current UTC time.
func (ClockScheduler) Now() time.Time { return time.Now().UTC() }

// After runs f once after d.
func (ClockScheduler) After(d time.Duration, f func()) Task {
	timer := time.AfterFunc(d, f)
	return TaskFunc(func() { timer.Stop() })
}

// Every runs f every d until the task is canceled.
func (ClockScheduler) Every(d time.Duration, f func()) Task {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				// A cancel racing with the tick wins.
				if ctx.Err() != nil {
					return
				}
				f()
			}
		}
	}()
	return TaskFunc(cancel)
}

// ManualScheduler is a Scheduler driven by Advance instead of the wall clock.
// Callbacks run synchronously on the goroutine calling Advance, ordered by due
// time and then by scheduling order.
type ManualScheduler struct {
	mu    sync.Mutex
	now   time.Time
	seq   uint64
	tasks []*manualTask
}

type manualTask struct {
	s        *ManualScheduler
	due      time.Time
	every    time.Duration
	seq      uint64
	f        func()
	canceled bool
}

func (t *manualTask) Cancel() {
	t.s.mu.Lock()
	t.canceled = true
	t.s.mu.Unlock()
}

// NewManualScheduler returns a scheduler whose clock starts at start.
func NewManualScheduler(start time.Time) *ManualScheduler {
	return &ManualScheduler{now: start}
}

// Now returns the scheduler's current time.
func (s *ManualScheduler) Now() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now
}

// After schedules f to run once d after the current time.
func (s *ManualScheduler) After(d time.Duration, f func()) Task {
	return s.add(d, 0, f)
}

// Every schedules f to run every d, first at now+d.
func (s *ManualScheduler) Every(d time.Duration, f func()) Task {
	if d <= 0 {
		panic("realtime: non-positive interval")
	}
	return s.add(d, d, f)
}

func (s *ManualScheduler) add(d, every time.Duration, f func()) Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	t := &manualTask{s: s, due: s.now.Add(d), every: every, seq: s.seq, f: f}
	s.tasks = append(s.tasks, t)
	return t
}

// Advance moves the clock forward by d, firing every callback that falls due
// on the way, including ones scheduled by callbacks fired during the advance.
func (s *ManualScheduler) Advance(d time.Duration) {
	s.mu.Lock()
	target := s.now.Add(d)
	for {
		t := s.nextDueLocked(target)
		if t == nil {
			break
		}
		s.now = t.due
		if t.every > 0 {
			s.seq++
			t.due = t.due.Add(t.every)
			t.seq = s.seq
		} else {
			t.canceled = true
		}
		s.mu.Unlock()
		t.f()
		s.mu.Lock()
	}
	s.now = target
	s.pruneLocked()
	s.mu.Unlock()
}

// Pending reports the number of live (uncanceled, unfired) tasks.
func (s *ManualScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.tasks)
}

func (s *ManualScheduler) nextDueLocked(limit time.Time) *manualTask {
	var next *manualTask
	for _, t := range s.tasks {
		if t.canceled || t.due.After(limit) {
			continue
		}
		if next == nil || t.due.Before(next.due) || (t.due.Equal(next.due) && t.seq < next.seq) {
			next = t
		}
	}
	return next
}

func (s *ManualScheduler) pruneLocked() {
	live := s.tasks[:0]
	for _, t := range s.tasks {
		if !t.canceled {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(s.tasks); i++ {
		s.tasks[i] = nil
	}
	s.tasks = live
}
