package game

import (
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tilematch/pkg/realtime"
)

// Store holds play sessions: one Engine per session, publishing its events
// to the session's broadcaster.
type Store struct {
	r       *realtime.RoomStore[*Engine, Event]
	results ResultReporter
	sched   realtime.Scheduler
	log     zerolog.Logger
}

// NewStore creates an in-memory session store. Finished rounds are reported
// to results; sched drives every session's clock.
func NewStore(results ResultReporter, sched realtime.Scheduler, logger zerolog.Logger) *Store {
	if sched == nil {
		sched = realtime.ClockScheduler{}
	}
	return &Store{
		r:       realtime.NewRoomStore[*Engine, Event](),
		results: results,
		sched:   sched,
		log:     logger,
	}
}

// CreateSession registers a new session and starts its first round at d.
func (s *Store) CreateSession(d Difficulty) (string, *Engine, error) {
	id := uuid.NewString()
	logger := s.log.With().Str("session", id).Logger()
	room := s.r.Create(id, func(hub *realtime.Broadcaster[Event]) *Engine {
		return NewEngine(Options{
			Scheduler: s.sched,
			Results:   s.results,
			Notifier:  NotifierFunc(hub.Publish),
			Logger:    &logger,
		})
	})
	if err := room.State.StartRound(d); err != nil {
		s.r.Delete(id)
		return "", nil, err
	}
	logger.Info().Str("difficulty", string(d)).Msg("session created")
	return id, room.State, nil
}

// GetSession returns a session's engine if it exists.
func (s *Store) GetSession(id string) (*Engine, bool) {
	room, ok := s.r.Get(id)
	if !ok {
		return nil, false
	}
	return room.State, true
}

// RemoveSession stops the session's round and forgets it.
func (s *Store) RemoveSession(id string) bool {
	room, ok := s.r.Delete(id)
	if !ok {
		return false
	}
	room.State.ResetRound()
	return true
}

// Broadcaster returns the event broadcaster for a session.
func (s *Store) Broadcaster(id string) (*realtime.Broadcaster[Event], bool) {
	return s.r.Broadcaster(id)
}

// Sessions reports how many sessions are live.
func (s *Store) Sessions() int {
	return s.r.Len()
}
