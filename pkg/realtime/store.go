package realtime

import "sync"

// Room holds state and a broadcaster for one room.
type Room[T any, E any] struct {
	ID    string
	State T
	hub   *Broadcaster[E]
}

// Hub returns the room's broadcaster.
func (r *Room[T, E]) Hub() *Broadcaster[E] { return r.hub }

// RoomStore manages rooms and their broadcasters.
type RoomStore[T any, E any] struct {
	mu    sync.RWMutex
	rooms map[string]*Room[T, E]
}

// NewRoomStore creates an empty room store.
func NewRoomStore[T any, E any]() *RoomStore[T, E] {
	return &RoomStore[T, E]{
		rooms: make(map[string]*Room[T, E]),
	}
}

// Create registers a room under id. build receives the room's broadcaster so
// the state can publish to it from construction on. An existing room with the
// same id keeps its broadcaster and subscribers.
func (s *RoomStore[T, E]) Create(id string, build func(hub *Broadcaster[E]) T) *Room[T, E] {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rooms[id]
	if !ok {
		r = &Room[T, E]{ID: id, hub: NewBroadcaster[E]()}
		s.rooms[id] = r
	}
	r.State = build(r.hub)
	return r
}

// Get returns the room by ID if it exists.
func (s *RoomStore[T, E]) Get(id string) (*Room[T, E], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	return r, ok
}

// Delete removes the room and closes its broadcaster, which ends every
// subscriber's channel.
func (s *RoomStore[T, E]) Delete(id string) (*Room[T, E], bool) {
	s.mu.Lock()
	r, ok := s.rooms[id]
	if ok {
		delete(s.rooms, id)
	}
	s.mu.Unlock()
	if ok {
		r.hub.Close()
	}
	return r, ok
}

// Len reports how many rooms are registered.
func (s *RoomStore[T, E]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rooms)
}

// Publish notifies subscribers of the room's broadcaster. Unknown rooms are ignored.
func (s *RoomStore[T, E]) Publish(id string, event E) {
	if hub, ok := s.Broadcaster(id); ok {
		hub.Publish(event)
	}
}

// Broadcaster returns the broadcaster for the room.
func (s *RoomStore[T, E]) Broadcaster(id string) (*Broadcaster[E], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.rooms[id]
	if !ok {
		return nil, false
	}
	return r.hub, true
}
