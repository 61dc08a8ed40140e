package realtime

import "sync"

// Broadcaster fans events out to subscribers (SSE streams, websockets, tests).
type Broadcaster[E any] struct {
	mu     sync.Mutex
	subs   map[chan E]struct{}
	closed bool
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster[E any]() *Broadcaster[E] {
	return &Broadcaster[E]{
		subs: make(map[chan E]struct{}),
	}
}

// Subscribe registers a new subscriber and returns its event channel. On a
// closed broadcaster the channel comes back already closed.
func (b *Broadcaster[E]) Subscribe() chan E {
	ch := make(chan E, 32)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (b *Broadcaster[E]) Unsubscribe(ch chan E) {
	b.mu.Lock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish delivers an event to all subscribers without blocking.
func (b *Broadcaster[E]) Publish(event E) {
	b.mu.Lock()
	for ch := range b.subs {
		select {
		case ch <- event:
		default:
			// Drop if the subscriber is lagging; the next event carries fresh state.
		}
	}
	b.mu.Unlock()
}

// Close closes every subscriber channel so their readers stop. Later
// publishes are dropped.
func (b *Broadcaster[E]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for ch := range b.subs {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribers reports how many subscribers are registered.
func (b *Broadcaster[E]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
