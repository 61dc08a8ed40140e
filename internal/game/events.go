package game

// EventKind names what changed in a round.
type EventKind string

const (
	EventRoundStarted EventKind = "round_started"
	EventRevealed     EventKind = "revealed"
	EventMatched      EventKind = "matched"
	EventPenalty      EventKind = "penalty"
	EventMismatch     EventKind = "mismatch"
	EventHidden       EventKind = "hidden"
	EventSpecial      EventKind = "special"
	EventFlash        EventKind = "flash"
	EventFrozen       EventKind = "frozen"
	EventThawed       EventKind = "thawed"
	EventTick         EventKind = "tick"
	EventWon          EventKind = "won"
	EventLost         EventKind = "lost"
	EventReset        EventKind = "reset"
)

// Event is a state-change notification. Score, TimeRemaining and Phase are
// the values after the change.
type Event struct {
	Kind          EventKind `json:"kind"`
	RoundID       string    `json:"roundId,omitempty"`
	Tiles         []int     `json:"tiles,omitempty"`
	Special       Special   `json:"special,omitempty"`
	Score         int       `json:"score"`
	TimeRemaining int       `json:"timeRemaining"`
	Phase         Phase     `json:"phase"`
}

// Notifier receives engine events. Notify is called outside the engine's
// lock, so implementations may read engine state.
type Notifier interface {
	Notify(Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Event)

// Notify calls f(ev).
func (f NotifierFunc) Notify(ev Event) { f(ev) }

type nopNotifier struct{}

func (nopNotifier) Notify(Event) {}
