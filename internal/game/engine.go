package game

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"tilematch/pkg/realtime"
)

// Scoring and timing rules.
const (
	MatchReward      = 100
	MismatchPenalty  = 10
	SpecialBonus     = 20
	BombTimePenalty  = 12
	BombScorePenalty = 40
	JokerReward      = 120

	FreezeWindow        = 5 * time.Second
	MismatchRevealDelay = 400 * time.Millisecond
	MismatchHideDelay   = 600 * time.Millisecond

	reportTimeout = 5 * time.Second
)

// Phase is the round lifecycle: idle -> running -> won|lost -> idle.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseRunning Phase = "running"
	PhaseWon     Phase = "won"
	PhaseLost    Phase = "lost"
)

// ResultReporter records finished rounds. best.Store implements it.
type ResultReporter interface {
	ReportResult(ctx context.Context, difficulty string, score, elapsedSeconds int) (bool, error)
}

// Round is the mutable state of one round. Only the Engine touches it.
type Round struct {
	ID            string
	Difficulty    Difficulty
	Level         Level
	Deck          Deck
	Flipped       []int // revealed, unmatched pair tiles awaiting resolution
	Mismatched    []int // tiles currently shown as a mismatch
	MatchedPairs  int
	Score         int
	TimeRemaining int
	InputLocked   bool
	Frozen        bool
	StartedAt     time.Time
}

// Options wires an Engine to its collaborators. Zero fields get defaults:
// wall-clock scheduler, time-seeded randomness, the built-in catalog and
// levels, no notifier, no result reporting and a disabled logger.
type Options struct {
	Scheduler realtime.Scheduler
	Rand      Rand
	Results   ResultReporter
	Notifier  Notifier
	Catalog   []string
	Levels    map[Difficulty]Level
	Logger    *zerolog.Logger
}

// Engine runs memory-match rounds. All methods are safe for concurrent use;
// selections, timer ticks and delayed callbacks are serialized by one lock.
type Engine struct {
	mu       sync.Mutex
	sched    realtime.Scheduler
	rng      Rand
	results  ResultReporter
	notifier Notifier
	catalog  []string
	levels   map[Difficulty]Level
	log      zerolog.Logger
	timer    *realtime.Countdown

	phase      Phase
	difficulty Difficulty
	round      *Round
	mismatch   realtime.Task
	outbox     []func()
}

// NewEngine creates an idle engine.
func NewEngine(opts Options) *Engine {
	e := &Engine{
		sched:      opts.Scheduler,
		rng:        opts.Rand,
		results:    opts.Results,
		notifier:   opts.Notifier,
		catalog:    opts.Catalog,
		levels:     opts.Levels,
		log:        zerolog.Nop(),
		phase:      PhaseIdle,
		difficulty: Easy,
	}
	if e.sched == nil {
		e.sched = realtime.ClockScheduler{}
	}
	if e.rng == nil {
		e.rng = NewRand()
	}
	if e.notifier == nil {
		e.notifier = nopNotifier{}
	}
	if e.catalog == nil {
		e.catalog = Symbols
	}
	if e.levels == nil {
		e.levels = levels
	}
	if opts.Logger != nil {
		e.log = *opts.Logger
	}
	e.timer = realtime.NewCountdown(e.sched, realtime.DefaultTickInterval)
	return e
}

// StartRound deals a fresh deck for d and starts the clock, discarding any
// round in progress and every callback it scheduled. A *ConfigError leaves
// the engine untouched.
func (e *Engine) StartRound(d Difficulty) error {
	e.mu.Lock()
	defer e.unlock()

	level, ok := e.levels[d]
	if !ok {
		return ErrUnknownDifficulty
	}
	deck, err := BuildDeck(level, e.catalog, e.rng)
	if err != nil {
		e.log.Error().Err(err).Str("difficulty", string(d)).Msg("build deck")
		return err
	}

	e.stopLocked()
	round := &Round{
		ID:            uuid.NewString(),
		Difficulty:    d,
		Level:         level,
		Deck:          deck,
		TimeRemaining: level.DurationSeconds,
		StartedAt:     e.sched.Now(),
	}
	e.round = round
	e.difficulty = d
	e.phase = PhaseRunning
	e.timer.Start(func() { e.tick(round, 1) })

	e.log.Debug().Str("round", round.ID).Str("difficulty", string(d)).Int("tiles", len(deck)).Msg("round started")
	e.emitLocked(Event{Kind: EventRoundStarted})
	return nil
}

// Restart starts a new round at the most recently used difficulty.
func (e *Engine) Restart() error {
	e.mu.Lock()
	d := e.difficulty
	e.mu.Unlock()
	return e.StartRound(d)
}

// ResetRound stops the clock, cancels pending callbacks and returns to idle.
func (e *Engine) ResetRound() {
	e.mu.Lock()
	defer e.unlock()
	e.stopLocked()
	e.round = nil
	e.phase = PhaseIdle
	e.emitLocked(Event{Kind: EventReset})
}

// SelectTile reveals tile id. Selections outside a running round, during a
// mismatch lock, or of unknown, revealed or matched tiles are ignored and
// report false.
func (e *Engine) SelectTile(id int) bool {
	e.mu.Lock()
	defer e.unlock()

	if e.phase != PhaseRunning || e.round.InputLocked {
		return false
	}
	r := e.round
	t := r.Deck.tile(id)
	if t == nil || t.Revealed || t.Matched {
		return false
	}
	t.Revealed = true
	e.emitLocked(Event{Kind: EventRevealed, Tiles: []int{id}})

	if t.Kind == KindSpecial {
		e.applySpecialLocked(t)
		return true
	}
	r.Flipped = append(r.Flipped, id)
	if len(r.Flipped) == 2 {
		e.resolvePairLocked()
	}
	return true
}

// Tick removes seconds from the running round's clock. The countdown calls it
// once per second; it is exported for drivers with their own clock. Ticks with
// seconds <= 0 and ticks during a freeze window are ignored.
func (e *Engine) Tick(seconds int) {
	e.mu.Lock()
	r := e.round
	e.mu.Unlock()
	if r != nil {
		e.tick(r, seconds)
	}
}

func (e *Engine) tick(r *Round, seconds int) {
	e.mu.Lock()
	defer e.unlock()
	if e.round != r || e.phase != PhaseRunning || seconds <= 0 || r.Frozen {
		return
	}
	r.TimeRemaining = max(0, r.TimeRemaining-seconds)
	e.emitLocked(Event{Kind: EventTick})
	if r.TimeRemaining == 0 {
		e.loseLocked()
	}
}

func (e *Engine) resolvePairLocked() {
	r := e.round
	a, b := r.Deck.tile(r.Flipped[0]), r.Deck.tile(r.Flipped[1])
	ids := []int{a.ID, b.ID}

	if a.Value == b.Value {
		a.Matched, b.Matched = true, true
		r.MatchedPairs++
		r.Score += MatchReward
		r.Flipped = r.Flipped[:0]
		e.emitLocked(Event{Kind: EventMatched, Tiles: ids})
		e.checkWinLocked()
		return
	}

	r.Score = max(0, r.Score-MismatchPenalty)
	r.InputLocked = true
	e.emitLocked(Event{Kind: EventPenalty, Tiles: ids})
	e.mismatch = e.sched.After(MismatchRevealDelay, func() { e.showMismatch(r, ids) })
}

func (e *Engine) showMismatch(r *Round, ids []int) {
	e.mu.Lock()
	defer e.unlock()
	if e.round != r || e.phase != PhaseRunning {
		return
	}
	r.Mismatched = ids
	e.emitLocked(Event{Kind: EventMismatch, Tiles: ids})
	e.mismatch = e.sched.After(MismatchHideDelay, func() { e.hideMismatch(r, ids) })
}

func (e *Engine) hideMismatch(r *Round, ids []int) {
	e.mu.Lock()
	defer e.unlock()
	if e.round != r || e.phase != PhaseRunning {
		return
	}
	for _, id := range ids {
		if t := r.Deck.tile(id); t != nil && !t.Matched {
			t.Revealed = false
		}
	}
	r.Mismatched = nil
	r.Flipped = r.Flipped[:0]
	r.InputLocked = false
	e.mismatch = nil
	e.emitLocked(Event{Kind: EventHidden, Tiles: ids})
}

func (e *Engine) checkWinLocked() {
	r := e.round
	if r.MatchedPairs < r.Level.Pairs {
		return
	}
	e.phase = PhaseWon
	e.stopLocked()
	score, elapsed := r.Score, r.Level.DurationSeconds-r.TimeRemaining
	e.log.Info().Str("round", r.ID).Str("difficulty", string(r.Difficulty)).
		Int("score", score).Int("elapsed", elapsed).Msg("round won")
	e.emitLocked(Event{Kind: EventWon})

	if e.results == nil {
		return
	}
	difficulty := string(r.Difficulty)
	e.outbox = append(e.outbox, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		improved, err := e.results.ReportResult(ctx, difficulty, score, elapsed)
		if err != nil {
			e.log.Warn().Err(err).Str("difficulty", difficulty).Msg("report result")
			return
		}
		if improved {
			e.log.Info().Str("difficulty", difficulty).Int("score", score).Int("elapsed", elapsed).Msg("new best")
		}
	})
}

func (e *Engine) loseLocked() {
	r := e.round
	e.phase = PhaseLost
	e.stopLocked()
	e.log.Info().Str("round", r.ID).Str("difficulty", string(r.Difficulty)).Int("score", r.Score).Msg("round lost")
	e.emitLocked(Event{Kind: EventLost})
}

// stopLocked cancels the countdown, the freeze window and any mismatch delay.
func (e *Engine) stopLocked() {
	e.timer.Stop()
	if e.mismatch != nil {
		e.mismatch.Cancel()
		e.mismatch = nil
	}
	if e.round != nil {
		e.round.Frozen = false
	}
}

func (e *Engine) emitLocked(ev Event) {
	ev.Phase = e.phase
	if r := e.round; r != nil {
		ev.RoundID = r.ID
		ev.Score = r.Score
		ev.TimeRemaining = r.TimeRemaining
	}
	n := e.notifier
	e.outbox = append(e.outbox, func() { n.Notify(ev) })
}

// unlock releases the lock, then delivers queued notifications and reports
// in order.
func (e *Engine) unlock() {
	out := e.outbox
	e.outbox = nil
	e.mu.Unlock()
	for _, f := range out {
		f()
	}
}

// Snapshot is a consistent copy of the engine's state.
type Snapshot struct {
	RoundID       string
	Phase         Phase
	Difficulty    Difficulty
	Tiles         []Tile
	Flipped       []int
	Mismatched    []int
	MatchedPairs  int
	Pairs         int
	Score         int
	TimeRemaining int
	Duration      int
	InputLocked   bool
	Frozen        bool
	Timer         realtime.TimerState
}

// Snapshot returns the current state. Tiles are copies.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Phase:      e.phase,
		Difficulty: e.difficulty,
		Timer:      e.timer.State(),
	}
	r := e.round
	if r == nil {
		return snap
	}
	snap.RoundID = r.ID
	snap.Difficulty = r.Difficulty
	snap.Tiles = append([]Tile(nil), r.Deck...)
	snap.Flipped = append([]int(nil), r.Flipped...)
	snap.Mismatched = append([]int(nil), r.Mismatched...)
	snap.MatchedPairs = r.MatchedPairs
	snap.Pairs = r.Level.Pairs
	snap.Score = r.Score
	snap.TimeRemaining = r.TimeRemaining
	snap.Duration = r.Level.DurationSeconds
	snap.InputLocked = r.InputLocked
	snap.Frozen = r.Frozen
	return snap
}
