package game

// applySpecialLocked resolves a special tile on reveal. Specials never flip
// back: the tile is matched and earns the base bonus before its effect runs.
func (e *Engine) applySpecialLocked(t *Tile) {
	r := e.round
	t.Matched = true
	r.Score += SpecialBonus
	e.emitLocked(Event{Kind: EventSpecial, Tiles: []int{t.ID}, Special: t.Special})

	switch t.Special {
	case SpecialBomb:
		e.bombLocked()
	case SpecialJoker:
		e.jokerLocked()
	case SpecialFreeze:
		e.freezeLocked()
	}
}

// bombLocked costs time and points and can end the round on its own.
func (e *Engine) bombLocked() {
	r := e.round
	r.TimeRemaining = max(0, r.TimeRemaining-BombTimePenalty)
	r.Score = max(0, r.Score-BombScorePenalty)
	e.emitLocked(Event{Kind: EventFlash, Special: SpecialBomb})
	if r.TimeRemaining == 0 {
		e.loseLocked()
	}
}

// jokerLocked solves one random unmatched pair. It needs at least two
// unmatched symbols on the board so it never solves the last pair, and it
// only acts when exactly two tiles carry the drawn symbol.
func (e *Engine) jokerLocked() {
	r := e.round
	symbols := unmatchedSymbols(r.Deck)
	if len(symbols) < 2 {
		return
	}
	symbol := symbols[e.rng.Intn(len(symbols))]

	var ids []int
	for _, t := range r.Deck {
		if t.Kind == KindPair && t.Value == symbol {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) != 2 {
		return
	}
	for _, id := range ids {
		t := r.Deck.tile(id)
		t.Revealed, t.Matched = true, true
	}
	r.Flipped = without(r.Flipped, ids)
	r.MatchedPairs++
	r.Score += JokerReward
	e.emitLocked(Event{Kind: EventMatched, Tiles: ids, Special: SpecialJoker})
	e.checkWinLocked()
}

// freezeLocked pauses the countdown; a second freeze restarts the window.
func (e *Engine) freezeLocked() {
	r := e.round
	if !e.timer.Freeze(FreezeWindow, func() { e.thaw(r) }) {
		return
	}
	r.Frozen = true
	e.emitLocked(Event{Kind: EventFrozen, Special: SpecialFreeze})
}

func (e *Engine) thaw(r *Round) {
	e.mu.Lock()
	defer e.unlock()
	if e.round != r || e.phase != PhaseRunning {
		return
	}
	r.Frozen = false
	e.emitLocked(Event{Kind: EventThawed})
}

// unmatchedSymbols lists distinct symbols of unmatched pair tiles in deck order.
func unmatchedSymbols(d Deck) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range d {
		if t.Kind != KindPair || t.Matched {
			continue
		}
		if _, ok := seen[t.Value]; ok {
			continue
		}
		seen[t.Value] = struct{}{}
		out = append(out, t.Value)
	}
	return out
}

func without(ids []int, drop []int) []int {
	out := ids[:0]
	for _, id := range ids {
		keep := true
		for _, d := range drop {
			if id == d {
				keep = false
				break
			}
		}
		if keep {
			out = append(out, id)
		}
	}
	return out
}
