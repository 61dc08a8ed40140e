package game

import (
	"errors"
	"strings"
)

// Difficulty selects a Level.
type Difficulty string

const (
	Easy   Difficulty = "easy"
	Medium Difficulty = "medium"
	Hard   Difficulty = "hard"
)

// ErrUnknownDifficulty is returned for difficulty names outside easy, medium and hard.
var ErrUnknownDifficulty = errors.New("unknown difficulty")

// SpecialCounts is how many tiles of each special kind a deck holds.
type SpecialCounts struct {
	Bomb   int
	Joker  int
	Freeze int
}

// Total is the number of special tiles.
func (s SpecialCounts) Total() int { return s.Bomb + s.Joker + s.Freeze }

// Level is the static configuration of one difficulty.
type Level struct {
	Pairs           int
	DurationSeconds int
	Specials        SpecialCounts
}

// DeckSize is 2*Pairs plus the special tiles.
func (l Level) DeckSize() int { return 2*l.Pairs + l.Specials.Total() }

var levels = map[Difficulty]Level{
	Easy:   {Pairs: 6, DurationSeconds: 90, Specials: SpecialCounts{Bomb: 1, Joker: 1, Freeze: 1}},
	Medium: {Pairs: 10, DurationSeconds: 120, Specials: SpecialCounts{Bomb: 2, Joker: 1, Freeze: 2}},
	Hard:   {Pairs: 14, DurationSeconds: 180, Specials: SpecialCounts{Bomb: 3, Joker: 2, Freeze: 2}},
}

// Difficulties lists the selectable difficulties in menu order.
func Difficulties() []Difficulty {
	return []Difficulty{Easy, Medium, Hard}
}

// LevelFor returns the configuration of d.
func LevelFor(d Difficulty) (Level, bool) {
	l, ok := levels[d]
	return l, ok
}

// ParseDifficulty accepts a difficulty name, case-insensitively.
func ParseDifficulty(s string) (Difficulty, error) {
	d := Difficulty(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := levels[d]; !ok {
		return "", ErrUnknownDifficulty
	}
	return d, nil
}

// Symbols is the pair catalog. Decks use the first Level.Pairs entries.
var Symbols = []string{
	"🍎", "🍌", "🍇", "🍓", "🍋", "🍑", "🍍", "🥝", "🍉", "🍒",
	"🐶", "🐱", "🦊", "🐼", "🦁", "🐯", "🐵", "🦄", "🐸", "🐙",
	"⚽", "🏀", "🎲", "🎯", "🎸", "🎮", "🎧", "🚗", "✈️", "🚀",
}
