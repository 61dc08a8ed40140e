package game

import (
	"fmt"
	"math/rand"
	"time"
)

// Rand is the randomness the deck and the joker draw from.
// *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

// NewRand returns a time-seeded source.
func NewRand() *rand.Rand {
	return rand.New(rand.NewSource(time.Now().UnixNano()))
}

// ConfigError reports a level that the symbol catalog cannot supply.
type ConfigError struct {
	Pairs   int
	Symbols int
}

func (e *ConfigError) Error() string {
	if e.Pairs < 1 {
		return fmt.Sprintf("invalid level: %d pairs", e.Pairs)
	}
	return fmt.Sprintf("symbol catalog has %d entries, level needs %d pairs", e.Symbols, e.Pairs)
}

// BuildDeck lays out a shuffled board for level: two tiles for each of the
// first level.Pairs catalog symbols plus the level's special tiles. IDs are
// assigned 0..n-1 after shuffling.
func BuildDeck(level Level, catalog []string, rng Rand) (Deck, error) {
	if level.Pairs < 1 || level.Pairs > len(catalog) {
		return nil, &ConfigError{Pairs: level.Pairs, Symbols: len(catalog)}
	}
	deck := make(Deck, 0, level.DeckSize())
	for _, symbol := range catalog[:level.Pairs] {
		deck = append(deck,
			Tile{Kind: KindPair, Value: symbol},
			Tile{Kind: KindPair, Value: symbol},
		)
	}
	deck = appendSpecials(deck, SpecialBomb, level.Specials.Bomb)
	deck = appendSpecials(deck, SpecialJoker, level.Specials.Joker)
	deck = appendSpecials(deck, SpecialFreeze, level.Specials.Freeze)

	Shuffle(deck, rng)
	for i := range deck {
		deck[i].ID = i
	}
	return deck, nil
}

func appendSpecials(deck Deck, kind Special, n int) Deck {
	for i := 0; i < n; i++ {
		deck = append(deck, Tile{Kind: KindSpecial, Value: string(kind), Special: kind})
	}
	return deck
}

// Shuffle permutes s in place with Fisher-Yates; every ordering is equally likely.
func Shuffle[T any](s []T, rng Rand) {
	for i := len(s) - 1; i > 0; i-- {
		j := rng.Intn(i + 1)
		s[i], s[j] = s[j], s[i]
	}
}
