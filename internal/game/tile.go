package game

// Kind distinguishes pair tiles from single special tiles.
type Kind string

const (
	KindPair    Kind = "pair"
	KindSpecial Kind = "special"
)

// Special is the effect carried by a special tile.
type Special string

const (
	SpecialNone   Special = ""
	SpecialBomb   Special = "bomb"
	SpecialJoker  Special = "joker"
	SpecialFreeze Special = "freeze"
)

// Tile is one card on the board. ID is its position in the shuffled deck and
// never changes during a round. A matched tile is always revealed.
type Tile struct {
	ID       int
	Kind     Kind
	Value    string // symbol for pairs, special tag for specials
	Special  Special
	Revealed bool
	Matched  bool
}

// Hidden reports whether the tile is face down.
func (t Tile) Hidden() bool { return !t.Revealed && !t.Matched }

// Deck is the ordered board. Deck[i].ID == i.
type Deck []Tile

// tile returns the tile with the given id, or nil.
func (d Deck) tile(id int) *Tile {
	if id < 0 || id >= len(d) || d[id].ID != id {
		return nil
	}
	return &d[id]
}

// Count returns the number of tiles matching pred.
func (d Deck) Count(pred func(Tile) bool) int {
	n := 0
	for _, t := range d {
		if pred(t) {
			n++
		}
	}
	return n
}
