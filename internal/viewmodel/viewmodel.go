package viewmodel

import (
	"fmt"
	"math"
)

// DifficultyOption is a choice in the new-game form.
type DifficultyOption struct {
	Value    string
	Label    string
	Pairs    int
	Specials int
	Clock    string
}

// BestView is the best record of one difficulty, ready to print.
type BestView struct {
	Difficulty string
	Label      string
	HasRecord  bool
	Score      int
	Clock      string
	Date       string
}

// HomePage holds data for the landing page.
type HomePage struct {
	Title        string
	Difficulties []DifficultyOption
	Best         []BestView
	Notice       string
}

// TileView is one card as the client sees it. Face is empty for hidden
// tiles so face-down values never reach the page.
type TileView struct {
	ID       int
	Face     string
	Hidden   bool
	Matched  bool
	Special  bool
	Mismatch bool
	Disabled bool
}

// BoardFragment holds data for the board panel, the part redrawn on every
// event.
type BoardFragment struct {
	GameID       string
	RoundID      string
	Difficulty   string
	Phase        string
	Tiles        []TileView
	Columns      int
	Score        int
	Clock        string
	MatchedPairs int
	Pairs        int
	Frozen       bool
	Locked       bool
	Message      string
	Best         BestView
}

// GamePage holds data for the game page template.
type GamePage struct {
	Title string
	Board BoardFragment
}

// FormatClock renders seconds as mm:ss. Negative values print as 00:00.
func FormatClock(seconds int) string {
	seconds = max(0, seconds)
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}

// Columns picks a near-square grid width for n tiles.
func Columns(n int) int {
	if n <= 0 {
		return 1
	}
	return int(math.Ceil(math.Sqrt(float64(n))))
}
