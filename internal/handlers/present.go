package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"tilematch/internal/best"
	"tilematch/internal/game"
	"tilematch/internal/viewmodel"
)

const title = "Tile Match"

// Records is the part of best.Store the pages need.
type Records interface {
	QueryBest(ctx context.Context, difficulty string) (best.Record, bool, error)
	ClearAll(ctx context.Context) error
}

var specialFaces = map[game.Special]string{
	game.SpecialBomb:   "💣",
	game.SpecialJoker:  "🃏",
	game.SpecialFreeze: "❄️",
}

func difficultyLabel(d game.Difficulty) string {
	if d == "" {
		return ""
	}
	s := string(d)
	return strings.ToUpper(s[:1]) + s[1:]
}

func bestView(ctx context.Context, records Records, logger zerolog.Logger, d game.Difficulty) viewmodel.BestView {
	view := viewmodel.BestView{Difficulty: string(d), Label: difficultyLabel(d)}
	if records == nil || d == "" {
		return view
	}
	rec, found, err := records.QueryBest(ctx, string(d))
	if err != nil {
		logger.Warn().Err(err).Str("difficulty", string(d)).Msg("query best")
		return view
	}
	if !found {
		return view
	}
	view.HasRecord = true
	view.Score = rec.Score
	view.Clock = viewmodel.FormatClock(rec.ElapsedSeconds)
	if !rec.Timestamp.IsZero() {
		view.Date = rec.Timestamp.Format("2006-01-02")
	}
	return view
}

func tileViews(snap game.Snapshot) []viewmodel.TileView {
	mismatched := make(map[int]bool, len(snap.Mismatched))
	for _, id := range snap.Mismatched {
		mismatched[id] = true
	}
	locked := snap.Phase != game.PhaseRunning || snap.InputLocked

	out := make([]viewmodel.TileView, 0, len(snap.Tiles))
	for _, t := range snap.Tiles {
		v := viewmodel.TileView{
			ID:       t.ID,
			Hidden:   t.Hidden(),
			Matched:  t.Matched,
			Mismatch: mismatched[t.ID],
		}
		if !v.Hidden {
			v.Special = t.Kind == game.KindSpecial
			v.Face = t.Value
			if v.Special {
				v.Face = specialFaces[t.Special]
			}
		}
		v.Disabled = locked || !v.Hidden
		out = append(out, v)
	}
	return out
}

func boardMessage(snap game.Snapshot) string {
	switch snap.Phase {
	case game.PhaseIdle:
		return "Press New round to deal a fresh board."
	case game.PhaseWon:
		elapsed := snap.Duration - snap.TimeRemaining
		return fmt.Sprintf("You found every pair! Score %d in %s.", snap.Score, viewmodel.FormatClock(elapsed))
	case game.PhaseLost:
		return fmt.Sprintf("Time is up. Score %d.", snap.Score)
	}
	if snap.Frozen {
		return "Clock frozen."
	}
	return ""
}

func boardFragment(gameID string, snap game.Snapshot, bv viewmodel.BestView) viewmodel.BoardFragment {
	return viewmodel.BoardFragment{
		GameID:       gameID,
		RoundID:      snap.RoundID,
		Difficulty:   difficultyLabel(snap.Difficulty),
		Phase:        string(snap.Phase),
		Tiles:        tileViews(snap),
		Columns:      viewmodel.Columns(len(snap.Tiles)),
		Score:        snap.Score,
		Clock:        viewmodel.FormatClock(snap.TimeRemaining),
		MatchedPairs: snap.MatchedPairs,
		Pairs:        snap.Pairs,
		Frozen:       snap.Frozen,
		Locked:       snap.InputLocked,
		Message:      boardMessage(snap),
		Best:         bv,
	}
}
