package pool

import (
	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/models"
)

// ErrNoGameInProgress is returned when a period end is requested outside play
var ErrNoGameInProgress = errors.Validation("no quarter is in progress").WithCode("NO_GAME_IN_PROGRESS")

// AfterQuarterEnd returns the game state that follows settling the current
// period. Scores are carried over unchanged.
//
//	Q1, Q3          -> next quarter, clock reset
//	Q2              -> halftime
//	Q4 tied         -> overtime (quarter 5)
//	Q4+ not tied    -> final
//	overtime tied   -> stays in overtime
func AfterQuarterEnd(g models.GameState) (models.GameState, error) {
	if !g.Phase.InProgress() || g.Quarter < 1 || g.Quarter > models.OvertimeQuarter {
		return g, ErrNoGameInProgress
	}

	next := g
	switch {
	case g.Quarter == 2:
		next.Phase = models.PhaseHalftime
		next.Clock = "0:00"
	case g.Quarter >= 4 && !g.Tied():
		next.Phase = models.PhaseFinal
		next.Clock = "0:00"
	case g.Quarter == 4:
		next.Phase = models.PhaseOvertime
		next.Quarter = models.OvertimeQuarter
		next.Clock = models.QuarterClock
	case g.Quarter == models.OvertimeQuarter:
		next.Clock = models.QuarterClock
	default:
		next.Quarter = g.Quarter + 1
		next.Clock = models.QuarterClock
	}
	return next, nil
}

// StartGame moves a pre-game state to the opening kickoff
func StartGame(g models.GameState) (models.GameState, error) {
	if g.Phase != models.PhasePreGame {
		return g, errors.Validationf("game cannot be started from %s", g.Phase)
	}
	next := g
	next.Phase = models.PhaseLive
	next.Quarter = 1
	next.Clock = models.QuarterClock
	return next, nil
}

// ResumeFromHalftime starts the third quarter
func ResumeFromHalftime(g models.GameState) (models.GameState, error) {
	if g.Phase != models.PhaseHalftime {
		return g, errors.Validationf("game is not at halftime (phase %s)", g.Phase)
	}
	next := g
	next.Phase = models.PhaseLive
	next.Quarter = 3
	next.Clock = models.QuarterClock
	return next, nil
}

// ValidateGameState checks the fields of a manually edited or fed state
func ValidateGameState(g models.GameState) error {
	if g.AFCScore < 0 || g.NFCScore < 0 {
		return errors.Validation("scores must be non-negative")
	}
	if !g.Phase.Valid() {
		return errors.Validationf("unknown game phase %q", g.Phase)
	}
	if g.Quarter < 0 || g.Quarter > models.OvertimeQuarter {
		return errors.Validationf("quarter must be between 0 and %d", models.OvertimeQuarter)
	}
	switch g.Phase {
	case models.PhasePreGame:
		if g.Quarter != 0 {
			return errors.Validation("pre-game state must have quarter 0")
		}
	case models.PhaseLive:
		if g.Quarter < 1 || g.Quarter > 4 {
			return errors.Validation("live state must be in quarters 1-4")
		}
	case models.PhaseOvertime:
		if g.Quarter != models.OvertimeQuarter {
			return errors.Validation("overtime must use quarter 5")
		}
	}
	return nil
}

// SettlementTarget returns the period an end-of-quarter request settles and
// the state that follows it. settled reports whether a period already has a
// winner record. A game that was moved to halftime or final before its last
// period was settled settles that period and keeps its phase.
func SettlementTarget(g models.GameState, settled func(quarter int) bool) (int, models.GameState, error) {
	switch g.Phase {
	case models.PhaseHalftime:
		if !settled(2) {
			return 2, g, nil
		}
	case models.PhaseFinal:
		if g.Quarter >= 4 && g.Quarter <= models.OvertimeQuarter && !settled(g.Quarter) {
			return g.Quarter, g, nil
		}
	}
	next, err := AfterQuarterEnd(g)
	if err != nil {
		return 0, g, err
	}
	return g.Quarter, next, nil
}

// FeedAction says how a state read from the score feed is applied
type FeedAction string

const (
	// FeedSkip means the feed has nothing newer than the stored state
	FeedSkip FeedAction = "skip"
	// FeedScore writes score and clock inside the period in progress
	FeedScore FeedAction = "score"
	// FeedAdvance moves the game into a period that needs no settlement first
	FeedAdvance FeedAction = "advance"
	// FeedHold means the feed is past a period that has not been settled
	FeedHold FeedAction = "hold"
)

// periodOrder places a state on the timeline of the game
func periodOrder(g models.GameState) int {
	switch g.Phase {
	case models.PhasePreGame:
		return 0
	case models.PhaseHalftime:
		return 3
	case models.PhaseOvertime:
		return 6
	case models.PhaseFinal:
		return 7
	}
	if g.Quarter <= 2 {
		return g.Quarter
	}
	return g.Quarter + 1
}

// ReconcileFeed decides how a feed state is applied to the stored one. The
// feed never moves the game past a period: quarter ends are settled by
// EndQuarter, so until then the stored period and its last score are kept.
// Kickoff and the start of the third quarter follow the feed.
func ReconcileFeed(current, feed models.GameState) FeedAction {
	cur, next := periodOrder(current), periodOrder(feed)
	switch {
	case next < cur:
		return FeedSkip
	case next == cur:
		if current.AFCScore == feed.AFCScore && current.NFCScore == feed.NFCScore && current.Clock == feed.Clock {
			return FeedSkip
		}
		return FeedScore
	case current.Phase == models.PhasePreGame && feed.Phase == models.PhaseLive && feed.Quarter == 1:
		return FeedAdvance
	case current.Phase == models.PhaseHalftime && feed.Phase == models.PhaseLive && feed.Quarter == 3:
		return FeedAdvance
	}
	return FeedHold
}
