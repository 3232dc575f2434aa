package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/pool"
	"github.com/abrezinsky/squarespool/pkg/scoreboard"
)

// GameFeedWriter applies score feed updates to the game state
type GameFeedWriter interface {
	ApplyFeedUpdate(ctx context.Context, g models.GameState) (models.GameState, pool.FeedAction, error)
}

// ScoreSyncService pulls the live score from the public scoreboard
type ScoreSyncService struct {
	log      logger.Logger
	client   scoreboard.Client
	settings SettingsServicer
	game     GameFeedWriter
}

// NewScoreSyncService creates a new ScoreSyncService
func NewScoreSyncService(log logger.Logger, client scoreboard.Client, settings SettingsServicer, game GameFeedWriter) *ScoreSyncService {
	return &ScoreSyncService{
		log:      log,
		client:   client,
		settings: settings,
		game:     game,
	}
}

// SyncResult reports one pull from the feed. Held is set while the feed is
// past a period that still has to be ended; Feed is what the feed reported.
type SyncResult struct {
	EventID string           `json:"event_id"`
	Action  pool.FeedAction  `json:"action"`
	Updated bool             `json:"updated"`
	Held    bool             `json:"held"`
	State   models.GameState `json:"state"`
	Feed    models.GameState `json:"feed"`
}

// ToGameState maps a scoreboard game onto the pool's game state using the
// AFC and NFC team abbreviations.
func ToGameState(g *scoreboard.Game, afcTeam, nfcTeam string) (models.GameState, error) {
	afc, ok := g.Score(afcTeam)
	if !ok {
		return models.GameState{}, fmt.Errorf("team %s not in event %s", afcTeam, g.EventID)
	}
	nfc, ok := g.Score(nfcTeam)
	if !ok {
		return models.GameState{}, fmt.Errorf("team %s not in event %s", nfcTeam, g.EventID)
	}

	state := models.GameState{
		AFCScore: afc,
		NFCScore: nfc,
		Clock:    strings.TrimSpace(g.Clock),
	}
	quarter := g.Period
	if quarter > models.OvertimeQuarter {
		quarter = models.OvertimeQuarter
	}

	switch {
	case g.Completed || g.State == scoreboard.StatePost:
		state.Phase = models.PhaseFinal
		state.Quarter = quarter
		state.Clock = "0:00"
	case g.State == scoreboard.StatePre || quarter == 0:
		state.Phase = models.PhasePreGame
		state.Quarter = 0
		state.Clock = models.QuarterClock
	case g.Status == scoreboard.StatusHalftime:
		state.Phase = models.PhaseHalftime
		state.Quarter = 2
	case quarter == models.OvertimeQuarter:
		state.Phase = models.PhaseOvertime
		state.Quarter = quarter
	default:
		state.Phase = models.PhaseLive
		state.Quarter = quarter
	}
	if state.Clock == "" {
		state.Clock = models.QuarterClock
	}
	return state, nil
}

// SyncOnce pulls the feed and writes the game state. A feed failure leaves
// the stored state untouched.
func (s *ScoreSyncService) SyncOnce(ctx context.Context) (*SyncResult, error) {
	ps, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if ps.ScoreboardURL == "" || ps.AFCTeam == "" || ps.NFCTeam == "" {
		return nil, ErrScoreSyncNotReady
	}

	g, err := s.client.FetchGame(ctx, ps.ScoreboardURL, ps.ScoreboardEventID)
	if err != nil {
		return nil, fmt.Errorf("score feed: %w", err)
	}
	state, err := ToGameState(g, ps.AFCTeam, ps.NFCTeam)
	if err != nil {
		return nil, fmt.Errorf("score feed: %w", err)
	}

	saved, action, err := s.game.ApplyFeedUpdate(ctx, state)
	if err != nil {
		return nil, err
	}
	return &SyncResult{
		EventID: g.EventID,
		Action:  action,
		Updated: action == pool.FeedScore || action == pool.FeedAdvance,
		Held:    action == pool.FeedHold,
		State:   saved,
		Feed:    state,
	}, nil
}

// Run polls the feed every interval until ctx is cancelled. Polls are skipped
// while sync is disabled in settings.
func (s *ScoreSyncService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.log.Info("Score sync loop started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Score sync loop stopped")
			return
		case <-ticker.C:
			ps, err := s.settings.Get(ctx)
			if err != nil {
				s.log.Warn("Score sync could not read settings", "error", err)
				continue
			}
			if !ps.ScoreSyncEnabled {
				continue
			}
			result, err := s.SyncOnce(ctx)
			if err != nil {
				s.log.Warn("Score sync failed, keeping last known state", "error", err)
				continue
			}
			switch {
			case result.Updated:
				s.log.Info("Score synced", "event", result.EventID,
					"afc", result.State.AFCScore, "nfc", result.State.NFCScore,
					"quarter", result.State.Quarter, "phase", result.State.Phase)
			case result.Held:
				s.log.Info("Score feed has moved on, end the quarter to continue syncing",
					"quarter", result.State.Quarter, "phase", result.State.Phase,
					"feed_quarter", result.Feed.Quarter, "feed_phase", result.Feed.Phase)
			}
		}
	}
}
