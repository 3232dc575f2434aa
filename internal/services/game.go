package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/pool"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// GameServiceRepository defines the repository methods needed by GameService
type GameServiceRepository interface {
	repository.GameRepository
	ListSquares(ctx context.Context) ([]models.GridSquare, error)
}

// QuarterNotifier is told about every settled quarter. It must not block.
type QuarterNotifier interface {
	QuarterSettled(w models.QuarterWinner)
}

// GameService owns the live game state and quarter settlement
type GameService struct {
	log         logger.Logger
	repo        GameServiceRepository
	settings    SettingsServicer
	notifier    QuarterNotifier
	broadcaster Broadcaster
	now         func() time.Time
}

// NewGameService creates a new GameService
func NewGameService(log logger.Logger, repo GameServiceRepository, settings SettingsServicer) *GameService {
	return &GameService{
		log:      log,
		repo:     repo,
		settings: settings,
		now:      time.Now,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *GameService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetNotifier sets who is told about settled quarters
func (s *GameService) SetNotifier(n QuarterNotifier) {
	s.notifier = n
}

// GameUpdate is a manual edit of the scoreboard. Version must be the version
// the editor last saw.
type GameUpdate struct {
	AFCScore int              `json:"afc_score" validate:"gte=0"`
	NFCScore int              `json:"nfc_score" validate:"gte=0"`
	Quarter  int              `json:"quarter" validate:"gte=0,lte=5"`
	Clock    string           `json:"clock" validate:"max=10"`
	Phase    models.GamePhase `json:"phase" validate:"required"`
	Version  int64            `json:"version" validate:"gte=0"`
}

// QuarterResult is the outcome of ending a quarter
type QuarterResult struct {
	Winner models.QuarterWinner `json:"winner"`
	State  models.GameState     `json:"state"`
}

func (s *GameService) broadcastState(g models.GameState) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(MsgGameState, g)
	}
}

// GetState returns the current game state
func (s *GameService) GetState(ctx context.Context) (models.GameState, error) {
	g, err := s.repo.GetGameState(ctx)
	if err != nil {
		return models.GameState{}, translate(err)
	}
	return g, nil
}

func (s *GameService) save(ctx context.Context, g models.GameState, expectedVersion *int64) (models.GameState, error) {
	saved, err := s.repo.SaveGameState(ctx, g, expectedVersion)
	if err != nil {
		return models.GameState{}, translate(err)
	}
	s.broadcastState(saved)
	return saved, nil
}

// transition loads the state, checks the caller saw the latest version and
// writes the result of step with a compare-and-swap.
func (s *GameService) transition(ctx context.Context, expectedVersion int64, step func(models.GameState) (models.GameState, error)) (models.GameState, error) {
	g, err := s.GetState(ctx)
	if err != nil {
		return models.GameState{}, err
	}
	if g.Version != expectedVersion {
		return models.GameState{}, ErrStaleGameState
	}
	next, err := step(g)
	if err != nil {
		return models.GameState{}, err
	}
	next.Source = "admin"
	return s.save(ctx, next, &expectedVersion)
}

// StartGame kicks off the first quarter
func (s *GameService) StartGame(ctx context.Context, expectedVersion int64) (models.GameState, error) {
	g, err := s.transition(ctx, expectedVersion, pool.StartGame)
	if err != nil {
		return g, err
	}
	s.log.Info("Game started")
	return g, nil
}

// ResumeGame starts the third quarter after halftime
func (s *GameService) ResumeGame(ctx context.Context, expectedVersion int64) (models.GameState, error) {
	g, err := s.transition(ctx, expectedVersion, pool.ResumeFromHalftime)
	if err != nil {
		return g, err
	}
	s.log.Info("Game resumed after halftime")
	return g, nil
}

// UpdateGame applies a manual scoreboard edit. It fails with
// ErrStaleGameState if anyone else wrote the state since u.Version.
func (s *GameService) UpdateGame(ctx context.Context, u GameUpdate) (models.GameState, error) {
	clock := strings.TrimSpace(u.Clock)
	if clock == "" {
		clock = models.QuarterClock
	}
	g := models.GameState{
		AFCScore: u.AFCScore,
		NFCScore: u.NFCScore,
		Quarter:  u.Quarter,
		Clock:    clock,
		Phase:    u.Phase,
		Source:   "admin",
	}
	if err := pool.ValidateGameState(g); err != nil {
		return models.GameState{}, err
	}
	saved, err := s.save(ctx, g, &u.Version)
	if err != nil {
		return models.GameState{}, err
	}
	s.log.Info("Game updated", "afc", saved.AFCScore, "nfc", saved.NFCScore, "quarter", saved.Quarter, "phase", saved.Phase, "version", saved.Version)
	return saved, nil
}

// ApplyFeedUpdate applies a state read from the score feed. Inside the period
// in progress the feed writes score and clock last-write-wins without bumping
// the version, so admins holding a version are not made stale by clock ticks.
// The feed starts the game and the third quarter on its own, but it never
// moves past a period: until EndQuarter settles it the update is held and the
// stored score is kept.
func (s *GameService) ApplyFeedUpdate(ctx context.Context, g models.GameState) (models.GameState, pool.FeedAction, error) {
	if err := pool.ValidateGameState(g); err != nil {
		return models.GameState{}, pool.FeedSkip, err
	}
	current, err := s.GetState(ctx)
	if err != nil {
		return models.GameState{}, pool.FeedSkip, err
	}

	action := pool.ReconcileFeed(current, g)
	g.Source = "feed"
	var saved models.GameState
	switch action {
	case pool.FeedScore:
		g.Quarter, g.Phase = current.Quarter, current.Phase
		saved, err = s.repo.UpdateLiveScore(ctx, g)
		if err == nil {
			s.broadcastState(saved)
		}
		err = translate(err)
	case pool.FeedAdvance:
		saved, err = s.save(ctx, g, &current.Version)
	case pool.FeedHold:
		s.log.Debug("Score feed is past an unsettled period", "quarter", current.Quarter, "phase", current.Phase,
			"feed_quarter", g.Quarter, "feed_phase", g.Phase)
		return current, action, nil
	default:
		return current, action, nil
	}

	if stderrors.Is(err, ErrStaleGameState) {
		// the period moved under us; the next poll reconciles against it
		latest, getErr := s.GetState(ctx)
		return latest, pool.FeedSkip, getErr
	}
	if err != nil {
		return models.GameState{}, pool.FeedSkip, err
	}
	s.log.Debug("Game state updated from feed", "afc", saved.AFCScore, "nfc", saved.NFCScore, "quarter", saved.Quarter, "phase", saved.Phase)
	return saved, action, nil
}

// settledQuarters returns a lookup of the quarters that have a winner record
func (s *GameService) settledQuarters(ctx context.Context) (func(int) bool, error) {
	winners, err := s.repo.ListQuarterWinners(ctx)
	if err != nil {
		return nil, translate(err)
	}
	done := make(map[int]bool, len(winners))
	for _, w := range winners {
		done[w.Quarter] = true
	}
	return func(q int) bool { return done[q] }, nil
}

// EndQuarter settles the period in progress and advances the game. A game that
// was moved to halftime or final while its last period had no winner record
// settles that period and keeps its phase.
//
// The winner is computed from the score at the moment of settlement. The
// winner record and the advanced state are written in one transaction guarded
// by expectedVersion and by that score, so of two concurrent calls only one
// settles and the other gets ErrStaleGameState. Feed score writes do not bump
// the version. Notification runs afterwards and cannot undo the settlement.
func (s *GameService) EndQuarter(ctx context.Context, expectedVersion int64) (*QuarterResult, error) {
	g, err := s.GetState(ctx)
	if err != nil {
		return nil, err
	}
	if g.Version != expectedVersion {
		return nil, ErrStaleGameState
	}
	settled, err := s.settledQuarters(ctx)
	if err != nil {
		return nil, err
	}
	quarter, next, err := pool.SettlementTarget(g, settled)
	if err != nil {
		return nil, err
	}

	squares, err := s.repo.ListSquares(ctx)
	if err != nil {
		return nil, translate(err)
	}
	w, ok := pool.DetermineWinner(g.AFCScore, g.NFCScore, squares)
	if !ok {
		return nil, ErrNotLaunched
	}
	payouts, err := s.settings.Payouts(ctx)
	if err != nil {
		return nil, err
	}

	record, err := pool.Settle(quarter, g, w, payouts)
	if err != nil {
		return nil, err
	}
	record.SettledAt = s.now().UTC()
	next.Source = "admin"

	saved, err := s.repo.SettleQuarter(ctx, record, next, expectedVersion)
	if err != nil {
		return nil, translate(err)
	}

	s.log.Info("Quarter settled",
		"quarter", record.Quarter,
		"afc", record.AFCScore,
		"nfc", record.NFCScore,
		"row_number", record.RowNumber,
		"col_number", record.ColNumber,
		"owner", record.OwnerName,
		"prize", record.PrizeAmount.String(),
		"next_phase", saved.Phase)

	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(MsgQuarterWinner, record)
	}
	s.broadcastState(saved)
	if s.notifier != nil {
		s.notifier.QuarterSettled(record)
	}

	return &QuarterResult{Winner: record, State: saved}, nil
}

// leaderQuarter is the period the current score counts toward
func leaderQuarter(g models.GameState) int {
	switch {
	case g.Phase == models.PhasePreGame || g.Quarter < 1:
		return 1
	case g.Phase == models.PhaseHalftime:
		return 3
	}
	return g.Quarter
}

// CurrentLeader returns who would win if the current period ended now. It
// returns nil when numbers have not been assigned.
func (s *GameService) CurrentLeader(ctx context.Context) (*models.QuarterWinner, error) {
	g, err := s.GetState(ctx)
	if err != nil {
		return nil, err
	}
	squares, err := s.repo.ListSquares(ctx)
	if err != nil {
		return nil, translate(err)
	}
	w, ok := pool.DetermineWinner(g.AFCScore, g.NFCScore, squares)
	if !ok {
		return nil, nil
	}
	payouts, err := s.settings.Payouts(ctx)
	if err != nil {
		return nil, err
	}
	leader, err := pool.Settle(leaderQuarter(g), g, w, payouts)
	if err != nil {
		return nil, err
	}
	return &leader, nil
}

// Winners returns every settled quarter in order
func (s *GameService) Winners(ctx context.Context) ([]models.QuarterWinner, error) {
	winners, err := s.repo.ListQuarterWinners(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if winners == nil {
		winners = []models.QuarterWinner{}
	}
	return winners, nil
}
