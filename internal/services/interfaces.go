package services

import (
	"context"

	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/pool"
)

// WebSocket message types sent to spectators
const (
	MsgGameState       = "game_state"
	MsgGridUpdated     = "grid_updated"
	MsgNumbersAssigned = "numbers_assigned"
	MsgQuarterWinner   = "quarter_winner"
	MsgPropsUpdated    = "props_updated"
	MsgPoolReset       = "pool_reset"
)

// ParticipantServicer defines the interface for participant operations
type ParticipantServicer interface {
	Register(ctx context.Context, r Registration) (*models.Participant, error)
	Get(ctx context.Context, id int64) (*models.Participant, error)
	GetByCode(ctx context.Context, code string) (*models.Participant, error)
	List(ctx context.Context) ([]models.Participant, error)
	Update(ctx context.Context, id int64, r Registration) (*models.Participant, error)
	Delete(ctx context.Context, id int64) error
	View(ctx context.Context, code string) (*ParticipantView, error)
	QRImage(ctx context.Context, id int64) ([]byte, error)
	InviteQRImage(ctx context.Context) ([]byte, error)
}

// GridServicer defines the interface for grid operations
type GridServicer interface {
	ListSquares(ctx context.Context) ([]models.GridSquare, error)
	ClaimSquares(ctx context.Context, req ClaimRequest) (*ClaimResult, error)
	ReleaseSquares(ctx context.Context, code string, cells []models.Cell) (int, error)
	SweepReservations(ctx context.Context) ([]models.Cell, error)
	SetSquare(ctx context.Context, u AdminSquareUpdate) (*models.GridSquare, error)
	ConfirmSquares(ctx context.Context, cells []models.Cell) (int, error)
	Launch(ctx context.Context, force bool) (*LaunchResult, error)
	Assignment(ctx context.Context) (*pool.Assignment, error)
	Stats(ctx context.Context) (*models.PoolStats, error)
	SetBroadcaster(b Broadcaster)
}

// GameServicer defines the interface for game state operations
type GameServicer interface {
	GetState(ctx context.Context) (models.GameState, error)
	StartGame(ctx context.Context, expectedVersion int64) (models.GameState, error)
	ResumeGame(ctx context.Context, expectedVersion int64) (models.GameState, error)
	UpdateGame(ctx context.Context, u GameUpdate) (models.GameState, error)
	ApplyFeedUpdate(ctx context.Context, g models.GameState) (models.GameState, pool.FeedAction, error)
	EndQuarter(ctx context.Context, expectedVersion int64) (*QuarterResult, error)
	CurrentLeader(ctx context.Context) (*models.QuarterWinner, error)
	Winners(ctx context.Context) ([]models.QuarterWinner, error)
	SetBroadcaster(b Broadcaster)
	SetNotifier(n QuarterNotifier)
}

// PropServicer defines the interface for prop bet operations
type PropServicer interface {
	ListProps(ctx context.Context) ([]models.PropBet, error)
	GetProp(ctx context.Context, id int64) (*models.PropBet, error)
	CreateProp(ctx context.Context, in PropInput) (*models.PropBet, error)
	UpdateProp(ctx context.Context, id int64, in PropInput) (*models.PropBet, error)
	DeleteProp(ctx context.Context, id int64) error
	SetStatus(ctx context.Context, id int64, to models.PropStatus) (*models.PropBet, error)
	SubmitAnswer(ctx context.Context, code string, propID int64, answer string) (*models.PropAnswer, error)
	Answers(ctx context.Context, propID int64) ([]models.PropAnswer, error)
	GradeProp(ctx context.Context, id int64, key pool.GradingKey) (*GradeResult, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
	SetBroadcaster(b Broadcaster)
}

// PaymentServicer defines the interface for payment operations
type PaymentServicer interface {
	VerifySignature(body []byte, header string) error
	HandleWebhook(ctx context.Context, body []byte, signature string) (*PaymentResult, error)
	RecordManual(ctx context.Context, m ManualPayment) (*PaymentResult, error)
	List(ctx context.Context) ([]models.Payment, error)
	SetBroadcaster(b Broadcaster)
}

// SettingsServicer defines the interface for settings operations
type SettingsServicer interface {
	Get(ctx context.Context) (*models.PoolSettings, error)
	Payouts(ctx context.Context) (models.PayoutTable, error)
	IsLaunched(ctx context.Context) (bool, error)
	GetBaseURL(ctx context.Context) (string, error)
	SetBaseURL(ctx context.Context, url string) error
	Update(ctx context.Context, u SettingsUpdate) (*models.PoolSettings, error)
	ResetPool(ctx context.Context, parts []string) (*ResetResult, error)
	SetBroadcaster(b Broadcaster)
}

// NotificationServicer defines the interface for notification operations
type NotificationServicer interface {
	QuarterNotifier
	Dispatch(ctx context.Context, w models.QuarterWinner) error
	List(ctx context.Context, limit int) ([]models.Notification, error)
	Wait()
}

// ScoreSyncServicer defines the interface for score feed operations
type ScoreSyncServicer interface {
	SyncOnce(ctx context.Context) (*SyncResult, error)
}

// Ensure concrete types implement interfaces
var (
	_ ParticipantServicer  = (*ParticipantService)(nil)
	_ GridServicer         = (*GridService)(nil)
	_ GameServicer         = (*GameService)(nil)
	_ PropServicer         = (*PropService)(nil)
	_ PaymentServicer      = (*PaymentService)(nil)
	_ SettingsServicer     = (*SettingsService)(nil)
	_ NotificationServicer = (*NotificationService)(nil)
	_ ScoreSyncServicer    = (*ScoreSyncService)(nil)
	_ GameFeedWriter       = (*GameService)(nil)
)
