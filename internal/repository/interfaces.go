package repository

import (
	"context"
	"time"

	"github.com/abrezinsky/squarespool/internal/models"
)

// ParticipantRepository defines participant data operations
type ParticipantRepository interface {
	CreateParticipant(ctx context.Context, p models.Participant) (int64, error)
	GetParticipant(ctx context.Context, id int64) (*models.Participant, error)
	GetParticipantByCode(ctx context.Context, code string) (*models.Participant, error)
	ListParticipants(ctx context.Context) ([]models.Participant, error)
	UpdateParticipant(ctx context.Context, p models.Participant) error
	DeleteParticipant(ctx context.Context, id int64) error
	CountParticipants(ctx context.Context) (int, error)
}

// SquareRepository defines grid data operations
type SquareRepository interface {
	ListSquares(ctx context.Context) ([]models.GridSquare, error)
	GetSquare(ctx context.Context, cell models.Cell) (models.GridSquare, error)
	ListSquaresByOwner(ctx context.Context, participantID int64) ([]models.GridSquare, error)
	ClaimSquares(ctx context.Context, participantID int64, cells []models.Cell, limit int, at time.Time) error
	ReleaseSquares(ctx context.Context, participantID int64, cells []models.Cell) (int, error)
	ReleaseExpiredReservations(ctx context.Context, before time.Time) ([]models.Cell, error)
	SetSquare(ctx context.Context, cell models.Cell, ownerID *int64, status models.SquareStatus) error
	ConfirmSquares(ctx context.Context, cells []models.Cell) (int, error)
	LaunchNumbers(ctx context.Context, rows, cols [models.GridSize]int) error
	CountSquaresByStatus(ctx context.Context) (map[models.SquareStatus]int, error)
}

// GameRepository defines game state and settlement operations
type GameRepository interface {
	GetGameState(ctx context.Context) (models.GameState, error)
	SaveGameState(ctx context.Context, g models.GameState, expectedVersion *int64) (models.GameState, error)
	UpdateLiveScore(ctx context.Context, g models.GameState) (models.GameState, error)
	SettleQuarter(ctx context.Context, w models.QuarterWinner, next models.GameState, expectedVersion int64) (models.GameState, error)
	ListQuarterWinners(ctx context.Context) ([]models.QuarterWinner, error)
}

// PropRepository defines prop bet data operations
type PropRepository interface {
	CreateProp(ctx context.Context, p models.PropBet) (int64, error)
	GetProp(ctx context.Context, id int64) (*models.PropBet, error)
	ListProps(ctx context.Context) ([]models.PropBet, error)
	UpdateProp(ctx context.Context, p models.PropBet) error
	SetPropStatus(ctx context.Context, id int64, from, to models.PropStatus) error
	DeleteProp(ctx context.Context, id int64) error
	UpsertPropAnswer(ctx context.Context, propID, participantID int64, answer string, at time.Time) error
	ListPropAnswers(ctx context.Context, propID int64) ([]models.PropAnswer, error)
	ListParticipantAnswers(ctx context.Context, participantID int64) ([]models.PropAnswer, error)
	GradeProp(ctx context.Context, propID int64, correctAnswer string, grade GradeFunc, at time.Time) ([]models.PropAnswer, error)
	Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error)
}

// PaymentRepository defines payment data operations
type PaymentRepository interface {
	RecordPayment(ctx context.Context, p models.Payment) (*models.Payment, bool, error)
	GetPayment(ctx context.Context, reference string) (*models.Payment, error)
	ListPayments(ctx context.Context) ([]models.Payment, error)
}

// NotificationRepository defines the notification audit log
type NotificationRepository interface {
	InsertNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, limit int) ([]models.Notification, error)
}

// SettingsRepository defines settings data operations
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	SetSettings(ctx context.Context, values map[string]string) error
	AllSettings(ctx context.Context) (map[string]string, error)
	ResetPool(ctx context.Context, parts []string) error
}

// FullRepository combines all repository interfaces
// Use this when a service needs access to multiple domains
type FullRepository interface {
	ParticipantRepository
	SquareRepository
	GameRepository
	PropRepository
	PaymentRepository
	NotificationRepository
	SettingsRepository
}

// Ensure Repository implements all interfaces
var _ FullRepository = (*Repository)(nil)
