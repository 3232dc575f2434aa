package mock

import (
	"context"
	"time"

	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// Repository wraps a real repository and allows injecting errors for testing.
// This provides a flexible way to test error paths without complex database manipulation.
//
// Usage:
//
//	realRepo := testutil.NewTestRepository(t)
//	mockRepo := mock.NewRepository(realRepo)
//	mockRepo.SettleQuarterError = errors.New("database error")
//	svc := services.NewGameService(log, mockRepo, ...)
//	_, err := svc.EndQuarter(ctx, version)
//	// err will now contain the injected error
type Repository struct {
	repository.FullRepository

	// ===== Participant Errors =====
	CreateParticipantError    error
	GetParticipantError       error
	GetParticipantByCodeError error
	ListParticipantsError     error
	DeleteParticipantError    error

	// ===== Square Errors =====
	ListSquaresError                error
	ClaimSquaresError               error
	ReleaseExpiredReservationsError error
	SetSquareError                  error
	LaunchNumbersError              error
	CountSquaresByStatusError       error

	// ===== Game Errors =====
	GetGameStateError       error
	SaveGameStateError      error
	UpdateLiveScoreError    error
	SettleQuarterError      error
	ListQuarterWinnersError error

	// ===== Prop Errors =====
	GetPropError          error
	ListPropsError        error
	UpsertPropAnswerError error
	GradePropError        error
	LeaderboardError      error

	// ===== Payment Errors =====
	RecordPaymentError error

	// ===== Notification Errors =====
	InsertNotificationError error

	// ===== Settings Errors =====
	GetSettingError  error
	SetSettingsError error
	AllSettingsError error
	ResetPoolError   error
}

// NewRepository creates a mock repository wrapping a real one
func NewRepository(real repository.FullRepository) *Repository {
	return &Repository{
		FullRepository: real,
	}
}

// ===== Participant Methods =====

func (m *Repository) CreateParticipant(ctx context.Context, p models.Participant) (int64, error) {
	if m.CreateParticipantError != nil {
		return 0, m.CreateParticipantError
	}
	return m.FullRepository.CreateParticipant(ctx, p)
}

func (m *Repository) GetParticipant(ctx context.Context, id int64) (*models.Participant, error) {
	if m.GetParticipantError != nil {
		return nil, m.GetParticipantError
	}
	return m.FullRepository.GetParticipant(ctx, id)
}

func (m *Repository) GetParticipantByCode(ctx context.Context, code string) (*models.Participant, error) {
	if m.GetParticipantByCodeError != nil {
		return nil, m.GetParticipantByCodeError
	}
	return m.FullRepository.GetParticipantByCode(ctx, code)
}

func (m *Repository) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	if m.ListParticipantsError != nil {
		return nil, m.ListParticipantsError
	}
	return m.FullRepository.ListParticipants(ctx)
}

func (m *Repository) DeleteParticipant(ctx context.Context, id int64) error {
	if m.DeleteParticipantError != nil {
		return m.DeleteParticipantError
	}
	return m.FullRepository.DeleteParticipant(ctx, id)
}

// ===== Square Methods =====

func (m *Repository) ListSquares(ctx context.Context) ([]models.GridSquare, error) {
	if m.ListSquaresError != nil {
		return nil, m.ListSquaresError
	}
	return m.FullRepository.ListSquares(ctx)
}

func (m *Repository) ClaimSquares(ctx context.Context, participantID int64, cells []models.Cell, limit int, at time.Time) error {
	if m.ClaimSquaresError != nil {
		return m.ClaimSquaresError
	}
	return m.FullRepository.ClaimSquares(ctx, participantID, cells, limit, at)
}

func (m *Repository) ReleaseExpiredReservations(ctx context.Context, before time.Time) ([]models.Cell, error) {
	if m.ReleaseExpiredReservationsError != nil {
		return nil, m.ReleaseExpiredReservationsError
	}
	return m.FullRepository.ReleaseExpiredReservations(ctx, before)
}

func (m *Repository) SetSquare(ctx context.Context, cell models.Cell, ownerID *int64, status models.SquareStatus) error {
	if m.SetSquareError != nil {
		return m.SetSquareError
	}
	return m.FullRepository.SetSquare(ctx, cell, ownerID, status)
}

func (m *Repository) LaunchNumbers(ctx context.Context, rows, cols [models.GridSize]int) error {
	if m.LaunchNumbersError != nil {
		return m.LaunchNumbersError
	}
	return m.FullRepository.LaunchNumbers(ctx, rows, cols)
}

func (m *Repository) CountSquaresByStatus(ctx context.Context) (map[models.SquareStatus]int, error) {
	if m.CountSquaresByStatusError != nil {
		return nil, m.CountSquaresByStatusError
	}
	return m.FullRepository.CountSquaresByStatus(ctx)
}

// ===== Game Methods =====

func (m *Repository) GetGameState(ctx context.Context) (models.GameState, error) {
	if m.GetGameStateError != nil {
		return models.GameState{}, m.GetGameStateError
	}
	return m.FullRepository.GetGameState(ctx)
}

func (m *Repository) SaveGameState(ctx context.Context, g models.GameState, expectedVersion *int64) (models.GameState, error) {
	if m.SaveGameStateError != nil {
		return models.GameState{}, m.SaveGameStateError
	}
	return m.FullRepository.SaveGameState(ctx, g, expectedVersion)
}

func (m *Repository) UpdateLiveScore(ctx context.Context, g models.GameState) (models.GameState, error) {
	if m.UpdateLiveScoreError != nil {
		return models.GameState{}, m.UpdateLiveScoreError
	}
	return m.FullRepository.UpdateLiveScore(ctx, g)
}

func (m *Repository) SettleQuarter(ctx context.Context, w models.QuarterWinner, next models.GameState, expectedVersion int64) (models.GameState, error) {
	if m.SettleQuarterError != nil {
		return models.GameState{}, m.SettleQuarterError
	}
	return m.FullRepository.SettleQuarter(ctx, w, next, expectedVersion)
}

func (m *Repository) ListQuarterWinners(ctx context.Context) ([]models.QuarterWinner, error) {
	if m.ListQuarterWinnersError != nil {
		return nil, m.ListQuarterWinnersError
	}
	return m.FullRepository.ListQuarterWinners(ctx)
}

// ===== Prop Methods =====

func (m *Repository) GetProp(ctx context.Context, id int64) (*models.PropBet, error) {
	if m.GetPropError != nil {
		return nil, m.GetPropError
	}
	return m.FullRepository.GetProp(ctx, id)
}

func (m *Repository) ListProps(ctx context.Context) ([]models.PropBet, error) {
	if m.ListPropsError != nil {
		return nil, m.ListPropsError
	}
	return m.FullRepository.ListProps(ctx)
}

func (m *Repository) UpsertPropAnswer(ctx context.Context, propID, participantID int64, answer string, at time.Time) error {
	if m.UpsertPropAnswerError != nil {
		return m.UpsertPropAnswerError
	}
	return m.FullRepository.UpsertPropAnswer(ctx, propID, participantID, answer, at)
}

func (m *Repository) GradeProp(ctx context.Context, propID int64, correctAnswer string, grade repository.GradeFunc, at time.Time) ([]models.PropAnswer, error) {
	if m.GradePropError != nil {
		return nil, m.GradePropError
	}
	return m.FullRepository.GradeProp(ctx, propID, correctAnswer, grade, at)
}

func (m *Repository) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	if m.LeaderboardError != nil {
		return nil, m.LeaderboardError
	}
	return m.FullRepository.Leaderboard(ctx)
}

// ===== Payment Methods =====

func (m *Repository) RecordPayment(ctx context.Context, p models.Payment) (*models.Payment, bool, error) {
	if m.RecordPaymentError != nil {
		return nil, false, m.RecordPaymentError
	}
	return m.FullRepository.RecordPayment(ctx, p)
}

// ===== Notification Methods =====

func (m *Repository) InsertNotification(ctx context.Context, n models.Notification) error {
	if m.InsertNotificationError != nil {
		return m.InsertNotificationError
	}
	return m.FullRepository.InsertNotification(ctx, n)
}

// ===== Settings Methods =====

func (m *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	if m.GetSettingError != nil {
		return "", m.GetSettingError
	}
	return m.FullRepository.GetSetting(ctx, key)
}

func (m *Repository) SetSettings(ctx context.Context, values map[string]string) error {
	if m.SetSettingsError != nil {
		return m.SetSettingsError
	}
	return m.FullRepository.SetSettings(ctx, values)
}

func (m *Repository) AllSettings(ctx context.Context) (map[string]string, error) {
	if m.AllSettingsError != nil {
		return nil, m.AllSettingsError
	}
	return m.FullRepository.AllSettings(ctx)
}

func (m *Repository) ResetPool(ctx context.Context, parts []string) error {
	if m.ResetPoolError != nil {
		return m.ResetPoolError
	}
	return m.FullRepository.ResetPool(ctx, parts)
}
