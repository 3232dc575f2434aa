package services

import (
	"context"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// Broadcaster defines the interface for broadcasting messages to clients
type Broadcaster interface {
	BroadcastMessage(msgType string, payload interface{})
}

// SettingsService handles settings-related business logic
type SettingsService struct {
	log         logger.Logger
	repo        repository.SettingsRepository
	validate    *validator.Validate
	broadcaster Broadcaster
}

// NewSettingsService creates a new SettingsService
func NewSettingsService(log logger.Logger, repo repository.SettingsRepository) *SettingsService {
	return &SettingsService{
		log:      log,
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *SettingsService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SettingsUpdate is a partial settings change; nil fields are left as they are
type SettingsUpdate struct {
	PoolName           *string             `json:"pool_name"`
	SquarePrice        *models.Money       `json:"square_price"`
	Payouts            *models.PayoutTable `json:"payouts"`
	AFCTeam            *string             `json:"afc_team"`
	NFCTeam            *string             `json:"nfc_team"`
	ScoreboardURL      *string             `json:"scoreboard_url"`
	ScoreboardEventID  *string             `json:"scoreboard_event_id"`
	ScoreSyncEnabled   *bool               `json:"score_sync_enabled"`
	ReservationMinutes *int                `json:"reservation_minutes"`
	MaxSquares         *int                `json:"max_squares_per_participant"`
	BaseURL            *string             `json:"base_url"`
}

// ResetResult reports which parts of the pool were reset
type ResetResult struct {
	Reset []string `json:"reset"`
}

func parseInt(values map[string]string, key string, def int64) int64 {
	v, err := strconv.ParseInt(strings.TrimSpace(values[key]), 10, 64)
	if err != nil {
		return def
	}
	return v
}

// fromValues builds the typed view from raw key/values, falling back to the
// defaults for missing or malformed entries.
func fromValues(values map[string]string) models.PoolSettings {
	name := values[models.SettingPoolName]
	if name == "" {
		name = models.DefaultPoolName
	}
	scoreboardURL, ok := values[models.SettingScoreboardURL]
	if !ok {
		scoreboardURL = models.DefaultScoreboardURL
	}
	return models.PoolSettings{
		PoolName:    name,
		SquarePrice: models.Money(parseInt(values, models.SettingSquarePrice, models.DefaultSquarePriceCents)),
		Payouts: models.PayoutTable{
			Q1: models.Money(parseInt(values, models.SettingPayoutQ1, 0)),
			Q2: models.Money(parseInt(values, models.SettingPayoutQ2, 0)),
			Q3: models.Money(parseInt(values, models.SettingPayoutQ3, 0)),
			Q4: models.Money(parseInt(values, models.SettingPayoutQ4, 0)),
			OT: models.Money(parseInt(values, models.SettingPayoutOT, 0)),
		},
		AFCTeam:            values[models.SettingAFCTeam],
		NFCTeam:            values[models.SettingNFCTeam],
		ScoreboardURL:      scoreboardURL,
		ScoreboardEventID:  values[models.SettingScoreboardEvent],
		ScoreSyncEnabled:   values[models.SettingScoreSync] == "true",
		ReservationMinutes: int(parseInt(values, models.SettingReservationMins, models.DefaultReservationMins)),
		MaxSquares:         int(parseInt(values, models.SettingMaxSquares, 0)),
		BaseURL:            values[models.SettingBaseURL],
		NumbersLaunched:    values[models.SettingNumbersLaunched] == "true",
	}
}

func toValues(ps models.PoolSettings) map[string]string {
	i := func(v int64) string { return strconv.FormatInt(v, 10) }
	b := strconv.FormatBool
	return map[string]string{
		models.SettingPoolName:        ps.PoolName,
		models.SettingSquarePrice:     i(int64(ps.SquarePrice)),
		models.SettingPayoutQ1:        i(int64(ps.Payouts.Q1)),
		models.SettingPayoutQ2:        i(int64(ps.Payouts.Q2)),
		models.SettingPayoutQ3:        i(int64(ps.Payouts.Q3)),
		models.SettingPayoutQ4:        i(int64(ps.Payouts.Q4)),
		models.SettingPayoutOT:        i(int64(ps.Payouts.OT)),
		models.SettingAFCTeam:         ps.AFCTeam,
		models.SettingNFCTeam:         ps.NFCTeam,
		models.SettingScoreboardURL:   ps.ScoreboardURL,
		models.SettingScoreboardEvent: ps.ScoreboardEventID,
		models.SettingScoreSync:       b(ps.ScoreSyncEnabled),
		models.SettingReservationMins: i(int64(ps.ReservationMinutes)),
		models.SettingMaxSquares:      i(int64(ps.MaxSquares)),
		models.SettingBaseURL:         ps.BaseURL,
	}
}

// Get returns the typed pool settings
func (s *SettingsService) Get(ctx context.Context) (*models.PoolSettings, error) {
	values, err := s.repo.AllSettings(ctx)
	if err != nil {
		return nil, translate(err)
	}
	ps := fromValues(values)
	return &ps, nil
}

// Payouts returns the validated payout table
func (s *SettingsService) Payouts(ctx context.Context) (models.PayoutTable, error) {
	ps, err := s.Get(ctx)
	if err != nil {
		return models.PayoutTable{}, err
	}
	if err := s.validate.Struct(ps.Payouts); err != nil {
		return models.PayoutTable{}, errors.Validationf("stored payout table is invalid: %s", err.Error())
	}
	return ps.Payouts, nil
}

// IsLaunched reports whether numbers have been assigned
func (s *SettingsService) IsLaunched(ctx context.Context) (bool, error) {
	value, err := s.repo.GetSetting(ctx, models.SettingNumbersLaunched)
	if err != nil {
		if err == repository.ErrNotFound {
			return false, nil
		}
		return false, translate(err)
	}
	return value == "true", nil
}

// GetBaseURL returns the application base URL
func (s *SettingsService) GetBaseURL(ctx context.Context) (string, error) {
	value, err := s.repo.GetSetting(ctx, models.SettingBaseURL)
	if err != nil {
		if err == repository.ErrNotFound {
			return "", nil // No default - setting not yet configured
		}
		return "", translate(err)
	}
	return value, nil
}

// SetBaseURL saves the application base URL
func (s *SettingsService) SetBaseURL(ctx context.Context, url string) error {
	return translate(s.repo.SetSetting(ctx, models.SettingBaseURL, url))
}

// Update applies a partial change. The merged result is validated as a whole
// and nothing is written unless every field is valid.
func (s *SettingsService) Update(ctx context.Context, u SettingsUpdate) (*models.PoolSettings, error) {
	current, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	next := *current

	if u.PoolName != nil {
		next.PoolName = strings.TrimSpace(*u.PoolName)
	}
	if u.SquarePrice != nil {
		next.SquarePrice = *u.SquarePrice
	}
	if u.Payouts != nil {
		next.Payouts = *u.Payouts
	}
	if u.AFCTeam != nil {
		next.AFCTeam = strings.ToUpper(strings.TrimSpace(*u.AFCTeam))
	}
	if u.NFCTeam != nil {
		next.NFCTeam = strings.ToUpper(strings.TrimSpace(*u.NFCTeam))
	}
	if u.ScoreboardURL != nil {
		next.ScoreboardURL = strings.TrimSpace(*u.ScoreboardURL)
	}
	if u.ScoreboardEventID != nil {
		next.ScoreboardEventID = strings.TrimSpace(*u.ScoreboardEventID)
	}
	if u.ScoreSyncEnabled != nil {
		next.ScoreSyncEnabled = *u.ScoreSyncEnabled
	}
	if u.ReservationMinutes != nil {
		next.ReservationMinutes = *u.ReservationMinutes
	}
	if u.MaxSquares != nil {
		next.MaxSquares = *u.MaxSquares
	}
	if u.BaseURL != nil {
		next.BaseURL = strings.TrimSuffix(strings.TrimSpace(*u.BaseURL), "/")
	}

	if err := s.validate.Struct(next); err != nil {
		return nil, errors.Validationf("invalid settings: %s", err.Error())
	}
	if next.AFCTeam != "" && next.AFCTeam == next.NFCTeam {
		return nil, errors.Validation("afc_team and nfc_team must differ")
	}

	if err := s.repo.SetSettings(ctx, toValues(next)); err != nil {
		return nil, translate(err)
	}
	s.log.Info("Settings updated", "pool_name", next.PoolName, "square_price", next.SquarePrice.String())
	return &next, nil
}

// ResetPool clears the requested parts of the pool and tells spectators to reload
func (s *SettingsService) ResetPool(ctx context.Context, parts []string) (*ResetResult, error) {
	if len(parts) == 0 {
		return nil, ErrNoResetTargets
	}
	for _, p := range parts {
		if !repository.ValidResetTarget(p) {
			return nil, errors.Validationf("invalid reset target: %s", p)
		}
	}
	if err := s.repo.ResetPool(ctx, parts); err != nil {
		return nil, translate(err)
	}
	s.log.Warn("Pool reset", "parts", strings.Join(parts, ","))
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(MsgPoolReset, map[string]interface{}{"parts": parts})
	}
	return &ResetResult{Reset: parts}, nil
}
