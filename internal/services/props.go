package services

import (
	"context"
	"strings"
	"time"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/pool"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// PropServiceRepository defines the repository methods needed by PropService
type PropServiceRepository interface {
	repository.PropRepository
	GetParticipantByCode(ctx context.Context, code string) (*models.Participant, error)
}

// PropService handles prop bets, answers and grading
type PropService struct {
	log         logger.Logger
	repo        PropServiceRepository
	broadcaster Broadcaster
	now         func() time.Time
}

// NewPropService creates a new PropService
func NewPropService(log logger.Logger, repo PropServiceRepository) *PropService {
	return &PropService{
		log:  log,
		repo: repo,
		now:  time.Now,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *PropService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// PropInput represents the editable fields of a prop
type PropInput struct {
	Question     string                `json:"question" validate:"required,max=500"`
	AnswerType   models.PropAnswerType `json:"answer_type" validate:"required"`
	Line         *float64              `json:"line"`
	Options      []string              `json:"options"`
	PointValue   int                   `json:"point_value" validate:"gte=0"`
	DisplayOrder int                   `json:"display_order"`
}

// GradeResult is the outcome of grading one prop
type GradeResult struct {
	Prop    models.PropBet      `json:"prop"`
	Answers []models.PropAnswer `json:"answers"`
	Correct int                 `json:"correct"`
	Pushes  int                 `json:"pushes"`
}

func (in PropInput) toProp() models.PropBet {
	options := make([]string, 0, len(in.Options))
	for _, opt := range in.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			options = append(options, opt)
		}
	}
	p := models.PropBet{
		Question:     strings.TrimSpace(in.Question),
		AnswerType:   in.AnswerType,
		Line:         in.Line,
		PointValue:   in.PointValue,
		DisplayOrder: in.DisplayOrder,
	}
	if in.AnswerType == models.AnswerMultipleChoice {
		p.Options = options
	}
	if in.AnswerType != models.AnswerOverUnder {
		p.Line = nil
	}
	return p
}

func (s *PropService) broadcastProps(ctx context.Context) {
	if s.broadcaster == nil {
		return
	}
	props, err := s.repo.ListProps(ctx)
	if err != nil {
		s.log.Warn("Failed to load props for broadcast", "error", err)
		return
	}
	s.broadcaster.BroadcastMessage(MsgPropsUpdated, props)
}

func (s *PropService) notFound(err error) error {
	if err == repository.ErrNotFound {
		return ErrPropNotFound
	}
	return translate(err)
}

// ListProps returns every prop in display order
func (s *PropService) ListProps(ctx context.Context) ([]models.PropBet, error) {
	props, err := s.repo.ListProps(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if props == nil {
		props = []models.PropBet{}
	}
	return props, nil
}

// GetProp returns one prop
func (s *PropService) GetProp(ctx context.Context, id int64) (*models.PropBet, error) {
	p, err := s.repo.GetProp(ctx, id)
	if err != nil {
		return nil, s.notFound(err)
	}
	return p, nil
}

// CreateProp adds a new draft prop
func (s *PropService) CreateProp(ctx context.Context, in PropInput) (*models.PropBet, error) {
	p := in.toProp()
	if err := pool.ValidateProp(p); err != nil {
		return nil, err
	}
	id, err := s.repo.CreateProp(ctx, p)
	if err != nil {
		return nil, translate(err)
	}
	s.log.Info("Prop created", "prop_id", id, "type", p.AnswerType)
	return s.GetProp(ctx, id)
}

// UpdateProp edits a prop that is still a draft
func (s *PropService) UpdateProp(ctx context.Context, id int64, in PropInput) (*models.PropBet, error) {
	p := in.toProp()
	p.ID = id
	if err := pool.ValidateProp(p); err != nil {
		return nil, err
	}
	if err := s.repo.UpdateProp(ctx, p); err != nil {
		if err == repository.ErrConflict {
			return nil, ErrPropNotEditable
		}
		return nil, s.notFound(err)
	}
	return s.GetProp(ctx, id)
}

// DeleteProp removes a prop and every answer to it
func (s *PropService) DeleteProp(ctx context.Context, id int64) error {
	if err := s.repo.DeleteProp(ctx, id); err != nil {
		return s.notFound(err)
	}
	s.log.Info("Prop deleted", "prop_id", id)
	s.broadcastProps(ctx)
	return nil
}

// SetStatus opens, locks or reopens a prop. Graded is only reached through
// GradeProp.
func (s *PropService) SetStatus(ctx context.Context, id int64, to models.PropStatus) (*models.PropBet, error) {
	p, err := s.GetProp(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pool.CanTransition(p.Status, to) {
		return nil, errors.Validationf("prop cannot move from %s to %s", p.Status, to)
	}
	if err := s.repo.SetPropStatus(ctx, id, p.Status, to); err != nil {
		if err == repository.ErrConflict {
			return nil, errors.Conflict("prop status changed, reload and try again")
		}
		return nil, s.notFound(err)
	}
	p.Status = to
	s.log.Info("Prop status changed", "prop_id", id, "status", to)
	s.broadcastProps(ctx)
	return p, nil
}

// SubmitAnswer stores a participant's answer, replacing an earlier one.
// Answers are accepted only while the prop is open.
func (s *PropService) SubmitAnswer(ctx context.Context, code string, propID int64, answer string) (*models.PropAnswer, error) {
	participant, err := s.repo.GetParticipantByCode(ctx, normalizeCode(code))
	if err == repository.ErrNotFound {
		return nil, ErrUnknownAccessCode
	}
	if err != nil {
		return nil, translate(err)
	}
	p, err := s.GetProp(ctx, propID)
	if err != nil {
		return nil, err
	}
	if p.Status != models.PropOpen {
		return nil, ErrPropNotOpen
	}
	normalized, err := pool.NormalizeAnswer(*p, answer)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err := s.repo.UpsertPropAnswer(ctx, propID, participant.ID, normalized, at); err != nil {
		if err == repository.ErrConflict {
			return nil, ErrPropNotOpen
		}
		return nil, s.notFound(err)
	}
	s.log.Debug("Prop answer submitted", "prop_id", propID, "participant_id", participant.ID)
	return &models.PropAnswer{
		PropID:          propID,
		ParticipantID:   participant.ID,
		ParticipantName: participant.Name,
		Answer:          normalized,
		SubmittedAt:     at,
	}, nil
}

// Answers returns every answer to a prop
func (s *PropService) Answers(ctx context.Context, propID int64) ([]models.PropAnswer, error) {
	if _, err := s.GetProp(ctx, propID); err != nil {
		return nil, err
	}
	answers, err := s.repo.ListPropAnswers(ctx, propID)
	if err != nil {
		return nil, translate(err)
	}
	if answers == nil {
		answers = []models.PropAnswer{}
	}
	return answers, nil
}

// GradeProp grades every answer against key and marks the prop graded, all
// in one transaction. Regrading an already graded prop recomputes every
// answer. An over/under answer that lands exactly on the line is a push and
// earns nothing.
func (s *PropService) GradeProp(ctx context.Context, id int64, key pool.GradingKey) (*GradeResult, error) {
	p, err := s.GetProp(ctx, id)
	if err != nil {
		return nil, err
	}
	if !pool.CanGrade(p.Status) {
		return nil, errors.Validationf("a %s prop cannot be graded, open it first", p.Status)
	}
	key, err = pool.NormalizeKey(*p, key)
	if err != nil {
		return nil, err
	}

	result := &GradeResult{}
	grade := func(a models.PropAnswer) models.PropAnswer {
		outcome := pool.Grade(*p, key, a.Answer)
		correct := outcome == pool.Correct
		a.IsCorrect = &correct
		a.Push = outcome == pool.Push
		a.PointsEarned = pool.Points(outcome, p.PointValue)
		return a
	}

	answers, err := s.repo.GradeProp(ctx, id, key.CorrectAnswer, grade, s.now())
	if err != nil {
		if err == repository.ErrConflict {
			return nil, errors.Conflict("prop status changed, reload and try again")
		}
		return nil, s.notFound(err)
	}
	for _, a := range answers {
		if a.Push {
			result.Pushes++
		} else if a.IsCorrect != nil && *a.IsCorrect {
			result.Correct++
		}
	}
	if answers == nil {
		answers = []models.PropAnswer{}
	}
	result.Answers = answers

	graded, err := s.GetProp(ctx, id)
	if err != nil {
		return nil, err
	}
	result.Prop = *graded

	s.log.Info("Prop graded", "prop_id", id, "answers", len(answers), "correct", result.Correct, "pushes", result.Pushes)
	s.broadcastProps(ctx)
	return result, nil
}

// Leaderboard returns prop points per participant, highest first
func (s *PropService) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	entries, err := s.repo.Leaderboard(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if entries == nil {
		entries = []models.LeaderboardEntry{}
	}
	return entries, nil
}
