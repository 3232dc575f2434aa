package services

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/skip2/go-qrcode"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// ParticipantServiceRepository defines the repository methods needed by ParticipantService
type ParticipantServiceRepository interface {
	repository.ParticipantRepository
	ListSquaresByOwner(ctx context.Context, participantID int64) ([]models.GridSquare, error)
	ListParticipantAnswers(ctx context.Context, participantID int64) ([]models.PropAnswer, error)
}

// ParticipantService handles participant registration and lookup
type ParticipantService struct {
	log      logger.Logger
	repo     ParticipantServiceRepository
	settings SettingsServicer
	validate *validator.Validate
	now      func() time.Time
}

// NewParticipantService creates a new ParticipantService
func NewParticipantService(log logger.Logger, repo ParticipantServiceRepository, settings SettingsServicer) *ParticipantService {
	return &ParticipantService{
		log:      log,
		repo:     repo,
		settings: settings,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// Registration is the editable part of a participant
type Registration struct {
	Name        string `json:"name" validate:"required,max=80"`
	Email       string `json:"email" validate:"omitempty,email"`
	Phone       string `json:"phone" validate:"omitempty,e164"`
	NotifyEmail bool   `json:"notify_email"`
	NotifySMS   bool   `json:"notify_sms"`
}

// ParticipantView is what a participant sees on their own page
type ParticipantView struct {
	Participant models.Participant  `json:"participant"`
	Squares     []models.GridSquare `json:"squares"`
	Answers     []models.PropAnswer `json:"answers"`
}

func (s *ParticipantService) validateRegistration(r *Registration) error {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Phone = strings.TrimSpace(r.Phone)
	if err := s.validate.Struct(r); err != nil {
		return errors.Validationf("invalid participant: %s", err.Error())
	}
	if r.NotifyEmail && r.Email == "" {
		return errors.Validation("email notifications need an email address")
	}
	if r.NotifySMS && r.Phone == "" {
		return errors.Validation("SMS notifications need a phone number")
	}
	return nil
}

// Register creates a participant with a fresh access code
func (s *ParticipantService) Register(ctx context.Context, r Registration) (*models.Participant, error) {
	if err := s.validateRegistration(&r); err != nil {
		return nil, err
	}

	p := models.Participant{
		Name:        r.Name,
		Email:       r.Email,
		Phone:       r.Phone,
		NotifyEmail: r.NotifyEmail,
		NotifySMS:   r.NotifySMS,
	}

	const maxRetries = 10
	for i := 0; i < maxRetries; i++ {
		seed := fmt.Sprintf("participant-%d-%s-%d", s.now().UnixNano(), r.Name, i)
		p.AccessCode = GenerateReadableCode(seed)

		id, err := s.repo.CreateParticipant(ctx, p)
		if err == repository.ErrDuplicate {
			s.log.Debug("Generated code already exists, retrying", "code", p.AccessCode, "attempt", i+1)
			continue
		}
		if err != nil {
			return nil, translate(err)
		}
		p.ID = id
		p.CreatedAt = s.now()
		s.log.Info("Participant registered", "participant_id", id, "name", p.Name)
		return &p, nil
	}
	return nil, errors.Internalf("failed to generate unique code after %d attempts", maxRetries)
}

// Get returns a participant by id
func (s *ParticipantService) Get(ctx context.Context, id int64) (*models.Participant, error) {
	p, err := s.repo.GetParticipant(ctx, id)
	if err == repository.ErrNotFound {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// GetByCode resolves an access code to its participant
func (s *ParticipantService) GetByCode(ctx context.Context, code string) (*models.Participant, error) {
	p, err := s.repo.GetParticipantByCode(ctx, normalizeCode(code))
	if err == repository.ErrNotFound {
		return nil, ErrUnknownAccessCode
	}
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

// List returns every participant
func (s *ParticipantService) List(ctx context.Context) ([]models.Participant, error) {
	list, err := s.repo.ListParticipants(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return list, nil
}

// Update replaces the editable fields of a participant
func (s *ParticipantService) Update(ctx context.Context, id int64, r Registration) (*models.Participant, error) {
	if err := s.validateRegistration(&r); err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name, p.Email, p.Phone = r.Name, r.Email, r.Phone
	p.NotifyEmail, p.NotifySMS = r.NotifyEmail, r.NotifySMS
	if err := s.repo.UpdateParticipant(ctx, *p); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrParticipantNotFound
		}
		return nil, translate(err)
	}
	return p, nil
}

// Delete removes a participant who holds no squares
func (s *ParticipantService) Delete(ctx context.Context, id int64) error {
	err := s.repo.DeleteParticipant(ctx, id)
	if err == repository.ErrNotFound {
		return ErrParticipantNotFound
	}
	return translate(err)
}

// View returns a participant's squares and prop answers
func (s *ParticipantService) View(ctx context.Context, code string) (*ParticipantView, error) {
	p, err := s.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	squares, err := s.repo.ListSquaresByOwner(ctx, p.ID)
	if err != nil {
		return nil, translate(err)
	}
	answers, err := s.repo.ListParticipantAnswers(ctx, p.ID)
	if err != nil {
		return nil, translate(err)
	}
	if squares == nil {
		squares = []models.GridSquare{}
	}
	if answers == nil {
		answers = []models.PropAnswer{}
	}
	return &ParticipantView{Participant: *p, Squares: squares, Answers: answers}, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// GenerateReadableCode creates a short, readable code from input data
// Uses only clear characters (no O/0/I/1/L) - format: XX-YYY
func GenerateReadableCode(seed string) string {
	const chars = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

	hash := sha256.Sum256([]byte(seed))
	num := binary.BigEndian.Uint64(hash[:8])

	code := make([]byte, 5)
	for i := 0; i < 5; i++ {
		code[i] = chars[num%uint64(len(chars))]
		num /= uint64(len(chars))
	}

	return fmt.Sprintf("%s-%s", string(code[:2]), string(code[2:]))
}

func (s *ParticipantService) link(ctx context.Context, path string) (string, error) {
	baseURL, err := s.settings.GetBaseURL(ctx)
	if err != nil {
		return "", err
	}
	if baseURL == "" {
		return "", ErrBaseURLNotSet
	}
	return strings.TrimSuffix(baseURL, "/") + path, nil
}

// QRImage renders a PNG QR code of the participant's personal page
func (s *ParticipantService) QRImage(ctx context.Context, id int64) ([]byte, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	url, err := s.link(ctx, "/p/"+p.AccessCode)
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(url, qrcode.Medium, 256)
}

// InviteQRImage renders a PNG QR code of the public grid page
func (s *ParticipantService) InviteQRImage(ctx context.Context) ([]byte, error) {
	url, err := s.link(ctx, "/")
	if err != nil {
		return nil, err
	}
	return qrcode.Encode(url, qrcode.Medium, 256)
}
