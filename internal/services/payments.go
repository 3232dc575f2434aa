package services

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// SignatureHeader carries the webhook body signature
const SignatureHeader = "X-Signature"

const signaturePrefix = "sha256="

// PaymentServiceRepository defines the repository methods needed by PaymentService
type PaymentServiceRepository interface {
	repository.PaymentRepository
	GetParticipant(ctx context.Context, id int64) (*models.Participant, error)
	GetParticipantByCode(ctx context.Context, code string) (*models.Participant, error)
	ListSquares(ctx context.Context) ([]models.GridSquare, error)
}

// PaymentService records completed payments against the grid
type PaymentService struct {
	log         logger.Logger
	repo        PaymentServiceRepository
	secret      []byte
	broadcaster Broadcaster
}

// NewPaymentService creates a new PaymentService. An empty secret rejects
// every webhook.
func NewPaymentService(log logger.Logger, repo PaymentServiceRepository, webhookSecret string) *PaymentService {
	return &PaymentService{
		log:    log,
		repo:   repo,
		secret: []byte(webhookSecret),
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *PaymentService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// WebhookEvent is the body the payment processor posts when a charge succeeds
type WebhookEvent struct {
	Reference     string        `json:"reference" validate:"required,max=200"`
	ParticipantID int64         `json:"participant_id"`
	AccessCode    string        `json:"access_code"`
	AmountCents   int64         `json:"amount_cents" validate:"gte=0"`
	Cells         []models.Cell `json:"cells" validate:"required,min=1,max=100,dive"`
}

// ManualPayment is a cash or check payment recorded by an admin
type ManualPayment struct {
	Reference     string        `json:"reference" validate:"max=200"`
	ParticipantID int64         `json:"participant_id" validate:"required,gt=0"`
	AmountCents   int64         `json:"amount_cents" validate:"gte=0"`
	Cells         []models.Cell `json:"cells" validate:"required,min=1,max=100,dive"`
}

// PaymentResult reports how a payment was applied
type PaymentResult struct {
	Payment   models.Payment `json:"payment"`
	Duplicate bool           `json:"duplicate"`
}

// Sign returns the signature header value for body
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature checks a webhook signature in constant time
func (s *PaymentService) VerifySignature(body []byte, header string) error {
	if len(s.secret) == 0 {
		return ErrInvalidSignature
	}
	given, ok := strings.CutPrefix(strings.TrimSpace(header), signaturePrefix)
	if !ok {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(given)
	if err != nil {
		return ErrInvalidSignature
	}
	mac := hmac.New(sha256.New, s.secret)
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// HandleWebhook verifies and applies a payment processor callback. A
// redelivered reference returns the stored payment and changes nothing.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*PaymentResult, error) {
	if err := s.VerifySignature(body, signature); err != nil {
		s.log.Warn("Webhook signature rejected")
		return nil, err
	}

	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, errors.InvalidInputf("invalid webhook body: %s", err.Error())
	}
	ev.Reference = strings.TrimSpace(ev.Reference)
	if ev.Reference == "" {
		return nil, errors.InvalidInput("reference is required")
	}

	participantID := ev.ParticipantID
	if participantID == 0 {
		if ev.AccessCode == "" {
			return nil, errors.InvalidInput("participant_id or access_code is required")
		}
		p, err := s.repo.GetParticipantByCode(ctx, normalizeCode(ev.AccessCode))
		if err == repository.ErrNotFound {
			return nil, ErrUnknownAccessCode
		}
		if err != nil {
			return nil, translate(err)
		}
		participantID = p.ID
	}

	return s.record(ctx, models.Payment{
		Reference:     ev.Reference,
		ParticipantID: participantID,
		Amount:        models.Money(ev.AmountCents),
		Source:        "webhook",
		Cells:         ev.Cells,
	})
}

// RecordManual records a payment taken outside the processor. A reference is
// generated when none is given.
func (s *PaymentService) RecordManual(ctx context.Context, m ManualPayment) (*PaymentResult, error) {
	ref := strings.TrimSpace(m.Reference)
	if ref == "" {
		ref = "manual-" + uuid.NewString()
	}
	return s.record(ctx, models.Payment{
		Reference:     ref,
		ParticipantID: m.ParticipantID,
		Amount:        models.Money(m.AmountCents),
		Source:        "manual",
		Cells:         m.Cells,
	})
}

func (s *PaymentService) record(ctx context.Context, p models.Payment) (*PaymentResult, error) {
	cells, err := uniqueCells(p.Cells)
	if err != nil {
		return nil, err
	}
	p.Cells = cells
	if p.Amount < 0 {
		return nil, errors.InvalidInput("amount must be non-negative")
	}
	if _, err := s.repo.GetParticipant(ctx, p.ParticipantID); err != nil {
		if err == repository.ErrNotFound {
			return nil, ErrParticipantNotFound
		}
		return nil, translate(err)
	}

	stored, duplicate, err := s.repo.RecordPayment(ctx, p)
	if err != nil {
		return nil, translate(err)
	}
	if duplicate {
		s.log.Info("Duplicate payment ignored", "reference", stored.Reference)
		return &PaymentResult{Payment: *stored, Duplicate: true}, nil
	}

	if len(stored.Conflicted) > 0 {
		s.log.Warn("Payment applied partially, refund needed",
			"reference", stored.Reference,
			"participant_id", stored.ParticipantID,
			"conflicted", stored.Conflicted)
	} else {
		s.log.Info("Payment applied", "reference", stored.Reference, "participant_id", stored.ParticipantID, "cells", len(stored.Cells))
	}

	if s.broadcaster != nil {
		if squares, err := s.repo.ListSquares(ctx); err == nil {
			s.broadcaster.BroadcastMessage(MsgGridUpdated, squares)
		}
	}
	return &PaymentResult{Payment: *stored}, nil
}

// List returns every recorded payment
func (s *PaymentService) List(ctx context.Context) ([]models.Payment, error) {
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return nil, translate(err)
	}
	if payments == nil {
		payments = []models.Payment{}
	}
	return payments, nil
}
