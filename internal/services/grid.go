package services

import (
	"context"
	stderrors "errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/logger"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/pool"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// GridServiceRepository defines the repository methods needed by GridService
type GridServiceRepository interface {
	repository.SquareRepository
	GetParticipantByCode(ctx context.Context, code string) (*models.Participant, error)
	CountParticipants(ctx context.Context) (int, error)
	ListQuarterWinners(ctx context.Context) ([]models.QuarterWinner, error)
}

// GridService handles square purchase, admin edits and the number launch
type GridService struct {
	log         logger.Logger
	repo        GridServiceRepository
	settings    SettingsServicer
	broadcaster Broadcaster
	now         func() time.Time

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewGridService creates a new GridService. A nil rng draws from the
// operating system.
func NewGridService(log logger.Logger, repo GridServiceRepository, settings SettingsServicer, rng *rand.Rand) *GridService {
	if rng == nil {
		rng = pool.NewRand()
	}
	return &GridService{
		log:      log,
		repo:     repo,
		settings: settings,
		rng:      rng,
		now:      time.Now,
	}
}

// SetBroadcaster sets the broadcaster for sending updates to clients
func (s *GridService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// ClaimRequest is a participant's request to reserve cells
type ClaimRequest struct {
	AccessCode string        `json:"access_code" validate:"required"`
	Cells      []models.Cell `json:"cells" validate:"required,min=1,max=100,dive"`
}

// ClaimResult reports a successful claim
type ClaimResult struct {
	ParticipantID int64         `json:"participant_id"`
	Cells         []models.Cell `json:"cells"`
	ExpiresAt     *time.Time    `json:"expires_at,omitempty"`
}

// AdminSquareUpdate forces the owner and status of one cell
type AdminSquareUpdate struct {
	Row     int                 `json:"row" validate:"gte=0,lte=9"`
	Col     int                 `json:"col" validate:"gte=0,lte=9"`
	OwnerID *int64              `json:"owner_id"`
	Status  models.SquareStatus `json:"status" validate:"required"`
}

// LaunchResult reports the numbers drawn by a launch
type LaunchResult struct {
	Assignment pool.Assignment `json:"assignment"`
	Forced     bool            `json:"forced"`
	Unsold     int             `json:"unsold"`
}

func (s *GridService) broadcastGrid(ctx context.Context) {
	if s.broadcaster == nil {
		return
	}
	squares, err := s.repo.ListSquares(ctx)
	if err != nil {
		s.log.Warn("Failed to load grid for broadcast", "error", err)
		return
	}
	s.broadcaster.BroadcastMessage(MsgGridUpdated, squares)
}

// uniqueCells rejects off-board and repeated cells
func uniqueCells(cells []models.Cell) ([]models.Cell, error) {
	if len(cells) == 0 {
		return nil, ErrNoCells
	}
	seen := make(map[models.Cell]bool, len(cells))
	out := make([]models.Cell, 0, len(cells))
	for _, c := range cells {
		if !c.Valid() {
			return nil, errors.InvalidInputf("square %s is off the board", c)
		}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// ListSquares returns the full grid in row-major order
func (s *GridService) ListSquares(ctx context.Context) ([]models.GridSquare, error) {
	squares, err := s.repo.ListSquares(ctx)
	if err != nil {
		return nil, translate(err)
	}
	return squares, nil
}

// ClaimSquares reserves cells for the participant holding the access code.
// Either every cell is reserved or none is.
func (s *GridService) ClaimSquares(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	cells, err := uniqueCells(req.Cells)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.GetParticipantByCode(ctx, normalizeCode(req.AccessCode))
	if err == repository.ErrNotFound {
		return nil, ErrUnknownAccessCode
	}
	if err != nil {
		return nil, translate(err)
	}
	ps, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	at := s.now()
	if err := s.repo.ClaimSquares(ctx, p.ID, cells, ps.MaxSquares, at); err != nil {
		var lost *repository.UnavailableError
		if stderrors.As(err, &lost) {
			s.log.Info("Claim lost", "participant_id", p.ID, "cells", lost.Cells)
		}
		return nil, translate(err)
	}

	s.log.Info("Squares reserved", "participant_id", p.ID, "count", len(cells))
	s.broadcastGrid(ctx)

	result := &ClaimResult{ParticipantID: p.ID, Cells: cells}
	if ps.ReservationMinutes > 0 {
		expires := at.Add(time.Duration(ps.ReservationMinutes) * time.Minute)
		result.ExpiresAt = &expires
	}
	return result, nil
}

// ReleaseSquares gives back cells the participant has reserved but not paid
func (s *GridService) ReleaseSquares(ctx context.Context, code string, cells []models.Cell) (int, error) {
	cells, err := uniqueCells(cells)
	if err != nil {
		return 0, err
	}
	p, err := s.repo.GetParticipantByCode(ctx, normalizeCode(code))
	if err == repository.ErrNotFound {
		return 0, ErrUnknownAccessCode
	}
	if err != nil {
		return 0, translate(err)
	}
	n, err := s.repo.ReleaseSquares(ctx, p.ID, cells)
	if err != nil {
		return 0, translate(err)
	}
	if n > 0 {
		s.log.Info("Squares released", "participant_id", p.ID, "count", n)
		s.broadcastGrid(ctx)
	}
	return n, nil
}

// SweepReservations frees reservations older than the configured hold time.
// A hold time of zero disables the sweep.
func (s *GridService) SweepReservations(ctx context.Context) ([]models.Cell, error) {
	ps, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	if ps.ReservationMinutes <= 0 {
		return nil, nil
	}
	cutoff := s.now().Add(-time.Duration(ps.ReservationMinutes) * time.Minute)
	released, err := s.repo.ReleaseExpiredReservations(ctx, cutoff)
	if err != nil {
		return nil, translate(err)
	}
	if len(released) > 0 {
		s.log.Info("Expired reservations released", "count", len(released))
		s.broadcastGrid(ctx)
	}
	return released, nil
}

// SetSquare applies an admin override to a cell. Setting a cell to available
// clears its owner; every other status needs one.
func (s *GridService) SetSquare(ctx context.Context, u AdminSquareUpdate) (*models.GridSquare, error) {
	cell := models.Cell{Row: u.Row, Col: u.Col}
	if !cell.Valid() {
		return nil, errors.InvalidInputf("square %s is off the board", cell)
	}
	if !u.Status.Valid() {
		return nil, errors.Validationf("unknown square status %q", u.Status)
	}
	if u.Status != models.StatusAvailable && u.OwnerID == nil {
		return nil, errors.Validationf("status %s needs an owner", u.Status)
	}

	if err := s.repo.SetSquare(ctx, cell, u.OwnerID, u.Status); err != nil {
		return nil, translate(err)
	}
	sq, err := s.repo.GetSquare(ctx, cell)
	if err != nil {
		return nil, translate(err)
	}
	s.log.Warn("Square overridden by admin", "row", u.Row, "col", u.Col, "status", u.Status)
	s.broadcastGrid(ctx)
	return &sq, nil
}

// ConfirmSquares moves paid cells to confirmed
func (s *GridService) ConfirmSquares(ctx context.Context, cells []models.Cell) (int, error) {
	cells, err := uniqueCells(cells)
	if err != nil {
		return 0, err
	}
	n, err := s.repo.ConfirmSquares(ctx, cells)
	if err != nil {
		return 0, translate(err)
	}
	if n > 0 {
		s.broadcastGrid(ctx)
	}
	return n, nil
}

// Launch draws the row and column numbers. Every square must be sold unless
// force is set. Only one launch can ever succeed; later calls return
// ErrAlreadyLaunched and leave the numbers untouched.
func (s *GridService) Launch(ctx context.Context, force bool) (*LaunchResult, error) {
	launched, err := s.settings.IsLaunched(ctx)
	if err != nil {
		return nil, err
	}
	if launched {
		return nil, ErrAlreadyLaunched
	}

	squares, err := s.repo.ListSquares(ctx)
	if err != nil {
		return nil, translate(err)
	}
	unsold := 0
	for _, sq := range squares {
		if !sq.Status.IsSold() {
			unsold++
		}
	}
	if unsold > 0 && !force {
		return nil, ErrGridNotSold
	}

	s.rngMu.Lock()
	numbered, assignment, err := pool.AssignNumbers(squares, s.rng)
	s.rngMu.Unlock()
	if err != nil {
		return nil, err
	}

	if err := s.repo.LaunchNumbers(ctx, assignment.Rows, assignment.Cols); err != nil {
		return nil, translate(err)
	}

	s.log.Info("Numbers assigned", "rows", assignment.Rows, "cols", assignment.Cols, "forced", force, "unsold", unsold)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastMessage(MsgNumbersAssigned, map[string]interface{}{
			"assignment": assignment,
			"squares":    numbered,
		})
	}
	return &LaunchResult{Assignment: assignment, Forced: force && unsold > 0, Unsold: unsold}, nil
}

// Assignment returns the numbers of a launched grid
func (s *GridService) Assignment(ctx context.Context) (*pool.Assignment, error) {
	squares, err := s.repo.ListSquares(ctx)
	if err != nil {
		return nil, translate(err)
	}
	a, ok := pool.AssignmentFromSquares(squares)
	if !ok {
		return nil, errors.NotFound("numbers have not been assigned")
	}
	return &a, nil
}

// Stats summarises the pool for the dashboard
func (s *GridService) Stats(ctx context.Context) (*models.PoolStats, error) {
	counts, err := s.repo.CountSquaresByStatus(ctx)
	if err != nil {
		return nil, translate(err)
	}
	participants, err := s.repo.CountParticipants(ctx)
	if err != nil {
		return nil, translate(err)
	}
	winners, err := s.repo.ListQuarterWinners(ctx)
	if err != nil {
		return nil, translate(err)
	}
	ps, err := s.settings.Get(ctx)
	if err != nil {
		return nil, err
	}

	sold := counts[models.StatusPaid] + counts[models.StatusConfirmed]
	return &models.PoolStats{
		Squares:      counts,
		Participants: participants,
		Launched:     ps.NumbersLaunched,
		SquarePrice:  ps.SquarePrice,
		Pot:          ps.SquarePrice * models.Money(sold),
		Payouts:      ps.Payouts.Total(),
		Winners:      len(winners),
	}, nil
}
