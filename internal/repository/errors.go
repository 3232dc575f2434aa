package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/abrezinsky/squarespool/internal/models"
)

// ErrNotFound is returned when a requested record is not found in the repository.
// This abstracts away the underlying storage implementation (SQL, NoSQL, etc.)
// from the service layer.
var ErrNotFound = errors.New("record not found")

// ErrInvalidTable is returned when attempting to reset a part of the pool that
// is not whitelisted.
var ErrInvalidTable = errors.New("invalid table name")

// ErrConflict is returned when a conditional write found the row in an
// unexpected state.
var ErrConflict = errors.New("record was changed concurrently")

// ErrDuplicate is returned when a unique value (access code, payment reference)
// already exists.
var ErrDuplicate = errors.New("duplicate record")

// ErrAlreadyLaunched is returned when numbers have already been assigned
var ErrAlreadyLaunched = errors.New("numbers already launched")

// ErrStaleVersion is returned when the game state version did not match
var ErrStaleVersion = errors.New("game state version is stale")

// ErrSquareUnavailable is the sentinel wrapped by UnavailableError
var ErrSquareUnavailable = errors.New("square no longer available")

// ErrLimitExceeded is returned when a claim would exceed the per-participant cap
var ErrLimitExceeded = errors.New("square limit exceeded")

// ErrOwnsSquares is returned when deleting a participant that still owns squares
var ErrOwnsSquares = errors.New("participant owns squares")

// UnavailableError lists the cells a claim lost
type UnavailableError struct {
	Cells []models.Cell
}

func (e *UnavailableError) Error() string {
	names := make([]string, len(e.Cells))
	for i, c := range e.Cells {
		names[i] = c.String()
	}
	return fmt.Sprintf("%s: %s", ErrSquareUnavailable, strings.Join(names, ", "))
}

func (e *UnavailableError) Unwrap() error {
	return ErrSquareUnavailable
}
