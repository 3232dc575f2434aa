package pool

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/models"
)

// Assignment maps each row index to its row number and each column index to
// its column number. Both arrays are permutations of 0..9.
type Assignment struct {
	Rows [models.GridSize]int `json:"rows"`
	Cols [models.GridSize]int `json:"cols"`
}

// NewRand returns a generator seeded from the operating system
func NewRand() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		// crypto/rand only fails if the OS source is broken
		panic(err)
	}
	return rand.New(rand.NewChaCha8(seed))
}

// NewSeededRand returns a deterministic generator for tests and replays
func NewSeededRand(seed uint64) *rand.Rand {
	var b [32]byte
	binary.LittleEndian.PutUint64(b[:], seed)
	return rand.New(rand.NewChaCha8(b))
}

// Permutation returns a uniformly random ordering of 0..9 using a
// Fisher-Yates shuffle.
func Permutation(rng *rand.Rand) [models.GridSize]int {
	var p [models.GridSize]int
	for i := range p {
		p[i] = i
	}
	for i := len(p) - 1; i > 0; i-- {
		j := rng.IntN(i + 1)
		p[i], p[j] = p[j], p[i]
	}
	return p
}

// NewAssignment draws independent row and column permutations
func NewAssignment(rng *rand.Rand) Assignment {
	return Assignment{Rows: Permutation(rng), Cols: Permutation(rng)}
}

// Valid reports whether both halves are permutations of 0..9
func (a Assignment) Valid() bool {
	return isPermutation(a.Rows) && isPermutation(a.Cols)
}

func isPermutation(p [models.GridSize]int) bool {
	var seen [models.GridSize]bool
	for _, n := range p {
		if n < 0 || n >= models.GridSize || seen[n] {
			return false
		}
		seen[n] = true
	}
	return true
}

// Apply returns a copy of squares with numbers derived from the assignment.
// It refuses a grid where any square already carries a number, so a launched
// grid can never be re-randomized through this path.
func (a Assignment) Apply(squares []models.GridSquare) ([]models.GridSquare, error) {
	if !a.Valid() {
		return nil, errors.Validation("assignment is not a pair of permutations of 0-9")
	}
	out := make([]models.GridSquare, len(squares))
	for i, sq := range squares {
		if sq.RowNumber != nil || sq.ColNumber != nil {
			return nil, errors.Conflict("numbers have already been assigned").WithCode("ALREADY_LAUNCHED")
		}
		if !sq.Cell().Valid() {
			return nil, errors.InvalidInputf("square %s is off the board", sq.Cell())
		}
		rowNum, colNum := a.Rows[sq.Row], a.Cols[sq.Col]
		sq.RowNumber = &rowNum
		sq.ColNumber = &colNum
		out[i] = sq
	}
	return out, nil
}

// AssignNumbers draws a fresh assignment and applies it to squares
func AssignNumbers(squares []models.GridSquare, rng *rand.Rand) ([]models.GridSquare, Assignment, error) {
	a := NewAssignment(rng)
	out, err := a.Apply(squares)
	if err != nil {
		return nil, Assignment{}, err
	}
	return out, a, nil
}

// AssignmentFromSquares recovers the assignment stored on a launched grid.
// ok is false when the grid is not fully numbered or the numbers are not
// consistent per row and column.
func AssignmentFromSquares(squares []models.GridSquare) (a Assignment, ok bool) {
	var rowSet, colSet [models.GridSize]bool
	for _, sq := range squares {
		if sq.RowNumber == nil || sq.ColNumber == nil || !sq.Cell().Valid() {
			return Assignment{}, false
		}
		if rowSet[sq.Row] && a.Rows[sq.Row] != *sq.RowNumber {
			return Assignment{}, false
		}
		if colSet[sq.Col] && a.Cols[sq.Col] != *sq.ColNumber {
			return Assignment{}, false
		}
		a.Rows[sq.Row], rowSet[sq.Row] = *sq.RowNumber, true
		a.Cols[sq.Col], colSet[sq.Col] = *sq.ColNumber, true
	}
	for i := 0; i < models.GridSize; i++ {
		if !rowSet[i] || !colSet[i] {
			return Assignment{}, false
		}
	}
	return a, a.Valid()
}
