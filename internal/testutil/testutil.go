package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
)

// NewTestRepository creates a new in-memory repository for testing.
// Each call creates a fresh database with all migrations applied.
func NewTestRepository(t *testing.T) *repository.Repository {
	t.Helper()

	repo, err := repository.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}

	t.Cleanup(func() {
		repo.Close()
	})

	return repo
}

// CreateParticipant registers a participant with a predictable access code
// (T-ANN for "ann")
func CreateParticipant(t *testing.T, repo *repository.Repository, name string) models.Participant {
	t.Helper()

	p := models.Participant{
		Name:        name,
		Email:       fmt.Sprintf("%s@example.com", name),
		NotifyEmail: true,
		AccessCode:  fmt.Sprintf("T-%s", strings.ToUpper(name)),
	}
	id, err := repo.CreateParticipant(context.Background(), p)
	if err != nil {
		t.Fatalf("failed to create participant %s: %v", name, err)
	}
	p.ID = id
	return p
}

// SellAllSquares marks every square paid. Squares are spread across owners
// round-robin.
func SellAllSquares(t *testing.T, repo *repository.Repository, owners ...models.Participant) {
	t.Helper()

	if len(owners) == 0 {
		t.Fatal("SellAllSquares needs at least one owner")
	}
	ctx := context.Background()
	for r := 0; r < models.GridSize; r++ {
		for c := 0; c < models.GridSize; c++ {
			owner := owners[(r*models.GridSize+c)%len(owners)]
			if err := repo.SetSquare(ctx, models.Cell{Row: r, Col: c}, &owner.ID, models.StatusPaid); err != nil {
				t.Fatalf("failed to sell square (%d,%d): %v", r, c, err)
			}
		}
	}
}

// Launch writes a fixed number assignment to the grid
func Launch(t *testing.T, repo *repository.Repository, rows, cols [models.GridSize]int) {
	t.Helper()

	if err := repo.LaunchNumbers(context.Background(), rows, cols); err != nil {
		t.Fatalf("failed to launch numbers: %v", err)
	}
}

// Identity is the assignment where every index carries its own number
var Identity = [models.GridSize]int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}
