package services

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		in   error
		kind errors.Kind
		code string
	}{
		{"already launched", repository.ErrAlreadyLaunched, errors.ErrConflict, "ALREADY_LAUNCHED"},
		{"stale version", repository.ErrStaleVersion, errors.ErrConflict, "STALE_GAME_STATE"},
		{"limit", repository.ErrLimitExceeded, errors.ErrConflict, "SQUARE_LIMIT"},
		{"owns squares", repository.ErrOwnsSquares, errors.ErrConflict, ""},
		{"not found", repository.ErrNotFound, errors.ErrNotFound, ""},
		{"conflict", repository.ErrConflict, errors.ErrConflict, ""},
		{"duplicate", repository.ErrDuplicate, errors.ErrConflict, ""},
		{"invalid table", repository.ErrInvalidTable, errors.ErrValidation, ""},
		{"wrapped sentinel", fmt.Errorf("settle: %w", repository.ErrStaleVersion), errors.ErrConflict, "STALE_GAME_STATE"},
		{"unknown", fmt.Errorf("disk I/O error"), errors.ErrInternal, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := translate(tt.in)
			if k := errors.KindOf(got); k != tt.kind {
				t.Errorf("expected kind %s, got %s", tt.kind, k)
			}
			if c := errors.CodeOf(got); c != tt.code {
				t.Errorf("expected code %q, got %q", tt.code, c)
			}
		})
	}
}

func TestTranslate_Nil(t *testing.T) {
	if err := translate(nil); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestTranslate_PassesApplicationErrorsThrough(t *testing.T) {
	if got := translate(ErrPropNotOpen); got != ErrPropNotOpen {
		t.Errorf("expected the same error back, got %v", got)
	}
}

func TestTranslate_UnavailableNamesCells(t *testing.T) {
	lost := &repository.UnavailableError{Cells: []models.Cell{{Row: 4, Col: 5}}}

	got := translate(fmt.Errorf("claim: %w", lost))

	if errors.CodeOf(got) != "SQUARE_UNAVAILABLE" {
		t.Fatalf("expected SQUARE_UNAVAILABLE, got %v", got)
	}
	var unwrapped *repository.UnavailableError
	if !stderrors.As(got, &unwrapped) || len(unwrapped.Cells) != 1 {
		t.Errorf("expected lost cells to survive translation, got %v", got)
	}
}
