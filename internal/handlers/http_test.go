package handlers_test

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/handlers"
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/repository"
	"github.com/abrezinsky/squarespool/internal/services"
)

func TestAPIError_Error(t *testing.T) {
	err := handlers.NewAPIError(http.StatusBadRequest, "BAD_REQUEST", "test message")

	if result := err.Error(); result != "test message" {
		t.Errorf("expected 'test message', got %q", result)
	}
	if err.Code != "BAD_REQUEST" {
		t.Errorf("expected code 'BAD_REQUEST', got %q", err.Code)
	}
}

func TestAPIErrorConstructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *handlers.APIError
		status int
		code   string
	}{
		{"bad request", handlers.BadRequest("bad"), http.StatusBadRequest, handlers.ErrCodeBadRequest},
		{"validation", handlers.ValidationError("invalid"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"unauthorized", handlers.Unauthorized("who"), http.StatusUnauthorized, handlers.ErrCodeUnauthorized},
		{"not found", handlers.NotFound("gone"), http.StatusNotFound, handlers.ErrCodeNotFound},
		{"conflict", handlers.Conflict("taken"), http.StatusConflict, handlers.ErrCodeConflict},
		{"internal", handlers.InternalError(fmt.Errorf("boom")), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, tt.err.Status)
			}
			if tt.err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, tt.err.Code)
			}
		})
	}
}

func TestInternalError_HidesCause(t *testing.T) {
	err := handlers.InternalError(fmt.Errorf("database password is hunter2"))
	if err.Message != "Internal server error" {
		t.Errorf("expected generic message, got %q", err.Message)
	}
}

func TestToAPIError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", errors.NotFound("prop not found"), http.StatusNotFound, handlers.ErrCodeNotFound},
		{"validation", errors.Validation("bad quarter"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"invalid input", errors.InvalidInput("bad body"), http.StatusBadRequest, handlers.ErrCodeValidation},
		{"conflict", errors.Conflict("taken"), http.StatusConflict, handlers.ErrCodeConflict},
		{"internal kind", errors.Internalf("disk full"), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
		{"plain error", fmt.Errorf("unexpected"), http.StatusInternalServerError, handlers.ErrCodeInternalServer},
		{"already launched", services.ErrAlreadyLaunched, http.StatusConflict, "ALREADY_LAUNCHED"},
		{"stale game", services.ErrStaleGameState, http.StatusConflict, "STALE_GAME_STATE"},
		{"square limit", services.ErrSquareLimit, http.StatusConflict, "SQUARE_LIMIT"},
		{"bad signature", services.ErrInvalidSignature, http.StatusBadRequest, "INVALID_SIGNATURE"},
		{"no game", services.ErrNoGameInProgress, http.StatusBadRequest, "NO_GAME_IN_PROGRESS"},
		{"wrapped", fmt.Errorf("launch: %w", services.ErrGridNotSold), http.StatusBadRequest, handlers.ErrCodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := handlers.ToAPIError(tt.err)
			if apiErr.Status != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.Status)
			}
			if apiErr.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, apiErr.Code)
			}
		})
	}
}

func TestToAPIError_UnavailableListsCells(t *testing.T) {
	lost := &repository.UnavailableError{Cells: []models.Cell{{Row: 1, Col: 2}}}
	err := errors.Wrap(lost, errors.ErrConflict, "claim failed").WithCode("SQUARE_UNAVAILABLE")

	apiErr := handlers.ToAPIError(err)

	if apiErr.Status != http.StatusConflict || apiErr.Code != "SQUARE_UNAVAILABLE" {
		t.Fatalf("unexpected error: %d %s", apiErr.Status, apiErr.Code)
	}
	if apiErr.Message != lost.Error() {
		t.Errorf("expected message %q, got %q", lost.Error(), apiErr.Message)
	}
	cells, ok := apiErr.Cells.([]models.Cell)
	if !ok || len(cells) != 1 || cells[0] != (models.Cell{Row: 1, Col: 2}) {
		t.Errorf("expected lost cell listed, got %v", apiErr.Cells)
	}
	if !stderrors.Is(err, repository.ErrSquareUnavailable) {
		t.Error("expected wrapped sentinel to survive")
	}
}

func TestToAPIError_DoesNotMutateSentinels(t *testing.T) {
	handlers.ToAPIError(services.ErrAlreadyLaunched)
	second := handlers.ToAPIError(errors.Conflict("other"))
	if second.Code != handlers.ErrCodeConflict {
		t.Errorf("expected plain conflict code, got %s", second.Code)
	}
}

func TestDecodeJSON_ThroughRouter(t *testing.T) {
	setup := newTestSetup(t)

	tests := []struct {
		name string
		body string
	}{
		{"empty body", ""},
		{"invalid json", `{"name": `},
		{"wrong type", `{"name": 42}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := setup.do(t, http.MethodPost, "/api/participants", tt.body, false)
			expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeBadRequest)
		})
	}
}

func TestParseIntParam_ThroughRouter(t *testing.T) {
	setup := newTestSetup(t)

	for _, id := range []string{"abc", "0", "-3", "1.5"} {
		t.Run(id, func(t *testing.T) {
			rec := setup.do(t, http.MethodGet, "/api/admin/props/"+id+"/answers", nil, true)
			expectError(t, rec, http.StatusBadRequest, handlers.ErrCodeBadRequest)
		})
	}
}
