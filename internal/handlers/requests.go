package handlers

import (
	"github.com/abrezinsky/squarespool/internal/models"
)

// ReleaseRequest represents a participant giving back reserved squares
type ReleaseRequest struct {
	AccessCode string        `json:"access_code" validate:"required"`
	Cells      []models.Cell `json:"cells" validate:"required,min=1,max=100,dive"`
}

// CellsRequest represents an admin action on a set of squares
type CellsRequest struct {
	Cells []models.Cell `json:"cells" validate:"required,min=1,max=100,dive"`
}

// LaunchRequest represents a request to assign the row and column numbers
type LaunchRequest struct {
	Force bool `json:"force"`
}

// VersionRequest carries the game state version the admin last saw
type VersionRequest struct {
	Version int64 `json:"version" validate:"gte=0"`
}

// PropStatusRequest represents a request to move a prop through its lifecycle
type PropStatusRequest struct {
	Status models.PropStatus `json:"status" validate:"required,oneof=draft open locked"`
}

// AnswerRequest represents a participant's answer to a prop
type AnswerRequest struct {
	AccessCode string `json:"access_code" validate:"required"`
	Answer     string `json:"answer" validate:"required,max=200"`
}

// ResetRequest represents a request to reset parts of the pool
type ResetRequest struct {
	Parts []string `json:"parts" validate:"required,min=1"`
}

// LogLevelRequest represents a request to change runtime logging
type LogLevelRequest struct {
	Level       string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	HTTPLogging *bool  `json:"http_logging"`
}
