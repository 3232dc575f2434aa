package handlers

import (
	"github.com/abrezinsky/squarespool/internal/models"
	"github.com/abrezinsky/squarespool/internal/pool"
)

// GridResponse is the public view of the board
type GridResponse struct {
	Squares  []models.GridSquare `json:"squares"`
	Launched bool                `json:"launched"`
	Numbers  *pool.Assignment    `json:"numbers"`
}

// GameResponse is the scoreboard with the live leader and settled quarters
type GameResponse struct {
	State   models.GameState       `json:"state"`
	Leader  *models.QuarterWinner  `json:"leader"`
	Winners []models.QuarterWinner `json:"winners"`
}

// ReleaseResponse is the response for releasing reserved squares
type ReleaseResponse struct {
	Released int `json:"released"`
}

// ConfirmResponse is the response for confirming paid squares
type ConfirmResponse struct {
	Confirmed int `json:"confirmed"`
}

// SweepResponse is the response for a manual reservation sweep
type SweepResponse struct {
	Released []models.Cell `json:"released"`
}

// LogLevelResponse reports the current runtime logging configuration
type LogLevelResponse struct {
	Level       string `json:"level"`
	HTTPLogging bool   `json:"http_logging"`
}
