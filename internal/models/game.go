package models

import (
	"encoding/json"
	"time"
)

// OvertimeQuarter is the quarter number used for overtime
const OvertimeQuarter = 5

// QuarterClock is the clock display at the start of a period
const QuarterClock = "15:00"

// GamePhase is the single source of truth for where the game is
type GamePhase string

const (
	PhasePreGame  GamePhase = "pregame"
	PhaseLive     GamePhase = "live"
	PhaseHalftime GamePhase = "halftime"
	PhaseOvertime GamePhase = "overtime"
	PhaseFinal    GamePhase = "final"
)

// Valid reports whether p is a known phase
func (p GamePhase) Valid() bool {
	switch p {
	case PhasePreGame, PhaseLive, PhaseHalftime, PhaseOvertime, PhaseFinal:
		return true
	}
	return false
}

// InProgress reports whether a period is being played
func (p GamePhase) InProgress() bool {
	return p == PhaseLive || p == PhaseOvertime
}

// GameState is the live scoreboard for the pool. Version increments on every
// write so admin edits can detect a concurrent change.
type GameState struct {
	AFCScore  int       `json:"afc_score"`
	NFCScore  int       `json:"nfc_score"`
	Quarter   int       `json:"quarter"`
	Clock     string    `json:"clock"`
	Phase     GamePhase `json:"phase"`
	Version   int64     `json:"version"`
	Source    string    `json:"source,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsLive reports whether a period is in progress
func (g GameState) IsLive() bool { return g.Phase.InProgress() }

// IsHalftime reports whether the game is at halftime
func (g GameState) IsHalftime() bool { return g.Phase == PhaseHalftime }

// IsFinal reports whether the game has ended
func (g GameState) IsFinal() bool { return g.Phase == PhaseFinal }

// Tied reports whether both scores are equal
func (g GameState) Tied() bool { return g.AFCScore == g.NFCScore }

// MarshalJSON adds the derived is_live/is_halftime/is_final flags
func (g GameState) MarshalJSON() ([]byte, error) {
	type plain GameState
	return json.Marshal(struct {
		plain
		IsLive     bool `json:"is_live"`
		IsHalftime bool `json:"is_halftime"`
		IsFinal    bool `json:"is_final"`
	}{
		plain:      plain(g),
		IsLive:     g.IsLive(),
		IsHalftime: g.IsHalftime(),
		IsFinal:    g.IsFinal(),
	})
}

// NewGameState returns the pre-game state
func NewGameState() GameState {
	return GameState{Phase: PhasePreGame, Clock: QuarterClock}
}
