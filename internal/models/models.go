package models

import (
	"fmt"
	"strings"
	"time"
)

// GridSize is the number of rows and columns on the board
const GridSize = 10

// SquareStatus is the purchase state of a grid square
type SquareStatus string

const (
	StatusAvailable SquareStatus = "available"
	StatusReserved  SquareStatus = "reserved"
	StatusPaid      SquareStatus = "paid"
	StatusConfirmed SquareStatus = "confirmed"
)

// Valid reports whether s is a known status
func (s SquareStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusReserved, StatusPaid, StatusConfirmed:
		return true
	}
	return false
}

// IsSold reports whether the purchase has completed (paid or confirmed)
func (s SquareStatus) IsSold() bool {
	return s == StatusPaid || s == StatusConfirmed
}

// Cell identifies a square by grid position
type Cell struct {
	Row int `json:"row" validate:"gte=0,lte=9"`
	Col int `json:"col" validate:"gte=0,lte=9"`
}

// Valid reports whether the cell is on the board
func (c Cell) Valid() bool {
	return c.Row >= 0 && c.Row < GridSize && c.Col >= 0 && c.Col < GridSize
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Col)
}

// GridSquare is one of the 100 cells of the pool
type GridSquare struct {
	Row        int          `json:"row"`
	Col        int          `json:"col"`
	OwnerID    *int64       `json:"owner_id"`
	OwnerName  string       `json:"owner_name,omitempty"`
	Status     SquareStatus `json:"status"`
	RowNumber  *int         `json:"row_number"`
	ColNumber  *int         `json:"col_number"`
	ReservedAt *time.Time   `json:"reserved_at,omitempty"`
}

// Cell returns the square's grid position
func (s GridSquare) Cell() Cell {
	return Cell{Row: s.Row, Col: s.Col}
}

// Money is an amount in cents
type Money int64

// Dollars converts whole dollars to Money
func Dollars(d int64) Money {
	return Money(d * 100)
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s$%d.%02d", sign, v/100, v%100)
}

// PayoutTable is the prize paid for each settled period
type PayoutTable struct {
	Q1 Money `json:"q1" validate:"gte=0"`
	Q2 Money `json:"q2" validate:"gte=0"`
	Q3 Money `json:"q3" validate:"gte=0"`
	Q4 Money `json:"q4" validate:"gte=0"`
	OT Money `json:"ot" validate:"gte=0"`
}

// For returns the prize for a quarter (5 is overtime)
func (p PayoutTable) For(quarter int) (Money, bool) {
	switch quarter {
	case 1:
		return p.Q1, true
	case 2:
		return p.Q2, true
	case 3:
		return p.Q3, true
	case 4:
		return p.Q4, true
	case OvertimeQuarter:
		return p.OT, true
	}
	return 0, false
}

// Total is the sum of all prizes
func (p PayoutTable) Total() Money {
	return p.Q1 + p.Q2 + p.Q3 + p.Q4 + p.OT
}

// QuarterWinner is the durable settlement record for one period
type QuarterWinner struct {
	Quarter     int       `json:"quarter"`
	OwnerID     *int64    `json:"owner_id"`
	OwnerName   string    `json:"owner_name,omitempty"`
	Row         int       `json:"row"`
	Col         int       `json:"col"`
	RowNumber   int       `json:"row_number"`
	ColNumber   int       `json:"col_number"`
	AFCScore    int       `json:"afc_score"`
	NFCScore    int       `json:"nfc_score"`
	PrizeAmount Money     `json:"prize_amount"`
	SettledAt   time.Time `json:"settled_at"`
}

// HasOwner reports whether the winning cell had been sold
func (w QuarterWinner) HasOwner() bool {
	return w.OwnerID != nil
}

// Participant is a person who buys squares or answers props
type Participant struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email,omitempty"`
	Phone       string    `json:"phone,omitempty"`
	NotifyEmail bool      `json:"notify_email"`
	NotifySMS   bool      `json:"notify_sms"`
	AccessCode  string    `json:"access_code,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PropAnswerType selects how a prop is answered and graded
type PropAnswerType string

const (
	AnswerYesNo          PropAnswerType = "yes_no"
	AnswerOverUnder      PropAnswerType = "over_under"
	AnswerMultipleChoice PropAnswerType = "multiple_choice"
	AnswerExactNumber    PropAnswerType = "exact_number"
)

// Valid reports whether t is a known answer type
func (t PropAnswerType) Valid() bool {
	switch t {
	case AnswerYesNo, AnswerOverUnder, AnswerMultipleChoice, AnswerExactNumber:
		return true
	}
	return false
}

// PropStatus is the lifecycle state of a prop bet
type PropStatus string

const (
	PropDraft  PropStatus = "draft"
	PropOpen   PropStatus = "open"
	PropLocked PropStatus = "locked"
	PropGraded PropStatus = "graded"
)

// PropBet is a side question participants answer for points
type PropBet struct {
	ID            int64          `json:"id"`
	Question      string         `json:"question"`
	AnswerType    PropAnswerType `json:"answer_type"`
	Line          *float64       `json:"line,omitempty"`
	Options       []string       `json:"options,omitempty"`
	PointValue    int            `json:"point_value"`
	Status        PropStatus     `json:"status"`
	CorrectAnswer string         `json:"correct_answer,omitempty"`
	DisplayOrder  int            `json:"display_order"`
	CreatedAt     time.Time      `json:"created_at"`
	GradedAt      *time.Time     `json:"graded_at,omitempty"`
}

// PropAnswer is one participant's answer to one prop
type PropAnswer struct {
	ID              int64      `json:"id"`
	PropID          int64      `json:"prop_id"`
	ParticipantID   int64      `json:"participant_id"`
	ParticipantName string     `json:"participant_name,omitempty"`
	Answer          string     `json:"answer"`
	IsCorrect       *bool      `json:"is_correct"`
	Push            bool       `json:"push"`
	PointsEarned    int        `json:"points_earned"`
	SubmittedAt     time.Time  `json:"submitted_at"`
	GradedAt        *time.Time `json:"graded_at,omitempty"`
}

// LeaderboardEntry is a participant's prop bet total
type LeaderboardEntry struct {
	ParticipantID   int64  `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	Points          int    `json:"points"`
	Correct         int    `json:"correct"`
	Answered        int    `json:"answered"`
}

// PaymentStatus records how completely a payment was applied to the grid
type PaymentStatus string

const (
	PaymentApplied PaymentStatus = "applied"
	PaymentPartial PaymentStatus = "partial"
)

// Payment is a completed charge for one or more squares
type Payment struct {
	ID            int64         `json:"id"`
	Reference     string        `json:"reference"`
	ParticipantID int64         `json:"participant_id"`
	Amount        Money         `json:"amount"`
	Source        string        `json:"source"`
	Status        PaymentStatus `json:"status"`
	Cells         []Cell        `json:"cells"`
	Conflicted    []Cell        `json:"conflicted,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Notification is an audit record of one outbound message
type Notification struct {
	ID        string    `json:"id"`
	Channel   string    `json:"channel"`
	Recipient string    `json:"recipient"`
	Subject   string    `json:"subject"`
	Status    string    `json:"status"`
	Attempts  int       `json:"attempts"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// PoolStats summarises the pool for the admin dashboard
type PoolStats struct {
	Squares      map[SquareStatus]int `json:"squares"`
	Participants int                  `json:"participants"`
	Launched     bool                 `json:"launched"`
	SquarePrice  Money                `json:"square_price"`
	Pot          Money                `json:"pot"`
	Payouts      Money                `json:"payouts"`
	Winners      int                  `json:"winners"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NormalizeAnswer trims and lowercases a free-form answer for comparison
func NormalizeAnswer(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
