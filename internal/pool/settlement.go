// Package pool holds the rules of a squares pool: number assignment,
// quarter settlement, game progression and prop grading. Everything here is
// pure; persistence and side effects belong to the services package.
package pool

import (
	"github.com/abrezinsky/squarespool/internal/errors"
	"github.com/abrezinsky/squarespool/internal/models"
)

// Winner is the square whose numbers match the last digit of each score
type Winner struct {
	Square    models.GridSquare
	RowNumber int
	ColNumber int
}

// OwnerID returns the owner of the winning square, or nil when the square was
// never sold. A reserved square does not win for its holder.
func (w Winner) OwnerID() *int64 {
	if !w.Square.Status.IsSold() || w.Square.OwnerID == nil {
		return nil
	}
	id := *w.Square.OwnerID
	return &id
}

// OwnerName returns the owner's display name when the square was sold
func (w Winner) OwnerName() string {
	if w.OwnerID() == nil {
		return ""
	}
	return w.Square.OwnerName
}

// Digits returns the last digit of each score
func Digits(afcScore, nfcScore int) (afcDigit, nfcDigit int) {
	return afcScore % 10, nfcScore % 10
}

// DetermineWinner finds the square whose row number equals the AFC score's
// last digit and whose column number equals the NFC score's last digit.
//
// The result depends only on its arguments. ok is false when no square carries
// that pair of numbers, which happens before launch or for negative scores. A
// matching square that was never sold is still returned; its OwnerID is nil.
func DetermineWinner(afcScore, nfcScore int, squares []models.GridSquare) (w Winner, ok bool) {
	if afcScore < 0 || nfcScore < 0 {
		return Winner{}, false
	}
	afcDigit, nfcDigit := Digits(afcScore, nfcScore)

	for _, sq := range squares {
		if sq.RowNumber == nil || sq.ColNumber == nil {
			continue
		}
		if *sq.RowNumber == afcDigit && *sq.ColNumber == nfcDigit {
			return Winner{Square: sq, RowNumber: afcDigit, ColNumber: nfcDigit}, true
		}
	}
	return Winner{}, false
}

// Settle builds the QuarterWinner record for a quarter from the winner and the
// score it was computed from. Quarters outside 1-5 have no prize and are
// rejected.
func Settle(quarter int, game models.GameState, w Winner, payouts models.PayoutTable) (models.QuarterWinner, error) {
	prize, ok := payouts.For(quarter)
	if !ok {
		return models.QuarterWinner{}, errors.Validationf("no payout for quarter %d", quarter)
	}
	return models.QuarterWinner{
		Quarter:     quarter,
		OwnerID:     w.OwnerID(),
		OwnerName:   w.OwnerName(),
		Row:         w.Square.Row,
		Col:         w.Square.Col,
		RowNumber:   w.RowNumber,
		ColNumber:   w.ColNumber,
		AFCScore:    game.AFCScore,
		NFCScore:    game.NFCScore,
		PrizeAmount: prize,
	}, nil
}
