package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/abrezinsky/squarespool/internal/models"
)

// ==================== Square Methods ====================

const squareQuery = `
	SELECT s.row_idx, s.col_idx, s.owner_id, p.name, s.status, s.row_number, s.col_number, s.reserved_at
	FROM squares s
	LEFT JOIN participants p ON p.id = s.owner_id`

func scanSquare(s rowScanner) (models.GridSquare, error) {
	var sq models.GridSquare
	var ownerID, rowNumber, colNumber sql.NullInt64
	var ownerName sql.NullString
	var reservedAt sql.NullTime
	var status string
	if err := s.Scan(&sq.Row, &sq.Col, &ownerID, &ownerName, &status, &rowNumber, &colNumber, &reservedAt); err != nil {
		return sq, err
	}
	sq.Status = models.SquareStatus(status)
	if ownerID.Valid {
		id := ownerID.Int64
		sq.OwnerID = &id
		sq.OwnerName = ownerName.String
	}
	if rowNumber.Valid {
		n := int(rowNumber.Int64)
		sq.RowNumber = &n
	}
	if colNumber.Valid {
		n := int(colNumber.Int64)
		sq.ColNumber = &n
	}
	if reservedAt.Valid {
		t := reservedAt.Time
		sq.ReservedAt = &t
	}
	return sq, nil
}

// ListSquares returns all 100 squares in row-major order
func (r *Repository) ListSquares(ctx context.Context) ([]models.GridSquare, error) {
	rows, err := r.db.QueryContext(ctx, squareQuery+` ORDER BY s.row_idx, s.col_idx`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	squares := make([]models.GridSquare, 0, models.GridSize*models.GridSize)
	for rows.Next() {
		sq, err := scanSquare(rows)
		if err != nil {
			return nil, err
		}
		squares = append(squares, sq)
	}
	return squares, rows.Err()
}

// GetSquare retrieves one square
func (r *Repository) GetSquare(ctx context.Context, cell models.Cell) (models.GridSquare, error) {
	row := r.db.QueryRowContext(ctx, squareQuery+` WHERE s.row_idx = ? AND s.col_idx = ?`, cell.Row, cell.Col)
	sq, err := scanSquare(row)
	if err == sql.ErrNoRows {
		return sq, ErrNotFound
	}
	return sq, err
}

// ListSquaresByOwner returns the squares held by a participant
func (r *Repository) ListSquaresByOwner(ctx context.Context, participantID int64) ([]models.GridSquare, error) {
	rows, err := r.db.QueryContext(ctx, squareQuery+` WHERE s.owner_id = ? ORDER BY s.row_idx, s.col_idx`, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var squares []models.GridSquare
	for rows.Next() {
		sq, err := scanSquare(rows)
		if err != nil {
			return nil, err
		}
		squares = append(squares, sq)
	}
	return squares, rows.Err()
}

func launched(ctx context.Context, tx *sql.Tx) (bool, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, models.SettingNumbersLaunched).Scan(&value)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return value == "true", err
}

// ClaimSquares reserves cells for a participant. The batch is all-or-nothing:
// each cell is taken only if it is still available, and if any cell was lost
// the transaction is rolled back and an *UnavailableError names the lost cells.
// limit caps the squares one participant may hold (0 means no cap).
func (r *Repository) ClaimSquares(ctx context.Context, participantID int64, cells []models.Cell, limit int, at time.Time) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		isLaunched, err := launched(ctx, tx)
		if err != nil {
			return err
		}
		if isLaunched {
			return ErrAlreadyLaunched
		}

		if limit > 0 {
			var owned int
			if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM squares WHERE owner_id = ?`, participantID).Scan(&owned); err != nil {
				return err
			}
			if owned+len(cells) > limit {
				return ErrLimitExceeded
			}
		}

		var lost []models.Cell
		for _, c := range cells {
			result, err := tx.ExecContext(ctx, `
				UPDATE squares SET owner_id = ?, status = 'reserved', reserved_at = ?
				WHERE row_idx = ? AND col_idx = ? AND status = 'available'
			`, participantID, at.UTC(), c.Row, c.Col)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if n == 0 {
				lost = append(lost, c)
			}
		}
		if len(lost) > 0 {
			return &UnavailableError{Cells: lost}
		}
		return nil
	})
}

// ReleaseSquares returns a participant's reserved cells to the pool.
// Cells that are not reserved by that participant are left alone.
func (r *Repository) ReleaseSquares(ctx context.Context, participantID int64, cells []models.Cell) (int, error) {
	released := 0
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range cells {
			result, err := tx.ExecContext(ctx, `
				UPDATE squares SET owner_id = NULL, status = 'available', reserved_at = NULL
				WHERE row_idx = ? AND col_idx = ? AND owner_id = ? AND status = 'reserved'
			`, c.Row, c.Col, participantID)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			released += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return released, nil
}

// ReleaseExpiredReservations frees reservations made before the cutoff and
// returns the cells that were released.
func (r *Repository) ReleaseExpiredReservations(ctx context.Context, before time.Time) ([]models.Cell, error) {
	var released []models.Cell
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT row_idx, col_idx, reserved_at FROM squares WHERE status = 'reserved'`)
		if err != nil {
			return err
		}
		var expired []models.Cell
		for rows.Next() {
			var c models.Cell
			var reservedAt sql.NullTime
			if err := rows.Scan(&c.Row, &c.Col, &reservedAt); err != nil {
				rows.Close()
				return err
			}
			if !reservedAt.Valid || reservedAt.Time.Before(before) {
				expired = append(expired, c)
			}
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for _, c := range expired {
			if _, err := tx.ExecContext(ctx, `
				UPDATE squares SET owner_id = NULL, status = 'available', reserved_at = NULL
				WHERE row_idx = ? AND col_idx = ? AND status = 'reserved'
			`, c.Row, c.Col); err != nil {
				return err
			}
		}
		released = expired
		return nil
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// SetSquare forces the owner and status of a cell. Setting a cell back to
// available clears its owner. Numbers are never touched.
func (r *Repository) SetSquare(ctx context.Context, cell models.Cell, ownerID *int64, status models.SquareStatus) error {
	var reservedAt any
	if status == models.StatusAvailable {
		ownerID = nil
	}
	if status == models.StatusReserved {
		reservedAt = now()
	}
	result, err := r.db.ExecContext(ctx, `
		UPDATE squares SET owner_id = ?, status = ?, reserved_at = ?
		WHERE row_idx = ? AND col_idx = ?
	`, ownerID, string(status), reservedAt, cell.Row, cell.Col)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ConfirmSquares advances paid cells to confirmed and returns how many moved
func (r *Repository) ConfirmSquares(ctx context.Context, cells []models.Cell) (int, error) {
	confirmed := 0
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range cells {
			result, err := tx.ExecContext(ctx,
				`UPDATE squares SET status = 'confirmed' WHERE row_idx = ? AND col_idx = ? AND status = 'paid'`,
				c.Row, c.Col)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			confirmed += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return confirmed, nil
}

// LaunchNumbers writes the row and column numbers exactly once. The launched
// flag is flipped with a conditional update in the same transaction, so of two
// concurrent launches only one commits and the other gets ErrAlreadyLaunched.
func (r *Repository) LaunchNumbers(ctx context.Context, rows, cols [models.GridSize]int) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE settings SET value = 'true' WHERE key = ? AND value = 'false'`,
			models.SettingNumbersLaunched)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrAlreadyLaunched
		}

		for i := 0; i < models.GridSize; i++ {
			if _, err := tx.ExecContext(ctx,
				`UPDATE squares SET row_number = ? WHERE row_idx = ? AND row_number IS NULL`, rows[i], i); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE squares SET col_number = ? WHERE col_idx = ? AND col_number IS NULL`, cols[i], i); err != nil {
				return err
			}
		}
		return nil
	})
}
