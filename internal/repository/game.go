package repository

import (
	"context"
	"database/sql"

	"github.com/abrezinsky/squarespool/internal/models"
)

// ==================== Game State Methods ====================

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getGameState(ctx context.Context, q queryRower) (models.GameState, error) {
	var g models.GameState
	var phase string
	var source sql.NullString
	var updatedAt sql.NullTime
	err := q.QueryRowContext(ctx, `
		SELECT afc_score, nfc_score, quarter, clock, phase, version, source, updated_at
		FROM game_state WHERE id = 1
	`).Scan(&g.AFCScore, &g.NFCScore, &g.Quarter, &g.Clock, &phase, &g.Version, &source, &updatedAt)
	if err == sql.ErrNoRows {
		return g, ErrNotFound
	}
	if err != nil {
		return g, err
	}
	g.Phase = models.GamePhase(phase)
	g.Source = source.String
	g.UpdatedAt = updatedAt.Time
	return g, nil
}

// GetGameState returns the singleton game state
func (r *Repository) GetGameState(ctx context.Context) (models.GameState, error) {
	return getGameState(ctx, r.db)
}

// writeGameState updates the singleton and bumps its version. When
// expectedVersion is non-nil the write only applies if the stored version
// still matches, otherwise ErrStaleVersion is returned.
func writeGameState(ctx context.Context, tx *sql.Tx, g models.GameState, expectedVersion *int64) error {
	query := `
		UPDATE game_state SET afc_score = ?, nfc_score = ?, quarter = ?, clock = ?, phase = ?,
			source = ?, updated_at = ?, version = version + 1
		WHERE id = 1`
	args := []any{g.AFCScore, g.NFCScore, g.Quarter, g.Clock, string(g.Phase), g.Source, now()}
	if expectedVersion != nil {
		query += ` AND version = ?`
		args = append(args, *expectedVersion)
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if expectedVersion != nil {
			return ErrStaleVersion
		}
		return ErrNotFound
	}
	return nil
}

// SaveGameState writes the game state and returns the stored result with its
// new version. Pass a nil expectedVersion for last-write-wins updates.
func (r *Repository) SaveGameState(ctx context.Context, g models.GameState, expectedVersion *int64) (models.GameState, error) {
	var saved models.GameState
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		if err := writeGameState(ctx, tx, g, expectedVersion); err != nil {
			return err
		}
		var err error
		saved, err = getGameState(ctx, tx)
		return err
	})
	return saved, err
}

// UpdateLiveScore writes the score and clock of the period in progress
// without bumping the version. The write only applies while the stored
// quarter and phase still match g, otherwise ErrStaleVersion is returned.
func (r *Repository) UpdateLiveScore(ctx context.Context, g models.GameState) (models.GameState, error) {
	var saved models.GameState
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE game_state SET afc_score = ?, nfc_score = ?, clock = ?, source = ?, updated_at = ?
			WHERE id = 1 AND quarter = ? AND phase = ?`,
			g.AFCScore, g.NFCScore, g.Clock, g.Source, now(), g.Quarter, string(g.Phase))
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleVersion
		}
		saved, err = getGameState(ctx, tx)
		return err
	})
	return saved, err
}

// SettleQuarter records a quarter winner and moves the game to next in one
// transaction. Scores are left as stored. The move is a compare-and-swap on
// expectedVersion and on the score the winner was computed from, so if two
// admins end the same quarter only the first commits, and a score that landed
// after the winner was computed makes the settlement stale. Either way nothing
// is written and ErrStaleVersion is returned. The winner row is upserted by
// quarter.
func (r *Repository) SettleQuarter(ctx context.Context, w models.QuarterWinner, next models.GameState, expectedVersion int64) (models.GameState, error) {
	var saved models.GameState
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE game_state SET quarter = ?, clock = ?, phase = ?, source = ?, updated_at = ?,
				version = version + 1
			WHERE id = 1 AND version = ? AND afc_score = ? AND nfc_score = ?`,
			next.Quarter, next.Clock, string(next.Phase), next.Source, now(),
			expectedVersion, w.AFCScore, w.NFCScore)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrStaleVersion
		}
		if err := upsertQuarterWinner(ctx, tx, w); err != nil {
			return err
		}
		saved, err = getGameState(ctx, tx)
		return err
	})
	return saved, err
}

func upsertQuarterWinner(ctx context.Context, tx *sql.Tx, w models.QuarterWinner) error {
	settledAt := w.SettledAt
	if settledAt.IsZero() {
		settledAt = now()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO quarter_winners (quarter, owner_id, owner_name, row_idx, col_idx, row_number, col_number,
			afc_score, nfc_score, prize_cents, settled_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(quarter) DO UPDATE SET
			owner_id = excluded.owner_id,
			owner_name = excluded.owner_name,
			row_idx = excluded.row_idx,
			col_idx = excluded.col_idx,
			row_number = excluded.row_number,
			col_number = excluded.col_number,
			afc_score = excluded.afc_score,
			nfc_score = excluded.nfc_score,
			prize_cents = excluded.prize_cents,
			settled_at = excluded.settled_at
	`, w.Quarter, w.OwnerID, w.OwnerName, w.Row, w.Col, w.RowNumber, w.ColNumber,
		w.AFCScore, w.NFCScore, int64(w.PrizeAmount), settledAt.UTC())
	return err
}

// ListQuarterWinners returns the settled quarters in order
func (r *Repository) ListQuarterWinners(ctx context.Context) ([]models.QuarterWinner, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT quarter, owner_id, owner_name, row_idx, col_idx, row_number, col_number,
			afc_score, nfc_score, prize_cents, settled_at
		FROM quarter_winners ORDER BY quarter
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var winners []models.QuarterWinner
	for rows.Next() {
		var w models.QuarterWinner
		var ownerID sql.NullInt64
		var ownerName sql.NullString
		var prize int64
		if err := rows.Scan(&w.Quarter, &ownerID, &ownerName, &w.Row, &w.Col, &w.RowNumber, &w.ColNumber,
			&w.AFCScore, &w.NFCScore, &prize, &w.SettledAt); err != nil {
			return nil, err
		}
		if ownerID.Valid {
			id := ownerID.Int64
			w.OwnerID = &id
			w.OwnerName = ownerName.String
		}
		w.PrizeAmount = models.Money(prize)
		winners = append(winners, w)
	}
	return winners, rows.Err()
}
