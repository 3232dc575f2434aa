package repository

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/abrezinsky/squarespool/internal/models"
)

// ==================== Payment Methods ====================

const paymentColumns = `id, reference, participant_id, amount_cents, source, status, cells, conflicted, created_at`

func scanPayment(s rowScanner) (*models.Payment, error) {
	var p models.Payment
	var amount int64
	var status, cells string
	var conflicted sql.NullString
	if err := s.Scan(&p.ID, &p.Reference, &p.ParticipantID, &amount, &p.Source, &status, &cells, &conflicted, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Amount = models.Money(amount)
	p.Status = models.PaymentStatus(status)
	if err := json.Unmarshal([]byte(cells), &p.Cells); err != nil {
		return nil, err
	}
	if conflicted.Valid && conflicted.String != "" {
		if err := json.Unmarshal([]byte(conflicted.String), &p.Conflicted); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func cellsJSON(cells []models.Cell) string {
	if cells == nil {
		cells = []models.Cell{}
	}
	data, _ := json.Marshal(cells) // Marshal on []Cell never fails
	return string(data)
}

// RecordPayment applies a completed payment to the grid in one transaction.
//
// The reference is unique: if it was already recorded the stored payment is
// returned with duplicate=true and nothing changes. Otherwise each cell moves
// to paid when it is available or reserved by the payer. Cells the payer
// already bought count as applied. Cells held by anyone else are listed in
// Conflicted and the payment is stored with status partial.
func (r *Repository) RecordPayment(ctx context.Context, p models.Payment) (*models.Payment, bool, error) {
	var stored *models.Payment
	duplicate := false

	err := r.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := scanPayment(tx.QueryRowContext(ctx,
			`SELECT `+paymentColumns+` FROM payments WHERE reference = ?`, p.Reference))
		if err == nil {
			stored, duplicate = existing, true
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		var applied, conflicted []models.Cell
		for _, c := range p.Cells {
			result, err := tx.ExecContext(ctx, `
				UPDATE squares SET owner_id = ?, status = 'paid', reserved_at = NULL
				WHERE row_idx = ? AND col_idx = ?
				  AND (status = 'available' OR (status = 'reserved' AND owner_id = ?))
			`, p.ParticipantID, c.Row, c.Col, p.ParticipantID)
			if err != nil {
				return err
			}
			n, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if n > 0 {
				applied = append(applied, c)
				continue
			}

			var ownerID sql.NullInt64
			var status string
			err = tx.QueryRowContext(ctx, `SELECT owner_id, status FROM squares WHERE row_idx = ? AND col_idx = ?`,
				c.Row, c.Col).Scan(&ownerID, &status)
			if err != nil && err != sql.ErrNoRows {
				return err
			}
			if err == nil && ownerID.Valid && ownerID.Int64 == p.ParticipantID && models.SquareStatus(status).IsSold() {
				applied = append(applied, c)
				continue
			}
			conflicted = append(conflicted, c)
		}

		p.Status = models.PaymentApplied
		if len(conflicted) > 0 {
			p.Status = models.PaymentPartial
		}
		p.Cells = applied
		p.Conflicted = conflicted
		p.CreatedAt = now()

		var conflictedJSON sql.NullString
		if len(conflicted) > 0 {
			conflictedJSON = sql.NullString{String: cellsJSON(conflicted), Valid: true}
		}
		result, err := tx.ExecContext(ctx, `
			INSERT INTO payments (reference, participant_id, amount_cents, source, status, cells, conflicted, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, p.Reference, p.ParticipantID, int64(p.Amount), p.Source, string(p.Status), cellsJSON(applied), conflictedJSON, p.CreatedAt)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		if p.ID, err = result.LastInsertId(); err != nil {
			return err
		}
		stored = &p
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return stored, duplicate, nil
}

// GetPayment retrieves a payment by reference
func (r *Repository) GetPayment(ctx context.Context, reference string) (*models.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = ?`, reference))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// ListPayments returns all payments, newest first
func (r *Repository) ListPayments(ctx context.Context) ([]models.Payment, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+paymentColumns+` FROM payments ORDER BY id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []models.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *p)
	}
	return payments, rows.Err()
}

// ==================== Notification Methods ====================

// InsertNotification appends an outbound message to the audit log
func (r *Repository) InsertNotification(ctx context.Context, n models.Notification) error {
	createdAt := n.CreatedAt
	if createdAt.IsZero() {
		createdAt = now()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO notifications (id, channel, recipient, subject, status, attempts, error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.Channel, n.Recipient, n.Subject, n.Status, n.Attempts, n.Error, createdAt.UTC())
	return err
}

// ListNotifications returns the most recent notifications, newest first
func (r *Repository) ListNotifications(ctx context.Context, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, channel, recipient, subject, status, attempts, error, created_at
		FROM notifications ORDER BY created_at DESC, id LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notifications []models.Notification
	for rows.Next() {
		var n models.Notification
		var subject, errMsg sql.NullString
		if err := rows.Scan(&n.ID, &n.Channel, &n.Recipient, &subject, &n.Status, &n.Attempts, &errMsg, &n.CreatedAt); err != nil {
			return nil, err
		}
		n.Subject = subject.String
		n.Error = errMsg.String
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}
