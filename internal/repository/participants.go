package repository

import (
	"context"
	"database/sql"

	"github.com/abrezinsky/squarespool/internal/models"
)

// ==================== Participant Methods ====================

const participantColumns = `id, name, email, phone, notify_email, notify_sms, access_code, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParticipant(s rowScanner) (*models.Participant, error) {
	var p models.Participant
	var email, phone sql.NullString
	var createdAt sql.NullTime
	if err := s.Scan(&p.ID, &p.Name, &email, &phone, &p.NotifyEmail, &p.NotifySMS, &p.AccessCode, &createdAt); err != nil {
		return nil, err
	}
	p.Email = email.String
	p.Phone = phone.String
	p.CreatedAt = createdAt.Time
	return &p, nil
}

// CreateParticipant inserts a participant and returns its id.
// ErrDuplicate is returned when the access code is taken.
func (r *Repository) CreateParticipant(ctx context.Context, p models.Participant) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO participants (name, email, phone, notify_email, notify_sms, access_code, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Name, p.Email, p.Phone, p.NotifyEmail, p.NotifySMS, p.AccessCode, now())
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrDuplicate
		}
		return 0, err
	}
	return result.LastInsertId()
}

// GetParticipant retrieves a participant by id
func (r *Repository) GetParticipant(ctx context.Context, id int64) (*models.Participant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE id = ?`, id)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// GetParticipantByCode retrieves a participant by access code
func (r *Repository) GetParticipantByCode(ctx context.Context, code string) (*models.Participant, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+participantColumns+` FROM participants WHERE access_code = ?`, code)
	p, err := scanParticipant(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// ListParticipants returns all participants ordered by name
func (r *Repository) ListParticipants(ctx context.Context) ([]models.Participant, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+participantColumns+` FROM participants ORDER BY name COLLATE NOCASE, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var participants []models.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		participants = append(participants, *p)
	}
	return participants, rows.Err()
}

// UpdateParticipant updates the editable fields of a participant
func (r *Repository) UpdateParticipant(ctx context.Context, p models.Participant) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE participants SET name = ?, email = ?, phone = ?, notify_email = ?, notify_sms = ?
		WHERE id = ?
	`, p.Name, p.Email, p.Phone, p.NotifyEmail, p.NotifySMS, p.ID)
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

// DeleteParticipant removes a participant and their prop answers.
// ErrOwnsSquares is returned while any square is still held by them.
func (r *Repository) DeleteParticipant(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var owned int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM squares WHERE owner_id = ?`, id).Scan(&owned); err != nil {
			return err
		}
		if owned > 0 {
			return ErrOwnsSquares
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM prop_answers WHERE participant_id = ?`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM participants WHERE id = ?`, id)
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
	})
}
