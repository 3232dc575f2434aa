package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/abrezinsky/squarespool/internal/models"
)

// ==================== Prop Bet Methods ====================

const propColumns = `id, question, answer_type, line, options, point_value, status, correct_answer, display_order, created_at, graded_at`

func scanProp(s rowScanner) (*models.PropBet, error) {
	var p models.PropBet
	var answerType, status string
	var line sql.NullFloat64
	var options, correct sql.NullString
	var createdAt, gradedAt sql.NullTime
	if err := s.Scan(&p.ID, &p.Question, &answerType, &line, &options, &p.PointValue, &status,
		&correct, &p.DisplayOrder, &createdAt, &gradedAt); err != nil {
		return nil, err
	}
	p.AnswerType = models.PropAnswerType(answerType)
	p.Status = models.PropStatus(status)
	p.CorrectAnswer = correct.String
	p.CreatedAt = createdAt.Time
	if line.Valid {
		v := line.Float64
		p.Line = &v
	}
	if options.Valid && options.String != "" {
		if err := json.Unmarshal([]byte(options.String), &p.Options); err != nil {
			return nil, err
		}
	}
	if gradedAt.Valid {
		t := gradedAt.Time
		p.GradedAt = &t
	}
	return &p, nil
}

func optionsJSON(options []string) sql.NullString {
	if len(options) == 0 {
		return sql.NullString{}
	}
	data, _ := json.Marshal(options) // Marshal on []string never fails
	return sql.NullString{String: string(data), Valid: true}
}

// CreateProp inserts a prop in draft status
func (r *Repository) CreateProp(ctx context.Context, p models.PropBet) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO props (question, answer_type, line, options, point_value, status, display_order, created_at)
		VALUES (?, ?, ?, ?, ?, 'draft', ?, ?)
	`, p.Question, string(p.AnswerType), p.Line, optionsJSON(p.Options), p.PointValue, p.DisplayOrder, now())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// GetProp retrieves a prop by id
func (r *Repository) GetProp(ctx context.Context, id int64) (*models.PropBet, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+propColumns+` FROM props WHERE id = ?`, id)
	p, err := scanProp(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return p, err
}

// ListProps returns all props in display order
func (r *Repository) ListProps(ctx context.Context) ([]models.PropBet, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+propColumns+` FROM props ORDER BY display_order, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var props []models.PropBet
	for rows.Next() {
		p, err := scanProp(rows)
		if err != nil {
			return nil, err
		}
		props = append(props, *p)
	}
	return props, rows.Err()
}

// UpdateProp edits a prop that is still a draft. ErrConflict is returned if
// the prop has left draft.
func (r *Repository) UpdateProp(ctx context.Context, p models.PropBet) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM props WHERE id = ?`, p.ID).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if models.PropStatus(status) != models.PropDraft {
			return ErrConflict
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE props SET question = ?, answer_type = ?, line = ?, options = ?, point_value = ?, display_order = ?
			WHERE id = ?
		`, p.Question, string(p.AnswerType), p.Line, optionsJSON(p.Options), p.PointValue, p.DisplayOrder, p.ID)
		return err
	})
}

// SetPropStatus moves a prop from one status to another. The update only
// applies if the prop is still in from, otherwise ErrConflict is returned.
func (r *Repository) SetPropStatus(ctx context.Context, id int64, from, to models.PropStatus) error {
	result, err := r.db.ExecContext(ctx, `UPDATE props SET status = ? WHERE id = ? AND status = ?`, string(to), id, string(from))
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var exists bool
		if err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM props WHERE id = ?)`, id).Scan(&exists); err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrConflict
	}
	return nil
}

// DeleteProp removes a prop and its answers
func (r *Repository) DeleteProp(ctx context.Context, id int64) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM prop_answers WHERE prop_id = ?`, id); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM props WHERE id = ?`, id)
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

// UpsertPropAnswer stores a participant's answer, replacing any earlier one.
// Answers are only accepted while the prop is open; otherwise ErrConflict.
func (r *Repository) UpsertPropAnswer(ctx context.Context, propID, participantID int64, answer string, at time.Time) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM props WHERE id = ?`, propID).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if models.PropStatus(status) != models.PropOpen {
			return ErrConflict
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO prop_answers (prop_id, participant_id, answer, submitted_at)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(prop_id, participant_id) DO UPDATE SET
				answer = excluded.answer,
				submitted_at = excluded.submitted_at,
				is_correct = NULL,
				push = 0,
				points_earned = 0,
				graded_at = NULL
		`, propID, participantID, answer, at.UTC())
		return err
	})
}

const answerQuery = `
	SELECT a.id, a.prop_id, a.participant_id, p.name, a.answer, a.is_correct, a.push, a.points_earned,
		a.submitted_at, a.graded_at
	FROM prop_answers a
	JOIN participants p ON p.id = a.participant_id`

func scanAnswer(s rowScanner) (models.PropAnswer, error) {
	var a models.PropAnswer
	var isCorrect sql.NullBool
	var gradedAt sql.NullTime
	if err := s.Scan(&a.ID, &a.PropID, &a.ParticipantID, &a.ParticipantName, &a.Answer, &isCorrect, &a.Push,
		&a.PointsEarned, &a.SubmittedAt, &gradedAt); err != nil {
		return a, err
	}
	if isCorrect.Valid {
		v := isCorrect.Bool
		a.IsCorrect = &v
	}
	if gradedAt.Valid {
		t := gradedAt.Time
		a.GradedAt = &t
	}
	return a, nil
}

func listAnswers(ctx context.Context, q interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}, where string, arg any) ([]models.PropAnswer, error) {
	rows, err := q.QueryContext(ctx, answerQuery+` WHERE `+where+` ORDER BY a.id`, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var answers []models.PropAnswer
	for rows.Next() {
		a, err := scanAnswer(rows)
		if err != nil {
			return nil, err
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

// ListPropAnswers returns every answer to a prop
func (r *Repository) ListPropAnswers(ctx context.Context, propID int64) ([]models.PropAnswer, error) {
	return listAnswers(ctx, r.db, `a.prop_id = ?`, propID)
}

// ListParticipantAnswers returns every answer a participant submitted
func (r *Repository) ListParticipantAnswers(ctx context.Context, participantID int64) ([]models.PropAnswer, error) {
	return listAnswers(ctx, r.db, `a.participant_id = ?`, participantID)
}

// GradeFunc computes the graded form of one answer
type GradeFunc func(a models.PropAnswer) models.PropAnswer

// GradeProp grades every answer to a prop and marks it graded in a single
// transaction. Answers are read inside the transaction, so an answer cannot
// slip in between reading and grading. The prop must be open, locked or
// already graded; otherwise ErrConflict.
func (r *Repository) GradeProp(ctx context.Context, propID int64, correctAnswer string, grade GradeFunc, at time.Time) ([]models.PropAnswer, error) {
	var graded []models.PropAnswer
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		var status string
		err := tx.QueryRowContext(ctx, `SELECT status FROM props WHERE id = ?`, propID).Scan(&status)
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		switch models.PropStatus(status) {
		case models.PropOpen, models.PropLocked, models.PropGraded:
		default:
			return ErrConflict
		}

		answers, err := listAnswers(ctx, tx, `a.prop_id = ?`, propID)
		if err != nil {
			return err
		}

		gradedAt := at.UTC()
		for _, a := range answers {
			g := grade(a)
			g.GradedAt = &gradedAt
			if _, err := tx.ExecContext(ctx, `
				UPDATE prop_answers SET is_correct = ?, push = ?, points_earned = ?, graded_at = ?
				WHERE id = ?
			`, g.IsCorrect, g.Push, g.PointsEarned, gradedAt, g.ID); err != nil {
				return err
			}
			graded = append(graded, g)
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE props SET status = 'graded', correct_answer = ?, graded_at = ? WHERE id = ?`,
			correctAnswer, gradedAt, propID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return graded, nil
}

// Leaderboard sums prop points per participant who answered at least once.
// Ties are ordered by name.
func (r *Repository) Leaderboard(ctx context.Context) ([]models.LeaderboardEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name,
			COALESCE(SUM(a.points_earned), 0) AS points,
			COALESCE(SUM(CASE WHEN a.is_correct = 1 THEN 1 ELSE 0 END), 0) AS correct,
			COUNT(a.id) AS answered
		FROM participants p
		JOIN prop_answers a ON a.participant_id = p.id
		GROUP BY p.id, p.name
		ORDER BY points DESC, p.name COLLATE NOCASE, p.id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		var e models.LeaderboardEntry
		if err := rows.Scan(&e.ParticipantID, &e.ParticipantName, &e.Points, &e.Correct, &e.Answered); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
