package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/abrezinsky/squarespool/internal/models"
)

// Repository provides data access methods
type Repository struct {
	db *sql.DB
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign key constraints
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := &Repository{db: db}

	// Run migrations
	if err := repo.migrate(); err != nil {
		return nil, err
	}

	return repo, nil
}

// DB returns the underlying database connection (for transactions)
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS participants (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			email TEXT,
			phone TEXT,
			notify_email BOOLEAN DEFAULT 0,
			notify_sms BOOLEAN DEFAULT 0,
			access_code TEXT UNIQUE NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS squares (
			row_idx INTEGER NOT NULL CHECK (row_idx BETWEEN 0 AND 9),
			col_idx INTEGER NOT NULL CHECK (col_idx BETWEEN 0 AND 9),
			owner_id INTEGER,
			status TEXT NOT NULL DEFAULT 'available',
			row_number INTEGER,
			col_number INTEGER,
			reserved_at DATETIME,
			PRIMARY KEY (row_idx, col_idx),
			FOREIGN KEY (owner_id) REFERENCES participants(id)
		)`,
		`CREATE TABLE IF NOT EXISTS game_state (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			afc_score INTEGER NOT NULL DEFAULT 0,
			nfc_score INTEGER NOT NULL DEFAULT 0,
			quarter INTEGER NOT NULL DEFAULT 0,
			clock TEXT NOT NULL DEFAULT '15:00',
			phase TEXT NOT NULL DEFAULT 'pregame',
			version INTEGER NOT NULL DEFAULT 0,
			source TEXT,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS quarter_winners (
			quarter INTEGER PRIMARY KEY,
			owner_id INTEGER,
			owner_name TEXT,
			row_idx INTEGER NOT NULL,
			col_idx INTEGER NOT NULL,
			row_number INTEGER NOT NULL,
			col_number INTEGER NOT NULL,
			afc_score INTEGER NOT NULL,
			nfc_score INTEGER NOT NULL,
			prize_cents INTEGER NOT NULL,
			settled_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS props (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			question TEXT NOT NULL,
			answer_type TEXT NOT NULL,
			line REAL,
			options TEXT,
			point_value INTEGER NOT NULL DEFAULT 1,
			status TEXT NOT NULL DEFAULT 'draft',
			correct_answer TEXT,
			display_order INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			graded_at DATETIME
		)`,
		`CREATE TABLE IF NOT EXISTS prop_answers (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			prop_id INTEGER NOT NULL,
			participant_id INTEGER NOT NULL,
			answer TEXT NOT NULL,
			is_correct BOOLEAN,
			push BOOLEAN NOT NULL DEFAULT 0,
			points_earned INTEGER NOT NULL DEFAULT 0,
			submitted_at DATETIME NOT NULL,
			graded_at DATETIME,
			FOREIGN KEY (prop_id) REFERENCES props(id) ON DELETE CASCADE,
			FOREIGN KEY (participant_id) REFERENCES participants(id) ON DELETE CASCADE,
			UNIQUE(prop_id, participant_id)
		)`,
		`CREATE TABLE IF NOT EXISTS payments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			reference TEXT UNIQUE NOT NULL,
			participant_id INTEGER NOT NULL,
			amount_cents INTEGER NOT NULL,
			source TEXT NOT NULL,
			status TEXT NOT NULL,
			cells TEXT NOT NULL,
			conflicted TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			channel TEXT NOT NULL,
			recipient TEXT NOT NULL,
			subject TEXT,
			status TEXT NOT NULL,
			attempts INTEGER NOT NULL DEFAULT 0,
			error TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_squares_owner ON squares(owner_id)`,
		`CREATE INDEX IF NOT EXISTS idx_squares_status ON squares(status)`,
		`CREATE INDEX IF NOT EXISTS idx_prop_answers_participant ON prop_answers(participant_id)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_participant ON payments(participant_id)`,
		`INSERT OR IGNORE INTO game_state (id) VALUES (1)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}

	if err := seedSquares(context.Background(), r.db); err != nil {
		return err
	}

	// Insert default settings if not exists
	for key, value := range models.DefaultSettings {
		_, err := r.db.Exec(`INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`, key, value)
		if err != nil {
			return err
		}
	}

	return nil
}

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// seedSquares creates the 100 grid cells if they do not exist
func seedSquares(ctx context.Context, ex execer) error {
	for row := 0; row < models.GridSize; row++ {
		for col := 0; col < models.GridSize; col++ {
			if _, err := ex.ExecContext(ctx,
				`INSERT OR IGNORE INTO squares (row_idx, col_idx, status) VALUES (?, ?, 'available')`,
				row, col); err != nil {
				return err
			}
		}
	}
	return nil
}

// inTx runs fn inside a transaction, committing when it returns nil.
// Every statement inside fn must use tx: the pool holds a single connection.
func (r *Repository) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

func now() time.Time {
	return time.Now().UTC()
}

// ==================== Settings Methods ====================

// GetSetting retrieves a setting value
func (r *Repository) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	return value, err
}

// SetSetting updates a setting value
func (r *Repository) SetSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value)
	return err
}

// SetSettings writes several settings in one transaction
func (r *Repository) SetSettings(ctx context.Context, values map[string]string) error {
	return r.inTx(ctx, func(tx *sql.Tx) error {
		for key, value := range values {
			if _, err := tx.ExecContext(ctx, `INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)`, key, value); err != nil {
				return err
			}
		}
		return nil
	})
}

// AllSettings returns every stored setting
func (r *Repository) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		settings[key] = value
	}
	return settings, rows.Err()
}

// ==================== Stats Methods ====================

// CountSquaresByStatus returns the number of squares in each status
func (r *Repository) CountSquaresByStatus(ctx context.Context) (map[models.SquareStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM squares GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[models.SquareStatus]int{
		models.StatusAvailable: 0,
		models.StatusReserved:  0,
		models.StatusPaid:      0,
		models.StatusConfirmed: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[models.SquareStatus(status)] = n
	}
	return counts, rows.Err()
}

// CountParticipants returns the number of registered participants
func (r *Repository) CountParticipants(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM participants`).Scan(&n)
	return n, err
}

// ==================== Database Management Methods ====================

// Reset targets accepted by ResetPool
const (
	ResetSquares      = "squares"
	ResetWinners      = "winners"
	ResetGame         = "game"
	ResetProps        = "props"
	ResetPayments     = "payments"
	ResetParticipants = "participants"
)

// resetStatements defines which parts of the pool can be reset and how.
// Table names are never taken from input.
var resetStatements = map[string][]string{
	ResetSquares: {
		`UPDATE squares SET owner_id = NULL, status = 'available', row_number = NULL, col_number = NULL, reserved_at = NULL`,
		`UPDATE settings SET value = 'false' WHERE key = 'numbers_launched'`,
		`DELETE FROM quarter_winners`,
	},
	ResetWinners: {
		`DELETE FROM quarter_winners`,
	},
	ResetGame: {
		`UPDATE game_state SET afc_score = 0, nfc_score = 0, quarter = 0, clock = '15:00', phase = 'pregame',
			version = version + 1, source = 'reset', updated_at = CURRENT_TIMESTAMP`,
	},
	ResetProps: {
		`DELETE FROM prop_answers`,
		`DELETE FROM props`,
	},
	ResetPayments: {
		`DELETE FROM payments`,
	},
	ResetParticipants: {
		`UPDATE squares SET owner_id = NULL, status = 'available', row_number = NULL, col_number = NULL, reserved_at = NULL`,
		`UPDATE settings SET value = 'false' WHERE key = 'numbers_launched'`,
		`DELETE FROM quarter_winners`,
		`DELETE FROM prop_answers`,
		`DELETE FROM props`,
		`DELETE FROM payments`,
		`DELETE FROM participants`,
	},
}

// ValidResetTarget reports whether part can be passed to ResetPool
func ValidResetTarget(part string) bool {
	_, ok := resetStatements[part]
	return ok
}

// ResetPool clears the named parts of the pool in one transaction.
// Only whitelisted parts are accepted.
func (r *Repository) ResetPool(ctx context.Context, parts []string) error {
	for _, part := range parts {
		if !ValidResetTarget(part) {
			return ErrInvalidTable
		}
	}

	return r.inTx(ctx, func(tx *sql.Tx) error {
		for _, part := range parts {
			for _, stmt := range resetStatements[part] {
				if _, err := tx.ExecContext(ctx, stmt); err != nil {
					return err
				}
			}
		}
		// Recreate any cells that are missing
		return seedSquares(ctx, tx)
	})
}
