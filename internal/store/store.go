package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrEmailExists = errors.New("an account with this email already exists")
)

// Store persists users and completed analyses in SQLite.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL UNIQUE,
	password_hash TEXT NOT NULL,
	picture       TEXT NOT NULL DEFAULT '',
	created_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS analyses (
	id            TEXT PRIMARY KEY,
	user_id       TEXT NOT NULL REFERENCES users(id),
	file_name     TEXT NOT NULL,
	analysis_date TEXT NOT NULL,
	result_json   TEXT NOT NULL,
	document_text TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_analyses_user ON analyses(user_id, analysis_date DESC);
`

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// User is an account row. PasswordHash never leaves the API layer.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Picture      string
	CreatedAt    time.Time
}

func (s *Store) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	u := &User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt.Format(time.RFC3339))
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, picture, created_at FROM users WHERE email = ?`, email))
}

func (s *Store) UserByID(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, picture, created_at FROM users WHERE id = ?`, id))
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	var createdAt string
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Picture, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &u, nil
}

// Analysis is one stored analysis run. Result holds the serialized report.
type Analysis struct {
	ID           string
	UserID       string
	FileName     string
	AnalysisDate time.Time
	Result       json.RawMessage
	DocumentText string
}

// SaveAnalysis inserts a completed analysis, assigning ID and date when
// unset.
func (s *Store) SaveAnalysis(ctx context.Context, a *Analysis) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.AnalysisDate.IsZero() {
		a.AnalysisDate = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO analyses (id, user_id, file_name, analysis_date, result_json, document_text) VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.UserID, a.FileName, a.AnalysisDate.Format(time.RFC3339), string(a.Result), a.DocumentText)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// AnalysesByUser returns all analyses for a user, most recent first.
func (s *Store) AnalysesByUser(ctx context.Context, userID string) ([]Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, file_name, analysis_date, result_json, document_text
		 FROM analyses WHERE user_id = ? ORDER BY analysis_date DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}
	defer rows.Close()

	var out []Analysis
	for rows.Next() {
		a, err := scanAnalysis(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// AnalysisByID returns one analysis, scoped to its owner.
func (s *Store) AnalysisByID(ctx context.Context, id, userID string) (*Analysis, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, user_id, file_name, analysis_date, result_json, document_text
		 FROM analyses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("query analysis: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return scanAnalysis(rows)
}

func scanAnalysis(rows *sql.Rows) (*Analysis, error) {
	var a Analysis
	var date, result string
	if err := rows.Scan(&a.ID, &a.UserID, &a.FileName, &date, &result, &a.DocumentText); err != nil {
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	a.AnalysisDate, _ = time.Parse(time.RFC3339, date)
	a.Result = json.RawMessage(result)
	return &a, nil
}
