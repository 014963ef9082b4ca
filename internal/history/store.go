// Package history persists the command exchange record: one row per
// submitted command with its outcome. The in-memory message log stays the
// source of truth for the session; history is a write-behind observer.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded command exchange.
type Entry struct {
	ID        int64
	Command   string
	Response  string
	Action    string
	Success   bool
	ErrorMsg  string
	CreatedAt time.Time
}

// Stats summarizes the recorded history.
type Stats struct {
	Total      int64
	Succeeded  int64
	TopActions map[string]int64
}

// SQLiteStore implements the history recorder on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS history (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		command     TEXT NOT NULL,
		response    TEXT,
		action      TEXT,
		success     INTEGER NOT NULL DEFAULT 0,
		error_msg   TEXT,
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_history_created ON history(created_at);
	CREATE INDEX IF NOT EXISTS idx_history_action ON history(action);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Log records one command exchange.
func (s *SQLiteStore) Log(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO history (command, response, action, success, error_msg) VALUES (?, ?, ?, ?, ?)`,
		e.Command, e.Response, e.Action, boolInt(e.Success), e.ErrorMsg,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

// Recent returns the newest entries, most recent first.
func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, response, action, success, error_msg, created_at
		 FROM history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Search returns entries whose command or response contains the query,
// most recent first.
func (s *SQLiteStore) Search(ctx context.Context, query string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	like := "%" + query + "%"
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, command, response, action, success, error_msg, created_at
		 FROM history WHERE command LIKE ? OR response LIKE ?
		 ORDER BY id DESC LIMIT ?`, like, like, limit)
	if err != nil {
		return nil, fmt.Errorf("search history: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Stats aggregates totals and the per-action breakdown.
func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := &Stats{TopActions: make(map[string]int64)}

	row := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(success), 0) FROM history`)
	if err := row.Scan(&st.Total, &st.Succeeded); err != nil {
		return nil, fmt.Errorf("history totals: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT action, COUNT(*) FROM history WHERE action != '' GROUP BY action ORDER BY COUNT(*) DESC LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("history action stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var action string
		var count int64
		if err := rows.Scan(&action, &count); err != nil {
			return nil, err
		}
		st.TopActions[action] = count
	}
	return st, rows.Err()
}

// Clear deletes all recorded history.
func (s *SQLiteStore) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM history`)
	if err != nil {
		return 0, fmt.Errorf("clear history: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	var out []Entry
	for rows.Next() {
		var e Entry
		var success int
		var response, action, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.Command, &response, &action, &success, &errMsg, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Response = response.String
		e.Action = action.String
		e.ErrorMsg = errMsg.String
		e.Success = success != 0
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
