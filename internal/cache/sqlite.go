package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore keeps responses in a single table. Unlike FileStore, writes
// from several processes are serialized by SQLite itself.
type SQLiteStore struct {
	conn *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := conn.Exec(pragma); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS responses (
			prompt     TEXT PRIMARY KEY,
			response   TEXT NOT NULL,
			created_at TEXT NOT NULL
		)`
	if _, err := conn.Exec(schema); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to initialize cache schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, prompt string) (Entry, bool, error) {
	var response, created string
	err := s.conn.QueryRowContext(ctx,
		`SELECT response, created_at FROM responses WHERE prompt = ?`, prompt).Scan(&response, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to query cache: %w", err)
	}
	e := Entry{Response: response}
	if t, err := time.ParseInLocation(TimeLayout, created, time.Local); err == nil {
		e.CreatedAt = t
	}
	return e, true, nil
}

func (s *SQLiteStore) Put(ctx context.Context, prompt string, e Entry) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO responses (prompt, response, created_at) VALUES (?, ?, ?)
		 ON CONFLICT(prompt) DO UPDATE SET response = excluded.response, created_at = excluded.created_at`,
		prompt, e.Response, e.CreatedAt.Format(TimeLayout))
	if err != nil {
		return fmt.Errorf("failed to store response: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM responses`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count cache entries: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Clear(ctx context.Context) error {
	if _, err := s.conn.ExecContext(ctx, `DELETE FROM responses`); err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
