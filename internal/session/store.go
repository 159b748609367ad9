// Package session persists per-conversation chat state in sqlite: the menu
// context that disambiguates short replies, and the message transcript.
package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Menu values a session can be waiting on. MenuNone means short replies like
// "a" or "2" have nothing to refer to.
const (
	MenuNone     = "ninguno"
	MenuStations = "estaciones"
	MenuConcepts = "conceptos"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	last_menu  TEXT NOT NULL DEFAULT 'ninguno',
	updated_at TIMESTAMP NOT NULL
);
CREATE TABLE IF NOT EXISTS messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_session ON messages(session_id, id);
`

// Message is one transcript entry. Role is "user" or "assistant".
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// Open opens (or creates) the sqlite database at path and applies the schema.
// An empty path selects a private in-memory database.
func Open(path string) (*Store, error) {
	dsn, err := buildDSN(path)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(newLoggingConnector(dsn, slog.Default()))
	// A single connection keeps the in-memory database alive and avoids
	// "database is locked" on file-backed stores.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session db ping: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("session db schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Ping checks database connectivity, for health endpoints.
func (s *Store) Ping(ctx context.Context) error {
	var ok int
	return s.db.QueryRowContext(ctx, `SELECT 1`).Scan(&ok)
}

// Menu returns the session's pending menu context, MenuNone for unknown
// sessions.
func (s *Store) Menu(ctx context.Context, sessionID string) (string, error) {
	var menu string
	err := s.db.QueryRowContext(ctx,
		`SELECT last_menu FROM sessions WHERE session_id = ?`, sessionID).Scan(&menu)
	if err == sql.ErrNoRows {
		return MenuNone, nil
	}
	if err != nil {
		return "", fmt.Errorf("session %s read menu: %w", sessionID, err)
	}
	return menu, nil
}

// SetMenu upserts the session's pending menu context.
func (s *Store) SetMenu(ctx context.Context, sessionID, menu string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (session_id, last_menu, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET last_menu = excluded.last_menu, updated_at = excluded.updated_at`,
		sessionID, menu, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("session %s set menu: %w", sessionID, err)
	}
	return nil
}

// Append records one transcript entry for the session.
func (s *Store) Append(ctx context.Context, sessionID, role, content string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`,
		sessionID, role, content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("session %s append: %w", sessionID, err)
	}
	return nil
}

// History returns the most recent limit entries in chronological order.
// A limit <= 0 returns the whole transcript.
func (s *Store) History(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	query := `SELECT role, content, created_at FROM messages WHERE session_id = ? ORDER BY id DESC`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("session %s history: %w", sessionID, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.Role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("session %s history scan: %w", sessionID, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("session %s history rows: %w", sessionID, err)
	}
	// Reverse to chronological order.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func buildDSN(path string) (string, error) {
	if path == "" {
		return "file::memory:?_foreign_keys=on", nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	params := []string{
		"_foreign_keys=on",
		"_busy_timeout=5000",
		"_journal_mode=WAL",
	}
	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}
	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
