// Package storage persists sessions, prompt history and conversation memory in SQLite.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/doeshing/promptmate/internal/domain"
	"github.com/doeshing/promptmate/internal/pkg/filesystem"
	"github.com/doeshing/promptmate/internal/ports"
)

// SQLiteStore implements the repository ports on one SQLite database.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// DefaultPath returns ~/.promptmate/promptmate.db.
func DefaultPath() string {
	return filepath.Join(filesystem.ConfigDir(), "promptmate.db")
}

// Open creates (or opens) the database at path and applies the schema.
func Open(path string) (*SQLiteStore, error) {
	if path == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), domain.DirectoryPermissions); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &SQLiteStore{db: db, path: path}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Ping checks that the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Path returns the database file location.
func (s *SQLiteStore) Path() string {
	return s.path
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS sessions (
		id               TEXT PRIMARY KEY,
		user_id          TEXT,
		conversation_id  TEXT,
		role             TEXT NOT NULL DEFAULT '',
		task             TEXT NOT NULL DEFAULT '',
		context          TEXT NOT NULL DEFAULT '{}',
		constraints      TEXT NOT NULL DEFAULT '[]',
		user_preferences TEXT NOT NULL DEFAULT '{}',
		created_at       TEXT NOT NULL,
		updated_at       TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS intents (
		id         TEXT PRIMARY KEY,
		session_id TEXT NOT NULL REFERENCES sessions(id),
		user_input TEXT NOT NULL,
		intent     TEXT NOT NULL,
		created_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_intents_session ON intents(session_id);

	CREATE TABLE IF NOT EXISTS questions (
		id          TEXT PRIMARY KEY,
		intent_id   TEXT NOT NULL REFERENCES intents(id),
		text        TEXT NOT NULL,
		priority    INTEGER NOT NULL,
		rationale   TEXT,
		options     TEXT NOT NULL DEFAULT '[]',
		default_val TEXT,
		answer      TEXT,
		answered_at TEXT,
		created_at  TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_questions_intent ON questions(intent_id);

	CREATE TABLE IF NOT EXISTS prompt_history (
		id                 TEXT PRIMARY KEY,
		session_id         TEXT NOT NULL REFERENCES sessions(id),
		prompt_hash        TEXT NOT NULL,
		original_prompt    TEXT NOT NULL,
		synthesized_prompt TEXT NOT NULL,
		model_used         TEXT NOT NULL,
		provider           TEXT NOT NULL,
		response           TEXT NOT NULL,
		tokens_used        INTEGER NOT NULL,
		temperature        REAL NOT NULL,
		quality_level      TEXT,
		created_at         TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_history_session ON prompt_history(session_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS feedback (
		id                TEXT PRIMARY KEY,
		session_id        TEXT NOT NULL REFERENCES sessions(id),
		prompt_history_id TEXT,
		text              TEXT NOT NULL,
		sentiment         TEXT NOT NULL,
		created_at        TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		id              TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role            TEXT NOT NULL,
		content         TEXT NOT NULL,
		metadata        TEXT,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at);

	CREATE TABLE IF NOT EXISTS conversation_memory (
		id              TEXT PRIMARY KEY,
		user_id         TEXT NOT NULL,
		conversation_id TEXT NOT NULL,
		message_id      TEXT,
		content         TEXT NOT NULL,
		embedding       BLOB NOT NULL,
		metadata        TEXT,
		created_at      TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_memory_user ON conversation_memory(user_id, created_at);

	CREATE TABLE IF NOT EXISTS usage (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id    TEXT NOT NULL,
		model      TEXT NOT NULL,
		tokens     INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS custom_instructions (
		user_id      TEXT PRIMARY KEY,
		instructions TEXT NOT NULL,
		active       INTEGER NOT NULL DEFAULT 1,
		updated_at   TEXT NOT NULL
	);
	`)
	return err
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}

var (
	_ ports.SessionRepository        = (*SQLiteStore)(nil)
	_ ports.HistoryRepository        = (*SQLiteStore)(nil)
	_ ports.MemoryRepository         = (*SQLiteStore)(nil)
	_ ports.UsageRecorder            = (*SQLiteStore)(nil)
	_ ports.CustomInstructionsSource = (*SQLiteStore)(nil)
)
