package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"aide/internal/logging"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the durable store for conversations, governance records,
// audit rows, and memory. One store is shared by all conversations; every
// write is a single-row insert or update keyed by primary identifier.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is created if it doesn't exist; parent directories are created
// if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := logging.With("component", "store")

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL mode for better concurrent performance
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist.
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS conversations (
			id         TEXT PRIMARY KEY,
			user       TEXT NOT NULL,
			title      TEXT,
			started_at TEXT NOT NULL,
			ended_at   TEXT
		);

		CREATE INDEX IF NOT EXISTS idx_conversations_started
			ON conversations(started_at DESC);

		CREATE TABLE IF NOT EXISTS messages (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			role            TEXT NOT NULL,
			content         TEXT NOT NULL,
			kind            TEXT NOT NULL DEFAULT 'text',
			tool_call_id    TEXT,
			tool_name       TEXT,
			tool_input      TEXT,
			created_at      TEXT NOT NULL,

			CHECK (role IN ('user', 'assistant', 'tool')),
			CHECK (kind IN ('text', 'json'))
		);

		CREATE INDEX IF NOT EXISTS idx_messages_conversation
			ON messages(conversation_id, created_at);

		CREATE TABLE IF NOT EXISTS tools (
			id               TEXT PRIMARY KEY,
			name             TEXT NOT NULL UNIQUE,
			category         TEXT NOT NULL,
			description      TEXT,
			risk             TEXT NOT NULL,
			requires_confirm INTEGER NOT NULL,
			enabled          INTEGER NOT NULL DEFAULT 1,

			CHECK (risk IN ('low', 'medium', 'high'))
		);

		CREATE TABLE IF NOT EXISTS tool_runs (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			message_id      TEXT,
			tool_id         TEXT NOT NULL REFERENCES tools(id),
			status          TEXT NOT NULL,
			input           TEXT,
			output          TEXT,
			error           TEXT,
			duration_ms     INTEGER,
			started_at      TEXT NOT NULL,
			finished_at     TEXT,

			CHECK (status IN ('running', 'success', 'failed'))
		);

		CREATE INDEX IF NOT EXISTS idx_tool_runs_conversation
			ON tool_runs(conversation_id, started_at);
		CREATE INDEX IF NOT EXISTS idx_tool_runs_started
			ON tool_runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS approvals (
			id          TEXT PRIMARY KEY,
			tool_run_id TEXT REFERENCES tool_runs(id),
			user        TEXT NOT NULL,
			prompt      TEXT NOT NULL,
			decision    TEXT NOT NULL DEFAULT 'pending',
			response    TEXT,
			created_at  TEXT NOT NULL,
			decided_at  TEXT,

			CHECK (decision IN ('pending', 'approved', 'denied'))
		);

		CREATE TABLE IF NOT EXISTS feedback (
			id              TEXT PRIMARY KEY,
			conversation_id TEXT,
			message_id      TEXT,
			tool_run_id     TEXT,
			rating          INTEGER NOT NULL,
			label           TEXT,
			correction      TEXT,
			created_at      TEXT NOT NULL,

			CHECK (rating BETWEEN 1 AND 5)
		);

		CREATE TABLE IF NOT EXISTS memory_items (
			id         TEXT PRIMARY KEY,
			type       TEXT NOT NULL,
			content    TEXT NOT NULL,
			importance INTEGER NOT NULL DEFAULT 3,
			pinned     INTEGER NOT NULL DEFAULT 0,
			source     TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL,
			expires_at TEXT,

			CHECK (importance BETWEEN 1 AND 5)
		);

		CREATE INDEX IF NOT EXISTS idx_memory_importance
			ON memory_items(importance DESC, pinned DESC);

		CREATE TABLE IF NOT EXISTS preferences (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS skills (
			id           TEXT PRIMARY KEY,
			name         TEXT NOT NULL UNIQUE,
			description  TEXT,
			uses         INTEGER NOT NULL DEFAULT 0,
			successes    INTEGER NOT NULL DEFAULT 0,
			created_at   TEXT NOT NULL,
			last_used_at TEXT
		);

		CREATE TABLE IF NOT EXISTS memory_vectors (
			memory_id  TEXT PRIMARY KEY REFERENCES memory_items(id) ON DELETE CASCADE,
			embedding  BLOB NOT NULL,
			dim        INTEGER NOT NULL,
			model      TEXT NOT NULL,
			created_at TEXT NOT NULL
		);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.logger.Info("closing SQLite store")
	return s.db.Close()
}
