// Package store owns the SQLite database holding indexed sessions. It is the
// only writer; ownership of child rows (messages, subagents, associated
// files, tool results) is enforced here via the explicit cascading delete.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    id               TEXT PRIMARY KEY,
    source           TEXT NOT NULL,
    project          TEXT NOT NULL DEFAULT '',
    cwd              TEXT NOT NULL DEFAULT '',
    model            TEXT NOT NULL DEFAULT '',
    display          TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL,
    message_count    INTEGER NOT NULL DEFAULT 0,
    subagent_count   INTEGER NOT NULL DEFAULT 0,
    has_tool_results INTEGER NOT NULL DEFAULT 0,
    file_path        TEXT NOT NULL UNIQUE,
    indexed_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_source ON sessions(source);
CREATE INDEX IF NOT EXISTS idx_sessions_project ON sessions(project);
CREATE INDEX IF NOT EXISTS idx_sessions_updated_at ON sessions(updated_at);

-- agent_id '' marks the main conversation. The column is NOT NULL because
-- SQLite treats NULLs as distinct in unique indexes, which would defeat the
-- (session, agent, sequence) uniqueness guard.
CREATE TABLE IF NOT EXISTS messages (
    id                  TEXT PRIMARY KEY,
    session_id          TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    agent_id            TEXT NOT NULL DEFAULT '',
    parent_uuid         TEXT NOT NULL DEFAULT '',
    type                TEXT NOT NULL,
    content             TEXT NOT NULL,
    content_preview     TEXT NOT NULL DEFAULT '',
    timestamp           TEXT NOT NULL,
    sequence            INTEGER NOT NULL,
    model               TEXT NOT NULL DEFAULT '',
    usage_input_tokens  INTEGER,
    usage_output_tokens INTEGER,
    UNIQUE (session_id, agent_id, sequence)
);

CREATE TABLE IF NOT EXISTS subagents (
    id            TEXT PRIMARY KEY,
    session_id    TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    agent_id      TEXT NOT NULL,
    message_count INTEGER NOT NULL DEFAULT 0,
    first_message TEXT NOT NULL DEFAULT '',
    file_path     TEXT NOT NULL DEFAULT '',
    UNIQUE (session_id, agent_id)
);

CREATE TABLE IF NOT EXISTS associated_files (
    id         TEXT PRIMARY KEY,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    file_type  TEXT NOT NULL,
    content    TEXT NOT NULL DEFAULT '',
    file_path  TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_associated_files_session ON associated_files(session_id);

CREATE TABLE IF NOT EXISTS tool_results (
    id              TEXT PRIMARY KEY,
    session_id      TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    tool_use_id     TEXT NOT NULL,
    content         TEXT NOT NULL DEFAULT '',
    content_preview TEXT NOT NULL DEFAULT '',
    file_path       TEXT NOT NULL DEFAULT '',
    UNIQUE (session_id, tool_use_id)
);
`

// Store wraps the SQLite database.
type Store struct {
	db *sql.DB
}

// Open creates the database directory if needed, opens the database and
// applies the schema.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Raw exposes the underlying handle for read-only collaborators.
func (s *Store) Raw() *sql.DB {
	return s.db
}
