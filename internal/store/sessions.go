package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionColumns = `id, source, project, cwd, model, display, created_at, updated_at,
	message_count, subagent_count, has_tool_results, file_path, indexed_at`

// InsertSessionBundle persists a session and all of its children as one
// transaction, replacing any rows previously indexed from the same file. A
// failure rolls back the whole bundle, replacement included, so existing
// rows survive a bad re-index.
func (s *Store) InsertSessionBundle(b *SessionBundle) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	sess := b.Session
	if sess.IndexedAt.IsZero() {
		sess.IndexedAt = time.Now().UTC()
	}
	if err := deleteSessionRows(tx, "file_path = ? OR id = ?", sess.FilePath, sess.ID); err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO sessions (`+sessionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.Source, sess.Project, sess.Cwd, sess.Model, sess.Display,
		formatTime(sess.CreatedAt), formatTime(sess.UpdatedAt),
		len(b.Messages), len(b.Subagents), sess.HasToolResults,
		sess.FilePath, formatTime(sess.IndexedAt),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", sess.ID, err)
	}

	if err := insertMessages(tx, b.Messages); err != nil {
		return err
	}

	for _, sub := range b.Subagents {
		_, err := tx.Exec(
			`INSERT INTO subagents (id, session_id, agent_id, message_count, first_message, file_path)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), sess.ID, sub.AgentID, sub.MessageCount, sub.FirstMessage, sub.FilePath,
		)
		if err != nil {
			return fmt.Errorf("insert subagent %s: %w", sub.AgentID, err)
		}
	}

	for _, f := range b.Files {
		_, err := tx.Exec(
			`INSERT INTO associated_files (id, session_id, file_type, content, file_path)
			 VALUES (?, ?, ?, ?, ?)`,
			uuid.NewString(), sess.ID, f.FileType, f.Content, f.FilePath,
		)
		if err != nil {
			return fmt.Errorf("insert associated file %s: %w", f.FileType, err)
		}
	}

	return tx.Commit()
}

// SessionByFilePath looks a session up by its dedup key. Returns nil when not
// indexed.
func (s *Store) SessionByFilePath(filePath string) (*Session, error) {
	return s.sessionWhere("file_path = ?", filePath)
}

// SessionByID returns nil when no such session exists.
func (s *Store) SessionByID(id string) (*Session, error) {
	return s.sessionWhere("id = ?", id)
}

func (s *Store) sessionWhere(cond string, arg any) (*Session, error) {
	row := s.db.QueryRow("SELECT "+sessionColumns+" FROM sessions WHERE "+cond, arg)
	sess, err := scanSession(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// ListOptions filter and page the session listing.
type ListOptions struct {
	Source  string
	Project string
	Query   string // substring match on display text
	Limit   int
	Offset  int
}

// ListSessions returns sessions sorted by update time, newest first.
func (s *Store) ListSessions(opts ListOptions) ([]Session, error) {
	var conds []string
	var args []any
	if opts.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, opts.Source)
	}
	if opts.Project != "" {
		conds = append(conds, "project = ?")
		args = append(args, opts.Project)
	}
	if opts.Query != "" {
		conds = append(conds, "display LIKE ?")
		args = append(args, "%"+opts.Query+"%")
	}

	q := "SELECT " + sessionColumns + " FROM sessions"
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY updated_at DESC"
	if opts.Limit > 0 {
		q += " LIMIT ?"
		args = append(args, opts.Limit)
		if opts.Offset > 0 {
			q += " OFFSET ?"
			args = append(args, opts.Offset)
		}
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *sess)
	}
	return sessions, rows.Err()
}

// ProjectCount pairs a project path with its session count.
type ProjectCount struct {
	Project  string
	Sessions int
}

// Projects lists distinct project paths with per-project session counts.
func (s *Store) Projects() ([]ProjectCount, error) {
	rows, err := s.db.Query(
		`SELECT project, COUNT(*) FROM sessions
		 WHERE project != '' GROUP BY project ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []ProjectCount
	for rows.Next() {
		var p ProjectCount
		if err := rows.Scan(&p.Project, &p.Sessions); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// SessionCount counts sessions, optionally restricted to one source.
func (s *Store) SessionCount(source string) (int, error) {
	var n int
	var err error
	if source == "" {
		err = s.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	} else {
		err = s.db.QueryRow("SELECT COUNT(*) FROM sessions WHERE source = ?", source).Scan(&n)
	}
	return n, err
}

// MessageCount counts all stored messages.
func (s *Store) MessageCount() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n, err
}

// DeleteSession removes a session and, children first, everything it owns.
func (s *Store) DeleteSession(id string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := deleteSessionRows(tx, "id = ?", id); err != nil {
		return err
	}
	return tx.Commit()
}

// deleteSessionRows removes the sessions matching cond and, children first,
// everything they own, within the caller's transaction.
func deleteSessionRows(tx *sql.Tx, cond string, args ...any) error {
	for _, table := range []string{"messages", "subagents", "associated_files", "tool_results"} {
		_, err := tx.Exec(
			"DELETE FROM "+table+" WHERE session_id IN (SELECT id FROM sessions WHERE "+cond+")",
			args...)
		if err != nil {
			return fmt.Errorf("delete %s: %w", table, err)
		}
	}
	if _, err := tx.Exec("DELETE FROM sessions WHERE "+cond, args...); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(r rowScanner) (*Session, error) {
	var sess Session
	var createdAt, updatedAt, indexedAt string
	err := r.Scan(
		&sess.ID, &sess.Source, &sess.Project, &sess.Cwd, &sess.Model, &sess.Display,
		&createdAt, &updatedAt,
		&sess.MessageCount, &sess.SubagentCount, &sess.HasToolResults,
		&sess.FilePath, &indexedAt,
	)
	if err != nil {
		return nil, err
	}
	sess.CreatedAt = parseStoredTime(createdAt)
	sess.UpdatedAt = parseStoredTime(updatedAt)
	sess.IndexedAt = parseStoredTime(indexedAt)
	return &sess, nil
}
