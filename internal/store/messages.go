package store

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

const messageColumns = `id, session_id, agent_id, parent_uuid, type, content, content_preview,
	timestamp, sequence, model, usage_input_tokens, usage_output_tokens`

// Messages returns a conversation in sequence order. agentID "" selects the
// main conversation; a non-empty agentID selects that subagent's messages.
func (s *Store) Messages(sessionID, agentID string) ([]Message, error) {
	rows, err := s.db.Query(
		"SELECT "+messageColumns+" FROM messages WHERE session_id = ? AND agent_id = ? ORDER BY sequence",
		sessionID, agentID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *m)
	}
	return messages, rows.Err()
}

// InsertSubagentMessages persists a lazily parsed subagent conversation and
// updates the subagent's reference row, all in one transaction.
func (s *Store) InsertSubagentMessages(sessionID, agentID string, messages []Message, firstMessage string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := insertMessages(tx, messages); err != nil {
		return err
	}

	_, err = tx.Exec(
		`UPDATE subagents SET message_count = ?, first_message = ?
		 WHERE session_id = ? AND agent_id = ?`,
		len(messages), firstMessage, sessionID, agentID,
	)
	if err != nil {
		return fmt.Errorf("update subagent %s: %w", agentID, err)
	}

	return tx.Commit()
}

func insertMessages(tx *sql.Tx, messages []Message) error {
	if len(messages) == 0 {
		return nil
	}

	stmt, err := tx.Prepare(
		`INSERT INTO messages (` + messageColumns + `)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare messages: %w", err)
	}
	defer stmt.Close()

	for _, m := range messages {
		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		_, err := stmt.Exec(
			id, m.SessionID, m.AgentID, m.ParentUUID, m.Type,
			m.Content, m.ContentPreview, formatTime(m.Timestamp), m.Sequence,
			m.Model, m.InputTokens, m.OutputTokens,
		)
		if err != nil {
			return fmt.Errorf("insert message seq %d: %w", m.Sequence, err)
		}
	}
	return nil
}

func scanMessage(r rowScanner) (*Message, error) {
	var m Message
	var ts string
	var inTok, outTok sql.NullInt64
	err := r.Scan(
		&m.ID, &m.SessionID, &m.AgentID, &m.ParentUUID, &m.Type,
		&m.Content, &m.ContentPreview, &ts, &m.Sequence,
		&m.Model, &inTok, &outTok,
	)
	if err != nil {
		return nil, err
	}
	m.Timestamp = parseStoredTime(ts)
	if inTok.Valid {
		m.InputTokens = &inTok.Int64
	}
	if outTok.Valid {
		m.OutputTokens = &outTok.Int64
	}
	return &m, nil
}
