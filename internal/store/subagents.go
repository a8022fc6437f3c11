package store

import "database/sql"

const subagentColumns = `id, session_id, agent_id, message_count, first_message, file_path`

// Subagents lists the subagent references for a session.
func (s *Store) Subagents(sessionID string) ([]Subagent, error) {
	rows, err := s.db.Query(
		"SELECT "+subagentColumns+" FROM subagents WHERE session_id = ? ORDER BY agent_id",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subagents []Subagent
	for rows.Next() {
		var sub Subagent
		if err := rows.Scan(&sub.ID, &sub.SessionID, &sub.AgentID, &sub.MessageCount, &sub.FirstMessage, &sub.FilePath); err != nil {
			return nil, err
		}
		subagents = append(subagents, sub)
	}
	return subagents, rows.Err()
}

// Subagent returns one subagent reference, or nil when it does not exist.
func (s *Store) Subagent(sessionID, agentID string) (*Subagent, error) {
	var sub Subagent
	err := s.db.QueryRow(
		"SELECT "+subagentColumns+" FROM subagents WHERE session_id = ? AND agent_id = ?",
		sessionID, agentID,
	).Scan(&sub.ID, &sub.SessionID, &sub.AgentID, &sub.MessageCount, &sub.FirstMessage, &sub.FilePath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// AssociatedFiles lists the side files captured for a session.
func (s *Store) AssociatedFiles(sessionID string) ([]AssociatedFile, error) {
	rows, err := s.db.Query(
		"SELECT id, session_id, file_type, content, file_path FROM associated_files WHERE session_id = ? ORDER BY file_type",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []AssociatedFile
	for rows.Next() {
		var f AssociatedFile
		if err := rows.Scan(&f.ID, &f.SessionID, &f.FileType, &f.Content, &f.FilePath); err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, rows.Err()
}
