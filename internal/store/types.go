package store

import "time"

// timeLayout is how timestamps are stored; it sorts lexicographically.
const timeLayout = "2006-01-02T15:04:05Z"

// Session is one indexed transcript file.
type Session struct {
	ID             string
	Source         string
	Project        string
	Cwd            string
	Model          string
	Display        string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	MessageCount   int
	SubagentCount  int
	HasToolResults bool
	FilePath       string
	IndexedAt      time.Time
}

// Message is one conversational record. AgentID is empty for the main
// conversation and names the subagent otherwise.
type Message struct {
	ID             string
	SessionID      string
	AgentID        string
	ParentUUID     string
	Type           string
	Content        string
	ContentPreview string
	Timestamp      time.Time
	Sequence       int
	Model          string
	InputTokens    *int64
	OutputTokens   *int64
}

// Subagent is a reference row for a nested transcript; its messages
// materialize lazily on first access.
type Subagent struct {
	ID           string
	SessionID    string
	AgentID      string
	MessageCount int
	FirstMessage string
	FilePath     string
}

// AssociatedFile is a side file tied to a session by naming convention.
type AssociatedFile struct {
	ID        string
	SessionID string
	FileType  string
	Content   string
	FilePath  string
}

// ToolResult is a cached tool-output payload, loaded on demand by an
// external collaborator.
type ToolResult struct {
	ID             string
	SessionID      string
	ToolUseID      string
	Content        string
	ContentPreview string
	FilePath       string
}

// SessionBundle is everything indexed from one transcript file; it is
// persisted as a single transaction.
type SessionBundle struct {
	Session   Session
	Messages  []Message
	Subagents []Subagent
	Files     []AssociatedFile
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseStoredTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
