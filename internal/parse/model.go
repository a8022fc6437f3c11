package parse

import "time"

// Source tags for the two transcript formats.
const (
	SourceClaude = "claude"
	SourceCodex  = "codex"
)

// Message types in the normalized model.
const (
	TypeUser       = "user"
	TypeAssistant  = "assistant"
	TypeToolResult = "tool_result"
)

// Session is the normalized metadata for one transcript file.
type Session struct {
	ID        string
	Source    string // SourceClaude or SourceCodex
	Cwd       string
	Model     string
	Display   string // first qualifying user message, cleaned and truncated
	FilePath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Message is one conversational record in file-read order.
type Message struct {
	Type           string // TypeUser, TypeAssistant or TypeToolResult
	Content        string // serialized structured payload
	ContentPreview string
	Timestamp      time.Time
	Sequence       int
	ParentUUID     string
	Model          string
	InputTokens    *int64
	OutputTokens   *int64
}

// Result is a parsed transcript: session metadata plus its ordered messages.
// Parsers return nil for files with no real conversational content.
type Result struct {
	Session  Session
	Messages []Message
}
