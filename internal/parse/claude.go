package parse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// maxLineSize caps one transcript line; tool outputs embedded in assistant
// records can be huge.
const maxLineSize = 10 * 1024 * 1024

// Claude record kinds that carry conversation content. Everything else
// (progress markers, file-history snapshots, summaries) contributes nothing.
const (
	claudeKindUser      = "user"
	claudeKindAssistant = "assistant"
)

// claudeRecord is the envelope of one line in a Claude Code transcript.
type claudeRecord struct {
	Type       string          `json:"type"`
	Timestamp  string          `json:"timestamp"`
	UUID       string          `json:"uuid"`
	ParentUUID string          `json:"parentUuid"`
	Cwd        string          `json:"cwd"`
	Message    json.RawMessage `json:"message"`
}

// claudeAssistantPayload is the slice of an assistant message payload the
// indexer cares about; the full payload is stored verbatim.
type claudeAssistantPayload struct {
	Model string `json:"model"`
	Usage struct {
		InputTokens  *int64 `json:"input_tokens"`
		OutputTokens *int64 `json:"output_tokens"`
	} `json:"usage"`
}

// ParseClaude parses a Claude Code session transcript. It returns nil (and no
// error) when the file holds no real conversational content.
func ParseClaude(filePath string, logger *zap.Logger) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	result := &Result{
		Session: Session{
			ID:       strings.TrimSuffix(filepath.Base(filePath), ".jsonl"),
			Source:   SourceClaude,
			FilePath: filePath,
		},
	}

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	sequence := 0
	lineNum := 0
	var display string

	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var rec claudeRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			logger.Debug("skipping malformed line",
				zap.String("file", filePath),
				zap.Int("line", lineNum),
				zap.Error(err))
			continue
		}

		ts := recordTime(rec.Timestamp)
		if !ts.IsZero() {
			if result.Session.CreatedAt.IsZero() {
				result.Session.CreatedAt = ts
			}
			result.Session.UpdatedAt = ts
		}
		if rec.Cwd != "" && result.Session.Cwd == "" {
			result.Session.Cwd = rec.Cwd
		}

		switch rec.Type {
		case claudeKindUser:
			content := rawContent(rec.Message)
			if display == "" {
				text := ExtractText(rec.Message)
				cleaned := StripTags(text)
				if cleaned != "" &&
					!strings.HasPrefix(cleaned, planPreamble) &&
					!IsSystemMessage(text) {
					display = truncate(cleaned, previewLen)
				}
			}
			result.Messages = append(result.Messages, Message{
				Type:           TypeUser,
				Content:        content,
				ContentPreview: Preview(content),
				Timestamp:      messageTime(ts),
				Sequence:       sequence,
				ParentUUID:     rec.ParentUUID,
			})
			sequence++

		case claudeKindAssistant:
			content := rawContent(rec.Message)
			var payload claudeAssistantPayload
			if len(rec.Message) > 0 {
				_ = json.Unmarshal(rec.Message, &payload)
			}
			if payload.Model != "" && result.Session.Model == "" {
				result.Session.Model = payload.Model
			}
			result.Messages = append(result.Messages, Message{
				Type:           TypeAssistant,
				Content:        content,
				ContentPreview: Preview(content),
				Timestamp:      messageTime(ts),
				Sequence:       sequence,
				ParentUUID:     rec.ParentUUID,
				Model:          payload.Model,
				InputTokens:    payload.Usage.InputTokens,
				OutputTokens:   payload.Usage.OutputTokens,
			})
			sequence++

		default:
			// progress and snapshot markers: no conversation content
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	// Files holding only non-conversational records are index-skipped.
	if len(result.Messages) == 0 {
		return nil, nil
	}

	if display == "" {
		display = noUserMessage
	}
	result.Session.Display = display
	fillSessionTimes(&result.Session)

	return result, nil
}

// noUserMessage is the display sentinel for sessions without a qualifying
// user message.
const noUserMessage = "No user message"

// rawContent serializes a record's message payload for storage.
func rawContent(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "{}"
	}
	return string(raw)
}

// recordTime parses a record timestamp. Unparseable values fall back to the
// ingestion clock; an absent value yields the zero time.
func recordTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Now().UTC()
}

// messageTime substitutes the ingestion clock for records without timestamps.
func messageTime(ts time.Time) time.Time {
	if ts.IsZero() {
		return time.Now().UTC()
	}
	return ts
}

func fillSessionTimes(s *Session) {
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.UpdatedAt.IsZero() {
		s.UpdatedAt = now
	}
}
