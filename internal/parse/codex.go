package parse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Codex record kinds. Lines of any other kind are ignored.
const (
	codexKindSessionMeta  = "session_meta"
	codexKindResponseItem = "response_item"
)

// Response item subtypes that become messages.
const (
	codexItemMessage        = "message"
	codexItemFunctionCall   = "function_call"
	codexItemFunctionOutput = "function_call_output"
)

// codexRecord is the envelope of one line in a Codex transcript.
type codexRecord struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type codexSessionMeta struct {
	ID            string `json:"id"`
	Cwd           string `json:"cwd"`
	ModelProvider string `json:"model_provider"`
}

type codexResponseItem struct {
	Type    string `json:"type"`
	Role    string `json:"role"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// ParseCodex parses a Codex session transcript. It returns nil (and no error)
// when the file holds no real conversational content.
func ParseCodex(filePath string, logger *zap.Logger) (*Result, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open transcript: %w", err)
	}
	defer f.Close()

	result := &Result{
		Session: Session{
			Source:   SourceCodex,
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

		var rec codexRecord
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

		switch rec.Type {
		case codexKindSessionMeta:
			var meta codexSessionMeta
			if err := json.Unmarshal(rec.Payload, &meta); err != nil {
				logger.Debug("skipping malformed session_meta",
					zap.String("file", filePath),
					zap.Int("line", lineNum),
					zap.Error(err))
				continue
			}
			if meta.ID != "" {
				result.Session.ID = meta.ID
			}
			result.Session.Cwd = meta.Cwd
			if meta.ModelProvider != "" {
				result.Session.Model = fmt.Sprintf("Codex (%s)", meta.ModelProvider)
			}

		case codexKindResponseItem:
			var item codexResponseItem
			if err := json.Unmarshal(rec.Payload, &item); err != nil {
				continue
			}

			var msgType string
			switch item.Type {
			case codexItemMessage:
				if item.Role != "user" && item.Role != "assistant" {
					continue
				}
				msgType = item.Role
				if item.Role == "user" && display == "" {
					text := codexItemText(item)
					cleaned := StripTags(text)
					if strings.TrimSpace(text) != "" && cleaned != "" && !IsSystemMessage(text) {
						display = truncate(cleaned, previewLen)
					}
				}
			case codexItemFunctionCall:
				msgType = TypeAssistant
			case codexItemFunctionOutput:
				msgType = TypeToolResult
			default:
				continue
			}

			content := rawContent(rec.Payload)
			result.Messages = append(result.Messages, Message{
				Type:           msgType,
				Content:        content,
				ContentPreview: Preview(content),
				Timestamp:      messageTime(ts),
				Sequence:       sequence,
			})
			sequence++

		default:
			// event_msg, turn_context and friends: ignored
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}

	if len(result.Messages) == 0 {
		return nil, nil
	}

	// Filename stem keeps ids unique when no session_meta was seen.
	if result.Session.ID == "" {
		result.Session.ID = strings.TrimSuffix(filepath.Base(filePath), ".jsonl")
	}

	if display == "" {
		display = noUserMessage
	}
	result.Session.Display = display
	fillSessionTimes(&result.Session)

	return result, nil
}

// codexItemText concatenates the typed text parts of a response item.
func codexItemText(item codexResponseItem) string {
	var sb strings.Builder
	for _, c := range item.Content {
		switch c.Type {
		case "input_text", "text", "output_text":
			sb.WriteString(c.Text)
		}
	}
	return sb.String()
}
