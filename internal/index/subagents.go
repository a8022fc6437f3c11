package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/pkerr/ai-session-index/internal/parse"
	"github.com/pkerr/ai-session-index/internal/store"
)

// ErrSubagentNotFound is returned when no subagent reference exists for the
// requested (session, agent) pair.
var ErrSubagentNotFound = errors.New("subagent not found")

// SubagentMessages returns a subagent's conversation, parsing and caching its
// transcript on first access. Concurrent first-time requests for the same
// (session, agent) pair converge on a single parse; the (session, agent,
// sequence) uniqueness constraint in the store backs this up. A subagent
// without a recorded file path, or whose file holds no messages, yields an
// empty result. Parse and persistence failures are surfaced to the caller.
func (ix *Indexer) SubagentMessages(ctx context.Context, sessionID, agentID string) ([]store.Message, error) {
	key := sessionID + "\x00" + agentID
	v, err, _ := ix.loads.Do(key, func() (any, error) {
		return ix.loadSubagentMessages(ctx, sessionID, agentID)
	})
	if err != nil {
		return nil, err
	}
	return v.([]store.Message), nil
}

func (ix *Indexer) loadSubagentMessages(ctx context.Context, sessionID, agentID string) ([]store.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cached, err := ix.store.Messages(sessionID, agentID)
	if err != nil {
		return nil, fmt.Errorf("load cached messages: %w", err)
	}
	if len(cached) > 0 {
		return cached, nil
	}

	sub, err := ix.store.Subagent(sessionID, agentID)
	if err != nil {
		return nil, fmt.Errorf("load subagent: %w", err)
	}
	if sub == nil {
		return nil, ErrSubagentNotFound
	}
	if sub.FilePath == "" {
		return nil, nil
	}

	result, err := parse.ParseClaude(sub.FilePath, ix.logger)
	if err != nil {
		return nil, fmt.Errorf("parse subagent transcript: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	messages := make([]store.Message, 0, len(result.Messages))
	for _, m := range result.Messages {
		messages = append(messages, store.Message{
			SessionID:      sessionID,
			AgentID:        agentID,
			ParentUUID:     m.ParentUUID,
			Type:           m.Type,
			Content:        m.Content,
			ContentPreview: m.ContentPreview,
			Timestamp:      m.Timestamp,
			Sequence:       m.Sequence,
			Model:          m.Model,
			InputTokens:    m.InputTokens,
			OutputTokens:   m.OutputTokens,
		})
	}

	first := firstMessagePreview(result.Messages)
	if err := ix.store.InsertSubagentMessages(sessionID, agentID, messages, first); err != nil {
		return nil, fmt.Errorf("persist subagent messages: %w", err)
	}

	ix.logger.Info("materialized subagent messages",
		zap.String("session_id", sessionID),
		zap.String("agent_id", agentID),
		zap.Int("messages", len(messages)))

	return ix.store.Messages(sessionID, agentID)
}

func firstMessagePreview(messages []parse.Message) string {
	if len(messages) == 0 {
		return ""
	}
	text := parse.ExtractText(json.RawMessage(messages[0].Content))
	return parse.Preview(parse.StripTags(text))
}
