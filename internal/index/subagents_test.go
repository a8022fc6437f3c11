package index

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// indexed session with one unmaterialized subagent transcript
func subagentFixture(t *testing.T) (*Indexer, string) {
	t.Helper()
	ix, _, claudeRoot, _ := newTestIndexer(t)
	claudeSession(t, claudeRoot, "-p", "sess-a")

	subPath := filepath.Join(claudeRoot, "projects", "-p", "sess-a", "subagents", "agent-1.jsonl")
	writeFile(t, subPath,
		`{"type":"user","timestamp":"2026-01-10T09:01:00Z","message":{"role":"user","content":"search the codebase for retries"}}`,
		`{"type":"assistant","timestamp":"2026-01-10T09:01:10Z","message":{"role":"assistant","model":"claude-haiku-4-5","content":[{"type":"text","text":"found three call sites"}]}}`,
	)

	_, err := ix.Run(context.Background(), false)
	require.NoError(t, err)
	return ix, subPath
}

func TestSubagentMessagesMaterializeOnFirstAccess(t *testing.T) {
	ix, _ := subagentFixture(t)

	msgs, err := ix.SubagentMessages(context.Background(), "sess-a", "agent-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	require.Equal(t, "user", msgs[0].Type)
	require.Equal(t, "agent-1", msgs[0].AgentID)
	require.Equal(t, 0, msgs[0].Sequence)
	require.Equal(t, 1, msgs[1].Sequence)
	require.Equal(t, "claude-haiku-4-5", msgs[1].Model)

	sub, err := ix.store.Subagent("sess-a", "agent-1")
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, 2, sub.MessageCount)
	require.Equal(t, "search the codebase for retries", sub.FirstMessage)
}

func TestSubagentMessagesServedFromCache(t *testing.T) {
	ix, subPath := subagentFixture(t)

	first, err := ix.SubagentMessages(context.Background(), "sess-a", "agent-1")
	require.NoError(t, err)
	require.Len(t, first, 2)

	// once persisted, the transcript file is no longer consulted
	require.NoError(t, os.Remove(subPath))

	second, err := ix.SubagentMessages(context.Background(), "sess-a", "agent-1")
	require.NoError(t, err)
	require.Len(t, second, 2)
	require.Equal(t, first[0].ID, second[0].ID)
}

func TestSubagentMessagesUnknownAgent(t *testing.T) {
	ix, _ := subagentFixture(t)

	_, err := ix.SubagentMessages(context.Background(), "sess-a", "nope")
	require.ErrorIs(t, err, ErrSubagentNotFound)

	_, err = ix.SubagentMessages(context.Background(), "no-such-session", "agent-1")
	require.ErrorIs(t, err, ErrSubagentNotFound)
}

func TestSubagentMessagesConcurrentLoadsConverge(t *testing.T) {
	ix, _ := subagentFixture(t)

	const callers = 8
	results := make([][]int, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msgs, err := ix.SubagentMessages(context.Background(), "sess-a", "agent-1")
			require.NoError(t, err)
			for _, m := range msgs {
				results[i] = append(results[i], m.Sequence)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.Equal(t, []int{0, 1}, results[i])
	}

	// exactly one persisted copy
	msgs, err := ix.store.Messages("sess-a", "agent-1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
}

func TestSubagentMessagesEmptyTranscript(t *testing.T) {
	ix, subPath := subagentFixture(t)
	require.NoError(t, os.WriteFile(subPath, []byte(`{"type":"summary","summary":"nothing"}`+"\n"), 0o644))

	msgs, err := ix.SubagentMessages(context.Background(), "sess-a", "agent-1")
	require.NoError(t, err)
	require.Empty(t, msgs)
}
