package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func testBundle(id, filePath string) *SessionBundle {
	now := time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC)
	return &SessionBundle{
		Session: Session{
			ID:        id,
			Source:    "claude",
			Project:   "/home/me/proj",
			Cwd:       "/home/me/proj",
			Model:     "claude-sonnet-4-5",
			Display:   "Fix the bug",
			CreatedAt: now,
			UpdatedAt: now.Add(time.Minute),
			FilePath:  filePath,
		},
		Messages: []Message{
			{SessionID: id, Type: "user", Content: `{"content":"Fix the bug"}`, ContentPreview: `{"content":"Fix the bug"}`, Timestamp: now, Sequence: 0},
			{SessionID: id, Type: "assistant", Content: `{"content":"done"}`, ContentPreview: `{"content":"done"}`, Timestamp: now.Add(time.Minute), Sequence: 1},
		},
		Subagents: []Subagent{
			{SessionID: id, AgentID: "agent-a", FilePath: "/tmp/agent-a.jsonl"},
		},
		Files: []AssociatedFile{
			{SessionID: id, FileType: "todo", Content: "- [ ] fix", FilePath: "/tmp/todo.md"},
		},
	}
}

func TestInsertAndLookupSession(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.InsertSessionBundle(testBundle("s1", "/tmp/s1.jsonl")))

	sess, err := st.SessionByFilePath("/tmp/s1.jsonl")
	require.NoError(t, err)
	require.NotNil(t, sess)
	require.Equal(t, "s1", sess.ID)
	require.Equal(t, 2, sess.MessageCount)
	require.Equal(t, 1, sess.SubagentCount)
	require.Equal(t, "Fix the bug", sess.Display)
	require.Equal(t, time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC), sess.CreatedAt)
	require.False(t, sess.IndexedAt.IsZero())

	byID, err := st.SessionByID("s1")
	require.NoError(t, err)
	require.NotNil(t, byID)
	require.Equal(t, sess.FilePath, byID.FilePath)

	missing, err := st.SessionByFilePath("/tmp/other.jsonl")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestInsertReplacesSameFilePath(t *testing.T) {
	st := newTestStore(t)

	require.NoError(t, st.InsertSessionBundle(testBundle("s1", "/tmp/s1.jsonl")))
	// same path, different id: the old rows are replaced, never duplicated
	require.NoError(t, st.InsertSessionBundle(testBundle("s2", "/tmp/s1.jsonl")))

	n, err := st.SessionCount("")
	require.NoError(t, err)
	require.Equal(t, 1, n)

	sess, err := st.SessionByFilePath("/tmp/s1.jsonl")
	require.NoError(t, err)
	require.Equal(t, "s2", sess.ID)

	old, err := st.Messages("s1", "")
	require.NoError(t, err)
	require.Empty(t, old)

	total, err := st.MessageCount()
	require.NoError(t, err)
	require.Equal(t, 2, total)
}

func TestBundleRollsBackAsUnit(t *testing.T) {
	st := newTestStore(t)

	bad := testBundle("s1", "/tmp/s1.jsonl")
	// duplicate sequence in the same scope fails mid-bundle
	bad.Messages = append(bad.Messages, Message{SessionID: "s1", Type: "user", Content: "{}", Sequence: 1})

	require.Error(t, st.InsertSessionBundle(bad))

	sess, err := st.SessionByID("s1")
	require.NoError(t, err)
	require.Nil(t, sess)

	n, err := st.MessageCount()
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestMessagesOrderedBySequence(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertSessionBundle(testBundle("s1", "/tmp/s1.jsonl")))

	messages, err := st.Messages("s1", "")
	require.NoError(t, err)
	require.Len(t, messages, 2)
	require.Equal(t, 0, messages[0].Sequence)
	require.Equal(t, 1, messages[1].Sequence)
	require.Equal(t, "user", messages[0].Type)
}

func TestSubagentsAndFiles(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertSessionBundle(testBundle("s1", "/tmp/s1.jsonl")))

	subagents, err := st.Subagents("s1")
	require.NoError(t, err)
	require.Len(t, subagents, 1)
	require.Equal(t, "agent-a", subagents[0].AgentID)
	require.Zero(t, subagents[0].MessageCount)

	sub, err := st.Subagent("s1", "agent-a")
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, "/tmp/agent-a.jsonl", sub.FilePath)

	none, err := st.Subagent("s1", "agent-z")
	require.NoError(t, err)
	require.Nil(t, none)

	files, err := st.AssociatedFiles("s1")
	require.NoError(t, err)
	require.Len(t, files, 1)
	require.Equal(t, "todo", files[0].FileType)
}

func TestInsertSubagentMessages(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertSessionBundle(testBundle("s1", "/tmp/s1.jsonl")))

	msgs := []Message{
		{SessionID: "s1", AgentID: "agent-a", Type: "user", Content: "{}", Timestamp: time.Now(), Sequence: 0},
		{SessionID: "s1", AgentID: "agent-a", Type: "assistant", Content: "{}", Timestamp: time.Now(), Sequence: 1},
	}
	require.NoError(t, st.InsertSubagentMessages("s1", "agent-a", msgs, "first words"))

	got, err := st.Messages("s1", "agent-a")
	require.NoError(t, err)
	require.Len(t, got, 2)

	// main conversation untouched
	main, err := st.Messages("s1", "")
	require.NoError(t, err)
	require.Len(t, main, 2)

	sub, err := st.Subagent("s1", "agent-a")
	require.NoError(t, err)
	require.Equal(t, 2, sub.MessageCount)
	require.Equal(t, "first words", sub.FirstMessage)
}

func TestDeleteSessionCascades(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertSessionBundle(testBundle("s1", "/tmp/s1.jsonl")))
	require.NoError(t, st.InsertSessionBundle(testBundle("s2", "/tmp/s2.jsonl")))

	require.NoError(t, st.DeleteSession("s1"))

	sess, err := st.SessionByID("s1")
	require.NoError(t, err)
	require.Nil(t, sess)

	msgs, err := st.Messages("s1", "")
	require.NoError(t, err)
	require.Empty(t, msgs)

	subs, err := st.Subagents("s1")
	require.NoError(t, err)
	require.Empty(t, subs)

	files, err := st.AssociatedFiles("s1")
	require.NoError(t, err)
	require.Empty(t, files)

	// the other session is untouched
	other, err := st.SessionByID("s2")
	require.NoError(t, err)
	require.NotNil(t, other)
}

func TestBundleFailureKeepsExistingSession(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.InsertSessionBundle(testBundle("s1", "/tmp/s1.jsonl")))

	bad := testBundle("s1", "/tmp/s1.jsonl")
	bad.Messages = append(bad.Messages, Message{SessionID: "s1", Type: "user", Content: "{}", Sequence: 1})
	require.Error(t, st.InsertSessionBundle(bad))

	// the rolled-back replacement left the original rows in place
	sess, err := st.SessionByID("s1")
	require.NoError(t, err)
	require.NotNil(t, sess)

	msgs, err := st.Messages("s1", "")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
}

func TestListSessions(t *testing.T) {
	st := newTestStore(t)

	b1 := testBundle("s1", "/tmp/s1.jsonl")
	b2 := testBundle("s2", "/tmp/s2.jsonl")
	b2.Session.Source = "codex"
	b2.Session.Project = "/home/me/api"
	b2.Session.Display = "add retries"
	b2.Session.UpdatedAt = b1.Session.UpdatedAt.Add(time.Hour)
	require.NoError(t, st.InsertSessionBundle(b1))
	require.NoError(t, st.InsertSessionBundle(b2))

	all, err := st.ListSessions(ListOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	// newest first
	require.Equal(t, "s2", all[0].ID)

	claude, err := st.ListSessions(ListOptions{Source: "claude"})
	require.NoError(t, err)
	require.Len(t, claude, 1)
	require.Equal(t, "s1", claude[0].ID)

	byProject, err := st.ListSessions(ListOptions{Project: "/home/me/api"})
	require.NoError(t, err)
	require.Len(t, byProject, 1)

	byQuery, err := st.ListSessions(ListOptions{Query: "retries"})
	require.NoError(t, err)
	require.Len(t, byQuery, 1)
	require.Equal(t, "s2", byQuery[0].ID)

	paged, err := st.ListSessions(ListOptions{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, paged, 1)
	require.Equal(t, "s1", paged[0].ID)
}

func TestProjects(t *testing.T) {
	st := newTestStore(t)

	b1 := testBundle("s1", "/tmp/s1.jsonl")
	b2 := testBundle("s2", "/tmp/s2.jsonl")
	b3 := testBundle("s3", "/tmp/s3.jsonl")
	b3.Session.Project = "/home/me/api"
	require.NoError(t, st.InsertSessionBundle(b1))
	require.NoError(t, st.InsertSessionBundle(b2))
	require.NoError(t, st.InsertSessionBundle(b3))

	projects, err := st.Projects()
	require.NoError(t, err)
	require.Len(t, projects, 2)
	require.Equal(t, "/home/me/proj", projects[0].Project)
	require.Equal(t, 2, projects[0].Sessions)
}
