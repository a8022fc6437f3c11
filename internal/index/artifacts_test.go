package index

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func touchFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestFindAssociatedFilesFixedLocations(t *testing.T) {
	root := t.TempDir()
	todo := filepath.Join(root, "todos", "sess-a.md")
	plan := filepath.Join(root, "plans", "sess-a.md")
	debug := filepath.Join(root, "debug", "sess-a.log")
	touchFile(t, todo)
	touchFile(t, plan)
	touchFile(t, debug)

	// other sessions' files must not leak in
	touchFile(t, filepath.Join(root, "todos", "sess-b.md"))

	files := FindAssociatedFiles("sess-a", root)
	require.Equal(t, map[string]string{
		"todo":  todo,
		"plan":  plan,
		"debug": debug,
	}, files)
}

func TestFindAssociatedFilesSessionDirectory(t *testing.T) {
	root := t.TempDir()
	sessionDir := filepath.Join(root, "projects", "-home-me-proj", "sess-a")

	notes := filepath.Join(sessionDir, "notes.md")
	report := filepath.Join(sessionDir, "output", "report.txt")
	nested := filepath.Join(sessionDir, "docs", "design", "schema.md")
	touchFile(t, notes)
	touchFile(t, report)
	touchFile(t, nested)

	// excluded: wrong extension, the transcript itself, subagent dirs
	touchFile(t, filepath.Join(sessionDir, "render.png"))
	touchFile(t, filepath.Join(root, "projects", "-home-me-proj", "sess-a.jsonl"))
	touchFile(t, filepath.Join(sessionDir, "subagents", "agent-1.jsonl"))

	files := FindAssociatedFiles("sess-a", root)
	require.Equal(t, map[string]string{
		"artifact_notes.md":              notes,
		"artifact_output_report.txt":     report,
		"artifact_docs_design_schema.md": nested,
	}, files)
}

func TestFindAssociatedFilesMissingEverything(t *testing.T) {
	files := FindAssociatedFiles("sess-a", t.TempDir())
	require.Empty(t, files)
}
